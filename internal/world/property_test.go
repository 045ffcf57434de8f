// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/world"
	"github.com/holomush/muckdb/pkg/errutil"
)

func TestPropertyTree_SetGet(t *testing.T) {
	tree := world.NewPropertyTree()
	promoted, err := tree.Set("/a/b/c", world.IntProp(3))
	require.NoError(t, err)
	assert.False(t, promoted)

	v, ok := tree.Get("a/b/c")
	require.True(t, ok)
	assert.Equal(t, world.IntProp(3), v)

	_, ok = tree.Get("a/b/missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, tree.Keys())
}

func TestPropertyTree_ScalarMidPathIsMiss(t *testing.T) {
	tree := world.NewPropertyTree()
	_, err := tree.Set("a", world.StringProp("leaf"))
	require.NoError(t, err)

	_, ok := tree.Get("a/b")
	assert.False(t, ok)
}

func TestPropertyTree_SetPromotesScalar(t *testing.T) {
	tree := world.NewPropertyTree()
	_, err := tree.Set("a", world.StringProp("leaf"))
	require.NoError(t, err)

	promoted, err := tree.Set("a/b", world.FloatProp(1.5))
	require.NoError(t, err)
	assert.True(t, promoted)

	v, ok := tree.Get("a/b")
	require.True(t, ok)
	assert.Equal(t, world.FloatProp(1.5), v)
}

func TestPropertyTree_EmptyPath(t *testing.T) {
	tree := world.NewPropertyTree()
	_, err := tree.Set("//", world.IntProp(1))
	require.ErrorIs(t, err, world.ErrEmptyPath)
	errutil.AssertErrorCode(t, err, "INVALID_PROPERTY_PATH")
}

func TestPropertyTree_Delete(t *testing.T) {
	tree := world.NewPropertyTree()
	_, err := tree.Set("x/y", world.IntProp(1))
	require.NoError(t, err)

	assert.False(t, tree.Delete("x/z"))
	assert.True(t, tree.Delete("x/y"))
	_, ok := tree.Get("x/y")
	assert.False(t, ok)

	dir, ok := tree.Get("x")
	require.True(t, ok)
	assert.Equal(t, 0, dir.(*world.PropertyTree).Len())
}

func TestPropertyTree_Glob(t *testing.T) {
	tree := world.NewPropertyTree()
	for _, p := range []string{"_reg/sword", "_reg/shield", "_reg/deep/axe", "desc"} {
		_, err := tree.Set(p, world.StringProp(p))
		require.NoError(t, err)
	}

	got, err := tree.Glob("_reg/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"_reg/shield", "_reg/sword"}, got)

	got, err = tree.Glob("_reg/**")
	require.NoError(t, err)
	assert.Equal(t, []string{"_reg/deep/axe", "_reg/shield", "_reg/sword"}, got)

	_, err = tree.Glob("[")
	errutil.AssertErrorCode(t, err, "INVALID_PROPERTY_PATTERN")
}

func TestPropertyTree_CloneIsDeep(t *testing.T) {
	tree := world.NewPropertyTree()
	_, err := tree.Set("a/b", world.RefProp(dbref.God))
	require.NoError(t, err)

	c := tree.Clone()
	_, err = c.Set("a/c", world.IntProp(2))
	require.NoError(t, err)

	_, ok := tree.Get("a/c")
	assert.False(t, ok)
}

func TestFormatProp(t *testing.T) {
	assert.Equal(t, "hi", world.FormatProp(world.StringProp("hi")))
	assert.Equal(t, "-4", world.FormatProp(world.IntProp(-4)))
	assert.Equal(t, "0.25", world.FormatProp(world.FloatProp(0.25)))
	assert.Equal(t, "#1P", world.FormatProp(world.RefProp(dbref.God)))
	assert.Equal(t, "", world.FormatProp(world.NewPropertyTree()))
}
