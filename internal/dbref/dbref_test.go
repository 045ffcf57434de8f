// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dbref_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/pkg/errutil"
)

func TestRef_EqualIgnoresKind(t *testing.T) {
	assert.True(t, dbref.New(5, dbref.KindThing).Equal(dbref.New(5, dbref.KindPlayer)))
	assert.False(t, dbref.New(5, dbref.KindThing).Equal(dbref.New(6, dbref.KindThing)))
	assert.False(t, dbref.New(5, dbref.KindRoom).Equal(dbref.New(6, dbref.KindRoom)))
}

func TestRef_Compare(t *testing.T) {
	a := dbref.New(3, dbref.KindExit)
	b := dbref.New(7, dbref.KindThing)

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(dbref.New(3, dbref.KindRoom)))
}

func TestRef_String(t *testing.T) {
	tests := []struct {
		name string
		ref  dbref.Ref
		want string
	}{
		{"thing", dbref.New(12, dbref.KindThing), "#12T"},
		{"room", dbref.Aether, "#0R"},
		{"player", dbref.God, "#1P"},
		{"exit", dbref.New(40, dbref.KindExit), "#40E"},
		{"program", dbref.New(9, dbref.KindProgram), "#9F"},
		{"unknown", dbref.New(9, dbref.KindUnknown), "#9U"},
		{"not found", dbref.NotFound, "#-1"},
		{"ambiguous", dbref.Ambiguous, "#-2"},
		{"home", dbref.Home, "#-3"},
		{"nil", dbref.Nil, "#-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.String())
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantNum  int32
		wantKind dbref.Kind
	}{
		{"bare number", "#12", 12, dbref.KindUnknown},
		{"room letter", "#3R", 3, dbref.KindRoom},
		{"lowercase letter", "#3r", 3, dbref.KindRoom},
		{"player", "#1P", 1, dbref.KindPlayer},
		{"not found sentinel", "#-1", -1, dbref.KindThing},
		{"home sentinel", "#-3", -3, dbref.KindThing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dbref.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNum, got.Number())
			assert.Equal(t, tt.wantKind, got.Kind())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "#", "12", "#X", "#12Q", "#abc", "#99999999999"} {
		t.Run(input, func(t *testing.T) {
			got, err := dbref.Parse(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, dbref.ErrInvalidRef)
			errutil.AssertErrorCode(t, err, "INVALID_REF")
			assert.Equal(t, dbref.NotFound, got)
		})
	}
}

func TestParse_RoundTripsCanonicalForm(t *testing.T) {
	for _, r := range []dbref.Ref{dbref.Aether, dbref.God, dbref.NotFound, dbref.New(77, dbref.KindExit)} {
		parsed, err := dbref.Parse(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
}

func TestRef_TextMarshaling(t *testing.T) {
	var r dbref.Ref
	require.NoError(t, r.UnmarshalText([]byte("#8R")))
	assert.Equal(t, dbref.New(8, dbref.KindRoom), r)

	b, err := r.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "#8R", string(b))
}

func TestParseKind(t *testing.T) {
	k, ok := dbref.ParseKind("exit")
	assert.True(t, ok)
	assert.Equal(t, dbref.KindExit, k)

	_, ok = dbref.ParseKind("vehicle")
	assert.False(t, ok)
}
