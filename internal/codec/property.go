// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package codec

import (
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/world"
)

// EncodeProp writes one property value.
func EncodeProp(w *strings.Builder, v world.PropValue) error {
	switch v := v.(type) {
	case world.StringProp:
		s := string(v)
		EncodeString(w, &s)
	case world.IntProp:
		EncodeInt(w, int64(v))
	case world.FloatProp:
		EncodeFloat(w, float64(v))
	case world.RefProp:
		EncodeRef(w, dbref.Ref(v))
	case world.LockProp:
		EncodeLock(w, v.Lock)
	case *world.PropertyTree:
		return EncodeDir(w, v)
	default:
		return oops.Code(CodeDecodeFailed).Errorf("cannot encode property of type %T", v)
	}
	return nil
}

// DecodeProp reads one property value.
func DecodeProp(text string) (world.PropValue, string, error) {
	tag, err := PeekTag(text)
	if err != nil {
		return nil, "", err
	}
	switch tag {
	case TagString:
		s, rest, err := decodeText(text)
		return world.StringProp(s), rest, err
	case TagInt:
		n, rest, err := DecodeInt(text)
		return world.IntProp(n), rest, err
	case TagFloat:
		f, rest, err := DecodeFloat(text)
		return world.FloatProp(f), rest, err
	case TagRef:
		r, rest, err := DecodeRef(text)
		return world.RefProp(r), rest, err
	case TagLock:
		l, rest, err := DecodeLock(text)
		return world.LockProp{Lock: l}, rest, err
	case TagDir:
		return wrapProp(DecodeDir(text))
	default:
		return nil, "", malformed(text, "<%s> is not a property value", tag)
	}
}

func wrapProp(t *world.PropertyTree, rest string, err error) (world.PropValue, string, error) {
	if err != nil {
		return nil, "", err
	}
	return t, rest, nil
}

// EncodeDir writes a property directory as alternating keys and values in
// key order.
func EncodeDir(w *strings.Builder, t *world.PropertyTree) error {
	if t == nil || t.Len() == 0 {
		writeEmpty(w, TagDir)
		return nil
	}
	writeOpen(w, TagDir)
	for _, k := range t.Keys() {
		v, _ := t.Child(k)
		EncodeString(w, &k)
		if err := EncodeProp(w, v); err != nil {
			return oops.With("key", k).Wrap(err)
		}
	}
	writeClose(w, TagDir)
	return nil
}

// DecodeDir reads a property directory.
func DecodeDir(text string) (*world.PropertyTree, string, error) {
	tree := world.NewPropertyTree()
	rest, empty, err := openTag(text, TagDir)
	if err != nil || empty {
		if err != nil {
			return nil, "", err
		}
		return tree, rest, nil
	}
	for {
		if after, ok := atClose(rest, TagDir); ok {
			return tree, after, nil
		}
		var key string
		at := rest
		key, rest, err = decodeText(rest)
		if err != nil {
			return nil, "", err
		}
		if key == "" || strings.Contains(key, world.PathSeparator) {
			return nil, "", malformed(at, "bad property key %q", key)
		}
		if _, dup := tree.Child(key); dup {
			return nil, "", malformed(at, "duplicate property key %q", key)
		}
		var v world.PropValue
		v, rest, err = DecodeProp(rest)
		if err != nil {
			return nil, "", oops.With("key", key).Wrap(err)
		}
		if _, err := tree.Set(key, v); err != nil {
			return nil, "", err
		}
	}
}
