// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package codec

import (
	"slices"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/lock"
	"github.com/holomush/muckdb/internal/world"
)

// EncodeRefs writes a reference set in number order. Order in refs is
// irrelevant.
func EncodeRefs(w *strings.Builder, refs []dbref.Ref) {
	if len(refs) == 0 {
		writeEmpty(w, TagRefSet)
		return
	}
	sorted := slices.Clone(refs)
	slices.SortFunc(sorted, dbref.Ref.Compare)
	writeOpen(w, TagRefSet)
	for _, r := range sorted {
		EncodeRef(w, r)
	}
	writeClose(w, TagRefSet)
}

// DecodeRefs reads a reference set.
func DecodeRefs(text string) ([]dbref.Ref, string, error) {
	rest, empty, err := openTag(text, TagRefSet)
	if err != nil || empty {
		return nil, rest, err
	}
	var refs []dbref.Ref
	for {
		if after, ok := atClose(rest, TagRefSet); ok {
			return refs, after, nil
		}
		var r dbref.Ref
		r, rest, err = DecodeRef(rest)
		if err != nil {
			return nil, "", err
		}
		refs = append(refs, r)
	}
}

// EncodeArray writes an ordered array of values. See EncodeValue for the
// accepted element types.
func EncodeArray(w *strings.Builder, items []any) error {
	if len(items) == 0 {
		writeEmpty(w, TagArray)
		return nil
	}
	writeOpen(w, TagArray)
	for i, v := range items {
		if err := EncodeValue(w, v); err != nil {
			return oops.With("index", i).Wrap(err)
		}
	}
	writeClose(w, TagArray)
	return nil
}

// DecodeArray reads an array, decoding each element by its own tag.
func DecodeArray(text string) ([]any, string, error) {
	rest, empty, err := openTag(text, TagArray)
	if err != nil || empty {
		return nil, rest, err
	}
	var items []any
	for {
		if after, ok := atClose(rest, TagArray); ok {
			return items, after, nil
		}
		var v any
		v, rest, err = DecodeValue(rest)
		if err != nil {
			return nil, "", err
		}
		items = append(items, v)
	}
}

// EncodeStrings writes a list of non-null strings as an array.
func EncodeStrings(w *strings.Builder, ss []string) {
	if len(ss) == 0 {
		writeEmpty(w, TagArray)
		return
	}
	writeOpen(w, TagArray)
	for i := range ss {
		EncodeString(w, &ss[i])
	}
	writeClose(w, TagArray)
}

// DecodeStrings reads an array whose elements are all non-null strings.
func DecodeStrings(text string) ([]string, string, error) {
	rest, empty, err := openTag(text, TagArray)
	if err != nil || empty {
		return nil, rest, err
	}
	var out []string
	for {
		if after, ok := atClose(rest, TagArray); ok {
			return out, after, nil
		}
		var s string
		s, rest, err = decodeText(rest)
		if err != nil {
			return nil, "", err
		}
		out = append(out, s)
	}
}

// EncodeFlags writes flags as an array of codepoints in ascending order.
func EncodeFlags(w *strings.Builder, flags []world.Flag) {
	if len(flags) == 0 {
		writeEmpty(w, TagArray)
		return
	}
	sorted := slices.Clone(flags)
	slices.Sort(sorted)
	writeOpen(w, TagArray)
	for _, f := range sorted {
		EncodeUint16(w, uint16(f))
	}
	writeClose(w, TagArray)
}

// DecodeFlags reads a flag array.
func DecodeFlags(text string) ([]world.Flag, string, error) {
	rest, empty, err := openTag(text, TagArray)
	if err != nil || empty {
		return nil, rest, err
	}
	var flags []world.Flag
	for {
		if after, ok := atClose(rest, TagArray); ok {
			return flags, after, nil
		}
		var n uint16
		n, rest, err = DecodeUint16(rest)
		if err != nil {
			return nil, "", err
		}
		if slices.Contains(flags, world.Flag(n)) {
			return nil, "", malformed(rest, "duplicate flag %d", n)
		}
		flags = append(flags, world.Flag(n))
	}
}

// EncodeValue writes any supported value: *string, string, int64, int,
// float64, uint16, time.Time, dbref.Ref, *lock.Lock, []any, []dbref.Ref,
// *world.PropertyTree or a world.PropValue scalar.
func EncodeValue(w *strings.Builder, v any) error {
	switch v := v.(type) {
	case *string:
		EncodeString(w, v)
	case string:
		EncodeString(w, &v)
	case int64:
		EncodeInt(w, v)
	case int:
		EncodeInt(w, int64(v))
	case float64:
		EncodeFloat(w, v)
	case uint16:
		EncodeUint16(w, v)
	case time.Time:
		EncodeDate(w, v)
	case dbref.Ref:
		EncodeRef(w, v)
	case *lock.Lock:
		EncodeLock(w, v)
	case []any:
		return EncodeArray(w, v)
	case []dbref.Ref:
		EncodeRefs(w, v)
	case world.PropValue:
		return EncodeProp(w, v)
	default:
		return oops.Code(CodeDecodeFailed).Errorf("cannot encode value of type %T", v)
	}
	return nil
}

// DecodeValue reads whatever element is at the head of text. Strings decode
// to *string, integers to int64, floats to float64, directories to
// *world.PropertyTree; the rest decode as their Decode functions do.
func DecodeValue(text string) (any, string, error) {
	tag, err := PeekTag(text)
	if err != nil {
		return nil, "", err
	}
	switch tag {
	case TagString:
		return wrap(DecodeString(text))
	case TagInt:
		return wrap(DecodeInt(text))
	case TagFloat:
		return wrap(DecodeFloat(text))
	case TagUint16:
		return wrap(DecodeUint16(text))
	case TagDate:
		return wrap(DecodeDate(text))
	case TagRef:
		return wrap(DecodeRef(text))
	case TagLock:
		return wrap(DecodeLock(text))
	case TagArray:
		return wrap(DecodeArray(text))
	case TagRefSet:
		return wrap(DecodeRefs(text))
	case TagDir:
		return wrap(DecodeDir(text))
	default:
		return nil, "", malformed(text, "unexpected <%s>", tag)
	}
}

func wrap[T any](v T, rest string, err error) (any, string, error) {
	if err != nil {
		return nil, "", err
	}
	return v, rest, nil
}
