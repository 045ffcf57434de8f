// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/lock"
)

// DateLayout is the persisted time format. Times are stored in UTC.
const DateLayout = time.RFC3339Nano

// EncodeString writes s, or the null marker when s is nil.
func EncodeString(w *strings.Builder, s *string) {
	if s == nil {
		writeEmpty(w, TagString)
		return
	}
	writeScalar(w, TagString, escape(*s))
}

// DecodeString reads a string element. Null decodes to nil.
func DecodeString(text string) (*string, string, error) {
	body, null, rest, err := scalarBody(text, TagString)
	if err != nil || null {
		return nil, rest, err
	}
	s := unescape(body)
	return &s, rest, nil
}

// decodeText reads a string element that must not be null.
func decodeText(text string) (string, string, error) {
	s, rest, err := DecodeString(text)
	if err != nil {
		return "", "", err
	}
	if s == nil {
		return "", "", malformed(text, "unexpected null string")
	}
	return *s, rest, nil
}

// EncodeInt writes an integer element.
func EncodeInt(w *strings.Builder, n int64) {
	writeScalar(w, TagInt, strconv.FormatInt(n, 10))
}

// DecodeInt reads an integer element.
func DecodeInt(text string) (int64, string, error) {
	body, null, rest, err := scalarBody(text, TagInt)
	if err != nil {
		return 0, "", err
	}
	if null {
		return 0, "", malformed(text, "null <%s>", TagInt)
	}
	n, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return 0, "", malformed(text, "bad integer %q", body)
	}
	return n, rest, nil
}

// EncodeFloat writes a float element in shortest round-trip form.
func EncodeFloat(w *strings.Builder, f float64) {
	writeScalar(w, TagFloat, strconv.FormatFloat(f, 'g', -1, 64))
}

// DecodeFloat reads a float element.
func DecodeFloat(text string) (float64, string, error) {
	body, null, rest, err := scalarBody(text, TagFloat)
	if err != nil {
		return 0, "", err
	}
	if null {
		return 0, "", malformed(text, "null <%s>", TagFloat)
	}
	f, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return 0, "", malformed(text, "bad float %q", body)
	}
	return f, rest, nil
}

// EncodeUint16 writes a uint16 element.
func EncodeUint16(w *strings.Builder, n uint16) {
	writeScalar(w, TagUint16, strconv.FormatUint(uint64(n), 10))
}

// DecodeUint16 reads a uint16 element.
func DecodeUint16(text string) (uint16, string, error) {
	body, null, rest, err := scalarBody(text, TagUint16)
	if err != nil {
		return 0, "", err
	}
	if null {
		return 0, "", malformed(text, "null <%s>", TagUint16)
	}
	n, err := strconv.ParseUint(body, 10, 16)
	if err != nil {
		return 0, "", malformed(text, "bad uint16 %q", body)
	}
	return uint16(n), rest, nil
}

// EncodeDate writes a date element. The zero time is written as null.
func EncodeDate(w *strings.Builder, t time.Time) {
	if t.IsZero() {
		writeEmpty(w, TagDate)
		return
	}
	writeScalar(w, TagDate, t.UTC().Format(DateLayout))
}

// DecodeDate reads a date element. Null decodes to the zero time.
func DecodeDate(text string) (time.Time, string, error) {
	body, null, rest, err := scalarBody(text, TagDate)
	if err != nil || null {
		return time.Time{}, rest, err
	}
	t, err := time.Parse(DateLayout, body)
	if err != nil {
		return time.Time{}, "", malformed(text, "bad date %q", body)
	}
	return t.UTC(), rest, nil
}

// EncodeRef writes a reference in canonical form.
func EncodeRef(w *strings.Builder, r dbref.Ref) {
	writeScalar(w, TagRef, r.String())
}

// DecodeRef reads a reference element.
func DecodeRef(text string) (dbref.Ref, string, error) {
	body, null, rest, err := scalarBody(text, TagRef)
	if err != nil {
		return dbref.NotFound, "", err
	}
	if null {
		return dbref.NotFound, "", malformed(text, "null <%s>", TagRef)
	}
	r, err := dbref.Parse(body)
	if err != nil {
		return dbref.NotFound, "", malformed(text, "bad reference %q", body)
	}
	return r, rest, nil
}

// EncodeLock writes a lock in canonical form. A nil lock is null.
func EncodeLock(w *strings.Builder, l *lock.Lock) {
	if l == nil {
		writeEmpty(w, TagLock)
		return
	}
	writeScalar(w, TagLock, escape(l.String()))
}

// DecodeLock reads a lock element. Null decodes to nil.
func DecodeLock(text string) (*lock.Lock, string, error) {
	body, null, rest, err := scalarBody(text, TagLock)
	if err != nil || null {
		return nil, rest, err
	}
	l, err := lock.Parse(unescape(body))
	if err != nil {
		return nil, "", malformed(text, "bad lock: %v", err)
	}
	return l, rest, nil
}
