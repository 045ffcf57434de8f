// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package codec implements the persisted text form of entities.
//
// The grammar is a flat sequence of nestable tagged elements:
//
//	<str>text</str>   <str/> is null, <str></str> is the empty string
//	<int>-12</int>    <flt>1.5</flt>    <u16>87</u16>
//	<date>2026-01-02T03:04:05Z</date>   <date/> is the zero time
//	<ref>#12T</ref>   <lock>#1 | me</lock>
//	<arr>...</arr>    ordered, heterogeneous
//	<refs>...</refs>  reference set, written in number order
//	<dir>...</dir>    property directory: key, value, key, value...
//	<dict>...</dict>  an entity's top-level field bag
//
// Text bodies escape '<', '>' and '&'. Every decoder consumes one element
// from the head of its input and returns the remainder. Encoding is
// deterministic, so encode, decode, encode yields identical bytes for every
// well-formed entity; VerifyRoundTrip checks exactly that.
package codec

import "errors"

// Error codes carried by codec failures.
const (
	CodeDecodeFailed = "DECODE_FAILED"
	CodeUnknownKind  = "UNKNOWN_KIND"
	CodeCorruption   = "CORRUPTION_DETECTED"
)

// Element tags.
const (
	TagString = "str"
	TagInt    = "int"
	TagFloat  = "flt"
	TagUint16 = "u16"
	TagDate   = "date"
	TagRef    = "ref"
	TagLock   = "lock"
	TagArray  = "arr"
	TagRefSet = "refs"
	TagDir    = "dir"
	TagDict   = "dict"
)

var (
	// ErrMalformed reports text that does not follow the grammar.
	ErrMalformed = errors.New("malformed encoding")
	// ErrUnknownKind reports a kind tag with no registered entity type.
	ErrUnknownKind = errors.New("unknown entity kind")
	// ErrUnknownField reports a top-level key the entity type does not have.
	ErrUnknownField = errors.New("unknown entity field")
	// ErrRoundTrip reports an entity whose encoding does not survive a
	// decode and re-encode unchanged.
	ErrRoundTrip = errors.New("round-trip encoding mismatch")
)
