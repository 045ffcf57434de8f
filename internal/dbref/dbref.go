// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package dbref defines the typed numeric reference used to address every
// entity in the world database.
//
// A Ref pairs an integer id with a Kind tag. The kind is informational only:
// two references are the same entity when their numbers match, regardless of
// kind. Use Equal, not ==, when comparing references.
package dbref

import (
	"errors"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// Kind tags the object type a reference points at.
type Kind uint8

// Object kinds.
const (
	KindUnknown Kind = iota
	KindGarbage
	KindThing
	KindRoom
	KindPlayer
	KindExit
	KindProgram
)

var kindLetters = [...]byte{
	KindUnknown: 'U',
	KindGarbage: 'G',
	KindThing:   'T',
	KindRoom:    'R',
	KindPlayer:  'P',
	KindExit:    'E',
	KindProgram: 'F',
}

var kindNames = [...]string{
	KindUnknown: "Unknown",
	KindGarbage: "Garbage",
	KindThing:   "Thing",
	KindRoom:    "Room",
	KindPlayer:  "Player",
	KindExit:    "Exit",
	KindProgram: "Program",
}

// Letter returns the single-letter suffix used in the canonical text form.
func (k Kind) Letter() byte {
	if int(k) < len(kindLetters) {
		return kindLetters[k]
	}
	return kindLetters[KindUnknown]
}

// String returns the kind's name, which doubles as its persisted type tag.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// KindFromLetter maps a kind letter (case-insensitive) back to its Kind.
func KindFromLetter(c byte) (Kind, bool) {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	for k, l := range kindLetters {
		if l == c {
			return Kind(k), true
		}
	}
	return KindUnknown, false
}

// ParseKind maps a type tag such as "Room" back to its Kind.
func ParseKind(tag string) (Kind, bool) {
	for k, name := range kindNames {
		if strings.EqualFold(name, tag) {
			return Kind(k), true
		}
	}
	return KindUnknown, false
}

// Ref identifies one entity, or one of the negative sentinel outcomes.
// The zero value is #0 of unknown kind.
type Ref struct {
	number int32
	kind   Kind
}

// Sentinel and well-known references.
var (
	NotFound  = Ref{number: -1, kind: KindThing}
	Ambiguous = Ref{number: -2, kind: KindThing}
	Home      = Ref{number: -3, kind: KindThing}
	Nil       = Ref{number: -4, kind: KindThing}

	Aether = Ref{number: 0, kind: KindRoom}
	God    = Ref{number: 1, kind: KindPlayer}
)

// New builds a reference from an id and a kind.
func New(number int32, kind Kind) Ref {
	return Ref{number: number, kind: kind}
}

// Number returns the numeric id.
func (r Ref) Number() int32 { return r.number }

// Kind returns the informational kind tag.
func (r Ref) Kind() Kind { return r.kind }

// WithKind returns a copy of r tagged with kind.
func (r Ref) WithKind(kind Kind) Ref {
	return Ref{number: r.number, kind: kind}
}

// Equal reports whether r and o address the same entity. Kind is ignored.
func (r Ref) Equal(o Ref) bool {
	return r.number == o.number
}

// Compare orders references by number only.
func (r Ref) Compare(o Ref) int {
	switch {
	case r.number < o.number:
		return -1
	case r.number > o.number:
		return 1
	default:
		return 0
	}
}

// IsSentinel reports whether r is one of the negative outcome values.
func (r Ref) IsSentinel() bool {
	return r.number < 0
}

// IsValid reports whether r could name a stored entity.
func (r Ref) IsValid() bool {
	return r.number >= 0
}

// String renders the canonical form: #<number><kind-letter> for real ids,
// #<number> for sentinels.
func (r Ref) String() string {
	s := "#" + strconv.FormatInt(int64(r.number), 10)
	if r.number < 0 {
		return s
	}
	return s + string(r.kind.Letter())
}

// MarshalText implements encoding.TextMarshaler.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ref) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ErrInvalidRef is returned when text is not in #<number>[<kind-letter>] form.
var ErrInvalidRef = errors.New("invalid reference")

// Parse reads #<number>[<kind-letter>]. A missing letter yields KindUnknown,
// except for the well-known sentinels which keep their canonical kind.
func Parse(s string) (Ref, error) {
	body, ok := strings.CutPrefix(s, "#")
	if !ok || body == "" {
		return NotFound, oops.Code("INVALID_REF").With("text", s).Wrap(ErrInvalidRef)
	}

	kind := KindUnknown
	if last := body[len(body)-1]; (last < '0' || last > '9') && len(body) > 1 {
		k, known := KindFromLetter(last)
		if !known {
			return NotFound, oops.Code("INVALID_REF").With("text", s).Wrap(ErrInvalidRef)
		}
		kind = k
		body = body[:len(body)-1]
	}

	n, err := strconv.ParseInt(body, 10, 32)
	if err != nil {
		return NotFound, oops.Code("INVALID_REF").With("text", s).Wrap(ErrInvalidRef)
	}
	if n < 0 {
		for _, sentinel := range []Ref{NotFound, Ambiguous, Home, Nil} {
			if sentinel.number == int32(n) {
				return sentinel, nil
			}
		}
	}
	return Ref{number: int32(n), kind: kind}, nil
}

// MustParse is Parse for literals known to be valid. It panics on error.
func MustParse(s string) Ref {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}
