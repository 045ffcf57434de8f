// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package codec

import (
	"slices"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/dbref"
	"github.com/holomush/muckdb/internal/world"
)

// Top-level field keys, in the order Encode writes them.
const (
	KeyID          = "id"
	KeyName        = "name"
	KeyLocation    = "location"
	KeyContents    = "contents"
	KeyLinkTargets = "linkTargets"
	KeyTemplates   = "templates"
	KeyFlags       = "flags"
	KeyDescription = "externalDescription"
	KeyOwner       = "owner"
	KeyPennies     = "pennies"
	KeyProperties  = "properties"

	KeyAliases     = "aliases"
	KeyLastConnect = "lastConnect"
	KeySource      = "source"
)

// Codec converts entities to and from their persisted text.
type Codec interface {
	Encode(e world.Entity) (string, error)
	Decode(kind, text string) (world.Entity, error)
}

// Standard is the registry-backed codec used for persistence.
var Standard Codec = standard{}

type standard struct{}

func (standard) Encode(e world.Entity) (string, error)         { return Encode(e) }
func (standard) Decode(kind, text string) (world.Entity, error) { return Decode(kind, text) }

// extraField is a subtype-specific top-level field.
type extraField struct {
	key    string
	encode func(w *strings.Builder, e world.Entity)
	decode func(e world.Entity, text string) (string, error)
}

type kindEntry struct {
	create func() world.Entity
	extras []extraField
}

// registry maps a persisted kind tag to its constructor and extra fields.
var registry = map[string]kindEntry{
	dbref.KindThing.String(): {
		create: func() world.Entity { return world.NewThing() },
	},
	dbref.KindRoom.String(): {
		create: func() world.Entity { return world.NewRoom() },
	},
	dbref.KindPlayer.String(): {
		create: func() world.Entity { return world.NewPlayer() },
		extras: []extraField{{
			key: KeyLastConnect,
			encode: func(w *strings.Builder, e world.Entity) {
				EncodeDate(w, e.(*world.Player).LastConnect())
			},
			decode: func(e world.Entity, text string) (string, error) {
				t, rest, err := DecodeDate(text)
				if err != nil {
					return "", err
				}
				e.(*world.Player).RestoreLastConnect(t)
				return rest, nil
			},
		}},
	},
	dbref.KindExit.String(): {
		create: func() world.Entity { return world.NewExit() },
		extras: []extraField{{
			key: KeyAliases,
			encode: func(w *strings.Builder, e world.Entity) {
				EncodeStrings(w, e.(*world.Exit).Aliases())
			},
			decode: func(e world.Entity, text string) (string, error) {
				aliases, rest, err := DecodeStrings(text)
				if err != nil {
					return "", err
				}
				e.(*world.Exit).RestoreAliases(aliases)
				return rest, nil
			},
		}},
	},
	dbref.KindProgram.String(): {
		create: func() world.Entity { return world.NewProgram() },
		extras: []extraField{{
			key: KeySource,
			encode: func(w *strings.Builder, e world.Entity) {
				EncodeStrings(w, e.(*world.Program).Source())
			},
			decode: func(e world.Entity, text string) (string, error) {
				lines, rest, err := DecodeStrings(text)
				if err != nil {
					return "", err
				}
				e.(*world.Program).RestoreSource(lines)
				return rest, nil
			},
		}},
	},
}

// Kinds returns the registered kind tags in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// New returns a fresh, unregistered entity for a persisted kind tag.
func New(kind string) (world.Entity, error) {
	entry, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	return entry.create(), nil
}

func lookup(kind string) (kindEntry, error) {
	entry, ok := registry[kind]
	if !ok {
		return kindEntry{}, oops.Code(CodeUnknownKind).With("kind", kind).Wrap(ErrUnknownKind)
	}
	return entry, nil
}

func writeKey(w *strings.Builder, key string) {
	EncodeString(w, &key)
}

// Encode writes e's field bag.
func Encode(e world.Entity) (string, error) {
	entry, err := lookup(e.Kind().String())
	if err != nil {
		return "", err
	}
	s := e.Base().State()

	var w strings.Builder
	writeOpen(&w, TagDict)
	writeKey(&w, KeyID)
	EncodeRef(&w, s.ID)
	writeKey(&w, KeyName)
	EncodeString(&w, s.Name)
	writeKey(&w, KeyLocation)
	EncodeRef(&w, s.Location)
	writeKey(&w, KeyContents)
	EncodeRefs(&w, s.Contents)
	writeKey(&w, KeyLinkTargets)
	EncodeRefs(&w, s.LinkTargets)
	writeKey(&w, KeyTemplates)
	EncodeRefs(&w, s.Templates)
	writeKey(&w, KeyFlags)
	EncodeFlags(&w, s.Flags)
	writeKey(&w, KeyDescription)
	EncodeString(&w, s.Description)
	writeKey(&w, KeyOwner)
	EncodeRef(&w, s.Owner)
	writeKey(&w, KeyPennies)
	EncodeInt(&w, s.Pennies)
	writeKey(&w, KeyProperties)
	if err := EncodeDir(&w, s.Properties); err != nil {
		return "", oops.With("id", s.ID.String()).Wrap(err)
	}
	for _, f := range entry.extras {
		writeKey(&w, f.key)
		f.encode(&w, e)
	}
	writeClose(&w, TagDict)
	return w.String(), nil
}

// Decode builds an entity of the given kind tag from its field bag. Missing
// fields keep constructor defaults; unknown or repeated fields fail. The
// result is not dirty.
func Decode(kind, text string) (world.Entity, error) {
	entry, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	e := entry.create()
	state := e.Base().State()

	rest, empty, err := openTag(text, TagDict)
	if err != nil {
		return nil, oops.With("kind", kind).Wrap(err)
	}
	seen := make(map[string]struct{})
	for !empty {
		if after, ok := atClose(rest, TagDict); ok {
			rest = after
			break
		}
		at := rest
		var key string
		key, rest, err = decodeText(rest)
		if err != nil {
			return nil, oops.With("kind", kind).Wrap(err)
		}
		if _, dup := seen[key]; dup {
			return nil, malformed(at, "duplicate field %q", key)
		}
		seen[key] = struct{}{}

		rest, err = decodeField(entry, e, &state, key, rest)
		if err != nil {
			return nil, oops.With("kind", kind).With("field", key).Wrap(err)
		}
	}
	if rest != "" {
		return nil, malformed(rest, "trailing data after <%s>", TagDict)
	}

	e.Base().Restore(state)
	e.Base().ClearDirty()
	return e, nil
}

func decodeField(entry kindEntry, e world.Entity, s *world.State, key, text string) (rest string, err error) {
	switch key {
	case KeyID:
		s.ID, rest, err = DecodeRef(text)
	case KeyName:
		s.Name, rest, err = DecodeString(text)
	case KeyLocation:
		s.Location, rest, err = DecodeRef(text)
	case KeyContents:
		s.Contents, rest, err = DecodeRefs(text)
	case KeyLinkTargets:
		s.LinkTargets, rest, err = DecodeRefs(text)
	case KeyTemplates:
		s.Templates, rest, err = DecodeRefs(text)
	case KeyFlags:
		s.Flags, rest, err = DecodeFlags(text)
	case KeyDescription:
		s.Description, rest, err = DecodeString(text)
	case KeyOwner:
		s.Owner, rest, err = DecodeRef(text)
	case KeyPennies:
		s.Pennies, rest, err = DecodeInt(text)
	case KeyProperties:
		s.Properties, rest, err = DecodeDir(text)
	default:
		for _, f := range entry.extras {
			if f.key == key {
				return f.decode(e, text)
			}
		}
		return "", oops.Code(CodeDecodeFailed).Wrap(ErrUnknownField)
	}
	return rest, err
}

// VerifyRoundTrip encodes e, decodes the result and encodes again. It
// returns the first encoding when both match, and an ErrRoundTrip error
// carrying both encodings when they do not.
func VerifyRoundTrip(c Codec, e world.Entity) (string, error) {
	kind := e.Kind().String()
	id := e.Base().ID().String()

	first, err := c.Encode(e)
	if err != nil {
		return "", err
	}
	decoded, err := c.Decode(kind, first)
	if err != nil {
		return "", oops.Code(CodeCorruption).
			With("kind", kind).
			With("id", id).
			With("encoded", first).
			With("decode_error", err.Error()).
			Wrap(ErrRoundTrip)
	}
	second, err := c.Encode(decoded)
	if err != nil {
		return "", oops.Code(CodeCorruption).
			With("kind", kind).
			With("id", id).
			With("encoded", first).
			With("encode_error", err.Error()).
			Wrap(ErrRoundTrip)
	}
	if first != second {
		return "", oops.Code(CodeCorruption).
			With("kind", kind).
			With("id", id).
			With("first", first).
			With("second", second).
			Wrap(ErrRoundTrip)
	}
	return first, nil
}
