// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"slices"
	"strings"
)

// Flag is a single-character object flag, persisted as its uint16 codepoint.
type Flag uint16

// Object flags.
const (
	FlagAbode   Flag = 'A'
	FlagBuilder Flag = 'B'
	FlagChownOK Flag = 'C'
	FlagDark    Flag = 'D'
	FlagHaven   Flag = 'H'
	FlagJumpOK  Flag = 'J'
	FlagKillOK  Flag = 'K'
	FlagLinkOK  Flag = 'L'
	FlagMucker  Flag = 'M'
	FlagQuell   Flag = 'Q'
	FlagSticky  Flag = 'S'
	FlagVehicle Flag = 'V'
	FlagWizard  Flag = 'W'
	FlagZombie  Flag = 'Z'

	// Mucker levels.
	FlagLevel1 Flag = '1'
	FlagLevel2 Flag = '2'
	FlagLevel3 Flag = '3'
)

var flagNames = map[Flag]string{
	FlagAbode:   "ABODE",
	FlagBuilder: "BUILDER",
	FlagChownOK: "CHOWN_OK",
	FlagDark:    "DARK",
	FlagHaven:   "HAVEN",
	FlagJumpOK:  "JUMP_OK",
	FlagKillOK:  "KILL_OK",
	FlagLinkOK:  "LINK_OK",
	FlagMucker:  "MUCKER",
	FlagQuell:   "QUELL",
	FlagSticky:  "STICKY",
	FlagVehicle: "VEHICLE",
	FlagWizard:  "WIZARD",
	FlagZombie:  "ZOMBIE",
	FlagLevel1:  "LEVEL1",
	FlagLevel2:  "LEVEL2",
	FlagLevel3:  "LEVEL3",
}

// String returns the flag's name, or its letter if it has none.
func (f Flag) String() string {
	if name, ok := flagNames[f]; ok {
		return name
	}
	return string(rune(f))
}

// Known reports whether f is one of the defined flags.
func (f Flag) Known() bool {
	_, ok := flagNames[f]
	return ok
}

// ParseFlag accepts a flag name ("wizard") or letter ("W").
func ParseFlag(s string) (Flag, bool) {
	if len(s) == 1 {
		f := Flag(strings.ToUpper(s)[0])
		return f, f.Known()
	}
	for f, name := range flagNames {
		if strings.EqualFold(name, s) {
			return f, true
		}
	}
	return 0, false
}

// FlagSet is a set of flags. It is not safe for concurrent use on its own;
// Thing guards its FlagSet with the entity lock.
type FlagSet map[Flag]struct{}

// Has reports whether f is set.
func (s FlagSet) Has(f Flag) bool {
	_, ok := s[f]
	return ok
}

// Sorted returns the flags ordered by codepoint.
func (s FlagSet) Sorted() []Flag {
	out := make([]Flag, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// String renders the flags as their letters, e.g. "BW".
func (s FlagSet) String() string {
	var b strings.Builder
	for _, f := range s.Sorted() {
		b.WriteRune(rune(f))
	}
	return b.String()
}
