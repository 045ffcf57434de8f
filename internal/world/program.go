// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"slices"

	"github.com/holomush/muckdb/internal/dbref"
)

// Program holds source lines for an in-world program. Compilation and
// execution happen elsewhere.
type Program struct {
	Thing
	source []string
}

// NewProgram returns an unregistered program.
func NewProgram() *Program {
	p := &Program{}
	p.init()
	return p
}

// Kind implements Entity.
func (p *Program) Kind() dbref.Kind { return dbref.KindProgram }

// Source returns a copy of the program text, one entry per line.
func (p *Program) Source() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.source)
}

// SetSource replaces the program text.
func (p *Program) SetSource(lines []string) {
	p.mu.Lock()
	p.source = slices.Clone(lines)
	p.mu.Unlock()
	p.MarkDirty()
}

// RestoreSource sets the text without marking the program dirty.
func (p *Program) RestoreSource(lines []string) {
	p.mu.Lock()
	p.source = lines
	p.mu.Unlock()
}
