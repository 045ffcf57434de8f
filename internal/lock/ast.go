// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lock

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/holomush/muckdb/internal/dbref"
)

// lockLexer tokenizes lock text. PropTest must come before Ident so that
// "color:red" is one token rather than an identifier followed by junk.
var lockLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ref", Pattern: `#-?\d+[A-Za-z]?`},
	{Name: "PropTest", Pattern: `[^\s|&!():#]+:[^|&!()]*`},
	{Name: "Ident", Pattern: `[A-Za-z_]\w*`},
	{Name: "Punct", Pattern: `[|&!()]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Expr is a disjunction of conjunctions.
//
// Grammar: and ( "|" and )*
type Expr struct {
	Pos lexer.Position `parser:""`
	Or  []*And         `parser:"@@ ( '|' @@ )*"`
}

// And is a conjunction of unary terms.
type And struct {
	Pos   lexer.Position `parser:""`
	Terms []*Unary       `parser:"@@ ( '&' @@ )*"`
}

// Unary is a negation, a parenthesized group, or an atom.
type Unary struct {
	Pos   lexer.Position `parser:""`
	Not   *Unary         `parser:"  '!' @@"`
	Group *Expr          `parser:"| '(' @@ ')'"`
	Atom  *Atom          `parser:"| @@"`
}

// Atom is a reference test, the "me" keyword, or a property test.
type Atom struct {
	Pos   lexer.Position `parser:""`
	Ref   string         `parser:"  @Ref"`
	Ident string         `parser:"| @Ident"`
	Prop  string         `parser:"| @PropTest"`
}

func newParser() (*participle.Parser[Expr], error) {
	return participle.Build[Expr](
		participle.Lexer(lockLexer),
	)
}

func (e *Expr) String() string {
	parts := make([]string, len(e.Or))
	for i, a := range e.Or {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}

func (a *And) String() string {
	parts := make([]string, len(a.Terms))
	for i, u := range a.Terms {
		parts[i] = u.String()
	}
	return strings.Join(parts, " & ")
}

func (u *Unary) String() string {
	switch {
	case u.Not != nil:
		return "!" + u.Not.String()
	case u.Group != nil:
		return "(" + u.Group.String() + ")"
	default:
		return u.Atom.String()
	}
}

func (a *Atom) String() string {
	switch {
	case a.Ref != "":
		r, err := dbref.Parse(a.Ref)
		if err != nil {
			return a.Ref
		}
		return r.String()
	case a.Ident != "":
		return strings.ToLower(a.Ident)
	default:
		name, value := a.propTest()
		return name + ":" + value
	}
}

// propTest splits a PropTest token into a property path and value pattern.
func (a *Atom) propTest() (name, value string) {
	name, value, _ = strings.Cut(a.Prop, ":")
	return strings.TrimSpace(name), strings.TrimSpace(value)
}
