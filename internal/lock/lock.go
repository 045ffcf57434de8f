// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package lock implements boolean lock expressions, the property scalar that
// gates who may use, take or pass through an object.
//
// Locks are written as e.g. "#12 | (me & !#5)" or "color:re*". An empty lock
// passes everyone.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/dbref"
)

// MaxNestingDepth bounds how deeply groups and negations may nest.
const MaxNestingDepth = 32

// parser is the singleton participle parser instance.
var parser *participle.Parser[Expr]

func init() {
	var err error
	parser, err = newParser()
	if err != nil {
		panic(fmt.Sprintf("failed to build lock parser: %v", err))
	}
}

// Env answers the questions a lock asks about the subject being tested.
type Env interface {
	// Holds reports whether who is what, or carries what.
	Holds(ctx context.Context, who, what dbref.Ref) bool
	// Property returns the string form of the property at path on who.
	Property(ctx context.Context, who dbref.Ref, path string) (string, bool)
}

// Lock is a parsed lock expression. The nil *Lock and the empty lock both
// pass everyone.
type Lock struct {
	expr *Expr
}

// Parse parses lock text. Blank text yields the empty lock.
func Parse(text string) (*Lock, error) {
	if strings.TrimSpace(text) == "" {
		return &Lock{}, nil
	}
	expr, err := parser.ParseString("", text)
	if err != nil {
		return nil, oops.Code("LOCK_PARSE_FAILED").With("text", text).Wrapf(err, "parsing lock")
	}
	if err := validateExpr(expr, 0); err != nil {
		return nil, oops.Code("LOCK_PARSE_FAILED").With("text", text).Wrap(err)
	}
	return &Lock{expr: expr}, nil
}

// MustParse is Parse for literals. It panics on error.
func MustParse(text string) *Lock {
	l, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return l
}

// IsEmpty reports whether the lock passes everyone unconditionally.
func (l *Lock) IsEmpty() bool {
	return l == nil || l.expr == nil
}

// String returns the canonical text. Parsing the result yields a lock with
// the same canonical text.
func (l *Lock) String() string {
	if l.IsEmpty() {
		return ""
	}
	return l.expr.String()
}

// Refs returns every reference the lock mentions, in order of appearance.
func (l *Lock) Refs() []dbref.Ref {
	if l.IsEmpty() {
		return nil
	}
	var refs []dbref.Ref
	walkAtoms(l.expr, func(a *Atom) {
		if a.Ref != "" {
			if r, err := dbref.Parse(a.Ref); err == nil {
				refs = append(refs, r)
			}
		}
	})
	return refs
}

// Eval tests subject against the lock. owner is the entity "me" refers to.
func (l *Lock) Eval(ctx context.Context, env Env, subject, owner dbref.Ref) bool {
	if l.IsEmpty() {
		return true
	}
	e := evaluator{ctx: ctx, env: env, subject: subject, owner: owner}
	return e.expr(l.expr)
}

type evaluator struct {
	ctx     context.Context
	env     Env
	subject dbref.Ref
	owner   dbref.Ref
}

func (e evaluator) expr(x *Expr) bool {
	for _, a := range x.Or {
		if e.and(a) {
			return true
		}
	}
	return false
}

func (e evaluator) and(a *And) bool {
	for _, u := range a.Terms {
		if !e.unary(u) {
			return false
		}
	}
	return true
}

func (e evaluator) unary(u *Unary) bool {
	switch {
	case u.Not != nil:
		return !e.unary(u.Not)
	case u.Group != nil:
		return e.expr(u.Group)
	default:
		return e.atom(u.Atom)
	}
}

func (e evaluator) atom(a *Atom) bool {
	switch {
	case a.Ref != "":
		r, err := dbref.Parse(a.Ref)
		if err != nil {
			return false
		}
		return e.env.Holds(e.ctx, e.subject, r)
	case a.Ident != "":
		return e.subject.Equal(e.owner)
	default:
		name, pattern := a.propTest()
		value, ok := e.env.Property(e.ctx, e.subject, name)
		if !ok {
			return false
		}
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return false
		}
		return g.Match(strings.ToLower(value))
	}
}

var (
	errTooDeep      = errors.New("lock nesting too deep")
	errUnknownIdent = errors.New("unknown lock keyword")
	errBadPattern   = errors.New("invalid property pattern")
	errBadRef       = errors.New("invalid reference in lock")
)

func validateExpr(x *Expr, depth int) error {
	if depth > MaxNestingDepth {
		return oops.With("max_depth", MaxNestingDepth).Wrap(errTooDeep)
	}
	for _, a := range x.Or {
		for _, u := range a.Terms {
			if err := validateUnary(u, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateUnary(u *Unary, depth int) error {
	switch {
	case u.Not != nil:
		if depth+1 > MaxNestingDepth {
			return oops.With("max_depth", MaxNestingDepth).Wrap(errTooDeep)
		}
		return validateUnary(u.Not, depth+1)
	case u.Group != nil:
		return validateExpr(u.Group, depth+1)
	default:
		return validateAtom(u.Atom)
	}
}

func validateAtom(a *Atom) error {
	switch {
	case a.Ref != "":
		if _, err := dbref.Parse(a.Ref); err != nil {
			return oops.With("ref", a.Ref).Wrap(errBadRef)
		}
		return nil
	case a.Ident != "":
		if !strings.EqualFold(a.Ident, "me") {
			return oops.With("keyword", a.Ident).Wrap(errUnknownIdent)
		}
		return nil
	default:
		name, pattern := a.propTest()
		if name == "" {
			return oops.With("prop", a.Prop).Wrap(errBadPattern)
		}
		if _, err := glob.Compile(strings.ToLower(pattern)); err != nil {
			return oops.With("pattern", pattern).Wrap(errBadPattern)
		}
		return nil
	}
}

func walkAtoms(x *Expr, fn func(*Atom)) {
	for _, a := range x.Or {
		for _, u := range a.Terms {
			walkUnary(u, fn)
		}
	}
}

func walkUnary(u *Unary, fn func(*Atom)) {
	switch {
	case u.Not != nil:
		walkUnary(u.Not, fn)
	case u.Group != nil:
		walkAtoms(u.Group, fn)
	default:
		fn(u.Atom)
	}
}
