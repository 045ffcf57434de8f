// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package world contains the entity model: things, rooms, players, exits and
// programs, together with their containment, link and property invariants.
//
// Entities are shared between goroutines through the repository cache. Every
// accessor is safe for concurrent use; every mutator marks the entity dirty.
// Use the NewX constructors: they set owner and location to dbref.NotFound and
// allocate the property tree.
package world

import (
	"sync"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/holomush/muckdb/internal/dbref"
)

// Entity is implemented by Thing and every subtype that embeds it.
type Entity interface {
	// Kind is the subtype's kind tag.
	Kind() dbref.Kind
	// Base exposes the common fields.
	Base() *Thing
}

// Thing is the common record every world object carries.
type Thing struct {
	mu          sync.RWMutex
	id          dbref.Ref
	idAssigned  bool
	name        *string
	description *string
	owner       dbref.Ref
	location    dbref.Ref
	pennies     int64
	flags       FlagSet
	properties  *PropertyTree

	contents    RefSet
	linkTargets RefSet
	templates   RefSet

	dirty atomic.Bool
}

// NewThing returns an unregistered plain thing.
func NewThing() *Thing {
	t := &Thing{}
	t.init()
	return t
}

func (t *Thing) init() {
	t.id = dbref.NotFound
	t.owner = dbref.NotFound
	t.location = dbref.NotFound
	t.flags = FlagSet{}
	t.properties = NewPropertyTree()
}

// Kind implements Entity.
func (t *Thing) Kind() dbref.Kind { return dbref.KindThing }

// Base implements Entity.
func (t *Thing) Base() *Thing { return t }

// ID returns the entity's reference, or dbref.NotFound before insertion.
func (t *Thing) ID() dbref.Ref {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.id
}

// AssignID sets the entity's reference. It fails once an id has been set.
func (t *Thing) AssignID(ref dbref.Ref) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.idAssigned {
		return oops.Code(CodeInvariantViolation).
			With("current", t.id.String()).
			With("requested", ref.String()).
			Wrap(ErrIDAlreadyAssigned)
	}
	t.id = ref
	t.idAssigned = true
	return nil
}

// Name returns the display name, or "" when unset.
func (t *Thing) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.name == nil {
		return ""
	}
	return *t.name
}

// HasName distinguishes an unset name from an empty one.
func (t *Thing) HasName() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name != nil
}

// SetName sets the display name.
func (t *Thing) SetName(name string) {
	t.mu.Lock()
	t.name = &name
	t.mu.Unlock()
	t.MarkDirty()
}

// ClearName unsets the display name.
func (t *Thing) ClearName() {
	t.mu.Lock()
	t.name = nil
	t.mu.Unlock()
	t.MarkDirty()
}

// Description returns the external description, or "" when unset.
func (t *Thing) Description() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.description == nil {
		return ""
	}
	return *t.description
}

// HasDescription distinguishes an unset description from an empty one.
func (t *Thing) HasDescription() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.description != nil
}

// SetDescription sets the external description.
func (t *Thing) SetDescription(desc string) {
	t.mu.Lock()
	t.description = &desc
	t.mu.Unlock()
	t.MarkDirty()
}

// ClearDescription unsets the external description.
func (t *Thing) ClearDescription() {
	t.mu.Lock()
	t.description = nil
	t.mu.Unlock()
	t.MarkDirty()
}

// Owner returns the owning player.
func (t *Thing) Owner() dbref.Ref {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.owner
}

// SetOwner changes the owning player.
func (t *Thing) SetOwner(owner dbref.Ref) {
	t.mu.Lock()
	t.owner = owner
	t.mu.Unlock()
	t.MarkDirty()
}

// Location returns the container this entity is in.
func (t *Thing) Location() dbref.Ref {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.location
}

// SetLocation records a new container without touching any contents set.
// Use Move to keep contents and location consistent.
func (t *Thing) SetLocation(loc dbref.Ref) {
	t.mu.Lock()
	t.location = loc
	t.mu.Unlock()
	t.MarkDirty()
}

// Pennies returns the entity's currency balance.
func (t *Thing) Pennies() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pennies
}

// SetPennies sets the currency balance.
func (t *Thing) SetPennies(n int64) {
	t.mu.Lock()
	t.pennies = n
	t.mu.Unlock()
	t.MarkDirty()
}

// HasFlag reports whether f is set.
func (t *Thing) HasFlag(f Flag) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.flags.Has(f)
}

// SetFlag sets f.
func (t *Thing) SetFlag(f Flag) {
	t.mu.Lock()
	t.flags[f] = struct{}{}
	t.mu.Unlock()
	t.MarkDirty()
}

// ClearFlag clears f.
func (t *Thing) ClearFlag(f Flag) {
	t.mu.Lock()
	delete(t.flags, f)
	t.mu.Unlock()
	t.MarkDirty()
}

// Flags returns the set flags ordered by codepoint.
func (t *Thing) Flags() []Flag {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.flags.Sorted()
}

// Property returns the property at path.
func (t *Thing) Property(path string) (PropValue, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.properties.Get(path)
	if sub, isDir := v.(*PropertyTree); isDir {
		return sub.Clone(), true
	}
	return v, ok
}

// SetProperty stores v at path. See PropertyTree.Set for the directory
// promotion rule.
func (t *Thing) SetProperty(path string, v PropValue) (promoted bool, err error) {
	if sub, isDir := v.(*PropertyTree); isDir {
		v = sub.Clone()
	}
	t.mu.Lock()
	promoted, err = t.properties.Set(path, v)
	t.mu.Unlock()
	if err != nil {
		return false, err
	}
	t.MarkDirty()
	return promoted, nil
}

// DeleteProperty removes the property at path.
func (t *Thing) DeleteProperty(path string) bool {
	t.mu.Lock()
	ok := t.properties.Delete(path)
	t.mu.Unlock()
	if ok {
		t.MarkDirty()
	}
	return ok
}

// Properties returns a deep copy of the property tree.
func (t *Thing) Properties() *PropertyTree {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.properties.Clone()
}

// Contents returns a snapshot of the contained references.
func (t *Thing) Contents() []dbref.Ref {
	return t.contents.Items()
}

// Contains reports whether ref is in contents.
func (t *Thing) Contains(ref dbref.Ref) bool {
	return t.contents.Contains(ref)
}

// Add puts ref into contents. An entity can never contain itself.
func (t *Thing) Add(ref dbref.Ref) error {
	id := t.ID()
	if ref.Equal(id) {
		return oops.Code(CodeInvariantViolation).With("id", id.String()).Wrap(ErrSelfContainment)
	}
	if !t.contents.Add(ref) {
		return oops.Code(CodeInvariantViolation).
			With("container", id.String()).
			With("ref", ref.String()).
			Wrap(ErrAlreadyMember)
	}
	t.MarkDirty()
	return nil
}

// Remove takes ref out of contents. It fails if ref was never a member.
func (t *Thing) Remove(ref dbref.Ref) error {
	id := t.ID()
	if ref.Equal(id) {
		return oops.Code(CodeInvariantViolation).With("id", id.String()).Wrap(ErrSelfContainment)
	}
	if !t.contents.Remove(ref) {
		return oops.Code(CodeInvariantViolation).
			With("container", id.String()).
			With("ref", ref.String()).
			Wrap(ErrNotMember)
	}
	t.MarkDirty()
	return nil
}

// LinkTargets returns the destinations this entity is linked to.
func (t *Thing) LinkTargets() []dbref.Ref {
	return t.linkTargets.Items()
}

// setLinkTargets replaces the link set without validation. Link is the
// validated entry point.
func (t *Thing) setLinkTargets(targets []dbref.Ref) {
	t.linkTargets.Replace(targets)
	t.MarkDirty()
}

// Templates returns the references this entity was built from.
func (t *Thing) Templates() []dbref.Ref {
	return t.templates.Items()
}

// SetTemplates replaces the template set.
func (t *Thing) SetTemplates(refs ...dbref.Ref) {
	t.templates.Replace(refs)
	t.MarkDirty()
}

// Dirty reports whether the entity has unflushed mutations.
func (t *Thing) Dirty() bool {
	return t.dirty.Load()
}

// MarkDirty flags the entity as needing a flush.
func (t *Thing) MarkDirty() {
	t.dirty.Store(true)
}

// ClearDirty is called after a successful flush or a fresh decode.
func (t *Thing) ClearDirty() {
	t.dirty.Store(false)
}

// State is a detached copy of the common fields, used by the codec.
type State struct {
	ID          dbref.Ref
	Name        *string
	Description *string
	Owner       dbref.Ref
	Location    dbref.Ref
	Pennies     int64
	Flags       []Flag
	Contents    []dbref.Ref
	LinkTargets []dbref.Ref
	Templates   []dbref.Ref
	Properties  *PropertyTree
}

// State snapshots the common fields.
func (t *Thing) State() State {
	t.mu.RLock()
	s := State{
		ID:         t.id,
		Owner:      t.owner,
		Location:   t.location,
		Pennies:    t.pennies,
		Flags:      t.flags.Sorted(),
		Properties: t.properties.Clone(),
	}
	if t.name != nil {
		name := *t.name
		s.Name = &name
	}
	if t.description != nil {
		desc := *t.description
		s.Description = &desc
	}
	t.mu.RUnlock()

	s.Contents = t.contents.Items()
	s.LinkTargets = t.linkTargets.Items()
	s.Templates = t.templates.Items()
	return s
}

// Restore overwrites the common fields from s without running invariant
// checks and without marking the entity dirty. It is meant for decoding
// trusted persisted records.
func (t *Thing) Restore(s State) {
	t.mu.Lock()
	t.id = s.ID
	t.idAssigned = s.ID.IsValid()
	t.name = s.Name
	t.description = s.Description
	t.owner = s.Owner
	t.location = s.Location
	t.pennies = s.Pennies
	t.flags = make(FlagSet, len(s.Flags))
	for _, f := range s.Flags {
		t.flags[f] = struct{}{}
	}
	t.properties = s.Properties
	if t.properties == nil {
		t.properties = NewPropertyTree()
	}
	t.mu.Unlock()

	t.contents.Replace(s.Contents)
	t.linkTargets.Replace(s.LinkTargets)
	t.templates.Replace(s.Templates)
}
