// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import "errors"

// Invariant violations. All are returned wrapped with code INVARIANT_VIOLATION.
var (
	ErrSelfContainment   = errors.New("entity cannot contain itself")
	ErrContainmentLoop   = errors.New("move would create a containment loop")
	ErrNotMember         = errors.New("reference is not in contents")
	ErrAlreadyMember     = errors.New("reference is already in contents")
	ErrLinkLoop          = errors.New("exit link would loop back to itself")
	ErrLinkArity         = errors.New("wrong number of link targets")
	ErrInvalidLink       = errors.New("invalid link target")
	ErrIDAlreadyAssigned = errors.New("entity id already assigned")
)

// CodeInvariantViolation is the oops code carried by invariant errors.
const CodeInvariantViolation = "INVARIANT_VIOLATION"
