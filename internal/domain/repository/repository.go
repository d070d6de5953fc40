// Package repository holds the Repository aggregate: an ordered, linear
// commit history belonging to one Project.
package repository

import (
	"time"

	"github.com/LerianStudio/confdogma/internal/domain/project"
)

// ReservedNames may not be used for a user-created repository; they are
// the project's implicit internal repositories.
var ReservedNames = map[string]bool{
	"meta":  true,
	"dogma": true,
}

// State mirrors project.State for a Repository.
type State string

const (
	StateActive  State = "active"
	StateRemoved State = "removed"
)

// Repository is a named, ordered history of Commits under one Project.
type Repository struct {
	Project   string
	Name      string
	Creator   string
	CreatedAt time.Time
	State     State
	RemovedAt *time.Time
	// Head is the current revision number; 0 means uninitialized (the
	// init commit at revision 1 is created atomically with the
	// repository, so in practice Head is never observed below 1 once
	// creation has completed).
	Head int64
}

// ValidName reports whether name is a legal repository name. Unlike
// project names, "meta" and "dogma" are reserved and may only be created
// by the create_project composite sequence.
func ValidName(name string, allowReserved bool) bool {
	if !project.ValidName(name) {
		return false
	}

	if !allowReserved && ReservedNames[name] {
		return false
	}

	return true
}

// IsRemoved reports whether the repository has been soft-removed.
func (r *Repository) IsRemoved() bool {
	return r.State == StateRemoved
}

// Purgeable reports whether a soft-removed repository has sat past the
// grace window and is eligible for physical deletion.
func (r *Repository) Purgeable(now time.Time, grace time.Duration) bool {
	if r.State != StateRemoved || r.RemovedAt == nil {
		return false
	}

	return now.Sub(*r.RemovedAt) >= grace
}
