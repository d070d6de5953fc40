// Package audit is the supplementary write-behind trail: every accepted
// commit and every project/repository lifecycle transition is appended to
// MongoDB for after-the-fact inspection. It never gates a write — a failed
// audit append is logged and dropped, never surfaced to the caller, with
// one document per commit or lifecycle event.
package audit

import "time"

// CommitsCollection and LifecycleCollection are the two collections this
// package writes to.
const (
	CommitsCollection   = "commits"
	LifecycleCollection = "lifecycle"
)

// CommitEntry records one accepted commit.
type CommitEntry struct {
	Project      string    `bson:"project"`
	Repository   string    `bson:"repository"`
	Revision     int64     `bson:"revision"`
	Author       string    `bson:"author"`
	Summary      string    `bson:"summary"`
	PathsTouched []string  `bson:"paths_touched"`
	CommittedAt  time.Time `bson:"committed_at"`
	RecordedAt   time.Time `bson:"recorded_at"`
}

// LifecycleEntry records a project or repository state transition:
// creation, removal, unremoval, or purge.
type LifecycleEntry struct {
	Kind       string    `bson:"kind"`
	Project    string    `bson:"project"`
	Repository string    `bson:"repository,omitempty"`
	Author     string    `bson:"author"`
	OccurredAt time.Time `bson:"occurred_at"`
	RecordedAt time.Time `bson:"recorded_at"`
}
