// Package command defines the Command tagged union that the replication
// log orders and the executor applies.
package command

import (
	"time"

	"github.com/LerianStudio/confdogma/internal/domain/change"
	"github.com/LerianStudio/confdogma/internal/domain/commit"
)

// Tag identifies which Command variant is populated. The constants below
// are the complete set; the executor switches on Tag exhaustively.
type Tag string

const (
	TagCreateProject      Tag = "create_project"
	TagRemoveProject      Tag = "remove_project"
	TagUnremoveProject    Tag = "unremove_project"
	TagPurgeProject       Tag = "purge_project"
	TagCreateRepository   Tag = "create_repository"
	TagRemoveRepository   Tag = "remove_repository"
	TagUnremoveRepository Tag = "unremove_repository"
	TagPurgeRepository    Tag = "purge_repository"
	TagNormalizeRevision  Tag = "normalize_revision"
	TagPush               Tag = "push"
	TagTransform          Tag = "transform"
	TagCreateSession      Tag = "create_session"
	TagRemoveSession      Tag = "remove_session"
	TagUpdateServerStatus Tag = "update_server_status"
)

// Command is a single mutating request, addressed at either a project or
// a (project, repo) pair, carrying the fields every variant needs. Every
// field here must be wire-serializable: a Command is the payload appended
// to the replication log and forwarded to the leader over gRPC, so it
// cannot carry a Go closure.
type Command struct {
	Tag            Tag
	TimestampMs    int64
	Author         string
	IdempotencyKey string

	Project    string
	Repository string

	// push
	BaseRevision int64
	Summary      string
	Detail       string
	Markup       commit.Markup
	Changes      []change.Change

	// transform: TransformID names a function registered with the
	// executor's transform registry, looked up and applied at apply time
	// (not enqueue time) so every replica that replays the log runs the
	// same deterministic function against whatever content is current
	// when its turn comes — the mechanism that serializes
	// read-modify-write through the log for workflows like
	// register/deregister.
	TransformPath string
	TransformID   string

	// create_session / remove_session
	SessionID string

	// update_server_status
	ServerStatus string
}

// Result is the deterministic outcome of applying a Command.
type Result struct {
	NewRevision int64
	TimestampMs int64
	NotFound    bool
}

// Now returns the current time in milliseconds since epoch, the timestamp
// unit every Command carries.
func Now() int64 { return time.Now().UnixMilli() }
