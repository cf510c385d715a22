// Package feed is the websocket wire protocol for pushed grant state:
// a client subscribes to one subject and receives snapshot, detail, and
// admin frames in the order the authority emitted them.
package feed

import "github.com/grantd/grantd/internal/grant"

// Frame types.
const (
	TypeSnapshot = "snapshot"
	TypeDetail   = "detail"
	TypeAdmin    = "admin"
	TypeError    = "error"
)

// Envelope wraps every message with a type field for routing.
type Envelope struct {
	Type string `json:"type"`
}

// SnapshotFrame carries a full snapshot, or null when the subject's state
// no longer exists.
type SnapshotFrame struct {
	Type     string          `json:"type"`
	Snapshot *grant.Snapshot `json:"snapshot"`
}

type DetailFrame struct {
	Type   string        `json:"type"`
	Detail *grant.Detail `json:"detail"`
}

type AdminFrame struct {
	Type  string           `json:"type"`
	Admin *grant.AdminInfo `json:"admin"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
