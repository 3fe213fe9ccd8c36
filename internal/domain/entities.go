package domain

import (
	"time"
)

// Program is a unit of printing work bound to a physical machine. The hub
// only interprets MachineNumber and Status; the remaining business fields
// are forwarded verbatim in events.
type Program struct {
	ID            int64         `json:"id"`
	MachineNumber int           `json:"machine_number"`
	Status        ProgramStatus `json:"status"`
	Client        string        `json:"client"`
	ArticleCode   string        `json:"article_code"`
	Colors        []string      `json:"colors"`
	Progress      int           `json:"progress"`
	Note          string        `json:"note,omitempty"`
	CreatedBy     string        `json:"created_by"`
	UpdatedBy     string        `json:"updated_by"`
	Version       int64         `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type ProgramStatus string

const (
	StatusReady     ProgramStatus = "READY"
	StatusRunning   ProgramStatus = "RUNNING"
	StatusSuspended ProgramStatus = "SUSPENDED"
	StatusFinished  ProgramStatus = "FINISHED"
)

func (s ProgramStatus) Valid() bool {
	switch s {
	case StatusReady, StatusRunning, StatusSuspended, StatusFinished:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the lifecycle allows moving from s to
// next. FINISHED is terminal.
func (s ProgramStatus) CanTransitionTo(next ProgramStatus) bool {
	switch s {
	case StatusReady:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusSuspended || next == StatusFinished
	case StatusSuspended:
		return next == StatusRunning
	default:
		return false
	}
}

// ProgramInput carries the client-supplied fields of a create or update
// request. Status is never set through an input; it moves only through
// ChangeStatus.
type ProgramInput struct {
	MachineNumber int      `json:"machine_number"`
	Client        string   `json:"client"`
	ArticleCode   string   `json:"article_code"`
	Colors        []string `json:"colors"`
	Progress      int      `json:"progress"`
}

type ProgramEvent struct {
	Kind          EventKind     `json:"kind"`
	ProgramID     int64         `json:"program_id"`
	MachineNumber int           `json:"machine_number"`
	Program       *Program      `json:"program,omitempty"`
	OldStatus     ProgramStatus `json:"old_status,omitempty"`
	NewStatus     ProgramStatus `json:"new_status,omitempty"`
	Note          string        `json:"note,omitempty"`
	Actor         string        `json:"actor"`
	Timestamp     time.Time     `json:"timestamp"`
}

type EventKind string

const (
	ProgramCreated       EventKind = "program:created"
	ProgramUpdated       EventKind = "program:updated"
	ProgramStatusChanged EventKind = "status:changed"
	ProgramDeleted       EventKind = "program:deleted"
)

// Statistics is the aggregate summary served with a full sync.
type Statistics struct {
	Total     int64                   `json:"total"`
	ByStatus  map[ProgramStatus]int64 `json:"by_status"`
	Machines  int64                   `json:"machines"`
	Generated time.Time               `json:"generated"`
}

// SyncSnapshot is the point-in-time state returned to a reconciling
// connection.
type SyncSnapshot struct {
	Programs   []*Program  `json:"programs"`
	Statistics *Statistics `json:"statistics"`
	TakenAt    time.Time   `json:"taken_at"`
}

// ValidationRules bound the accepted input ranges. They live in Redis so
// the shop can widen them without a redeploy.
type ValidationRules struct {
	MinMachine  int `json:"min_machine"`
	MaxMachine  int `json:"max_machine"`
	MaxColors   int `json:"max_colors"`
	MaxProgress int `json:"max_progress"`
}
