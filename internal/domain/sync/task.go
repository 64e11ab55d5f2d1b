package sync

import (
	"time"

	"github.com/google/uuid"
	"github.com/shoplink/backend/internal/domain/shared"
)

// TaskState represents the lifecycle state of a sync task
type TaskState string

const (
	TaskStateQueued    TaskState = "queued"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

// IsTerminal returns true if no further transitions are possible
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed || s == TaskStateCancelled
}

// ErrTaskNotFound is returned when a task ID is unknown to the registry.
// Polling clients treat it as a recoverable condition, distinct from a
// failed task.
var ErrTaskNotFound = shared.NewDomainError("TASK_NOT_FOUND", "Sync task not found")

// maxLogLines bounds the per-task log so long runs cannot grow without limit
const maxLogLines = 200

// Options configures one sync run. A scoped run (section filter or item
// limit) never deactivates missing records regardless of DeactivateMissing.
type Options struct {
	FeedURL           string `json:"feed_url,omitempty"`
	UpdateExisting    bool   `json:"update_existing"`
	DeactivateMissing bool   `json:"deactivate_missing"`
	ScopeSection      string `json:"scope_section,omitempty"`
	ScopeLimit        int    `json:"scope_limit,omitempty"`
}

// DefaultOptions returns the options of a full sync run
func DefaultOptions() Options {
	return Options{UpdateExisting: true, DeactivateMissing: true}
}

// IsScoped returns true if the run covers only part of the feed
func (o Options) IsScoped() bool {
	return o.ScopeSection != "" || o.ScopeLimit > 0
}

// Summary accumulates counters over a sync run. ParseErrors counts the
// malformed feed nodes the parsers skipped before reconciliation.
type Summary struct {
	ParseErrors         int `json:"parse_errors"`
	SectionsCreated     int `json:"sections_created"`
	SectionsUpdated     int `json:"sections_updated"`
	ItemsCreated        int `json:"items_created"`
	ItemsUpdated        int `json:"items_updated"`
	ItemsSkipped        int `json:"items_skipped"`
	ItemsFailed         int `json:"items_failed"`
	ItemsDeactivated    int `json:"items_deactivated"`
	SectionsDeactivated int `json:"sections_deactivated"`
	StockUpserted       int `json:"stock_upserted"`
	StockFailed         int `json:"stock_failed"`
}

// LogLine is one timestamped progress message of a task
type LogLine struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Task is one catalog sync run. A task moves queued -> running and then to
// exactly one terminal state. Tasks live in the registry only; they are not
// persisted and do not survive a process restart.
type Task struct {
	ID         uuid.UUID  `json:"id"`
	Options    Options    `json:"options"`
	State      TaskState  `json:"state"`
	Stage      string     `json:"stage"`
	StageLabel string     `json:"stage_label"`
	Percent    int        `json:"percent"`
	Current    int        `json:"current"`
	Total      int        `json:"total"`
	Summary    Summary    `json:"summary"`
	Error      string     `json:"error,omitempty"`
	Log        []LogLine  `json:"log"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewTask creates a queued sync task
func NewTask(opts Options) *Task {
	return &Task{
		ID:        uuid.New(),
		Options:   opts,
		State:     TaskStateQueued,
		CreatedAt: time.Now(),
	}
}

// Start moves the task to running
func (t *Task) Start() error {
	if t.State != TaskStateQueued {
		return shared.NewDomainError("INVALID_TASK_STATE", "Only a queued task can start")
	}
	now := time.Now()
	t.State = TaskStateRunning
	t.StartedAt = &now
	return nil
}

// Complete moves the task to completed
func (t *Task) Complete() error {
	if t.State != TaskStateRunning {
		return shared.NewDomainError("INVALID_TASK_STATE", "Only a running task can complete")
	}
	now := time.Now()
	t.State = TaskStateCompleted
	t.Stage = ""
	t.StageLabel = ""
	t.Percent = 100
	t.FinishedAt = &now
	return nil
}

// Fail moves the task to failed with the given reason
func (t *Task) Fail(reason string) error {
	if t.State.IsTerminal() {
		return shared.NewDomainError("INVALID_TASK_STATE", "Task already finished")
	}
	now := time.Now()
	t.State = TaskStateFailed
	t.Error = reason
	t.FinishedAt = &now
	return nil
}

// Cancel moves the task to cancelled. Cancelling a finished task is a no-op
// error so callers can report it.
func (t *Task) Cancel() error {
	if t.State.IsTerminal() {
		return shared.NewDomainError("INVALID_TASK_STATE", "Task already finished")
	}
	now := time.Now()
	t.State = TaskStateCancelled
	t.FinishedAt = &now
	return nil
}

// SetStage records the pass the task is currently executing. Progress
// counters restart at a stage boundary; within a stage they only grow.
func (t *Task) SetStage(stage, label string) {
	t.Stage = stage
	t.StageLabel = label
	t.Percent = 0
	t.Current = 0
	t.Total = 0
}

// SetProgress updates the current/total counters of the running stage
func (t *Task) SetProgress(current, total int) {
	t.Current = current
	t.Total = total
	if total > 0 {
		t.Percent = current * 100 / total
	}
}

// AppendLog adds a progress line, dropping the oldest once the cap is hit
func (t *Task) AppendLog(level, message string) {
	line := LogLine{At: time.Now(), Level: level, Message: message}
	if len(t.Log) >= maxLogLines {
		t.Log = append(t.Log[1:], line)
		return
	}
	t.Log = append(t.Log, line)
}

// Snapshot returns a deep copy safe to hand to callers while the worker
// keeps mutating the original
func (t *Task) Snapshot() Task {
	copied := *t
	copied.Log = make([]LogLine, len(t.Log))
	copy(copied.Log, t.Log)
	if t.StartedAt != nil {
		started := *t.StartedAt
		copied.StartedAt = &started
	}
	if t.FinishedAt != nil {
		finished := *t.FinishedAt
		copied.FinishedAt = &finished
	}
	return copied
}
