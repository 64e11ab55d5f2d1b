package sync

import (
	"context"

	"github.com/google/uuid"
)

// TaskRegistry stores sync tasks for polling. Implementations decide
// retention; finished tasks eventually expire.
type TaskRegistry interface {
	// Put stores or replaces a task snapshot
	Put(ctx context.Context, task *Task) error

	// Get returns a snapshot of the task or ErrTaskNotFound
	Get(ctx context.Context, id uuid.UUID) (*Task, error)

	// Update applies fn to the stored task under the registry's lock and
	// stores the result. Returns ErrTaskNotFound for unknown IDs.
	Update(ctx context.Context, id uuid.UUID, fn func(task *Task)) error

	// List returns snapshots of all known tasks, newest first
	List(ctx context.Context) ([]Task, error)
}
