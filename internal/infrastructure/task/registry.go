package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	syncdomain "github.com/shoplink/backend/internal/domain/sync"
)

// InMemoryRegistry is an in-memory TaskRegistry. Tasks are process-local and
// do not survive a restart; clients that poll an unknown ID get
// ErrTaskNotFound and are expected to start a new sync.
type InMemoryRegistry struct {
	tasks    map[uuid.UUID]*syncdomain.Task
	mu       sync.RWMutex
	ttl      time.Duration
	maxTasks int
	stopCh   chan struct{}
}

// RegistryOption is a functional option for InMemoryRegistry
type RegistryOption func(*InMemoryRegistry)

// WithMaxTasks sets the maximum number of retained tasks
func WithMaxTasks(n int) RegistryOption {
	return func(r *InMemoryRegistry) {
		r.maxTasks = n
	}
}

// NewInMemoryRegistry creates a registry whose finished tasks expire after ttl
func NewInMemoryRegistry(ttl time.Duration, opts ...RegistryOption) *InMemoryRegistry {
	registry := &InMemoryRegistry{
		tasks:    make(map[uuid.UUID]*syncdomain.Task),
		ttl:      ttl,
		maxTasks: 100,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(registry)
	}
	// Start background cleanup goroutine
	go registry.startCleanupLoop()
	return registry
}

// startCleanupLoop periodically removes expired tasks
func (r *InMemoryRegistry) startCleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Cleanup()
		case <-r.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup goroutine
func (r *InMemoryRegistry) Stop() {
	close(r.stopCh)
}

// Put stores or replaces a task
func (r *InMemoryRegistry) Put(ctx context.Context, task *syncdomain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := task.Snapshot()
	r.tasks[task.ID] = &copied
	r.evictLocked()
	return nil
}

// Get returns a snapshot of the task or ErrTaskNotFound
func (r *InMemoryRegistry) Get(ctx context.Context, id uuid.UUID) (*syncdomain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok || r.expired(task) {
		return nil, syncdomain.ErrTaskNotFound
	}
	snapshot := task.Snapshot()
	return &snapshot, nil
}

// Update applies fn to the stored task under the registry lock
func (r *InMemoryRegistry) Update(ctx context.Context, id uuid.UUID, fn func(task *syncdomain.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || r.expired(task) {
		return syncdomain.ErrTaskNotFound
	}
	fn(task)
	return nil
}

// List returns snapshots of all live tasks, newest first
func (r *InMemoryRegistry) List(ctx context.Context) ([]syncdomain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]syncdomain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		if r.expired(task) {
			continue
		}
		result = append(result, task.Snapshot())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Cleanup removes expired tasks
func (r *InMemoryRegistry) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, task := range r.tasks {
		if r.expired(task) {
			delete(r.tasks, id)
		}
	}
}

func (r *InMemoryRegistry) expired(task *syncdomain.Task) bool {
	if !task.State.IsTerminal() || task.FinishedAt == nil {
		return false
	}
	return time.Since(*task.FinishedAt) > r.ttl
}

// evictLocked drops the oldest finished tasks once the cap is exceeded.
// Running and queued tasks are never evicted.
func (r *InMemoryRegistry) evictLocked() {
	if len(r.tasks) <= r.maxTasks {
		return
	}

	finished := make([]*syncdomain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		if task.State.IsTerminal() {
			finished = append(finished, task)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].CreatedAt.Before(finished[j].CreatedAt)
	})

	excess := len(r.tasks) - r.maxTasks
	for i := 0; i < excess && i < len(finished); i++ {
		delete(r.tasks, finished[i].ID)
	}
}

// Ensure InMemoryRegistry implements TaskRegistry
var _ syncdomain.TaskRegistry = (*InMemoryRegistry)(nil)
