package visibility

import (
	"fmt"
	"sync"
)

// TaskStatus is the lifecycle state of one work unit.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskError      TaskStatus = "error"
)

// Task is one (prompt, provider) work unit as seen by the progress
// observer. Tasks are observational only; correctness is never derived
// from them.
type Task struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Status   TaskStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	Retries  int        `json:"retries,omitempty"`
	Provider Provider   `json:"provider"`
	Prompt   int        `json:"prompt"`
}

// TaskID derives the stable work unit identifier for a prompt index and
// provider.
func TaskID(promptIndex int, provider Provider) string {
	return fmt.Sprintf("p%d-%s", promptIndex, provider)
}

// ProgressFunc receives a full snapshot of all tasks after every change.
// The snapshot is a copy; observers may retain it.
type ProgressFunc func(tasks []Task)

// Tracker owns the task collection. Each concurrently running work unit
// transitions only its own task, but snapshot emission must present a
// consistent view, so all access goes through the mutex.
type Tracker struct {
	mu       sync.Mutex
	tasks    []Task
	index    map[string]int
	progress ProgressFunc
}

// NewTracker returns a tracker emitting snapshots to onProgress.
// onProgress may be nil.
func NewTracker(onProgress ProgressFunc) *Tracker {
	return &Tracker{progress: onProgress, index: map[string]int{}}
}

// Init seeds the tracked collection and emits the initial snapshot.
func (t *Tracker) Init(tasks []Task) {
	t.mu.Lock()
	t.tasks = make([]Task, len(tasks))
	copy(t.tasks, tasks)
	t.index = make(map[string]int, len(tasks))
	for i, task := range t.tasks {
		t.index[task.ID] = i
	}
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(snapshot)
}

// Transition updates one task and emits a fresh snapshot. Terminal states
// are never left: a transition on a completed or errored task is ignored.
// Re-entering in_progress bumps the retry counter when retries is set.
func (t *Tracker) Transition(id string, status TaskStatus, errMsg string, retries int) {
	t.mu.Lock()
	i, ok := t.index[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	task := &t.tasks[i]
	if task.Status == TaskCompleted || task.Status == TaskError {
		t.mu.Unlock()
		return
	}
	task.Status = status
	task.Error = errMsg
	if retries > task.Retries {
		task.Retries = retries
	}
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.emit(snapshot)
}

// Snapshot returns a copy of the current task list.
func (t *Tracker) Snapshot() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() []Task {
	snapshot := make([]Task, len(t.tasks))
	copy(snapshot, t.tasks)
	return snapshot
}

func (t *Tracker) emit(snapshot []Task) {
	if t.progress != nil {
		t.progress(snapshot)
	}
}
