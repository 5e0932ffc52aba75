package agentcoord

import (
	"sync"
	"time"

	"github.com/google/uuid"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
	"github.com/standardbeagle/contextforge/internal/types"
)

const defaultTaskTimeout = 300 * time.Second

// Queue is the coordinator's priority task queue: submit, pop-next (by
// priority then FIFO within a priority band), assign, complete, cancel.
type Queue struct {
	mu          sync.Mutex
	tasks       map[string]*types.TaskInfo
	pending     []string // task ids awaiting assignment, insertion order
	maxSize     int
	subscribers map[string][]chan *types.TaskInfo
}

// NewQueue constructs an empty Queue bounded to maxSize pending+running tasks.
func NewQueue(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Queue{
		tasks:       make(map[string]*types.TaskInfo),
		maxSize:     maxSize,
		subscribers: make(map[string][]chan *types.TaskInfo),
	}
}

// Submit enqueues a new task, returning its assigned id.
func (q *Queue) Submit(taskType string, payload map[string]any, priority types.TaskPriority, requiredCapabilities []string, timeoutSeconds float64) (*types.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	active := 0
	for _, ti := range q.tasks {
		switch ti.Status {
		case types.TaskPending, types.TaskQueued, types.TaskRunning:
			active++
		}
	}
	if active >= q.maxSize {
		return nil, cferrors.New(cferrors.QueueFull, "task queue is full (max %d)", q.maxSize)
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTaskTimeout.Seconds()
	}

	t := &types.TaskInfo{
		TaskID:               uuid.NewString(),
		TaskType:             taskType,
		Payload:              payload,
		Priority:             priority,
		Status:               types.TaskQueued,
		CreatedAt:            time.Now(),
		TimeoutSeconds:       timeoutSeconds,
		RequiredCapabilities: append([]string(nil), requiredCapabilities...),
		Metadata:             map[string]any{},
	}
	q.tasks[t.TaskID] = t
	q.insertPendingLocked(t.TaskID)
	return t.Clone(), nil
}

// insertPendingLocked inserts taskID into q.pending keeping higher
// priorities first and FIFO order within a priority band.
func (q *Queue) insertPendingLocked(taskID string) {
	newTask := q.tasks[taskID]
	idx := len(q.pending)
	for i, id := range q.pending {
		if q.tasks[id].Priority < newTask.Priority {
			idx = i
			break
		}
	}
	q.pending = append(q.pending, "")
	copy(q.pending[idx+1:], q.pending[idx:])
	q.pending[idx] = taskID
}

// GetNextTask atomically pops and returns the highest-priority pending
// task whose required capabilities are a subset of available, or nil if
// none qualify.
func (q *Queue) GetNextTask(available []string) *types.TaskInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, id := range q.pending {
		t := q.tasks[id]
		if hasAllCapabilities(available, t.RequiredCapabilities) {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return t.Clone()
		}
	}
	return nil
}

// AssignTask marks task as RUNNING under agentID.
func (q *Queue) AssignTask(taskID, agentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return cferrors.New(cferrors.NotFound, "task %q not found", taskID)
	}
	t.Status = types.TaskRunning
	t.AssignedAgent = agentID
	t.StartedAt = time.Now()
	return nil
}

// CompleteTask records a task's terminal result and notifies subscribers.
func (q *Queue) CompleteTask(taskID string, result map[string]any, taskErr string) error {
	q.mu.Lock()
	t, ok := q.tasks[taskID]
	if !ok {
		q.mu.Unlock()
		return cferrors.New(cferrors.NotFound, "task %q not found", taskID)
	}
	t.CompletedAt = time.Now()
	if taskErr != "" {
		t.Status = types.TaskFailed
		t.Error = taskErr
	} else {
		t.Status = types.TaskCompleted
		t.Result = result
	}
	subs := q.subscribers[taskID]
	delete(q.subscribers, taskID)
	snapshot := t.Clone()
	q.mu.Unlock()

	for _, ch := range subs {
		ch <- snapshot
		close(ch)
	}
	return nil
}

// CancelTask removes a still-pending task from the queue, or marks a
// running one CANCELLED.
func (q *Queue) CancelTask(taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return cferrors.New(cferrors.NotFound, "task %q not found", taskID)
	}
	if t.Status == types.TaskCompleted || t.Status == types.TaskFailed {
		return cferrors.New(cferrors.Conflict, "task %q has already finished", taskID)
	}
	for i, id := range q.pending {
		if id == taskID {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	t.Status = types.TaskCancelledStatus
	return nil
}

// ListTasks returns clones of every task, optionally filtered by status.
func (q *Queue) ListTasks(status types.TaskStatus, filterByStatus bool) []*types.TaskInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*types.TaskInfo, 0, len(q.tasks))
	for _, t := range q.tasks {
		if filterByStatus && t.Status != status {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

// GetResult returns the clone of a task, which the caller inspects for
// Status/Result/Error.
func (q *Queue) GetResult(taskID string) (*types.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return nil, cferrors.New(cferrors.NotFound, "task %q not found", taskID)
	}
	return t.Clone(), nil
}

// Subscribe returns a channel that receives the task's terminal state
// exactly once. If the task has already finished, the channel receives
// immediately.
func (q *Queue) Subscribe(taskID string) (<-chan *types.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return nil, cferrors.New(cferrors.NotFound, "task %q not found", taskID)
	}
	ch := make(chan *types.TaskInfo, 1)
	if t.Status == types.TaskCompleted || t.Status == types.TaskFailed {
		ch <- t.Clone()
		close(ch)
		return ch, nil
	}
	q.subscribers[taskID] = append(q.subscribers[taskID], ch)
	return ch, nil
}

// QueueStats summarizes queue composition.
type QueueStats struct {
	Pending   int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}

// GetStats returns aggregate counts by status.
func (q *Queue) GetStats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	var s QueueStats
	for _, t := range q.tasks {
		switch t.Status {
		case types.TaskPending, types.TaskQueued:
			s.Pending++
		case types.TaskRunning:
			s.Running++
		case types.TaskCompleted:
			s.Completed++
		case types.TaskFailed:
			s.Failed++
		case types.TaskCancelledStatus:
			s.Cancelled++
		}
	}
	return s
}

// hasAllCapabilities reports whether every entry in want is present in
// have, by exact match. The queue's own dispatch check only needs to know
// whether the union of capabilities online right now could possibly serve
// a task; per-agent fuzzy matching happens in Registry.FindAvailableAgent.
func hasAllCapabilities(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, c := range have {
		set[c] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

// requeue returns a timed-out or orphaned running task to the pending
// queue, incrementing nothing (caller decrements agent load separately).
func (q *Queue) requeue(taskID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return
	}
	t.Status = types.TaskQueued
	t.AssignedAgent = ""
	t.StartedAt = time.Time{}
	q.insertPendingLocked(taskID)
}
