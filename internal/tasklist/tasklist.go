// Package tasklist implements C11: the Task-List Manager. A bounded-depth
// task hierarchy with undo/redo over deep-cloned snapshots, markdown
// round-tripping, and a fixed template registry, grounded on
// _examples/original_source/services/tools/tasklist_manager.py's
// TaskListManager, with the mutex-guarded-map-plus-snapshot discipline
// carried over from internal/process (C6), itself grounded on
// _examples/other_examples/884120b9_samgonzalez27-script-weaver__internal-dag-executor.go.go.
package tasklist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
	"github.com/standardbeagle/contextforge/internal/types"
)

// MaxHierarchyDepth bounds nesting, per tasklist_manager.py's
// MAX_HIERARCHY_DEPTH.
const MaxHierarchyDepth = 10

// MaxUndoHistory bounds the undo/redo stacks, per tasklist_manager.py's
// MAX_UNDO_HISTORY.
const MaxUndoHistory = 50

// Manager owns a task hierarchy plus its undo/redo history.
type Manager struct {
	mu       sync.Mutex
	tasks    map[string]*types.Task
	order    []string // insertion order of root-level task ids, for stable to_markdown
	maxDepth int
	undo     []snapshot
	redo     []snapshot
}

type snapshot struct {
	tasks map[string]*types.Task
	order []string
}

// New constructs an empty Manager.
func New(maxDepth int) *Manager {
	if maxDepth <= 0 {
		maxDepth = MaxHierarchyDepth
	}
	return &Manager{tasks: make(map[string]*types.Task), maxDepth: maxDepth}
}

func (m *Manager) snapshotLocked() snapshot {
	clone := make(map[string]*types.Task, len(m.tasks))
	for id, t := range m.tasks {
		clone[id] = t.Clone()
	}
	return snapshot{tasks: clone, order: append([]string(nil), m.order...)}
}

func (m *Manager) pushUndoLocked() {
	m.undo = append(m.undo, m.snapshotLocked())
	if len(m.undo) > MaxUndoHistory {
		m.undo = m.undo[len(m.undo)-MaxUndoHistory:]
	}
	m.redo = nil
}

// Undo restores the previous snapshot, pushing the current state onto
// the redo stack. Returns false if there is nothing to undo.
func (m *Manager) Undo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return false
	}
	m.redo = append(m.redo, m.snapshotLocked())
	prev := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.tasks = prev.tasks
	m.order = prev.order
	return true
}

// Redo re-applies a snapshot previously undone.
func (m *Manager) Redo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.redo) == 0 {
		return false
	}
	m.undo = append(m.undo, m.snapshotLocked())
	next := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.tasks = next.tasks
	m.order = next.order
	return true
}

// AddTask creates a new task, optionally nested under parentID.
func (m *Manager) AddTask(name, description, parentID string, dependencies []string) (*types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if parentID != "" {
		parent, ok := m.tasks[parentID]
		if !ok {
			return nil, cferrors.New(cferrors.NotFound, "parent task %q not found", parentID)
		}
		if m.depthLocked(parent)+1 >= m.maxDepth {
			return nil, cferrors.New(cferrors.ValidationError, "task hierarchy depth exceeds %d", m.maxDepth)
		}
	}
	for _, dep := range dependencies {
		if _, ok := m.tasks[dep]; !ok {
			return nil, cferrors.New(cferrors.NotFound, "dependency task %q not found", dep)
		}
	}

	m.pushUndoLocked()

	now := time.Now()
	t := &types.Task{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		State:        types.TaskNotStarted,
		ParentID:     parentID,
		Dependencies: append([]string(nil), dependencies...),
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     map[string]any{},
	}
	m.tasks[t.ID] = t
	if parentID != "" {
		parent := m.tasks[parentID]
		parent.Children = append(parent.Children, t.ID)
		t.Order = len(parent.Children) - 1
	} else {
		m.order = append(m.order, t.ID)
		t.Order = len(m.order) - 1
	}
	return t.Clone(), nil
}

func (m *Manager) depthLocked(t *types.Task) int {
	depth := 0
	cur := t
	for cur.ParentID != "" {
		parent, ok := m.tasks[cur.ParentID]
		if !ok {
			break
		}
		depth++
		cur = parent
	}
	return depth
}

// UpdateTask mutates an existing task's mutable fields. Any zero-value
// string argument leaves that field unchanged; state is applied only when
// hasState is true.
func (m *Manager) UpdateTask(id, name, description string, state types.TaskState, hasState bool) (*types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, cferrors.New(cferrors.NotFound, "task %q not found", id)
	}

	m.pushUndoLocked()

	if name != "" {
		t.Name = name
	}
	if description != "" {
		t.Description = description
	}
	if hasState {
		t.State = state
	}
	t.UpdatedAt = time.Now()
	return t.Clone(), nil
}

// RemoveTask deletes a task and its subtree, detaching it from its
// parent's children and from any dependents' dependency lists.
func (m *Manager) RemoveTask(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return cferrors.New(cferrors.NotFound, "task %q not found", id)
	}

	m.pushUndoLocked()

	var collect func(string)
	toDelete := map[string]bool{}
	collect = func(taskID string) {
		toDelete[taskID] = true
		if tt, ok := m.tasks[taskID]; ok {
			for _, child := range tt.Children {
				collect(child)
			}
		}
	}
	collect(id)

	for taskID := range toDelete {
		delete(m.tasks, taskID)
	}
	for _, other := range m.tasks {
		other.Children = removeString(other.Children, toDelete)
		other.Dependencies = removeString(other.Dependencies, toDelete)
	}
	if t.ParentID == "" {
		m.order = removeOne(m.order, id)
	}
	return nil
}

func removeString(list []string, drop map[string]bool) []string {
	out := list[:0]
	for _, v := range list {
		if !drop[v] {
			out = append(out, v)
		}
	}
	return out
}

func removeOne(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// MoveTask reparents task id under newParentID ("" for root level).
func (m *Manager) MoveTask(id, newParentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return cferrors.New(cferrors.NotFound, "task %q not found", id)
	}
	if newParentID != "" {
		if _, ok := m.tasks[newParentID]; !ok {
			return cferrors.New(cferrors.NotFound, "parent task %q not found", newParentID)
		}
		if newParentID == id || m.isDescendantLocked(newParentID, id) {
			return cferrors.New(cferrors.ValidationError, "cannot move task %q under its own descendant", id)
		}
	}

	m.pushUndoLocked()

	if t.ParentID == "" {
		m.order = removeOne(m.order, id)
	} else if oldParent, ok := m.tasks[t.ParentID]; ok {
		oldParent.Children = removeOne(oldParent.Children, id)
	}

	t.ParentID = newParentID
	if newParentID == "" {
		m.order = append(m.order, id)
	} else {
		m.tasks[newParentID].Children = append(m.tasks[newParentID].Children, id)
	}
	return nil
}

func (m *Manager) isDescendantLocked(candidateID, ancestorID string) bool {
	t, ok := m.tasks[candidateID]
	if !ok {
		return false
	}
	for t.ParentID != "" {
		if t.ParentID == ancestorID {
			return true
		}
		t, ok = m.tasks[t.ParentID]
		if !ok {
			return false
		}
	}
	return false
}

// GetTask returns a clone of the task with the given id.
func (m *Manager) GetTask(id string) (*types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, cferrors.New(cferrors.NotFound, "task %q not found", id)
	}
	return t.Clone(), nil
}

// ListTasks returns clones of every task, root tasks first in insertion
// order, depth-first through children.
func (m *Manager) ListTasks() []*types.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*types.Task
	var walk func(string)
	walk = func(id string) {
		t, ok := m.tasks[id]
		if !ok {
			return
		}
		out = append(out, t.Clone())
		for _, child := range t.Children {
			walk(child)
		}
	}
	for _, id := range m.order {
		walk(id)
	}
	return out
}

// AddDependency records that task depends on dependsOn, rejecting cycles.
func (m *Manager) AddDependency(taskID, dependsOn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[taskID]; !ok {
		return cferrors.New(cferrors.NotFound, "task %q not found", taskID)
	}
	if _, ok := m.tasks[dependsOn]; !ok {
		return cferrors.New(cferrors.NotFound, "task %q not found", dependsOn)
	}
	if m.wouldCreateCycleLocked(taskID, dependsOn) {
		return cferrors.New(cferrors.ValidationError, "dependency %q -> %q would create a cycle", taskID, dependsOn)
	}

	m.pushUndoLocked()
	t := m.tasks[taskID]

	for _, d := range t.Dependencies {
		if d == dependsOn {
			return nil
		}
	}
	t.Dependencies = append(t.Dependencies, dependsOn)
	return nil
}

func (m *Manager) wouldCreateCycleLocked(taskID, dependsOn string) bool {
	visited := map[string]bool{}
	var visit func(string) bool
	visit = func(id string) bool {
		if id == taskID {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		t, ok := m.tasks[id]
		if !ok {
			return false
		}
		for _, d := range t.Dependencies {
			if visit(d) {
				return true
			}
		}
		return false
	}
	return visit(dependsOn)
}

// RemoveDependency deletes a previously recorded dependency.
func (m *Manager) RemoveDependency(taskID, dependsOn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return cferrors.New(cferrors.NotFound, "task %q not found", taskID)
	}
	m.pushUndoLocked()
	t.Dependencies = removeOne(t.Dependencies, dependsOn)
	return nil
}

// GetBlockedTasks returns tasks with at least one incomplete dependency.
func (m *Manager) GetBlockedTasks() []*types.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Task
	for _, t := range m.tasks {
		for _, dep := range t.Dependencies {
			if d, ok := m.tasks[dep]; ok && d.State != types.TaskComplete {
				out = append(out, t.Clone())
				break
			}
		}
	}
	return out
}

// GetReadyTasks returns not-started tasks whose dependencies are all complete.
func (m *Manager) GetReadyTasks() []*types.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Task
	for _, t := range m.tasks {
		if t.State != types.TaskNotStarted {
			continue
		}
		ready := true
		for _, dep := range t.Dependencies {
			if d, ok := m.tasks[dep]; !ok || d.State != types.TaskComplete {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, t.Clone())
		}
	}
	return out
}

// ToMarkdown renders the hierarchy per the grammar:
// indent(2-space units) "- [" state "] " name (" (task_id: " id ")")?
func (m *Manager) ToMarkdown() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		t, ok := m.tasks[id]
		if !ok {
			return
		}
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(&b, "%s- [%c] %s (task_id: %s)\n", indent, t.State.MarkdownChar(), t.Name, t.ID)
		for _, child := range t.Children {
			walk(child, depth+1)
		}
	}
	for _, id := range m.order {
		walk(id, 0)
	}
	return b.String()
}

var markdownLineRe = regexp.MustCompile(`^(\s*)-\s\[([ x/\-])\]\s(.+?)(?:\s\(task_id:\s(\S+)\))?$`)

// Reorganize replaces the entire hierarchy from markdown text. Lines
// whose task_id is "NEW_UUID" or omitted get freshly minted ids; other
// ids are kept as written. Each task is rebuilt from its line alone: its
// state comes from the line's marker, and the previous hierarchy's
// descriptions, dependencies and metadata are not carried over.
func (m *Manager) Reorganize(markdown string) error {
	type node struct {
		task  *types.Task
		depth int
	}
	var nodes []node

	lines := strings.Split(markdown, "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		match := markdownLineRe.FindStringSubmatch(line)
		if match == nil {
			return cferrors.New(cferrors.ValidationError, "malformed task-list line: %q", line)
		}
		indent := match[1]
		stateChar := match[2][0]
		name := match[3]
		id := match[4]

		if len(indent)%2 != 0 {
			return cferrors.New(cferrors.ValidationError, "odd indentation in task-list line: %q", line)
		}
		depth := len(indent) / 2
		if depth >= m.maxDepth {
			return cferrors.New(cferrors.ValidationError, "task hierarchy depth exceeds %d", m.maxDepth)
		}

		state, ok := types.TaskStateFromMarkdownChar(stateChar)
		if !ok {
			return cferrors.New(cferrors.ValidationError, "unknown task state marker %q", string(stateChar))
		}

		if id == "" || id == "NEW_UUID" {
			id = uuid.NewString()
		}

		now := time.Now()
		t := &types.Task{ID: id, Name: name, State: state, CreatedAt: now, UpdatedAt: now, Metadata: map[string]any{}}
		nodes = append(nodes, node{t, depth})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushUndoLocked()

	tasks := make(map[string]*types.Task, len(nodes))
	var order []string
	stack := []string{}
	for _, n := range nodes {
		if n.depth > len(stack) {
			return cferrors.New(cferrors.ValidationError, "task %q is indented deeper than its predecessor allows", n.task.Name)
		}
		stack = stack[:n.depth]
		if n.depth == 0 {
			order = append(order, n.task.ID)
		} else {
			parentID := stack[n.depth-1]
			n.task.ParentID = parentID
			tasks[parentID].Children = append(tasks[parentID].Children, n.task.ID)
		}
		tasks[n.task.ID] = n.task
		stack = append(stack, n.task.ID)
	}

	m.tasks = tasks
	m.order = order
	return nil
}

// templates is the fixed registry from tasklist_manager.py's TEMPLATES,
// each a tree with exactly one {title} placeholder.
var templates = map[string][]templateNode{
	"feature": {
		{0, "Design {title}"},
		{1, "Write failing tests for {title}"},
		{1, "Implement {title}"},
		{1, "Review {title}"},
	},
	"bug_fix": {
		{0, "Reproduce {title}"},
		{1, "Write regression test for {title}"},
		{1, "Fix {title}"},
		{1, "Verify fix for {title}"},
	},
	"refactor": {
		{0, "Plan refactor: {title}"},
		{1, "Add characterization tests for {title}"},
		{1, "Refactor {title}"},
		{1, "Confirm behavior unchanged for {title}"},
	},
	"review": {
		{0, "Review {title}"},
		{1, "Check correctness of {title}"},
		{1, "Check test coverage of {title}"},
		{1, "Summarize findings on {title}"},
	},
	"release": {
		{0, "Prepare release {title}"},
		{1, "Finalize changelog for {title}"},
		{1, "Tag and build {title}"},
		{1, "Publish {title}"},
	},
}

type templateNode struct {
	depth int
	name  string
}

// ListTemplates returns the names of the fixed template registry.
func ListTemplates() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyTemplate instantiates template with title substituted for {title}
// in every node name, returning the created root task.
func (m *Manager) ApplyTemplate(template, title string) (*types.Task, error) {
	nodes, ok := templates[template]
	if !ok {
		return nil, cferrors.New(cferrors.ValidationError, "unknown template %q", template)
	}

	var rootTask *types.Task
	stack := []string{}
	for _, n := range nodes {
		name := strings.ReplaceAll(n.name, "{title}", title)
		var parentID string
		if n.depth > 0 {
			if n.depth-1 >= len(stack) {
				return nil, cferrors.New(cferrors.Internal, "malformed template %q", template)
			}
			parentID = stack[n.depth-1]
		}
		t, err := m.AddTask(name, "", parentID, nil)
		if err != nil {
			return nil, err
		}
		if n.depth == 0 {
			rootTask = t
		}
		stack = stack[:n.depth]
		stack = append(stack, t.ID)
	}
	return rootTask, nil
}

// Clear removes every task and history entry.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = make(map[string]*types.Task)
	m.order = nil
	m.undo = nil
	m.redo = nil
}

// Save persists the hierarchy as JSON to path.
func (m *Manager) Save(path string) error {
	m.mu.Lock()
	tasks := make([]*types.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t.Clone())
	}
	order := append([]string(nil), m.order...)
	m.mu.Unlock()

	data, err := json.MarshalIndent(struct {
		Tasks []*types.Task `json:"tasks"`
		Order []string      `json:"order"`
	}{tasks, order}, "", "  ")
	if err != nil {
		return cferrors.Wrap(cferrors.Internal, err, "marshaling task list")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cferrors.Wrap(cferrors.Internal, err, "creating directory for %q", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cferrors.Wrap(cferrors.Internal, err, "writing %q", path)
	}
	return nil
}

// Load replaces the hierarchy with the JSON persisted at path.
func (m *Manager) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cferrors.New(cferrors.NotFound, "task list %q not found", path)
		}
		return cferrors.Wrap(cferrors.Internal, err, "reading %q", path)
	}
	var parsed struct {
		Tasks []*types.Task `json:"tasks"`
		Order []string      `json:"order"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return cferrors.Wrap(cferrors.ValidationError, err, "parsing %q", path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushUndoLocked()
	tasks := make(map[string]*types.Task, len(parsed.Tasks))
	for _, t := range parsed.Tasks {
		tasks[t.ID] = t
	}
	m.tasks = tasks
	m.order = parsed.Order
	return nil
}
