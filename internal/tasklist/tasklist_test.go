package tasklist

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/standardbeagle/contextforge/internal/types"
)

func TestAddTaskAndListTasks(t *testing.T) {
	m := New(0)
	root, err := m.AddTask("Build feature", "", "", nil)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	child, err := m.AddTask("Write tests", "", root.ID, nil)
	if err != nil {
		t.Fatalf("AddTask child: %v", err)
	}

	tasks := m.ListTasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != root.ID || tasks[1].ID != child.ID {
		t.Fatalf("expected depth-first order root then child, got %+v", tasks)
	}
}

func TestUpdateTaskState(t *testing.T) {
	m := New(0)
	task, _ := m.AddTask("Do thing", "", "", nil)

	updated, err := m.UpdateTask(task.ID, "", "", types.TaskInProgress, true)
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.State != types.TaskInProgress {
		t.Fatalf("expected IN_PROGRESS, got %v", updated.State)
	}
}

func TestUndoRedo(t *testing.T) {
	m := New(0)
	task, _ := m.AddTask("Original", "", "", nil)

	if _, err := m.UpdateTask(task.ID, "Renamed", "", 0, false); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	got, _ := m.GetTask(task.ID)
	if got.Name != "Renamed" {
		t.Fatalf("expected rename to apply, got %q", got.Name)
	}

	if !m.Undo() {
		t.Fatal("expected undo to succeed")
	}
	got, _ = m.GetTask(task.ID)
	if got.Name != "Original" {
		t.Fatalf("expected undo to restore original name, got %q", got.Name)
	}

	if !m.Redo() {
		t.Fatal("expected redo to succeed")
	}
	got, _ = m.GetTask(task.ID)
	if got.Name != "Renamed" {
		t.Fatalf("expected redo to reapply rename, got %q", got.Name)
	}
}

func TestRemoveTaskCascadesToChildren(t *testing.T) {
	m := New(0)
	root, _ := m.AddTask("Root", "", "", nil)
	child, _ := m.AddTask("Child", "", root.ID, nil)

	if err := m.RemoveTask(root.ID); err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	if _, err := m.GetTask(root.ID); err == nil {
		t.Fatal("expected root to be removed")
	}
	if _, err := m.GetTask(child.ID); err == nil {
		t.Fatal("expected child to be removed along with root")
	}
}

func TestMoveTaskRejectsCycles(t *testing.T) {
	m := New(0)
	root, _ := m.AddTask("Root", "", "", nil)
	child, _ := m.AddTask("Child", "", root.ID, nil)

	if err := m.MoveTask(root.ID, child.ID); err == nil {
		t.Fatal("expected moving a task under its own descendant to fail")
	}
}

func TestDependencyCycleRejected(t *testing.T) {
	m := New(0)
	a, _ := m.AddTask("A", "", "", nil)
	b, _ := m.AddTask("B", "", "", nil)

	if err := m.AddDependency(a.ID, b.ID); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if err := m.AddDependency(b.ID, a.ID); err == nil {
		t.Fatal("expected cycle to be rejected")
	}
}

func TestGetReadyAndBlockedTasks(t *testing.T) {
	m := New(0)
	a, _ := m.AddTask("A", "", "", nil)
	b, _ := m.AddTask("B", "", "", []string{a.ID})

	blocked := m.GetBlockedTasks()
	if len(blocked) != 1 || blocked[0].ID != b.ID {
		t.Fatalf("expected B blocked, got %+v", blocked)
	}

	ready := m.GetReadyTasks()
	if len(ready) != 1 || ready[0].ID != a.ID {
		t.Fatalf("expected A ready, got %+v", ready)
	}

	if _, err := m.UpdateTask(a.ID, "", "", types.TaskComplete, true); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	blocked = m.GetBlockedTasks()
	if len(blocked) != 0 {
		t.Fatalf("expected no tasks blocked once dependency completes, got %+v", blocked)
	}
}

func TestMarkdownRoundTrip(t *testing.T) {
	m := New(0)
	root, _ := m.AddTask("Ship release", "", "", nil)
	if _, err := m.AddTask("Write changelog", "", root.ID, nil); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := m.UpdateTask(root.ID, "", "", types.TaskInProgress, true); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	md := m.ToMarkdown()
	if !strings.Contains(md, "- [/] Ship release") {
		t.Fatalf("expected in-progress root marker, got:\n%s", md)
	}
	if !strings.Contains(md, "  - [ ] Write changelog") {
		t.Fatalf("expected nested not-started child, got:\n%s", md)
	}

	m2 := New(0)
	if err := m2.Reorganize(md); err != nil {
		t.Fatalf("Reorganize: %v", err)
	}
	tasks := m2.ListTasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks after round-trip, got %d", len(tasks))
	}
	if tasks[0].Name != "Ship release" || tasks[0].State != types.TaskInProgress {
		t.Fatalf("unexpected root after round-trip: %+v", tasks[0])
	}
	if tasks[1].Name != "Write changelog" || tasks[1].ParentID != tasks[0].ID {
		t.Fatalf("unexpected child after round-trip: %+v", tasks[1])
	}
}

func TestReorganizeAssignsNewUUIDs(t *testing.T) {
	m := New(0)
	md := "- [ ] Task one (task_id: NEW_UUID)\n- [x] Task two\n"
	if err := m.Reorganize(md); err != nil {
		t.Fatalf("Reorganize: %v", err)
	}
	tasks := m.ListTasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID == "" || tasks[1].ID == "" {
		t.Fatal("expected fresh ids to be minted")
	}
}

func TestApplyTemplate(t *testing.T) {
	m := New(0)
	root, err := m.ApplyTemplate("bug_fix", "login crash")
	if err != nil {
		t.Fatalf("ApplyTemplate: %v", err)
	}
	if root.Name != "Reproduce login crash" {
		t.Fatalf("unexpected root task name: %q", root.Name)
	}
	tasks := m.ListTasks()
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks from bug_fix template, got %d", len(tasks))
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".contextforge", "tasks.json")

	m := New(0)
	task, _ := m.AddTask("Persisted task", "", "", nil)
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m2 := New(0)
	if err := m2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	loaded, err := m2.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask after load: %v", err)
	}
	if loaded.Name != "Persisted task" {
		t.Fatalf("unexpected loaded task: %+v", loaded)
	}
}
