package process

import (
	"testing"
	"time"
)

func TestLaunchProcessWaitCapturesOutput(t *testing.T) {
	sup := New()
	h, err := sup.LaunchProcess(LaunchOptions{
		Command: "printf 'one\\ntwo\\n'",
		Wait:    true,
	})
	if err != nil {
		t.Fatalf("LaunchProcess: %v", err)
	}

	state, exitErr := h.State()
	if state != StateCompleted {
		t.Fatalf("expected COMPLETED, got %s (err=%v)", state, exitErr)
	}

	out, state, err := sup.ReadProcess(h.ID, false, 0)
	if err != nil {
		t.Fatalf("ReadProcess: %v", err)
	}
	if state != StateCompleted {
		t.Fatalf("expected COMPLETED from ReadProcess, got %s", state)
	}
	if len(out) != 2 || out[0] != "one" || out[1] != "two" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestLaunchProcessNonZeroExitIsFailed(t *testing.T) {
	sup := New()
	h, err := sup.LaunchProcess(LaunchOptions{Command: "exit 3", Wait: true})
	if err != nil {
		t.Fatalf("LaunchProcess: %v", err)
	}
	state, _ := h.State()
	if state != StateFailed {
		t.Fatalf("expected FAILED, got %s", state)
	}
}

func TestLaunchProcessRejectsMissingCwd(t *testing.T) {
	sup := New()
	_, err := sup.LaunchProcess(LaunchOptions{Command: "true", Cwd: "/nonexistent/path/xyz"})
	if err == nil {
		t.Fatalf("expected error for missing cwd")
	}
}

func TestLaunchProcessTimeoutLeavesProcessRunning(t *testing.T) {
	sup := New()
	h, err := sup.LaunchProcess(LaunchOptions{
		Command:        "sleep 5",
		Wait:           true,
		MaxWaitSeconds: 0.1,
	})
	if err != nil {
		t.Fatalf("LaunchProcess: %v", err)
	}
	state, _ := h.State()
	if state != StateTimeout {
		t.Fatalf("expected TIMEOUT, got %s", state)
	}

	// Process was not killed; supervisor can still kill it explicitly.
	killState, err := sup.KillProcess(h.ID)
	if err != nil {
		t.Fatalf("KillProcess: %v", err)
	}
	if killState != StateKilled {
		t.Fatalf("expected KILLED after explicit kill, got %s", killState)
	}
}

func TestWriteProcessStdin(t *testing.T) {
	sup := New()
	h, err := sup.LaunchProcess(LaunchOptions{Command: "read line; echo \"got:$line\""})
	if err != nil {
		t.Fatalf("LaunchProcess: %v", err)
	}

	if err := sup.WriteProcess(h.ID, "hello\n"); err != nil {
		t.Fatalf("WriteProcess: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, _ := h.State(); state != StateRunning {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	out, _, err := sup.ReadProcess(h.ID, false, 0)
	if err != nil {
		t.Fatalf("ReadProcess: %v", err)
	}
	if len(out) != 1 || out[0] != "got:hello" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestWriteProcessFailsWhenNotRunning(t *testing.T) {
	sup := New()
	h, err := sup.LaunchProcess(LaunchOptions{Command: "true", Wait: true})
	if err != nil {
		t.Fatalf("LaunchProcess: %v", err)
	}
	if err := sup.WriteProcess(h.ID, "x"); err == nil {
		t.Fatalf("expected error writing to a completed process")
	}
}

func TestKillProcessOnAlreadyExitedReturnsExistingState(t *testing.T) {
	sup := New()
	h, err := sup.LaunchProcess(LaunchOptions{Command: "true", Wait: true})
	if err != nil {
		t.Fatalf("LaunchProcess: %v", err)
	}
	state, err := sup.KillProcess(h.ID)
	if err != nil {
		t.Fatalf("KillProcess: %v", err)
	}
	if state != StateCompleted {
		t.Fatalf("expected KillProcess on exited process to report COMPLETED, got %s", state)
	}
}

func TestKillProcessEscalatesAfterGrace(t *testing.T) {
	sup := New()
	h, err := sup.LaunchProcess(LaunchOptions{Command: "trap '' TERM; sleep 30"})
	if err != nil {
		t.Fatalf("LaunchProcess: %v", err)
	}
	// Give the shell time to install its TERM trap before the kill.
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	state, err := sup.KillProcess(h.ID)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("KillProcess: %v", err)
	}
	if state != StateKilled {
		t.Fatalf("expected KILLED, got %s", state)
	}
	if elapsed < 4*time.Second {
		t.Fatalf("expected kill to wait out the grace period, took %v", elapsed)
	}
}

func TestListProcessesRefreshesCompletedState(t *testing.T) {
	sup := New()
	h, err := sup.LaunchProcess(LaunchOptions{Command: "true"})
	if err != nil {
		t.Fatalf("LaunchProcess: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var states map[string]State
	for time.Now().Before(deadline) {
		states = sup.ListProcesses()
		if states[h.ID] != StateRunning {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if states[h.ID] != StateCompleted {
		t.Fatalf("expected COMPLETED after list_processes refresh, got %s", states[h.ID])
	}
}

func TestReadProcessUnknownTerminalReturnsNotFound(t *testing.T) {
	sup := New()
	_, _, err := sup.ReadProcess("proc-999", false, 0)
	if err == nil {
		t.Fatalf("expected not-found error for unknown terminal id")
	}
}
