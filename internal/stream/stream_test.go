package stream

import (
	"sync"
	"testing"
	"time"
)

func TestStartStreamCapturesLines(t *testing.T) {
	sup := New()
	var mu sync.Mutex
	var seen []string

	st, err := sup.StartStream(Config{Command: "printf 'one\\ntwo\\nthree\\n'"}, func(l Line) {
		mu.Lock()
		seen = append(seen, l.Text)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !st.IsRunning() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	got := append([]string(nil), seen...)
	mu.Unlock()

	if len(got) != 3 || got[0] != "one" || got[1] != "two" || got[2] != "three" {
		t.Fatalf("unexpected callback lines: %v", got)
	}

	lines := st.ReadLines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines from ReadLines, got %d: %v", len(lines), lines)
	}
	if more := st.ReadLines(); len(more) != 0 {
		t.Fatalf("expected ReadLines to drain, got %v", more)
	}

	buf := st.GetBuffer(0)
	if len(buf) != 3 {
		t.Fatalf("expected ring buffer to retain 3 lines, got %d", len(buf))
	}

	code, done := st.ReturnCode()
	if !done {
		t.Fatalf("expected stream to have completed")
	}
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}

func TestGetBufferTruncatesToRequestedCount(t *testing.T) {
	sup := New()
	st, err := sup.StartStream(Config{Command: "seq 1 20", RingBufferSize: 100}, nil)
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && st.IsRunning() {
		time.Sleep(10 * time.Millisecond)
	}

	buf := st.GetBuffer(5)
	if len(buf) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(buf))
	}
	if buf[len(buf)-1].Text != "20" {
		t.Fatalf("expected last retained line to be 20, got %q", buf[len(buf)-1].Text)
	}
}

func TestWriteInputToRunningStream(t *testing.T) {
	sup := New()
	st, err := sup.StartStream(Config{Command: "read line; echo \"got:$line\""}, nil)
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	if err := st.WriteInput("hello\n"); err != nil {
		t.Fatalf("WriteInput: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && st.IsRunning() {
		time.Sleep(10 * time.Millisecond)
	}

	lines := st.ReadLines()
	if len(lines) != 1 || lines[0].Text != "got:hello" {
		t.Fatalf("unexpected output: %v", lines)
	}
}

func TestStopStreamTerminatesLongRunningProcess(t *testing.T) {
	sup := New()
	st, err := sup.StartStream(Config{Command: "sleep 30"}, nil)
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	if err := sup.StopStream(st.ID, 200*time.Millisecond); err != nil {
		t.Fatalf("StopStream: %v", err)
	}
	if st.IsRunning() {
		t.Fatalf("expected stream to be stopped")
	}
}

func TestListStreams(t *testing.T) {
	sup := New()
	a, _ := sup.StartStream(Config{Command: "true"}, nil)
	b, _ := sup.StartStream(Config{Command: "true"}, nil)

	ids := sup.ListStreams()
	if len(ids) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(ids))
	}
	found := map[string]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[a.ID] || !found[b.ID] {
		t.Fatalf("expected both stream ids present, got %v", ids)
	}
}
