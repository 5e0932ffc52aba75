// Package stream implements C7: the Stream Supervisor. Each stream wraps
// a subprocess with a background reader goroutine that feeds a bounded
// ring buffer and an unbounded line queue simultaneously, so read_lines
// and get_buffer never block each other. Grounded on
// _examples/original_source/services/tools/process_streamer.py's
// StreamConfig/ProcessStreamer reader-thread design, carried into Go with
// golang.org/x/sync/semaphore bounding concurrent reader goroutines to
// satisfy spec §5's "≥64 concurrent streams without serializing I/O".
package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
)

// maxConcurrentReaders bounds the number of reader goroutines draining
// subprocess stdout at once, per spec §5.
const maxConcurrentReaders = 64

// Config mirrors process_streamer.py's StreamConfig.
type Config struct {
	Command        string
	Cwd             string
	RingBufferSize int
}

// Line is one line of captured output with its sequence number.
type Line struct {
	Seq       int64
	Text      string
	Timestamp time.Time
}

// LineCallback is invoked once per captured line; a panic inside it is
// recovered and never stops the reader loop.
type LineCallback func(Line)

// Stream supervises one subprocess's output.
type Stream struct {
	ID string

	mu          sync.Mutex
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	running     bool
	exitErr     error
	returnCode  int
	seq         int64
	queue       []Line
	ring        []Line
	ringSize    int
	ringStart   int
	callback    LineCallback
	onCallbackErr func(error)
}

// Supervisor owns the table of active streams.
type Supervisor struct {
	mu      sync.Mutex
	nextID  int64
	streams map[string]*Stream
	sem     *semaphore.Weighted
}

// New constructs an empty Supervisor bounded to maxConcurrentReaders
// simultaneous reader goroutines.
func New() *Supervisor {
	return &Supervisor{
		streams: make(map[string]*Stream),
		sem:     semaphore.NewWeighted(maxConcurrentReaders),
	}
}

// StartStream launches cfg.Command and begins streaming its combined
// stdout/stderr into the new Stream's buffer. If cb is non-nil, it is
// invoked once per line.
func (s *Supervisor) StartStream(cfg Config, cb LineCallback) (*Stream, error) {
	ringSize := cfg.RingBufferSize
	if ringSize <= 0 {
		ringSize = 10000
	}

	cmd := exec.Command("sh", "-c", cfg.Command)
	cmd.Dir = cfg.Cwd
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, cferrors.Wrap(cferrors.Internal, err, "creating stdout pipe")
	}
	cmd.Stderr = cmd.Stdout
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, cferrors.Wrap(cferrors.Internal, err, "creating stdin pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, cferrors.Wrap(cferrors.Internal, err, "starting process")
	}

	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("stream-%d", s.nextID)
	st := &Stream{
		ID:       id,
		cmd:      cmd,
		stdin:    stdin,
		running:  true,
		ring:     make([]Line, ringSize),
		ringSize: ringSize,
		callback: cb,
	}
	s.streams[id] = st
	s.mu.Unlock()

	go s.readLoop(st, stdout)

	return st, nil
}

// readLoop drains stdout under the supervisor's concurrency semaphore,
// feeding both the unbounded read queue and the bounded ring buffer.
func (s *Supervisor) readLoop(st *Stream, r io.Reader) {
	if err := s.sem.Acquire(context.Background(), 1); err != nil {
		return
	}
	defer s.sem.Release(1)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		st.mu.Lock()
		st.seq++
		line := Line{Seq: st.seq, Text: scanner.Text(), Timestamp: time.Now()}
		st.queue = append(st.queue, line)
		st.ring[st.ringStart] = line
		st.ringStart = (st.ringStart + 1) % st.ringSize
		cb := st.callback
		st.mu.Unlock()

		if cb != nil {
			func() {
				defer func() {
					if r := recover(); r != nil && st.onCallbackErr != nil {
						st.onCallbackErr(fmt.Errorf("line callback panicked: %v", r))
					}
				}()
				cb(line)
			}()
		}
	}

	err := st.cmd.Wait()
	st.mu.Lock()
	st.running = false
	st.exitErr = err
	if st.cmd.ProcessState != nil {
		st.returnCode = st.cmd.ProcessState.ExitCode()
	}
	st.mu.Unlock()
}

// ReadLines drains and returns all lines queued since the last call.
func (st *Stream) ReadLines() []Line {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := st.queue
	st.queue = nil
	return out
}

// GetBuffer returns up to the last n lines retained in the ring buffer
// (or all retained lines if n <= 0).
func (st *Stream) GetBuffer(n int) []Line {
	st.mu.Lock()
	defer st.mu.Unlock()

	var ordered []Line
	for i := 0; i < st.ringSize; i++ {
		idx := (st.ringStart + i) % st.ringSize
		if st.ring[idx].Seq != 0 {
			ordered = append(ordered, st.ring[idx])
		}
	}
	if n > 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// WriteInput writes text to the subprocess's stdin.
func (st *Stream) WriteInput(text string) error {
	st.mu.Lock()
	running := st.running
	stdin := st.stdin
	st.mu.Unlock()
	if !running {
		return cferrors.New(cferrors.ValidationError, "stream %s is not running", st.ID)
	}
	if _, err := io.WriteString(stdin, text); err != nil {
		return cferrors.Wrap(cferrors.Internal, err, "writing to stream %s", st.ID)
	}
	return nil
}

// IsRunning reports whether the subprocess is still alive.
func (st *Stream) IsRunning() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.running
}

// ReturnCode returns the process's exit code once it has finished, or
// (0, false) while still running.
func (st *Stream) ReturnCode() (int, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.returnCode, !st.running
}

// StopStream terminates the subprocess. Mirrors process_streamer.py's
// stop_stream: SIGTERM first, escalating to Kill after grace.
func (s *Supervisor) StopStream(id string, grace time.Duration) error {
	st, err := s.get(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	running := st.running
	cmd := st.cmd
	st.mu.Unlock()
	if !running {
		return nil
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			st.mu.Lock()
			r := st.running
			st.mu.Unlock()
			if !r {
				close(done)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	if grace <= 0 {
		grace = 5 * time.Second
	}
	select {
	case <-done:
	case <-time.After(grace):
		_ = cmd.Process.Kill()
		<-done
	}
	return nil
}

// ListStreams returns the ids of every stream the supervisor has created.
func (s *Supervisor) ListStreams() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	return ids
}

// Get returns the stream with the given id, for direct buffer/stdin access.
func (s *Supervisor) Get(id string) (*Stream, error) {
	return s.get(id)
}

func (s *Supervisor) get(id string) (*Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[id]
	if !ok {
		return nil, cferrors.New(cferrors.NotFound, "stream %q not found", id)
	}
	return st, nil
}
