package audiostatus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const openStatus = `state: RUNNING
owner_pid   : 1234
avail_max   : 16384
`

// TestPoll_Transitions tests on/off detection and that the callback only
// fires on transitions.
func TestPoll_Transitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status")
	if err := os.WriteFile(path, []byte("closed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var states []string
	p := New(path, 0, func(s string) { states = append(states, s) }, testLogger())

	p.poll()
	p.poll() // no change, no callback
	if len(states) != 1 || states[0] != StateOff {
		t.Fatalf("expected single off transition, got %v", states)
	}

	if err := os.WriteFile(path, []byte(openStatus), 0o644); err != nil {
		t.Fatal(err)
	}
	p.poll()
	p.poll()
	if len(states) != 2 || states[1] != StateOn {
		t.Fatalf("expected on transition, got %v", states)
	}
}

// TestPoll_ReadFailureCountsAsOn tests the card-reset behavior: an
// unreadable file decodes like active output.
func TestPoll_ReadFailureCountsAsOn(t *testing.T) {
	var states []string
	p := New(filepath.Join(t.TempDir(), "gone"), 0,
		func(s string) { states = append(states, s) }, testLogger())

	p.poll()
	if len(states) != 1 || states[0] != StateOn {
		t.Errorf("expected on for unreadable file, got %v", states)
	}
}

// TestRun_EmptyPathBlocks tests that an unconfigured poller just waits for
// shutdown.
func TestRun_EmptyPathBlocks(t *testing.T) {
	p := New("", 0, nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context error, got %v", err)
	}
}

// TestRun_PollsOnTicker tests the periodic loop end to end.
func TestRun_PollsOnTicker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status")
	if err := os.WriteFile(path, []byte("closed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	states := make(chan string, 4)
	p := New(path, 5*time.Millisecond, func(s string) { states <- s }, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case s := <-states:
		if s != StateOff {
			t.Errorf("expected off, got %s", s)
		}
	case <-time.After(time.Second):
		t.Fatal("poller never reported")
	}
}
