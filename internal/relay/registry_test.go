package relay

import (
	"testing"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/observability/logging"
)

func TestPublishDeliversOnlyToOwningUser(t *testing.T) {
	reg := NewRegistry(logging.NewJSONLogger("test", "error"))

	chA, detachA := reg.Attach("alice")
	defer detachA()
	chB, detachB := reg.Attach("bob")
	defer detachB()

	reg.Publish(domain.ProgressEvent{UserID: "alice", RunID: "r1", Type: domain.EventStageProgress})

	select {
	case ev := <-chA:
		if ev.RunID != "r1" {
			t.Errorf("unexpected run id %q", ev.RunID)
		}
	default:
		t.Fatal("alice listener got no event")
	}
	select {
	case <-chB:
		t.Fatal("bob listener received alice's event")
	default:
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	reg := NewRegistry(logging.NewJSONLogger("test", "error"))
	ch, detach := reg.Attach("alice")
	defer detach()

	for i := 0; i < 5; i++ {
		reg.Publish(domain.ProgressEvent{UserID: "alice", Percent: i * 10})
	}
	for i := 0; i < 5; i++ {
		ev := <-ch
		if ev.Percent != i*10 {
			t.Fatalf("event %d has percent %d, want %d", i, ev.Percent, i*10)
		}
	}
}

func TestPublishDropsWhenListenerFull(t *testing.T) {
	dropped := 0
	reg := NewRegistry(logging.NewJSONLogger("test", "error"), WithBuffer(1), WithDropHook(func() { dropped++ }))
	ch, detach := reg.Attach("alice")
	defer detach()

	reg.Publish(domain.ProgressEvent{UserID: "alice", Percent: 10})
	reg.Publish(domain.ProgressEvent{UserID: "alice", Percent: 20})

	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	ev := <-ch
	if ev.Percent != 10 {
		t.Fatalf("kept event percent = %d, want 10", ev.Percent)
	}
}

func TestDetachClosesChannelAndForgetsListener(t *testing.T) {
	reg := NewRegistry(logging.NewJSONLogger("test", "error"))
	ch, detach := reg.Attach("alice")
	detach()

	if _, open := <-ch; open {
		t.Fatal("channel still open after detach")
	}
	if n := reg.ListenerCount(); n != 0 {
		t.Fatalf("listener count = %d, want 0", n)
	}

	// Publishing to a detached user is a no-op, not a panic.
	reg.Publish(domain.ProgressEvent{UserID: "alice"})
}
