package catalog

import (
	"testing"
	"time"
)

func TestProgressStream_PublishSubscribe(t *testing.T) {
	ps := NewProgressStream()
	defer ps.Close()

	ch, unsubscribe := ps.Subscribe()
	defer unsubscribe()

	ps.Publish(LoadingProgress{Message: "Found 3 artists", Progress: 0.05})

	select {
	case event := <-ch:
		if event.Progress != 0.05 {
			t.Errorf("Progress = %v, want 0.05", event.Progress)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestProgressStream_NoReplay(t *testing.T) {
	ps := NewProgressStream()
	defer ps.Close()

	ps.Publish(LoadingProgress{Progress: 0.05})

	ch, unsubscribe := ps.Subscribe()
	defer unsubscribe()

	select {
	case event := <-ch:
		t.Errorf("received replayed event %+v, want none", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProgressStream_SlowSubscriberDropsEvents(t *testing.T) {
	ps := NewProgressStream()
	defer ps.Close()

	ch, unsubscribe := ps.Subscribe()
	defer unsubscribe()

	// Overflow the subscriber buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			ps.Publish(LoadingProgress{ItemsProcessed: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	if got := len(ch); got > 16 {
		t.Errorf("buffered events = %d, want at most 16", got)
	}
}

func TestProgressStream_Unsubscribe(t *testing.T) {
	ps := NewProgressStream()
	defer ps.Close()

	ch, unsubscribe := ps.Subscribe()
	unsubscribe()

	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}

	// Unsubscribing twice is harmless.
	unsubscribe()
}

func TestProgressStream_Close(t *testing.T) {
	ps := NewProgressStream()

	ch, _ := ps.Subscribe()
	ps.Close()

	if _, open := <-ch; open {
		t.Error("channel still open after Close")
	}

	// Publishing and subscribing after Close must not panic.
	ps.Publish(LoadingProgress{})
	late, _ := ps.Subscribe()
	if _, open := <-late; open {
		t.Error("post-Close subscription returned an open channel")
	}
}
