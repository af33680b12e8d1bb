package download

import (
	"strings"
	"testing"
	"time"
)

func TestNotifier_StatusBroadcast(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	ch, unsubscribe := n.Subscribe()
	defer unsubscribe()

	n.NotifyStatus("d1", "s1", StatusDownloading, "")

	select {
	case event := <-ch:
		if event.Type != "status" || event.Status != StatusDownloading {
			t.Errorf("event = %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestNotifier_ProgressDerivesSpeed(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	ch, unsubscribe := n.Subscribe()
	defer unsubscribe()

	n.NotifyStatus("d1", "s1", StatusDownloading, "")
	<-ch

	n.NotifyProgress("d1", "s1", 1024, 4096)
	first := <-ch
	if first.Progress != 0.25 {
		t.Errorf("Progress = %v, want 0.25", first.Progress)
	}

	time.Sleep(20 * time.Millisecond)
	n.NotifyProgress("d1", "s1", 2048, 4096)
	second := <-ch
	if second.Speed <= 0 {
		t.Errorf("Speed = %v, want > 0 after second tick", second.Speed)
	}
	if second.SpeedString() == "" {
		t.Error("SpeedString empty with positive speed")
	}
}

func TestNotifier_SlowSubscriberDoesNotBlock(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	_, unsubscribe := n.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			n.NotifyProgress("d1", "s1", int64(i), 200)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifier blocked on a slow subscriber")
	}
}

func TestEvent_String(t *testing.T) {
	progress := Event{Type: "progress", SongID: "s1", Progress: 0.5,
		DownloadedBytes: 512, TotalBytes: 1024}
	if got := progress.String(); !strings.Contains(got, "50%") {
		t.Errorf("String() = %q, want percentage", got)
	}

	status := Event{Type: "status", SongID: "s1", Status: StatusCompleted}
	if got := status.String(); !strings.Contains(got, StatusCompleted) {
		t.Errorf("String() = %q, want status", got)
	}
}
