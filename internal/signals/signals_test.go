package signals

import (
	"testing"
)

func TestSignalRoundTrip(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if w.ShouldAbort() {
		t.Fatal("fresh watcher reports abort")
	}
	if w.ShouldPause() {
		t.Fatal("fresh watcher reports pause")
	}

	if err := w.SendAbort(); err != nil {
		t.Fatalf("SendAbort: %v", err)
	}
	if !w.ShouldAbort() {
		t.Error("abort file not detected")
	}

	if err := w.SendPause(); err != nil {
		t.Fatalf("SendPause: %v", err)
	}
	if !w.ShouldPause() {
		t.Error("pause file not detected")
	}

	w.Clear()
	if w.ShouldAbort() || w.ShouldPause() {
		t.Error("signals survive Clear")
	}
}

func TestClearRemovesLeftoverSignals(t *testing.T) {
	root := t.TempDir()

	prev, err := NewWatcher(root)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := prev.SendAbort(); err != nil {
		t.Fatal(err)
	}
	if err := prev.SendPause(); err != nil {
		t.Fatal(err)
	}
	prev.Close()

	// A new watcher over the same root sees the stale files until cleared.
	w, err := NewWatcher(root)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if !w.ShouldAbort() {
		t.Fatal("stale abort file not visible before Clear")
	}
	w.Clear()
	if w.ShouldAbort() {
		t.Error("stale abort survives Clear")
	}
	if w.ShouldPause() {
		t.Error("stale pause survives Clear")
	}
}

func TestPauseLiftsWhenFileRemoved(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.SendPause(); err != nil {
		t.Fatal(err)
	}
	if !w.ShouldPause() {
		t.Fatal("pause not detected")
	}

	w.Clear()
	if w.ShouldPause() {
		t.Error("pause still reported after removal")
	}
}
