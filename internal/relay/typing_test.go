package relay

import "testing"

func TestTypingTracker_StartStop(t *testing.T) {
	tr := NewTypingTracker()

	tr.Start(1, 2)
	if receiver, ok := tr.TypingTo(1); !ok || receiver != 2 {
		t.Errorf("Expected user 1 typing to 2, got %d (ok=%v)", receiver, ok)
	}

	receiver, ok := tr.Stop(1)
	if !ok || receiver != 2 {
		t.Errorf("Expected stop to report receiver 2, got %d (ok=%v)", receiver, ok)
	}
	if _, ok := tr.TypingTo(1); ok {
		t.Error("Entry should be gone after stop")
	}
}

func TestTypingTracker_StartOverwrites(t *testing.T) {
	tr := NewTypingTracker()

	tr.Start(1, 2)
	tr.Start(1, 3)

	if receiver, _ := tr.TypingTo(1); receiver != 3 {
		t.Errorf("Expected latest receiver 3, got %d", receiver)
	}
}

func TestTypingTracker_StopWithoutEntry(t *testing.T) {
	tr := NewTypingTracker()
	if _, ok := tr.Stop(42); ok {
		t.Error("Stop without entry should report nothing")
	}
}

func TestTypingTracker_Clear(t *testing.T) {
	tr := NewTypingTracker()
	tr.Start(1, 2)
	tr.Clear(1)
	if _, ok := tr.TypingTo(1); ok {
		t.Error("Entry should be gone after clear")
	}
}
