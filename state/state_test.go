package state

import "testing"

func TestHash_Deterministic(t *testing.T) {
	a := Hash([]byte("same content"))
	b := Hash([]byte("same content"))
	if a != b {
		t.Errorf("Hash not deterministic: %s vs %s", a, b)
	}
	if a == Hash([]byte("other content")) {
		t.Error("different content must not collide")
	}
	if a == "" {
		t.Error("Hash returned empty string")
	}
}

func TestMemoryTracker(t *testing.T) {
	tracker := NewMemoryTracker()
	hash := Hash([]byte("message body"))

	if tracker.AlreadyProcessed(hash) {
		t.Error("fresh tracker must not report the hash as seen")
	}

	tracker.MarkProcessed(hash, "message_00001.xml")
	if !tracker.AlreadyProcessed(hash) {
		t.Error("marked hash must be reported as seen")
	}

	// Re-marking keeps the first entry and does not grow the set.
	tracker.MarkProcessed(hash, "message_00002.xml")
	if got := tracker.Snapshot(); got != 1 {
		t.Errorf("Snapshot() = %d, want 1", got)
	}
}

func TestMemoryTracker_EmptyHash(t *testing.T) {
	tracker := NewMemoryTracker()
	tracker.MarkProcessed("", "entry")
	if tracker.AlreadyProcessed("") {
		t.Error("empty hash must never count as seen")
	}
	if got := tracker.Snapshot(); got != 0 {
		t.Errorf("Snapshot() = %d, want 0", got)
	}
}
