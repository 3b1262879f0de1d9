package metrics

import "testing"

func TestGetDrainStatsUnknownStream(t *testing.T) {
	if got := GetDrainStats("no-such-stream"); got != nil {
		t.Errorf("GetDrainStats = %+v, want nil", got)
	}
}

func TestDrainCountersAccumulate(t *testing.T) {
	DrainTaskStarted("stdout-test")
	DrainChunk("stdout-test", 16)
	DrainChunk("stdout-test", 8)
	DrainReadFailure("stdout-test")
	DrainTaskTerminated("stdout-test")

	stats := GetDrainStats("stdout-test")
	if stats == nil {
		t.Fatal("GetDrainStats = nil after recording")
	}
	if stats.TasksStarted != 1 {
		t.Errorf("TasksStarted = %v, want 1", stats.TasksStarted)
	}
	if stats.Chunks != 2 {
		t.Errorf("Chunks = %v, want 2", stats.Chunks)
	}
	if stats.Bytes != 24 {
		t.Errorf("Bytes = %v, want 24", stats.Bytes)
	}
	if stats.ReadFailures != 1 {
		t.Errorf("ReadFailures = %v, want 1", stats.ReadFailures)
	}
}

func TestGetAllDrainStatsCopies(t *testing.T) {
	DrainChunk("copy-test", 4)

	all := GetAllDrainStats()
	s, ok := all["copy-test"]
	if !ok {
		t.Fatal("copy-test missing from GetAllDrainStats")
	}
	s.Bytes = 9999

	if got := GetDrainStats("copy-test"); got.Bytes == 9999 {
		t.Error("mutating the returned stats changed the cache")
	}
}
