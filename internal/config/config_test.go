package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	c := Load()
	if c.WorkerConcurrency != defaultWorkerConcurrency {
		t.Errorf("WorkerConcurrency = %d, want %d", c.WorkerConcurrency, defaultWorkerConcurrency)
	}
	if c.ToolLoopTimeout.Seconds() != defaultToolLoopSeconds {
		t.Errorf("ToolLoopTimeout = %v, want %ds", c.ToolLoopTimeout, defaultToolLoopSeconds)
	}
}

func TestGetenvIntClampedBounds(t *testing.T) {
	if got := getenvIntClamped("DOES_NOT_EXIST_XYZ", 10, 1, 5); got != 5 {
		t.Errorf("expected fallback clamped to max 5, got %d", got)
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV("a, b ,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
