package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"sitlcheck/pkg/store"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "results_test.db")

	s, err := store.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if s == nil {
		t.Fatal("Init() returned nil store")
	}
	s.Close()
}

func TestSaveAndListResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results_test.db")
	s, err := store.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer s.Close()

	started := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	runs := []store.Result{
		{RunID: "run-1", Driver: "copter", Passed: true, Started: started, Duration: 90 * time.Second},
		{RunID: "run-2", Driver: "copter", Passed: false, Err: "waypoint timeout", Started: started.Add(time.Hour), Duration: 400 * time.Second},
		{RunID: "run-3", Driver: "rover", Passed: true, Started: started, Duration: 30 * time.Second},
	}
	for _, r := range runs {
		if err := s.SaveResult(r); err != nil {
			t.Fatalf("SaveResult(%s) failed: %v", r.RunID, err)
		}
	}

	got, err := s.ListResults("copter", 0)
	if err != nil {
		t.Fatalf("ListResults() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListResults() returned %d results, want 2", len(got))
	}
	if got[0].RunID != "run-2" {
		t.Errorf("newest result = %s, want run-2", got[0].RunID)
	}
	if got[0].Err != "waypoint timeout" {
		t.Errorf("error = %q, want waypoint timeout", got[0].Err)
	}
	if got[1].Passed != true {
		t.Errorf("run-1 passed = false, want true")
	}
	if got[1].Duration != 90*time.Second {
		t.Errorf("duration = %s, want 90s", got[1].Duration)
	}
}

func TestListResultsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results_test.db")
	s, err := store.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer s.Close()

	started := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := store.Result{
			RunID:   string(rune('a' + i)),
			Driver:  "plane",
			Passed:  true,
			Started: started.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveResult(r); err != nil {
			t.Fatalf("SaveResult() failed: %v", err)
		}
	}

	got, err := s.ListResults("plane", 2)
	if err != nil {
		t.Fatalf("ListResults() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListResults(limit=2) returned %d results", len(got))
	}
	if got[0].RunID != "e" {
		t.Errorf("newest result = %s, want e", got[0].RunID)
	}
}

func TestPruneResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results_test.db")
	s, err := store.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer s.Close()

	r := store.Result{RunID: "run-1", Driver: "copter", Passed: true, Started: time.Now()}
	if err := s.SaveResult(r); err != nil {
		t.Fatalf("SaveResult() failed: %v", err)
	}

	// a fresh row survives a retention window in the past
	if err := s.PruneResults(time.Hour); err != nil {
		t.Fatalf("PruneResults() failed: %v", err)
	}
	got, err := s.ListResults("copter", 0)
	if err != nil {
		t.Fatalf("ListResults() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("prune deleted a result inside the retention window")
	}

	// a negative window puts the deadline in the future and clears the table
	if err := s.PruneResults(-time.Minute); err != nil {
		t.Fatalf("PruneResults() failed: %v", err)
	}
	got, err = s.ListResults("copter", 0)
	if err != nil {
		t.Fatalf("ListResults() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("prune left %d results, want 0", len(got))
	}
}
