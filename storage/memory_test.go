package storage

import (
	"errors"
	"testing"
	"time"

	"pricewatch/models"
)

func TestMemoryStoreRepoByHost(t *testing.T) {
	repo := NewMemoryStoreRepo(
		&models.Store{ID: 1, Name: "A", Domains: []string{"a.example", "www.a.example"}},
		&models.Store{ID: 2, Name: "B", Domains: []string{"b.example"}},
	)

	store, err := repo.ByHost("WWW.A.EXAMPLE")
	if err != nil {
		t.Fatalf("ByHost() error = %v", err)
	}
	if store.ID != 1 {
		t.Errorf("ByHost() = store %d, want 1", store.ID)
	}

	if _, err := repo.ByHost("c.example"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ByHost(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := repo.ByID(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("ByID(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestMemorySourceRepoEnabled(t *testing.T) {
	repo := NewMemorySourceRepo(
		&models.Source{ID: 1, Weight: 30, Status: models.SourceStatusActive},
		&models.Source{ID: 2, Weight: 10, Status: models.SourceStatusActive},
		&models.Source{ID: 3, Weight: 20, Status: models.SourceStatusDisabled},
		&models.Source{ID: 4, Weight: 20, Status: models.SourceStatusActive},
	)

	sources, err := repo.Enabled(0)
	if err != nil {
		t.Fatalf("Enabled() error = %v", err)
	}
	gotIDs := make([]int64, len(sources))
	for i, s := range sources {
		gotIDs[i] = s.ID
	}
	want := []int64{2, 4, 1} // ascending weight, disabled skipped
	if len(gotIDs) != len(want) {
		t.Fatalf("Enabled() = %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("Enabled() = %v, want %v", gotIDs, want)
		}
	}

	capped, _ := repo.Enabled(2)
	if len(capped) != 2 {
		t.Errorf("Enabled(2) returned %d sources, want 2", len(capped))
	}
}

func TestMemoryResearchRepoFilterAndPrune(t *testing.T) {
	repo := NewMemoryResearchRepo()
	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()
	err := repo.Save([]models.ResearchRecord{
		{ID: "1", Query: "laptop", Price: 900, SourceID: 1, CreatedAt: old},
		{ID: "2", Query: "laptop", Price: 1500, SourceID: 2, CreatedAt: fresh},
		{ID: "3", Query: "mouse", Price: 25, SourceID: 1, CreatedAt: fresh},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	tests := []struct {
		name   string
		filter ResearchFilter
		want   []string
	}{
		{"by query", ResearchFilter{Query: "laptop"}, []string{"1", "2"}},
		{"by source", ResearchFilter{SourceID: 1}, []string{"1", "3"}},
		{"by min price", ResearchFilter{MinPrice: 1000}, []string{"2"}},
		{"by max price", ResearchFilter{MaxPrice: 100}, []string{"3"}},
		{"combined", ResearchFilter{Query: "laptop", MaxPrice: 1000}, []string{"1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := repo.List(tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(records) != len(tt.want) {
				t.Fatalf("List() = %d records, want %d", len(records), len(tt.want))
			}
			for i, id := range tt.want {
				if records[i].ID != id {
					t.Errorf("record %d = %q, want %q", i, records[i].ID, id)
				}
			}
		})
	}

	pruned, err := repo.Prune(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 1 {
		t.Errorf("Prune() = %d, want 1", pruned)
	}
	remaining, _ := repo.List(ResearchFilter{})
	if len(remaining) != 2 {
		t.Errorf("records after prune = %d, want 2", len(remaining))
	}
}

func TestMemoryJobStateStoreTTL(t *testing.T) {
	store := NewMemoryJobStateStore()
	now := time.Now()
	state := &models.SearchJobState{Query: "laptop", DispatchedAt: &now}
	state.Append("Dispatching search job")

	if err := store.Put("search:laptop", state, 20*time.Millisecond); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get("search:laptop")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Query != "laptop" || len(got.Log) != 1 {
		t.Errorf("Get() = %+v", got)
	}

	// Snapshots must be isolated from later mutation of the original.
	state.Append("mutated after put")
	again, _ := store.Get("search:laptop")
	if len(again.Log) != 1 {
		t.Error("stored state shares memory with the caller's state")
	}

	time.Sleep(30 * time.Millisecond)
	if _, err := store.Get("search:laptop"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after TTL error = %v, want ErrNotFound", err)
	}

	if _, err := store.Get("never-stored"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}
