package game

import (
	"errors"
	"testing"

	"github.com/pixil98/go-arena/internal/storage"
	"github.com/pixil98/go-testutil"
)

func newTestProfiles(t *testing.T) (*Profiles, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStore[*Profile](dir)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return NewProfiles(store), dir
}

func TestProfiles_Progress(t *testing.T) {
	profiles, dir := newTestProfiles(t)
	if err := profiles.Create("alice", "hash", nil); err != nil {
		t.Fatalf("creating profile: %v", err)
	}

	got, err := profiles.LoadProgress("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "default progress", got, DefaultTransform())

	moved := Transform{X: 400, Y: 120, Animation: "walk", FlipX: true, Scale: 1}
	if err := profiles.SaveProgress("alice", moved); err != nil {
		t.Fatalf("saving progress: %v", err)
	}

	// Progress must survive a reload from disk.
	store, err := storage.NewFileStore[*Profile](dir)
	if err != nil {
		t.Fatalf("reloading store: %v", err)
	}
	got, err = NewProfiles(store).LoadProgress("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "saved progress", got, moved)
}

func TestProfiles_UnknownIdentity(t *testing.T) {
	profiles, _ := newTestProfiles(t)

	got, err := profiles.LoadProgress("ghost")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile, got %v", err)
	}
	testutil.AssertEqual(t, "fallback progress", got, DefaultTransform())

	err = profiles.SaveProgress("ghost", DefaultTransform())
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile, got %v", err)
	}
	testutil.AssertEqual(t, "exists", profiles.Exists("ghost"), false)
}

func TestProfiles_SelectedCombatant(t *testing.T) {
	profiles, _ := newTestProfiles(t)
	if err := profiles.Create("alice", "hash", []string{"embercub", "tidefin"}); err != nil {
		t.Fatalf("creating profile: %v", err)
	}

	_, err := profiles.SelectedCombatant("alice")
	if !errors.Is(err, ErrNoSelection) {
		t.Errorf("expected ErrNoSelection, got %v", err)
	}

	err = profiles.SelectCombatant("alice", "stonehorn")
	if !errors.Is(err, ErrCombatantNotOwned) {
		t.Errorf("expected ErrCombatantNotOwned, got %v", err)
	}

	if err := profiles.SelectCombatant("alice", "tidefin"); err != nil {
		t.Fatalf("selecting: %v", err)
	}
	got, err := profiles.SelectedCombatant("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "selected", got, "tidefin")
}

// The server and the arena-token tool each open their own store on the same
// directory.
func TestProfiles_SharedDirectory(t *testing.T) {
	server, dir := newTestProfiles(t)
	toolStore, err := storage.NewFileStore[*Profile](dir)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	tool := NewProfiles(toolStore)

	if err := tool.Create("alice", "hash", []string{"embercub", "tidefin"}); err != nil {
		t.Fatalf("creating profile: %v", err)
	}
	testutil.AssertEqual(t, "server sees registration", server.Exists("alice"), true)

	if err := tool.SelectCombatant("alice", "tidefin"); err != nil {
		t.Fatalf("selecting: %v", err)
	}
	got, err := server.SelectedCombatant("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "server sees selection", got, "tidefin")

	if err := tool.SelectCombatant("alice", "embercub"); err != nil {
		t.Fatalf("selecting: %v", err)
	}
	moved := Transform{X: 10, Y: 20, Animation: "idle", Scale: 1}
	if err := server.SaveProgress("alice", moved); err != nil {
		t.Fatalf("saving progress: %v", err)
	}

	fresh, err := storage.NewFileStore[*Profile](dir)
	if err != nil {
		t.Fatalf("reloading store: %v", err)
	}
	reloaded := NewProfiles(fresh)
	got, err = reloaded.SelectedCombatant("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "selection kept by progress save", got, "embercub")
	progress, err := reloaded.LoadProgress("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "progress", progress, moved)
}

func TestProfiles_CreateDuplicate(t *testing.T) {
	profiles, _ := newTestProfiles(t)
	if err := profiles.Create("alice", "hash", nil); err != nil {
		t.Fatalf("creating profile: %v", err)
	}
	err := profiles.Create("alice", "other", nil)
	testutil.AssertErrorContains(t, err, "already exists")
}

func TestCatalog_Lookup(t *testing.T) {
	store, err := storage.NewFileStore[*Combatant](t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	ember := &Combatant{Meta: CombatantMeta{Name: "Embercub", Stats: Stats{HP: 100, Attack: 30, Defense: 5, Speed: 20}}}
	if err := store.Save("embercub", ember); err != nil {
		t.Fatalf("saving: %v", err)
	}

	catalog := NewCatalog(store)

	got, err := catalog.Lookup("embercub")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "id", got.ID, "embercub")
	testutil.AssertEqual(t, "name", got.Name(), "Embercub")
	testutil.AssertEqual(t, "stats", got.Meta.Stats, ember.Meta.Stats)
	testutil.AssertEqual(t, "stored copy untouched", ember.ID, "")

	_, err = catalog.Lookup("missing")
	if !errors.Is(err, ErrCombatantNotFound) {
		t.Errorf("expected ErrCombatantNotFound, got %v", err)
	}
}
