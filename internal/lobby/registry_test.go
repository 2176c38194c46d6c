package lobby

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCreateReturnsDistinctCodes(t *testing.T) {
	r := NewRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := r.Create()
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if seen[code] {
			t.Fatalf("Create() returned duplicate code %q", code)
		}
		seen[code] = true

		if _, ok := r.Get(code); !ok {
			t.Fatalf("Get(%q) = false immediately after Create", code)
		}
	}
}

func TestCreateRetriesOnCollision(t *testing.T) {
	r := NewRegistry()

	// Stub generator: first two calls collide with an existing lobby.
	codes := []string{"SAME01", "SAME01", "SAME01", "FRESH1"}
	i := 0
	r.newCode = func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	}

	first, err := r.Create()
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if first != "SAME01" {
		t.Fatalf("first Create() = %q, want SAME01", first)
	}

	second, err := r.Create()
	if err != nil {
		t.Fatalf("Create() after collisions error: %v", err)
	}
	if second != "FRESH1" {
		t.Errorf("second Create() = %q, want FRESH1", second)
	}
}

func TestCreateExhaustion(t *testing.T) {
	r := NewRegistry()
	r.newCode = func() (string, error) { return "STUCK0", nil }

	if _, err := r.Create(); err != nil {
		t.Fatalf("first Create() error: %v", err)
	}
	_, err := r.Create()
	if !errors.Is(err, ErrCodeExhausted) {
		t.Fatalf("Create() with colliding generator: err = %v, want ErrCodeExhausted", err)
	}

	if lobbies, _ := r.Counts(); lobbies != 1 {
		t.Errorf("failed Create mutated registry: %d lobbies, want 1", lobbies)
	}
}

func TestAddPlayerUnknownCode(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.AddPlayer("NOPE00", "c1", "Sam")
	if !errors.Is(err, ErrLobbyNotFound) {
		t.Fatalf("AddPlayer to unknown code: err = %v, want ErrLobbyNotFound", err)
	}
	if lobbies, players := r.Counts(); lobbies != 0 || players != 0 {
		t.Errorf("failed join mutated registry: %d lobbies, %d players", lobbies, players)
	}
}

func TestAddPlayerDefaultName(t *testing.T) {
	r := NewRegistry()
	code := mustCreate(t, r)

	tests := []struct {
		connID   string
		name     string
		wantName string
	}{
		{"c1", "", "Player 1"},
		{"c2", "   ", "Player 2"},
		{"c3", "Sam", "Sam"},
		{"c4", "", "Player 4"},
	}

	for _, tt := range tests {
		p, _, err := r.AddPlayer(code, tt.connID, tt.name)
		if err != nil {
			t.Fatalf("AddPlayer(%q) error: %v", tt.connID, err)
		}
		if p.Name != tt.wantName {
			t.Errorf("AddPlayer(%q, %q).Name = %q, want %q", tt.connID, tt.name, p.Name, tt.wantName)
		}
		if p.Score != 0 {
			t.Errorf("new player %q score = %d, want 0", tt.connID, p.Score)
		}
	}
}

func TestAddPlayerPreservesJoinOrder(t *testing.T) {
	r := NewRegistry()
	code := mustCreate(t, r)

	for i := 0; i < 5; i++ {
		if _, _, err := r.AddPlayer(code, fmt.Sprintf("c%d", i), ""); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
	}

	roster, ok := r.Roster(code)
	if !ok {
		t.Fatal("Roster() = false for active lobby")
	}
	for i, p := range roster {
		if want := fmt.Sprintf("c%d", i); p.ID != want {
			t.Errorf("roster[%d].ID = %q, want %q", i, p.ID, want)
		}
	}
}

func TestRemovePlayer(t *testing.T) {
	r := NewRegistry()
	code := mustCreate(t, r)
	r.AddPlayer(code, "c1", "")
	r.AddPlayer(code, "c2", "")

	roster, removed := r.RemovePlayer(code, "c1")
	if !removed {
		t.Fatal("RemovePlayer(c1) = false, want true")
	}
	if len(roster) != 1 || roster[0].ID != "c2" {
		t.Errorf("roster after removal = %+v, want [c2]", roster)
	}

	// Removing a non-participant is a no-op.
	if _, removed := r.RemovePlayer(code, "ghost"); removed {
		t.Error("RemovePlayer(ghost) = true, want false")
	}
	if _, removed := r.RemovePlayer("NOPE00", "c2"); removed {
		t.Error("RemovePlayer on unknown lobby = true, want false")
	}
}

func TestApplyInputPress(t *testing.T) {
	r := NewRegistry()
	code := mustCreate(t, r)
	r.AddPlayer(code, "c1", "")
	r.AddPlayer(code, "c2", "Sam")

	roster, fwd, scored, ok := r.ApplyInput(code, "c1", "", ActionPress)
	if !ok || !scored {
		t.Fatalf("ApplyInput(press): scored=%v ok=%v, want true/true", scored, ok)
	}
	if roster[0].Score != 1 {
		t.Errorf("c1 score = %d, want 1", roster[0].Score)
	}
	if roster[1].Score != 0 {
		t.Errorf("c2 score = %d, want 0 (must not interfere)", roster[1].Score)
	}
	if fwd.Type != DefaultForwardType || fwd.Action != ActionPress || fwd.PlayerID != "c1" {
		t.Errorf("forward record = %+v, want {BUTTON press c1}", fwd)
	}
}

func TestApplyInputRelease(t *testing.T) {
	r := NewRegistry()
	code := mustCreate(t, r)
	r.AddPlayer(code, "c1", "")

	_, fwd, scored, ok := r.ApplyInput(code, "c1", "TRIGGER", ActionRelease)
	if !ok {
		t.Fatal("ApplyInput(release) ok = false")
	}
	if scored {
		t.Error("release changed state, want no-op")
	}
	if fwd.Type != "TRIGGER" || fwd.Action != ActionRelease {
		t.Errorf("forward record = %+v, want {TRIGGER release c1}", fwd)
	}

	roster, _ := r.Roster(code)
	if roster[0].Score != 0 {
		t.Errorf("score after release = %d, want 0", roster[0].Score)
	}
}

func TestApplyInputUnknowns(t *testing.T) {
	r := NewRegistry()
	code := mustCreate(t, r)
	r.AddPlayer(code, "c1", "")

	if _, _, _, ok := r.ApplyInput("NOPE00", "c1", "", ActionPress); ok {
		t.Error("input against unknown lobby: ok = true, want silent no-op")
	}
	if _, _, _, ok := r.ApplyInput(code, "ghost", "", ActionPress); ok {
		t.Error("input from unknown player: ok = true, want silent no-op")
	}

	roster, _ := r.Roster(code)
	if roster[0].Score != 0 {
		t.Errorf("score mutated by no-op input: %d, want 0", roster[0].Score)
	}
}

func TestConcurrentJoins(t *testing.T) {
	r := NewRegistry()
	code := mustCreate(t, r)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, _, err := r.AddPlayer(code, fmt.Sprintf("c%d", i), ""); err != nil {
				t.Errorf("concurrent AddPlayer: %v", err)
			}
		}(i)
	}
	wg.Wait()

	roster, _ := r.Roster(code)
	if len(roster) != n {
		t.Fatalf("roster length = %d after %d concurrent joins", len(roster), n)
	}
	seen := make(map[string]bool)
	for _, p := range roster {
		if seen[p.ID] {
			t.Errorf("player %q appears twice in roster", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestConcurrentPresses(t *testing.T) {
	r := NewRegistry()
	code := mustCreate(t, r)
	r.AddPlayer(code, "c1", "")
	r.AddPlayer(code, "c2", "")

	const presses = 100
	var wg sync.WaitGroup
	for i := 0; i < presses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.ApplyInput(code, "c1", "", ActionPress)
		}()
	}
	wg.Wait()

	roster, _ := r.Roster(code)
	if roster[0].Score != presses {
		t.Errorf("c1 score = %d after %d presses, want %d", roster[0].Score, presses, presses)
	}
	if roster[1].Score != 0 {
		t.Errorf("c2 score = %d, want 0", roster[1].Score)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	code := mustCreate(t, r)
	r.AddPlayer(code, "c1", "original")

	got, _ := r.Get(code)
	got.Players[0].Name = "mutated"

	got2, _ := r.Get(code)
	if got2.Players[0].Name != "original" {
		t.Error("Get did not return a copy; mutation leaked into registry")
	}
}

func TestRemoveLobby(t *testing.T) {
	r := NewRegistry()
	code := mustCreate(t, r)

	if !r.Remove(code) {
		t.Fatal("Remove(active) = false, want true")
	}
	if _, ok := r.Get(code); ok {
		t.Error("Get after Remove = true, want false")
	}
	if r.Remove(code) {
		t.Error("second Remove = true, want false")
	}

	// A join after teardown fails like any unknown code.
	if _, _, err := r.AddPlayer(code, "c1", ""); !errors.Is(err, ErrLobbyNotFound) {
		t.Errorf("join after teardown: err = %v, want ErrLobbyNotFound", err)
	}
}

func TestReapIdle(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := base
	r.now = func() time.Time { return now }

	stale := mustCreate(t, r)
	now = base.Add(25 * time.Minute)
	fresh := mustCreate(t, r)

	// Activity on the stale lobby resets its clock.
	touched := mustCreateAt(t, r, &now, base.Add(5*time.Minute))
	now = base.Add(20 * time.Minute)
	r.AddPlayer(touched, "c1", "")

	now = base.Add(40 * time.Minute)
	reaped := r.ReapIdle(30 * time.Minute)

	if len(reaped) != 1 || reaped[0] != stale {
		t.Fatalf("ReapIdle = %v, want [%s]", reaped, stale)
	}
	if _, ok := r.Get(stale); ok {
		t.Error("stale lobby still present after reap")
	}
	if _, ok := r.Get(fresh); !ok {
		t.Error("fresh lobby reaped")
	}
	if _, ok := r.Get(touched); !ok {
		t.Error("recently-active lobby reaped")
	}
}

func mustCreate(t *testing.T, r *Registry) string {
	t.Helper()
	code, err := r.Create()
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return code
}

// mustCreateAt creates a lobby with the registry clock temporarily set to at.
func mustCreateAt(t *testing.T, r *Registry, now *time.Time, at time.Time) string {
	t.Helper()
	saved := *now
	*now = at
	code := mustCreate(t, r)
	*now = saved
	return code
}
