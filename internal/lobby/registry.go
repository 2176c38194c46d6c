package lobby

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	// ErrLobbyNotFound is returned when a code does not match an active lobby.
	ErrLobbyNotFound = errors.New("lobby not found")
	// ErrCodeExhausted is returned when code allocation keeps colliding.
	ErrCodeExhausted = errors.New("lobby code allocation exhausted")
)

// maxCodeAttempts caps collision retries during Create. With 36^6 codes the
// cap is never hit in practice; exhaustion means the generator is broken.
const maxCodeAttempts = 32

// Registry owns the mapping from lobby code to lobby state. All mutations of
// a lobby's player list and scores go through the registry mutex, so no caller
// ever observes a partially-applied update. Returned lobbies and rosters are
// snapshots that never alias live state.
type Registry struct {
	mu      sync.RWMutex
	lobbies map[string]*Lobby

	// overridable for tests
	newCode func() (string, error)
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		lobbies: make(map[string]*Lobby),
		newCode: newCode,
		now:     time.Now,
	}
}

// Create allocates a fresh code, registers an empty lobby under it and
// returns the code. Codes never collide with another currently-active lobby.
func (r *Registry) Create() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return "", fmt.Errorf("generating lobby code: %w", err)
		}
		if _, taken := r.lobbies[code]; taken {
			continue
		}
		now := r.now()
		r.lobbies[code] = &Lobby{
			Code:           code,
			CreatedAt:      now,
			LastActivityAt: now,
		}
		return code, nil
	}
	return "", ErrCodeExhausted
}

// Get returns a snapshot of the lobby registered under code.
func (r *Registry) Get(code string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[code]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// AddPlayer registers a new player in the lobby and returns the player plus a
// roster snapshot. A blank display name defaults to "Player <n>" where n is
// one past the current player count.
func (r *Registry) AddPlayer(code, connID, displayName string) (Player, []Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lobbies[code]
	if !ok {
		return Player{}, nil, ErrLobbyNotFound
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = fmt.Sprintf("Player %d", len(l.Players)+1)
	}

	p := Player{ID: connID, Name: name}
	l.Players = append(l.Players, p)
	l.LastActivityAt = r.now()

	return p, rosterLocked(l), nil
}

// RemovePlayer drops the player owned by connID from the lobby. It reports
// whether a player was actually removed and, if so, the updated roster.
func (r *Registry) RemovePlayer(code, connID string) ([]Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lobbies[code]
	if !ok {
		return nil, false
	}
	for i := range l.Players {
		if l.Players[i].ID == connID {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			l.LastActivityAt = r.now()
			return rosterLocked(l), true
		}
	}
	return nil, false
}

// Remove tears down the lobby registered under code.
func (r *Registry) Remove(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lobbies[code]; !ok {
		return false
	}
	delete(r.lobbies, code)
	return true
}

// ApplyInput applies a controller action against a lobby. A press increments
// the player's score by exactly one; any other action leaves scores alone.
// Unknown lobbies and unknown players are silent no-ops (ok=false) — late
// input racing a teardown or a disconnect is expected, not an error.
//
// scored reports whether state changed (roster is only valid then); fwd is
// always populated when ok and is independent of the score mutation.
func (r *Registry) ApplyInput(code, connID, forwardType string, action Action) (roster []Player, fwd ForwardEvent, scored, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, found := r.lobbies[code]
	if !found {
		return nil, ForwardEvent{}, false, false
	}
	p := l.player(connID)
	if p == nil {
		return nil, ForwardEvent{}, false, false
	}

	if action == ActionPress {
		p.Score++
		scored = true
	}
	l.LastActivityAt = r.now()

	if forwardType == "" {
		forwardType = DefaultForwardType
	}
	fwd = ForwardEvent{Type: forwardType, Action: action, PlayerID: connID}

	if scored {
		roster = rosterLocked(l)
	}
	return roster, fwd, scored, true
}

// Roster returns a snapshot of the lobby's ordered player list.
func (r *Registry) Roster(code string) ([]Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[code]
	if !ok {
		return nil, false
	}
	return rosterLocked(l), true
}

// Snapshot returns copies of every active lobby, for read-only listings.
func (r *Registry) Snapshot() []*Lobby {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Lobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		result = append(result, l.Clone())
	}
	return result
}

// Counts returns the number of active lobbies and joined players.
func (r *Registry) Counts() (lobbies, players int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lobbies = len(r.lobbies)
	for _, l := range r.lobbies {
		players += len(l.Players)
	}
	return lobbies, players
}

// ReapIdle removes lobbies whose last activity is older than ttl and returns
// their codes. Joins, input and disconnects all count as activity.
func (r *Registry) ReapIdle(ttl time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-ttl)
	var reaped []string
	for code, l := range r.lobbies {
		if l.LastActivityAt.Before(cutoff) {
			delete(r.lobbies, code)
			reaped = append(reaped, code)
		}
	}
	return reaped
}

// rosterLocked copies the ordered player list. Caller must hold r.mu.
func rosterLocked(l *Lobby) []Player {
	roster := make([]Player, len(l.Players))
	copy(roster, l.Players)
	return roster
}
