package lobby

import "time"

// Action is a controller input gesture. Press scores; release is currently
// informational only and is forwarded without mutating state.
type Action string

const (
	ActionPress   Action = "press"
	ActionRelease Action = "release"
)

// Player is a joined controller identity scoped to one lobby. The ID is the
// connection identity of the underlying transport connection and doubles as
// the player's public id.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Lobby groups one host and zero-or-more players under a shareable code.
// Players keep insertion order; display numbering depends on it.
type Lobby struct {
	Code           string    `json:"code"`
	Players        []Player  `json:"players"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// Clone returns a deep copy of the Lobby, duplicating the player slice so the
// copy can be mutated independently of the original.
func (l *Lobby) Clone() *Lobby {
	c := *l
	if len(l.Players) > 0 {
		c.Players = make([]Player, len(l.Players))
		copy(c.Players, l.Players)
	}
	return &c
}

// player returns a pointer into the live player slice, or nil.
func (l *Lobby) player(id string) *Player {
	for i := range l.Players {
		if l.Players[i].ID == id {
			return &l.Players[i]
		}
	}
	return nil
}

// ForwardEvent is the raw-input record relayed to an external render target,
// independent of score bookkeeping.
type ForwardEvent struct {
	Type     string `json:"type"`
	Action   Action `json:"action"`
	PlayerID string `json:"playerId"`
}

// DefaultForwardType is used when a controller does not classify its input.
const DefaultForwardType = "BUTTON"
