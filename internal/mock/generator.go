// Package mock drives the registry and hub with scripted lobby traffic so a
// host page can be developed without real phones connected.
package mock

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/partypad/backend/internal/lobby"
	"github.com/partypad/backend/internal/ws"
)

var demoNames = []string{"Ada", "Grace", "Linus", "Margaret", "", "Dennis"}

type Generator struct {
	registry *lobby.Registry
	hub      *ws.Hub
	rng      *rand.Rand

	code    string
	players []string
}

func NewGenerator(registry *lobby.Registry, hub *ws.Hub) *Generator {
	return &Generator{
		registry: registry,
		hub:      hub,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start seeds a demo lobby and begins emitting presses until ctx is
// cancelled. The lobby code is logged so a host page can subscribe to it.
func (g *Generator) Start(ctx context.Context) error {
	if err := g.seed(); err != nil {
		return err
	}
	go g.loop(ctx)
	return nil
}

func (g *Generator) seed() error {
	code, err := g.registry.Create()
	if err != nil {
		return fmt.Errorf("creating demo lobby: %w", err)
	}
	g.code = code

	for i, name := range demoNames {
		connID := fmt.Sprintf("mock-%d", i)
		if _, _, err := g.registry.AddPlayer(code, connID, name); err != nil {
			return fmt.Errorf("seeding demo player: %w", err)
		}
		g.players = append(g.players, connID)
	}

	log.Printf("mock lobby ready: %s (%d players)", code, len(g.players))
	return nil
}

func (g *Generator) loop(ctx context.Context) {
	ticker := time.NewTicker(400 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.tick()
		}
	}
}

// tick fires a press from a random demo player through the same fan-out path
// real input takes.
func (g *Generator) tick() {
	connID := g.players[g.rng.Intn(len(g.players))]

	roster, fwd, scored, ok := g.registry.ApplyInput(g.code, connID, "", lobby.ActionPress)
	if !ok {
		return
	}
	if scored {
		g.hub.Broadcast(g.code, ws.Envelope{Type: ws.MsgRosterChanged, Payload: roster})
	}
	g.hub.Relay(g.code, ws.Envelope{Type: ws.MsgRelayEvent, Payload: fwd})
}

// Code returns the demo lobby's code.
func (g *Generator) Code() string {
	return g.code
}
