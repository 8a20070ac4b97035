package game

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recordedEvent struct {
	code  string
	event Event
}

type recordingGateway struct {
	mu     sync.Mutex
	events []recordedEvent
	fail   error
}

func (g *recordingGateway) Publish(_ context.Context, code string, ev Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, recordedEvent{code: code, event: ev})
	return g.fail
}

func (g *recordingGateway) kinds(code string) []EventKind {
	g.mu.Lock()
	defer g.mu.Unlock()
	var kinds []EventKind
	for _, rec := range g.events {
		if rec.code == code {
			kinds = append(kinds, rec.event.Kind())
		}
	}
	return kinds
}

func (g *recordingGateway) count(code string, match func(Event) bool) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, rec := range g.events {
		if rec.code == code && match(rec.event) {
			n++
		}
	}
	return n
}

var admin = Identity{Admin: true}

const testDrawing = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMBAp4pWZkAAAAASUVORK5CYII="


func newTestService(t *testing.T, opts Options) (*Service, *MemoryStore, *recordingGateway) {
	t.Helper()
	store := NewMemoryStore()
	gateway := &recordingGateway{}
	return NewService(store, gateway, nil, opts), store, gateway
}

func as(p *Player) Identity {
	return Identity{Token: p.SessionToken}
}

// setupLobby creates a game hosted by the first nickname and joins the rest.
func setupLobby(t *testing.T, svc *Service, nicknames ...string) (*Game, []*Player) {
	t.Helper()
	ctx := context.Background()
	game, host, err := svc.CreateGame(ctx, admin, nicknames[0], 0)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	players := []*Player{host}
	for _, nickname := range nicknames[1:] {
		player, err := svc.Join(ctx, game.Code, nickname)
		if err != nil {
			t.Fatalf("join %s: %v", nickname, err)
		}
		players = append(players, player)
	}
	return game, players
}

func setupStarted(t *testing.T, svc *Service, nicknames ...string) (*Game, []*Player) {
	t.Helper()
	game, players := setupLobby(t, svc, nicknames...)
	if _, err := svc.Start(context.Background(), admin, game.Code); err != nil {
		t.Fatalf("start: %v", err)
	}
	return game, players
}

// playToResults submits every round, reveals every chain, and has each
// player vote for the next player in join order.
func playToResults(t *testing.T, svc *Service, game *Game, players []*Player) {
	t.Helper()
	ctx := context.Background()
	for round := 0; round < len(players); round++ {
		for _, player := range players {
			content := testDrawing
			if round%2 == 0 {
				content = player.Nickname + " entry"
			}
			if err := svc.Submit(ctx, as(player), game.Code, content); err != nil {
				t.Fatalf("submit round %d for %s: %v", round, player.Nickname, err)
			}
		}
	}
	for {
		step, err := svc.RevealNext(ctx, admin, game.Code)
		if err != nil {
			t.Fatalf("reveal: %v", err)
		}
		if step.Phase == StatusVoting {
			break
		}
	}
	for i, player := range players {
		target := players[(i+1)%len(players)]
		if err := svc.Vote(ctx, as(player), game.Code, target.ID); err != nil {
			t.Fatalf("vote by %s: %v", player.Nickname, err)
		}
	}
}

func snapshot(t *testing.T, svc *Service, id Identity, code string) *View {
	t.Helper()
	view, err := svc.Snapshot(context.Background(), id, code)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return view
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func assertMessage(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	var domain *Error
	if !errors.As(err, &domain) || domain.Message != want {
		t.Fatalf("expected error %q, got %v", want, err)
	}
}
