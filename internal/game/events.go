package game

import (
	"context"

	"drawphone/internal/rotation"
)

type EventKind string

const (
	EventPlayerJoined    EventKind = "player-joined"
	EventPlayerKicked    EventKind = "player-kicked"
	EventGameStarted     EventKind = "game-started"
	EventRoundStarted    EventKind = "round-started"
	EventPlayerSubmitted EventKind = "player-submitted"
	EventPhaseChanged    EventKind = "phase-changed"
	EventRevealChain     EventKind = "reveal-chain"
	EventVoteCast        EventKind = "vote-cast"
	EventResults         EventKind = "results"
	EventPostGameChoice  EventKind = "post-game-choice"
	EventRematchCreated  EventKind = "rematch-created"
	EventGameEnded       EventKind = "game-ended"
	EventConnection      EventKind = "player-connection"
)

// Event is the closed set of notifications published to a game channel.
// Consumers switch on the concrete type or on Kind.
type Event interface {
	Kind() EventKind
	event()
}

type PlayerJoined struct {
	Player Player `json:"player"`
}

type PlayerKicked struct {
	PlayerID uint   `json:"playerId"`
	Nickname string `json:"nickname"`
}

type GameStarted struct {
	TotalRounds   int `json:"totalRounds"`
	RoundDuration int `json:"roundDuration"`
}

type RoundStarted struct {
	RoundNumber int                `json:"roundNumber"`
	Type        rotation.RoundType `json:"type"`
}

type PlayerSubmitted struct {
	PlayerID    uint `json:"playerId"`
	RoundNumber int  `json:"roundNumber"`
}

type PhaseChanged struct {
	Status Status `json:"status"`
}

type RevealChain struct {
	ChainOwnerID  uint   `json:"chainOwnerId"`
	OwnerNickname string `json:"ownerNickname"`
}

type VoteCast struct {
	VoterID uint `json:"voterId"`
}

type ResultsPublished struct {
	Results []VoteResult `json:"results"`
}

type PostGameChoiceMade struct {
	PlayerID uint   `json:"playerId"`
	Nickname string `json:"nickname"`
	Choice   Choice `json:"choice"`
}

type RematchCreated struct {
	NewCode string `json:"newCode"`
}

type GameEnded struct{}

type ConnectionChanged struct {
	PlayerID    uint `json:"playerId"`
	IsConnected bool `json:"isConnected"`
}

func (PlayerJoined) Kind() EventKind       { return EventPlayerJoined }
func (PlayerKicked) Kind() EventKind       { return EventPlayerKicked }
func (GameStarted) Kind() EventKind        { return EventGameStarted }
func (RoundStarted) Kind() EventKind       { return EventRoundStarted }
func (PlayerSubmitted) Kind() EventKind    { return EventPlayerSubmitted }
func (PhaseChanged) Kind() EventKind       { return EventPhaseChanged }
func (RevealChain) Kind() EventKind        { return EventRevealChain }
func (VoteCast) Kind() EventKind           { return EventVoteCast }
func (ResultsPublished) Kind() EventKind   { return EventResults }
func (PostGameChoiceMade) Kind() EventKind { return EventPostGameChoice }
func (RematchCreated) Kind() EventKind     { return EventRematchCreated }
func (GameEnded) Kind() EventKind          { return EventGameEnded }
func (ConnectionChanged) Kind() EventKind  { return EventConnection }

func (PlayerJoined) event()       {}
func (PlayerKicked) event()       {}
func (GameStarted) event()        {}
func (RoundStarted) event()       {}
func (PlayerSubmitted) event()    {}
func (PhaseChanged) event()       {}
func (RevealChain) event()        {}
func (VoteCast) event()           {}
func (ResultsPublished) event()   {}
func (PostGameChoiceMade) event() {}
func (RematchCreated) event()     {}
func (GameEnded) event()          {}
func (ConnectionChanged) event()  {}

// Gateway delivers events to everyone listening on a game's channel.
// Delivery is best effort.
type Gateway interface {
	Publish(ctx context.Context, code string, ev Event) error
}

// NopGateway drops every event.
type NopGateway struct{}

func (NopGateway) Publish(context.Context, string, Event) error { return nil }
