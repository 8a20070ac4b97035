package game

import (
	"time"

	"drawphone/internal/rotation"
)

type Status string

const (
	StatusLobby    Status = "LOBBY"
	StatusPlaying  Status = "PLAYING"
	StatusReveal   Status = "REVEAL"
	StatusVoting   Status = "VOTING"
	StatusResults  Status = "RESULTS"
	StatusArchived Status = "ARCHIVED"
)

// Choice is a player's decision once results are shown.
type Choice string

const (
	ChoicePlayAgain Choice = "play_again"
	ChoiceExit      Choice = "exit"
)

func (c Choice) Valid() bool {
	return c == ChoicePlayAgain || c == ChoiceExit
}

// BlankText replaces empty text submissions.
const BlankText = "(blank)"

type Game struct {
	ID                   uint      `json:"id"`
	Code                 string    `json:"code"`
	Status               Status    `json:"status"`
	CurrentRound         int       `json:"currentRound"`
	TotalRounds          *int      `json:"totalRounds"`
	RoundDurationSeconds int       `json:"roundDurationSeconds"`
	RevealChainIndex     int       `json:"revealChainIndex"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

type Player struct {
	ID             uint      `json:"id"`
	GameID         uint      `json:"gameId"`
	Nickname       string    `json:"nickname"`
	JoinOrder      int       `json:"joinOrder"`
	IsConnected    bool      `json:"isConnected"`
	PostGameChoice *Choice   `json:"-"`
	SessionToken   string    `json:"-"`
	CreatedAt      time.Time `json:"-"`
}

type RoundEntry struct {
	ID             uint               `json:"id"`
	GameID         uint               `json:"-"`
	RoundNumber    int                `json:"roundNumber"`
	ChainOwnerID   uint               `json:"chainOwnerId"`
	PlayerID       uint               `json:"playerId"`
	Type           rotation.RoundType `json:"type"`
	Content        string             `json:"content"`
	SubmittedAt    time.Time          `json:"submittedAt"`
	PlayerNickname string             `json:"playerNickname,omitempty"`
}

type Vote struct {
	ID           uint      `json:"id"`
	GameID       uint      `json:"-"`
	VoterID      uint      `json:"voterId"`
	ChainOwnerID uint      `json:"chainOwnerId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Chain is one owner's sequence of entries, ordered by round.
type Chain struct {
	ChainOwnerID  uint         `json:"chainOwnerId"`
	OwnerNickname string       `json:"ownerNickname"`
	Entries       []RoundEntry `json:"entries"`
}

// Identity is what the session layer knows about a caller. Token is the
// opaque player credential for the game being addressed, if any.
type Identity struct {
	Admin bool
	Token string
}

func findPlayer(players []Player, id uint) *Player {
	for i := range players {
		if players[i].ID == id {
			return &players[i]
		}
	}
	return nil
}

func findPlayerByJoinOrder(players []Player, joinOrder int) *Player {
	for i := range players {
		if players[i].JoinOrder == joinOrder {
			return &players[i]
		}
	}
	return nil
}
