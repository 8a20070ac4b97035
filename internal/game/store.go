package game

import "context"

// Store is the durable record of games, players, round entries and votes.
//
// Update runs fn as a single atomic read-modify-write against one game: the
// implementation must serialize concurrent Updates of the same game and must
// discard every write made through tx when fn returns an error.
type Store interface {
	Update(ctx context.Context, code string, fn func(tx Tx) error) error
	View(ctx context.Context, code string, fn func(tx Tx) error) error
	// CreateGame inserts g and its initial players, assigning IDs and
	// timestamps. A duplicate code yields ErrCodeTaken.
	CreateGame(ctx context.Context, g *Game, players []Player) error
	// ListGames returns every game ordered by creation time.
	ListGames(ctx context.Context) ([]Game, error)
	// DeleteGame removes a game with its players, entries and votes.
	DeleteGame(ctx context.Context, code string) error
}

// Tx is the view of one game inside a Store transaction. Reads always reflect
// writes made earlier through the same Tx.
type Tx interface {
	Game() *Game
	// SaveGame persists status, round counters and reveal cursor of Game().
	SaveGame() error

	// Players returns the roster ordered by join order.
	Players() ([]Player, error)
	// PlayerByToken returns nil when no player of this game holds token.
	PlayerByToken(token string) (*Player, error)
	AddPlayer(p *Player) error
	UpdatePlayer(p *Player) error
	RemovePlayer(id uint) error

	AddEntry(e *RoundEntry) error
	Entries(roundNumber int) ([]RoundEntry, error)
	// ChainEntries returns an owner's entries ordered by round.
	ChainEntries(chainOwnerID uint) ([]RoundEntry, error)

	AddVote(v *Vote) error
	Votes() ([]Vote, error)
	CountVotes() (int, error)
	HasVoted(voterID uint) (bool, error)

	CodeExists(code string) (bool, error)
	// CreateGame inserts another game in the same transaction.
	CreateGame(g *Game, players []Player) error
}
