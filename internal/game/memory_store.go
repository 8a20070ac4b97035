package game

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps games in process memory. Update holds one lock for the
// whole transaction and works on a copy of the game, so a failed fn leaves no
// trace. It backs tests and single-instance deployments without a database.
type MemoryStore struct {
	mu           sync.Mutex
	nextGameID   uint
	nextPlayerID uint
	nextEntryID  uint
	nextVoteID   uint
	games        map[string]*gameRecord
	now          func() time.Time
}

type gameRecord struct {
	game    Game
	players []Player
	entries []RoundEntry
	votes   []Vote
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextGameID:   1,
		nextPlayerID: 1,
		nextEntryID:  1,
		nextVoteID:   1,
		games:        make(map[string]*gameRecord),
		now:          timeNowUTC,
	}
}

func (s *MemoryStore) Update(ctx context.Context, code string, fn func(tx Tx) error) error {
	return s.run(ctx, code, fn)
}

func (s *MemoryStore) View(ctx context.Context, code string, fn func(tx Tx) error) error {
	return s.run(ctx, code, func(tx Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		// reads never commit
		return errDiscard
	})
}

var errDiscard = &Error{Kind: KindInternal, Message: "discard"}

func (s *MemoryStore) run(ctx context.Context, code string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.games[code]
	if !ok {
		return ErrGameNotFound
	}
	tx := &memoryTx{
		store:  s,
		record: record.clone(),
	}
	tx.game = tx.record.game
	err := fn(tx)
	if err == errDiscard {
		return nil
	}
	if err != nil {
		return err
	}
	s.games[code] = tx.record
	for _, created := range tx.created {
		s.games[created.game.Code] = created
	}
	return nil
}

func (s *MemoryStore) CreateGame(ctx context.Context, g *Game, players []Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.games[g.Code]; exists {
		return ErrCodeTaken
	}
	s.games[g.Code] = s.newRecord(g, players)
	return nil
}

func (s *MemoryStore) ListGames(ctx context.Context) ([]Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Game, 0, len(s.games))
	for _, record := range s.games {
		list = append(list, cloneGame(record.game))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (s *MemoryStore) DeleteGame(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[code]; !ok {
		return ErrGameNotFound
	}
	delete(s.games, code)
	return nil
}

// newRecord assigns surrogate keys and timestamps. Callers hold s.mu.
func (s *MemoryStore) newRecord(g *Game, players []Player) *gameRecord {
	now := s.now()
	g.ID = s.nextGameID
	s.nextGameID++
	g.CreatedAt = now
	g.UpdatedAt = now
	record := &gameRecord{game: cloneGame(*g)}
	for i := range players {
		players[i].ID = s.nextPlayerID
		s.nextPlayerID++
		players[i].GameID = g.ID
		players[i].CreatedAt = now
		record.players = append(record.players, clonePlayer(players[i]))
	}
	sortPlayers(record.players)
	return record
}

type memoryTx struct {
	store   *MemoryStore
	record  *gameRecord
	game    Game
	created []*gameRecord
}

func (tx *memoryTx) Game() *Game {
	return &tx.game
}

func (tx *memoryTx) SaveGame() error {
	tx.game.UpdatedAt = tx.store.now()
	tx.record.game = cloneGame(tx.game)
	return nil
}

func (tx *memoryTx) Players() ([]Player, error) {
	players := make([]Player, 0, len(tx.record.players))
	for _, player := range tx.record.players {
		players = append(players, clonePlayer(player))
	}
	return players, nil
}

func (tx *memoryTx) PlayerByToken(token string) (*Player, error) {
	if token == "" {
		return nil, nil
	}
	for _, player := range tx.record.players {
		if player.SessionToken == token {
			found := clonePlayer(player)
			return &found, nil
		}
	}
	return nil, nil
}

func (tx *memoryTx) AddPlayer(p *Player) error {
	p.ID = tx.store.nextPlayerID
	tx.store.nextPlayerID++
	p.GameID = tx.record.game.ID
	p.CreatedAt = tx.store.now()
	tx.record.players = append(tx.record.players, clonePlayer(*p))
	sortPlayers(tx.record.players)
	return nil
}

func (tx *memoryTx) UpdatePlayer(p *Player) error {
	for i := range tx.record.players {
		if tx.record.players[i].ID == p.ID {
			tx.record.players[i] = clonePlayer(*p)
			sortPlayers(tx.record.players)
			return nil
		}
	}
	return ErrPlayerNotFound
}

func (tx *memoryTx) RemovePlayer(id uint) error {
	for i := range tx.record.players {
		if tx.record.players[i].ID == id {
			tx.record.players = append(tx.record.players[:i], tx.record.players[i+1:]...)
			return nil
		}
	}
	return ErrPlayerNotFound
}

func (tx *memoryTx) AddEntry(e *RoundEntry) error {
	e.ID = tx.store.nextEntryID
	tx.store.nextEntryID++
	e.GameID = tx.record.game.ID
	e.SubmittedAt = tx.store.now()
	tx.record.entries = append(tx.record.entries, *e)
	return nil
}

func (tx *memoryTx) Entries(roundNumber int) ([]RoundEntry, error) {
	var entries []RoundEntry
	for _, entry := range tx.record.entries {
		if entry.RoundNumber == roundNumber {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (tx *memoryTx) ChainEntries(chainOwnerID uint) ([]RoundEntry, error) {
	var entries []RoundEntry
	for _, entry := range tx.record.entries {
		if entry.ChainOwnerID != chainOwnerID {
			continue
		}
		if author := findPlayer(tx.record.players, entry.PlayerID); author != nil {
			entry.PlayerNickname = author.Nickname
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RoundNumber < entries[j].RoundNumber
	})
	return entries, nil
}

func (tx *memoryTx) AddVote(v *Vote) error {
	v.ID = tx.store.nextVoteID
	tx.store.nextVoteID++
	v.GameID = tx.record.game.ID
	v.CreatedAt = tx.store.now()
	tx.record.votes = append(tx.record.votes, *v)
	return nil
}

func (tx *memoryTx) Votes() ([]Vote, error) {
	votes := make([]Vote, len(tx.record.votes))
	copy(votes, tx.record.votes)
	return votes, nil
}

func (tx *memoryTx) CountVotes() (int, error) {
	return len(tx.record.votes), nil
}

func (tx *memoryTx) HasVoted(voterID uint) (bool, error) {
	for _, vote := range tx.record.votes {
		if vote.VoterID == voterID {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) CodeExists(code string) (bool, error) {
	if _, ok := tx.store.games[code]; ok {
		return true, nil
	}
	for _, created := range tx.created {
		if created.game.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) CreateGame(g *Game, players []Player) error {
	if exists, _ := tx.CodeExists(g.Code); exists {
		return ErrCodeTaken
	}
	tx.created = append(tx.created, tx.store.newRecord(g, players))
	return nil
}

func (r *gameRecord) clone() *gameRecord {
	out := &gameRecord{
		game:    cloneGame(r.game),
		players: make([]Player, 0, len(r.players)),
		entries: make([]RoundEntry, len(r.entries)),
		votes:   make([]Vote, len(r.votes)),
	}
	for _, player := range r.players {
		out.players = append(out.players, clonePlayer(player))
	}
	copy(out.entries, r.entries)
	copy(out.votes, r.votes)
	return out
}

func cloneGame(g Game) Game {
	if g.TotalRounds != nil {
		total := *g.TotalRounds
		g.TotalRounds = &total
	}
	return g
}

func clonePlayer(p Player) Player {
	if p.PostGameChoice != nil {
		choice := *p.PostGameChoice
		p.PostGameChoice = &choice
	}
	return p
}

func sortPlayers(players []Player) {
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].JoinOrder < players[j].JoinOrder
	})
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
