package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drawphone/internal/game"
	"drawphone/internal/rotation"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the Postgres implementation of game.Store. Every Update runs in
// one transaction that holds a row lock on the game, so concurrent requests
// against the same game serialize across server instances.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{db: conn, now: func() time.Time { return time.Now().UTC() }}
}

var errReadOnly = errors.New("read-only transaction")

func (s *Store) Update(ctx context.Context, code string, fn func(tx game.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(conn *gorm.DB) error {
		tx, err := s.begin(conn, code, true)
		if err != nil {
			return err
		}
		return fn(tx)
	})
}

func (s *Store) View(ctx context.Context, code string, fn func(tx game.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(conn *gorm.DB) error {
		tx, err := s.begin(conn, code, false)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		return errReadOnly
	})
	if errors.Is(err, errReadOnly) {
		return nil
	}
	return err
}

func (s *Store) begin(conn *gorm.DB, code string, lock bool) (*storeTx, error) {
	query := conn
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []Game
	if err := query.Where("code = ?", code).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load game %s: %w", code, err)
	}
	if len(rows) == 0 {
		return nil, game.ErrGameNotFound
	}
	return &storeTx{store: s, db: conn, game: toGame(rows[0])}, nil
}

func (s *Store) CreateGame(ctx context.Context, g *game.Game, players []game.Player) error {
	return s.db.WithContext(ctx).Transaction(func(conn *gorm.DB) error {
		return s.createGame(conn, g, players)
	})
}

func (s *Store) createGame(conn *gorm.DB, g *game.Game, players []game.Player) error {
	now := s.now()
	record := fromGame(*g)
	record.CreatedAt = now
	record.UpdatedAt = now
	if err := conn.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return game.ErrCodeTaken
		}
		return fmt.Errorf("create game: %w", err)
	}
	g.ID = record.ID
	g.CreatedAt = now
	g.UpdatedAt = now
	for i := range players {
		row := fromPlayer(players[i])
		row.GameID = record.ID
		row.CreatedAt = now
		row.UpdatedAt = now
		if err := conn.Create(&row).Error; err != nil {
			return fmt.Errorf("create player: %w", err)
		}
		players[i].ID = row.ID
		players[i].GameID = row.GameID
		players[i].CreatedAt = now
	}
	return nil
}

func (s *Store) ListGames(ctx context.Context) ([]game.Game, error) {
	var rows []Game
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	games := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		games = append(games, toGame(row))
	}
	return games, nil
}

func (s *Store) DeleteGame(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Transaction(func(conn *gorm.DB) error {
		var rows []Game
		if err := conn.Clauses(clause.Locking{Strength: "UPDATE"}).Where("code = ?", code).Limit(1).Find(&rows).Error; err != nil {
			return fmt.Errorf("load game %s: %w", code, err)
		}
		if len(rows) == 0 {
			return game.ErrGameNotFound
		}
		id := rows[0].ID
		for _, model := range []any{&Vote{}, &RoundEntry{}, &Player{}} {
			if err := conn.Where("game_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("delete game %s: %w", code, err)
			}
		}
		if err := conn.Delete(&Game{}, id).Error; err != nil {
			return fmt.Errorf("delete game %s: %w", code, err)
		}
		return nil
	})
}

type storeTx struct {
	store *Store
	db    *gorm.DB
	game  game.Game
}

func (tx *storeTx) Game() *game.Game {
	return &tx.game
}

func (tx *storeTx) SaveGame() error {
	tx.game.UpdatedAt = tx.store.now()
	err := tx.db.Model(&Game{}).Where("id = ?", tx.game.ID).Updates(map[string]any{
		"status":                 string(tx.game.Status),
		"current_round":          tx.game.CurrentRound,
		"total_rounds":           tx.game.TotalRounds,
		"round_duration_seconds": tx.game.RoundDurationSeconds,
		"reveal_chain_index":     tx.game.RevealChainIndex,
		"updated_at":             tx.game.UpdatedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("save game %s: %w", tx.game.Code, err)
	}
	return nil
}

func (tx *storeTx) Players() ([]game.Player, error) {
	var rows []Player
	if err := tx.db.Where("game_id = ?", tx.game.ID).Order("join_order, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	players := make([]game.Player, 0, len(rows))
	for _, row := range rows {
		players = append(players, toPlayer(row))
	}
	return players, nil
}

func (tx *storeTx) PlayerByToken(token string) (*game.Player, error) {
	if token == "" {
		return nil, nil
	}
	var rows []Player
	if err := tx.db.Where("game_id = ? AND session_token = ?", tx.game.ID, token).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	player := toPlayer(rows[0])
	return &player, nil
}

func (tx *storeTx) AddPlayer(p *game.Player) error {
	now := tx.store.now()
	row := fromPlayer(*p)
	row.GameID = tx.game.ID
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := tx.db.Create(&row).Error; err != nil {
		if isUniqueViolationOn(err, nicknameIndex) {
			return game.ErrNicknameTaken
		}
		return fmt.Errorf("add player: %w", err)
	}
	p.ID = row.ID
	p.GameID = row.GameID
	p.CreatedAt = now
	return nil
}

func (tx *storeTx) UpdatePlayer(p *game.Player) error {
	result := tx.db.Model(&Player{}).
		Where("id = ? AND game_id = ?", p.ID, tx.game.ID).
		Updates(map[string]any{
			"nickname":         p.Nickname,
			"join_order":       p.JoinOrder,
			"is_connected":     p.IsConnected,
			"post_game_choice": choiceColumn(p.PostGameChoice),
			"updated_at":       tx.store.now(),
		})
	if result.Error != nil {
		return fmt.Errorf("update player: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return game.ErrPlayerNotFound
	}
	return nil
}

func (tx *storeTx) RemovePlayer(id uint) error {
	result := tx.db.Where("id = ? AND game_id = ?", id, tx.game.ID).Delete(&Player{})
	if result.Error != nil {
		return fmt.Errorf("remove player: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return game.ErrPlayerNotFound
	}
	return nil
}

func (tx *storeTx) AddEntry(e *game.RoundEntry) error {
	row := RoundEntry{
		GameID:       tx.game.ID,
		RoundNumber:  e.RoundNumber,
		ChainOwnerID: e.ChainOwnerID,
		PlayerID:     e.PlayerID,
		Type:         string(e.Type),
		Content:      e.Content,
		CreatedAt:    tx.store.now(),
	}
	if err := tx.db.Create(&row).Error; err != nil {
		return fmt.Errorf("add entry: %w", err)
	}
	e.ID = row.ID
	e.GameID = row.GameID
	e.SubmittedAt = row.CreatedAt
	return nil
}

func (tx *storeTx) Entries(roundNumber int) ([]game.RoundEntry, error) {
	var rows []RoundEntry
	if err := tx.db.Where("game_id = ? AND round_number = ?", tx.game.ID, roundNumber).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	entries := make([]game.RoundEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toEntry(row, ""))
	}
	return entries, nil
}

type chainRow struct {
	RoundEntry
	PlayerNickname string
}

func (tx *storeTx) ChainEntries(chainOwnerID uint) ([]game.RoundEntry, error) {
	var rows []chainRow
	err := tx.db.Table("round_entries AS e").
		Select("e.*, p.nickname AS player_nickname").
		Joins("LEFT JOIN players p ON p.id = e.player_id").
		Where("e.game_id = ? AND e.chain_owner_id = ?", tx.game.ID, chainOwnerID).
		Order("e.round_number").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}
	entries := make([]game.RoundEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toEntry(row.RoundEntry, row.PlayerNickname))
	}
	return entries, nil
}

func (tx *storeTx) AddVote(v *game.Vote) error {
	row := Vote{
		GameID:       tx.game.ID,
		VoterID:      v.VoterID,
		ChainOwnerID: v.ChainOwnerID,
		CreatedAt:    tx.store.now(),
	}
	if err := tx.db.Create(&row).Error; err != nil {
		return fmt.Errorf("add vote: %w", err)
	}
	v.ID = row.ID
	v.GameID = row.GameID
	v.CreatedAt = row.CreatedAt
	return nil
}

func (tx *storeTx) Votes() ([]game.Vote, error) {
	var rows []Vote
	if err := tx.db.Where("game_id = ?", tx.game.ID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	votes := make([]game.Vote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, game.Vote{
			ID:           row.ID,
			GameID:       row.GameID,
			VoterID:      row.VoterID,
			ChainOwnerID: row.ChainOwnerID,
			CreatedAt:    row.CreatedAt,
		})
	}
	return votes, nil
}

func (tx *storeTx) CountVotes() (int, error) {
	var count int64
	if err := tx.db.Model(&Vote{}).Where("game_id = ?", tx.game.ID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return int(count), nil
}

func (tx *storeTx) HasVoted(voterID uint) (bool, error) {
	var count int64
	if err := tx.db.Model(&Vote{}).Where("game_id = ? AND voter_id = ?", tx.game.ID, voterID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return count > 0, nil
}

func (tx *storeTx) CodeExists(code string) (bool, error) {
	var count int64
	if err := tx.db.Model(&Game{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return count > 0, nil
}

func (tx *storeTx) CreateGame(g *game.Game, players []game.Player) error {
	return tx.store.createGame(tx.db, g, players)
}

func toGame(row Game) game.Game {
	return game.Game{
		ID:                   row.ID,
		Code:                 row.Code,
		Status:               game.Status(row.Status),
		CurrentRound:         row.CurrentRound,
		TotalRounds:          row.TotalRounds,
		RoundDurationSeconds: row.RoundDurationSeconds,
		RevealChainIndex:     row.RevealChainIndex,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
}

func fromGame(g game.Game) Game {
	return Game{
		Code:                 g.Code,
		Status:               string(g.Status),
		CurrentRound:         g.CurrentRound,
		TotalRounds:          g.TotalRounds,
		RoundDurationSeconds: g.RoundDurationSeconds,
		RevealChainIndex:     g.RevealChainIndex,
	}
}

func toPlayer(row Player) game.Player {
	player := game.Player{
		ID:           row.ID,
		GameID:       row.GameID,
		Nickname:     row.Nickname,
		JoinOrder:    row.JoinOrder,
		IsConnected:  row.IsConnected,
		SessionToken: row.SessionToken,
		CreatedAt:    row.CreatedAt,
	}
	if row.PostGameChoice != nil {
		choice := game.Choice(*row.PostGameChoice)
		player.PostGameChoice = &choice
	}
	return player
}

func fromPlayer(p game.Player) Player {
	return Player{
		Nickname:       p.Nickname,
		JoinOrder:      p.JoinOrder,
		IsConnected:    p.IsConnected,
		PostGameChoice: choiceColumn(p.PostGameChoice),
		SessionToken:   p.SessionToken,
	}
}

func toEntry(row RoundEntry, nickname string) game.RoundEntry {
	return game.RoundEntry{
		ID:             row.ID,
		GameID:         row.GameID,
		RoundNumber:    row.RoundNumber,
		ChainOwnerID:   row.ChainOwnerID,
		PlayerID:       row.PlayerID,
		Type:           rotation.RoundType(row.Type),
		Content:        row.Content,
		SubmittedAt:    row.CreatedAt,
		PlayerNickname: nickname,
	}
}

func choiceColumn(choice *game.Choice) *string {
	if choice == nil {
		return nil
	}
	value := string(*choice)
	return &value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isUniqueViolationOn(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}
