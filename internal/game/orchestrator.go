// Package game implements the chain game state machine: joining, rotating
// players across chains round by round, revealing chains, voting, and
// rematches. Persistence and real-time delivery are supplied by the caller
// through Store and Gateway.
package game

import (
	"context"
	"errors"
	"strings"

	"drawphone/internal/rotation"

	"go.uber.org/zap"
)

const (
	minPlayersToStart = 2
	codeAttempts      = 5
)

type Options struct {
	MaxPlayers          int
	DefaultRoundSeconds int
	MinRoundSeconds     int
	MaxRoundSeconds     int
	NewCode             func() string
	NewToken            func() string
}

func DefaultOptions() Options {
	return Options{
		MaxPlayers:          8,
		DefaultRoundSeconds: 60,
		MinRoundSeconds:     15,
		MaxRoundSeconds:     600,
		NewCode:             NewRoomCode,
		NewToken:            NewSessionToken,
	}
}

type Service struct {
	store   Store
	gateway Gateway
	logger  *zap.Logger
	opts    Options
}

func NewService(store Store, gateway Gateway, logger *zap.Logger, opts Options) *Service {
	defaults := DefaultOptions()
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = defaults.MaxPlayers
	}
	if opts.DefaultRoundSeconds <= 0 {
		opts.DefaultRoundSeconds = defaults.DefaultRoundSeconds
	}
	if opts.MinRoundSeconds <= 0 {
		opts.MinRoundSeconds = defaults.MinRoundSeconds
	}
	if opts.MaxRoundSeconds <= 0 {
		opts.MaxRoundSeconds = defaults.MaxRoundSeconds
	}
	if opts.NewCode == nil {
		opts.NewCode = defaults.NewCode
	}
	if opts.NewToken == nil {
		opts.NewToken = defaults.NewToken
	}
	if gateway == nil {
		gateway = NopGateway{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, gateway: gateway, logger: logger, opts: opts}
}

// RevealStep describes what a reveal-next call did.
type RevealStep struct {
	Phase         Status `json:"phase"`
	ChainOwnerID  uint   `json:"chainOwnerId,omitempty"`
	OwnerNickname string `json:"ownerNickname,omitempty"`
	Remaining     int    `json:"remaining"`
}

// CreateGame opens a new lobby and seats the admin as its first player.
func (s *Service) CreateGame(ctx context.Context, id Identity, nickname string, roundSeconds int) (*Game, *Player, error) {
	if !id.Admin {
		return nil, nil, ErrAdminOnly
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, nil, invalidf("nickname is required")
	}
	if roundSeconds == 0 {
		roundSeconds = s.opts.DefaultRoundSeconds
	}
	if roundSeconds < s.opts.MinRoundSeconds || roundSeconds > s.opts.MaxRoundSeconds {
		return nil, nil, invalidf("round duration must be between %d and %d seconds", s.opts.MinRoundSeconds, s.opts.MaxRoundSeconds)
	}
	for attempt := 0; attempt < codeAttempts; attempt++ {
		game := &Game{
			Code:                 s.opts.NewCode(),
			Status:               StatusLobby,
			RoundDurationSeconds: roundSeconds,
		}
		players := []Player{{
			Nickname:     nickname,
			JoinOrder:    0,
			IsConnected:  true,
			SessionToken: s.opts.NewToken(),
		}}
		err := s.store.CreateGame(ctx, game, players)
		if errors.Is(err, ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		s.logger.Info("game created", zap.String("code", game.Code), zap.Uint("host_id", players[0].ID))
		return game, &players[0], nil
	}
	return nil, nil, internal("could not allocate room code", ErrCodeTaken)
}

func (s *Service) Join(ctx context.Context, code, nickname string) (*Player, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, invalidf("nickname is required")
	}
	code = NormalizeCode(code)
	var joined Player
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		game := tx.Game()
		if game.Status != StatusLobby {
			return invalidf("game has already started")
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		if len(players) >= s.opts.MaxPlayers {
			return invalidf("game is full")
		}
		nextOrder := 0
		for _, existing := range players {
			if strings.EqualFold(existing.Nickname, nickname) {
				return ErrNicknameTaken
			}
			if existing.JoinOrder >= nextOrder {
				nextOrder = existing.JoinOrder + 1
			}
		}
		joined = Player{
			Nickname:     nickname,
			JoinOrder:    nextOrder,
			IsConnected:  true,
			SessionToken: s.opts.NewToken(),
		}
		if err := tx.AddPlayer(&joined); err != nil {
			return err
		}
		emit(PlayerJoined{Player: joined})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("player joined", zap.String("code", code), zap.Uint("player_id", joined.ID), zap.Int("join_order", joined.JoinOrder))
	return &joined, nil
}

// Start closes the lobby. Join orders are renumbered to 0..N-1 first so the
// rotation is a bijection even after lobby kicks.
func (s *Service) Start(ctx context.Context, id Identity, code string) (int, error) {
	if !id.Admin {
		return 0, ErrAdminOnly
	}
	code = NormalizeCode(code)
	var total int
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		game := tx.Game()
		if game.Status != StatusLobby {
			return invalidf("game already started")
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		if len(players) < minPlayersToStart {
			return invalidf("need at least %d players", minPlayersToStart)
		}
		for i := range players {
			if players[i].JoinOrder == i {
				continue
			}
			players[i].JoinOrder = i
			if err := tx.UpdatePlayer(&players[i]); err != nil {
				return err
			}
		}
		total = len(players)
		game.Status = StatusPlaying
		game.CurrentRound = 0
		game.TotalRounds = &total
		game.RevealChainIndex = 0
		if err := tx.SaveGame(); err != nil {
			return err
		}
		emit(GameStarted{TotalRounds: total, RoundDuration: game.RoundDurationSeconds})
		emit(RoundStarted{RoundNumber: 0, Type: rotation.RoundTypeFor(0)})
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("game started", zap.String("code", code), zap.Int("total_rounds", total))
	return total, nil
}

// Submit records the caller's entry for the current round and advances the
// round when every player has submitted.
func (s *Service) Submit(ctx context.Context, id Identity, code, content string) error {
	code = NormalizeCode(code)
	var (
		playerID uint
		round    int
	)
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		game := tx.Game()
		if game.Status != StatusPlaying {
			return invalidf("game is not in playing state")
		}
		player, err := bindPlayer(tx, id)
		if err != nil {
			return err
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		owner, roundType, err := assignment(game, players, player)
		if err != nil {
			return err
		}
		submissions, err := tx.Entries(game.CurrentRound)
		if err != nil {
			return err
		}
		for _, entry := range submissions {
			if entry.PlayerID == player.ID {
				return invalidf("already submitted")
			}
		}
		normalized, err := normalizeContent(roundType, content)
		if err != nil {
			return err
		}
		entry := RoundEntry{
			RoundNumber:  game.CurrentRound,
			ChainOwnerID: owner.ID,
			PlayerID:     player.ID,
			Type:         roundType,
			Content:      normalized,
		}
		if err := tx.AddEntry(&entry); err != nil {
			return err
		}
		playerID, round = player.ID, game.CurrentRound
		emit(PlayerSubmitted{PlayerID: player.ID, RoundNumber: game.CurrentRound})
		return completeRound(tx, players, emit)
	})
	if err != nil {
		return err
	}
	s.logger.Info("entry submitted", zap.String("code", code), zap.Uint("player_id", playerID), zap.Int("round", round))
	return nil
}

// ForceAdvance fills a blank entry for every player missing from the current
// round, then runs the same completion check as Submit. It returns how many
// entries were synthesized.
func (s *Service) ForceAdvance(ctx context.Context, id Identity, code string) (int, error) {
	if !id.Admin {
		return 0, ErrAdminOnly
	}
	code = NormalizeCode(code)
	filled := 0
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		filled = 0
		game := tx.Game()
		if game.Status != StatusPlaying {
			return invalidf("game is not in playing state")
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		submissions, err := tx.Entries(game.CurrentRound)
		if err != nil {
			return err
		}
		submitted := submittedSet(submissions)
		for i := range players {
			player := &players[i]
			if submitted[player.ID] {
				continue
			}
			owner, roundType, err := assignment(game, players, player)
			if err != nil {
				return err
			}
			entry := RoundEntry{
				RoundNumber:  game.CurrentRound,
				ChainOwnerID: owner.ID,
				PlayerID:     player.ID,
				Type:         roundType,
				Content:      blankContent(roundType),
			}
			if err := tx.AddEntry(&entry); err != nil {
				return err
			}
			filled++
		}
		return completeRound(tx, players, emit)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("round forced", zap.String("code", code), zap.Int("blank_entries", filled))
	return filled, nil
}

// RevealNext broadcasts the next chain, or opens voting once every chain has
// been shown. The cursor is a join-order watermark over a roster that is
// frozen from Start onwards.
func (s *Service) RevealNext(ctx context.Context, id Identity, code string) (RevealStep, error) {
	if !id.Admin {
		return RevealStep{}, ErrAdminOnly
	}
	code = NormalizeCode(code)
	var step RevealStep
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		game := tx.Game()
		if game.Status != StatusReveal {
			return invalidf("game is not in reveal state")
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		cursor := game.RevealChainIndex
		if cursor >= len(players) {
			game.Status = StatusVoting
			if err := tx.SaveGame(); err != nil {
				return err
			}
			step = RevealStep{Phase: StatusVoting}
			emit(PhaseChanged{Status: StatusVoting})
			return nil
		}
		owner := findPlayerByJoinOrder(players, cursor)
		if owner == nil {
			return internal("reveal cursor points at a missing chain", nil)
		}
		game.RevealChainIndex = cursor + 1
		if err := tx.SaveGame(); err != nil {
			return err
		}
		step = RevealStep{
			Phase:         StatusReveal,
			ChainOwnerID:  owner.ID,
			OwnerNickname: owner.Nickname,
			Remaining:     len(players) - cursor - 1,
		}
		emit(RevealChain{ChainOwnerID: owner.ID, OwnerNickname: owner.Nickname})
		return nil
	})
	if err != nil {
		return RevealStep{}, err
	}
	s.logger.Info("reveal advanced", zap.String("code", code), zap.String("phase", string(step.Phase)), zap.Uint("chain_owner_id", step.ChainOwnerID))
	return step, nil
}

// Vote records the caller's ballot and publishes results once every player
// has voted.
func (s *Service) Vote(ctx context.Context, id Identity, code string, chainOwnerID uint) error {
	code = NormalizeCode(code)
	var voterID uint
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		game := tx.Game()
		if game.Status != StatusVoting {
			return invalidf("game is not in voting state")
		}
		player, err := bindPlayer(tx, id)
		if err != nil {
			return err
		}
		if chainOwnerID == player.ID {
			return invalidf("cannot vote for your own chain")
		}
		voted, err := tx.HasVoted(player.ID)
		if err != nil {
			return err
		}
		if voted {
			return invalidf("already voted")
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		if findPlayer(players, chainOwnerID) == nil {
			return notFoundf("chain not found")
		}
		vote := Vote{VoterID: player.ID, ChainOwnerID: chainOwnerID}
		if err := tx.AddVote(&vote); err != nil {
			return err
		}
		voterID = player.ID
		emit(VoteCast{VoterID: player.ID})

		total, err := tx.CountVotes()
		if err != nil {
			return err
		}
		if total < len(players) {
			return nil
		}
		votes, err := tx.Votes()
		if err != nil {
			return err
		}
		results := ComputeResults(players, votes)
		game.Status = StatusResults
		if err := tx.SaveGame(); err != nil {
			return err
		}
		emit(PhaseChanged{Status: StatusResults})
		emit(ResultsPublished{Results: results})
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("vote cast", zap.String("code", code), zap.Uint("voter_id", voterID), zap.Uint("chain_owner_id", chainOwnerID))
	return nil
}

// SetPostGameChoice records whether the caller wants a rematch. The latest
// choice wins.
func (s *Service) SetPostGameChoice(ctx context.Context, id Identity, code string, choice Choice) error {
	if !choice.Valid() {
		return invalidf("invalid choice")
	}
	code = NormalizeCode(code)
	return s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		if tx.Game().Status != StatusResults {
			return invalidf("game is not in results phase")
		}
		player, err := bindPlayer(tx, id)
		if err != nil {
			return err
		}
		player.PostGameChoice = &choice
		if err := tx.UpdatePlayer(player); err != nil {
			return err
		}
		emit(PostGameChoiceMade{PlayerID: player.ID, Nickname: player.Nickname, Choice: choice})
		return nil
	})
}

// PlayAgain opens a new lobby holding only the players who chose to play
// again, re-sequenced in their original join order, and archives this game.
// Carried players keep their session credentials.
func (s *Service) PlayAgain(ctx context.Context, id Identity, code string) (*Game, error) {
	if !id.Admin {
		return nil, ErrAdminOnly
	}
	code = NormalizeCode(code)
	var rematch *Game
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		game := tx.Game()
		if game.Status != StatusResults {
			return invalidf("can only rematch from results")
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		var carried []Player
		for _, player := range players {
			if player.PostGameChoice == nil || *player.PostGameChoice != ChoicePlayAgain {
				continue
			}
			carried = append(carried, Player{
				Nickname:     player.Nickname,
				JoinOrder:    len(carried),
				IsConnected:  player.IsConnected,
				SessionToken: player.SessionToken,
			})
		}
		if len(carried) < minPlayersToStart {
			return invalidf("need at least %d players to play again", minPlayersToStart)
		}
		newCode, err := s.freeCode(tx)
		if err != nil {
			return err
		}
		rematch = &Game{
			Code:                 newCode,
			Status:               StatusLobby,
			RoundDurationSeconds: game.RoundDurationSeconds,
		}
		if err := tx.CreateGame(rematch, carried); err != nil {
			return err
		}
		game.Status = StatusArchived
		if err := tx.SaveGame(); err != nil {
			return err
		}
		emit(RematchCreated{NewCode: newCode})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("rematch created", zap.String("code", code), zap.String("new_code", rematch.Code))
	return rematch, nil
}

func (s *Service) Quit(ctx context.Context, id Identity, code string) error {
	if !id.Admin {
		return ErrAdminOnly
	}
	code = NormalizeCode(code)
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		game := tx.Game()
		if game.Status != StatusResults {
			return invalidf("can only quit from results")
		}
		game.Status = StatusArchived
		if err := tx.SaveGame(); err != nil {
			return err
		}
		emit(GameEnded{})
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("game ended", zap.String("code", code), zap.String("reason", "quit"))
	return nil
}

// Kick removes a player from the lobby. The roster is fixed once play starts.
func (s *Service) Kick(ctx context.Context, id Identity, code string, playerID uint) error {
	if !id.Admin {
		return ErrAdminOnly
	}
	code = NormalizeCode(code)
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		if tx.Game().Status != StatusLobby {
			return invalidf("can only kick players in the lobby")
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		target := findPlayer(players, playerID)
		if target == nil {
			return ErrPlayerNotFound
		}
		if err := tx.RemovePlayer(target.ID); err != nil {
			return err
		}
		emit(PlayerKicked{PlayerID: target.ID, Nickname: target.Nickname})
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("player kicked", zap.String("code", code), zap.Uint("player_id", playerID))
	return nil
}

// Archive ends a game in any state.
func (s *Service) Archive(ctx context.Context, id Identity, code string) error {
	if !id.Admin {
		return ErrAdminOnly
	}
	return s.archive(ctx, NormalizeCode(code), "admin")
}

func (s *Service) archive(ctx context.Context, code, reason string) error {
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		game := tx.Game()
		if game.Status == StatusArchived {
			return nil
		}
		game.Status = StatusArchived
		if err := tx.SaveGame(); err != nil {
			return err
		}
		emit(GameEnded{})
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("game archived", zap.String("code", code), zap.String("reason", reason))
	return nil
}

// Delete purges a game and everything it owns.
func (s *Service) Delete(ctx context.Context, id Identity, code string) error {
	if !id.Admin {
		return ErrAdminOnly
	}
	code = NormalizeCode(code)
	if err := s.store.DeleteGame(ctx, code); err != nil {
		return err
	}
	s.publish(ctx, code, []Event{GameEnded{}})
	s.logger.Info("game deleted", zap.String("code", code))
	return nil
}

// ListGames returns games oldest first. activeOnly drops finished games.
func (s *Service) ListGames(ctx context.Context, id Identity, activeOnly bool) ([]Game, error) {
	if !id.Admin {
		return nil, ErrAdminOnly
	}
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return games, nil
	}
	active := games[:0]
	for _, game := range games {
		if game.Status == StatusResults || game.Status == StatusArchived {
			continue
		}
		active = append(active, game)
	}
	return active, nil
}

// SetConnected records whether the player holding token has a live
// connection and broadcasts the change. Unknown tokens are ignored.
func (s *Service) SetConnected(ctx context.Context, code, token string, connected bool) error {
	if token == "" {
		return nil
	}
	return s.setConnected(ctx, NormalizeCode(code), connected, func(tx Tx) (*Player, error) {
		return tx.PlayerByToken(token)
	})
}

// SetMemberConnected is SetConnected keyed by player id, for presence
// services that only know the id they authorized.
func (s *Service) SetMemberConnected(ctx context.Context, code string, playerID uint, connected bool) error {
	return s.setConnected(ctx, NormalizeCode(code), connected, func(tx Tx) (*Player, error) {
		players, err := tx.Players()
		if err != nil {
			return nil, err
		}
		return findPlayer(players, playerID), nil
	})
}

func (s *Service) setConnected(ctx context.Context, code string, connected bool, lookup func(Tx) (*Player, error)) error {
	var changed *Player
	err := s.update(ctx, code, func(tx Tx, emit func(Event)) error {
		player, err := lookup(tx)
		if err != nil || player == nil {
			return err
		}
		if player.IsConnected == connected {
			return nil
		}
		player.IsConnected = connected
		if err := tx.UpdatePlayer(player); err != nil {
			return err
		}
		changed = player
		emit(ConnectionChanged{PlayerID: player.ID, IsConnected: connected})
		return nil
	})
	if err != nil || changed == nil {
		return err
	}
	s.logger.Info("player connectivity changed", zap.String("code", code), zap.Uint("player_id", changed.ID), zap.Bool("connected", connected))
	return nil
}

// Player resolves token to a player of the game.
func (s *Service) Player(ctx context.Context, code, token string) (*Player, error) {
	var found *Player
	err := s.store.View(ctx, NormalizeCode(code), func(tx Tx) error {
		player, err := bindPlayer(tx, Identity{Token: token})
		if err != nil {
			return err
		}
		found = player
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *Service) update(ctx context.Context, code string, fn func(tx Tx, emit func(Event)) error) error {
	var events []Event
	err := s.store.Update(ctx, code, func(tx Tx) error {
		events = events[:0]
		err := fn(tx, func(ev Event) {
			events = append(events, ev)
		})
		if err != nil || len(events) == 0 {
			return err
		}
		// any published change counts as activity for the idle sweep
		return tx.SaveGame()
	})
	if err != nil {
		return err
	}
	s.publish(ctx, code, events)
	return nil
}

// publish runs after commit. A failed delivery is logged and otherwise
// ignored; clients recover by re-fetching their view.
func (s *Service) publish(ctx context.Context, code string, events []Event) {
	for _, ev := range events {
		if err := s.gateway.Publish(ctx, code, ev); err != nil {
			s.logger.Warn("broadcast failed",
				zap.String("code", code),
				zap.String("event", string(ev.Kind())),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) freeCode(tx Tx) (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := s.opts.NewCode()
		exists, err := tx.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", internal("could not allocate room code", ErrCodeTaken)
}

func bindPlayer(tx Tx, id Identity) (*Player, error) {
	if id.Token == "" {
		return nil, ErrNotAPlayer
	}
	player, err := tx.PlayerByToken(id.Token)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrNotAPlayer
	}
	return player, nil
}

// assignment resolves the chain a player advances this round and the kind of
// content the round expects.
func assignment(game *Game, players []Player, player *Player) (*Player, rotation.RoundType, error) {
	total := len(players)
	if total == 0 {
		return nil, "", internal("game has no players", nil)
	}
	if game.TotalRounds != nil && *game.TotalRounds != total {
		return nil, "", internal("roster changed after start", nil)
	}
	ownerOrder := rotation.ChainOwnerForPlayer(player.JoinOrder, game.CurrentRound, total)
	owner := findPlayerByJoinOrder(players, ownerOrder)
	if owner == nil {
		return nil, "", internal("invalid chain", nil)
	}
	return owner, rotation.RoundTypeFor(game.CurrentRound), nil
}

// completeRound moves to the next round, or to REVEAL after the last one,
// once every player has an entry in the current round.
func completeRound(tx Tx, players []Player, emit func(Event)) error {
	game := tx.Game()
	submissions, err := tx.Entries(game.CurrentRound)
	if err != nil {
		return err
	}
	submitted := submittedSet(submissions)
	for _, player := range players {
		if !submitted[player.ID] {
			return nil
		}
	}
	total := len(players)
	if game.TotalRounds != nil {
		total = *game.TotalRounds
	}
	next := game.CurrentRound + 1
	if next >= total {
		game.Status = StatusReveal
		game.RevealChainIndex = 0
		if err := tx.SaveGame(); err != nil {
			return err
		}
		emit(PhaseChanged{Status: StatusReveal})
		return nil
	}
	game.CurrentRound = next
	if err := tx.SaveGame(); err != nil {
		return err
	}
	emit(RoundStarted{RoundNumber: next, Type: rotation.RoundTypeFor(next)})
	return nil
}

func submittedSet(entries []RoundEntry) map[uint]bool {
	set := make(map[uint]bool, len(entries))
	for _, entry := range entries {
		set[entry.PlayerID] = true
	}
	return set
}

func blankContent(roundType rotation.RoundType) string {
	if roundType == rotation.Text {
		return BlankText
	}
	return ""
}
