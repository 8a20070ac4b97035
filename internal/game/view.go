package game

import (
	"context"

	"drawphone/internal/rotation"
)

// View is the read-only snapshot a client renders from.
type View struct {
	Game     Game     `json:"game"`
	Players  []Player `json:"players"`
	MyPlayer *Player  `json:"myPlayer"`
	IsAdmin  bool     `json:"isAdmin"`

	// PLAYING, bound player only.
	CurrentAssignment  *Assignment `json:"currentAssignment,omitempty"`
	SubmittedThisRound bool        `json:"submittedThisRound"`
	SubmittedPlayerIDs []uint      `json:"submittedPlayerIds,omitempty"`

	// VOTING
	HasVoted bool `json:"hasVoted"`

	// RESULTS
	VoteResults     []RankedResult   `json:"voteResults,omitempty"`
	PostGameChoices map[uint]*Choice `json:"postGameChoices,omitempty"`
}

// Assignment is what a player has to produce this round. PreviousContent is
// the prior entry of the same chain, nil in round 0.
type Assignment struct {
	ChainOwnerID    uint               `json:"chainOwnerId"`
	Type            rotation.RoundType `json:"type"`
	PreviousContent *string            `json:"previousContent"`
}

type RankedResult struct {
	VoteResult
	Rank int `json:"rank"`
}

// Snapshot projects the game addressed by code for the caller.
func (s *Service) Snapshot(ctx context.Context, id Identity, code string) (*View, error) {
	var view *View
	err := s.store.View(ctx, NormalizeCode(code), func(tx Tx) error {
		var err error
		view, err = project(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func project(tx Tx, id Identity) (*View, error) {
	game := *tx.Game()
	players, err := tx.Players()
	if err != nil {
		return nil, err
	}
	view := &View{
		Game:    game,
		Players: players,
		IsAdmin: id.Admin,
	}
	if id.Token != "" {
		if me := findPlayerByToken(players, id.Token); me != nil {
			mine := *me
			view.MyPlayer = &mine
		}
	}

	switch game.Status {
	case StatusPlaying:
		if view.MyPlayer == nil {
			return view, nil
		}
		owner, roundType, err := assignment(&game, players, view.MyPlayer)
		if err != nil {
			return nil, err
		}
		current := &Assignment{ChainOwnerID: owner.ID, Type: roundType}
		if game.CurrentRound > 0 {
			chain, err := tx.ChainEntries(owner.ID)
			if err != nil {
				return nil, err
			}
			for _, entry := range chain {
				if entry.RoundNumber == game.CurrentRound-1 {
					previous := entry.Content
					current.PreviousContent = &previous
					break
				}
			}
		}
		view.CurrentAssignment = current
		submissions, err := tx.Entries(game.CurrentRound)
		if err != nil {
			return nil, err
		}
		view.SubmittedPlayerIDs = make([]uint, 0, len(submissions))
		for _, entry := range submissions {
			view.SubmittedPlayerIDs = append(view.SubmittedPlayerIDs, entry.PlayerID)
			if entry.PlayerID == view.MyPlayer.ID {
				view.SubmittedThisRound = true
			}
		}
	case StatusVoting:
		if view.MyPlayer == nil {
			return view, nil
		}
		voted, err := tx.HasVoted(view.MyPlayer.ID)
		if err != nil {
			return nil, err
		}
		view.HasVoted = voted
	case StatusResults:
		votes, err := tx.Votes()
		if err != nil {
			return nil, err
		}
		results := ComputeResults(players, votes)
		ranks := Ranks(results)
		view.VoteResults = make([]RankedResult, len(results))
		for i, result := range results {
			view.VoteResults[i] = RankedResult{VoteResult: result, Rank: ranks[i]}
		}
		view.PostGameChoices = make(map[uint]*Choice, len(players))
		for _, player := range players {
			view.PostGameChoices[player.ID] = player.PostGameChoice
		}
	}
	return view, nil
}

// Chain returns one owner's entries in round order. Chains stay hidden until
// the game reaches REVEAL.
func (s *Service) Chain(ctx context.Context, code string, chainOwnerID uint) (*Chain, error) {
	var chain *Chain
	err := s.store.View(ctx, NormalizeCode(code), func(tx Tx) error {
		if !chainsVisible(tx.Game()) {
			return invalidf("chains are not available yet")
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		owner := findPlayer(players, chainOwnerID)
		if owner == nil {
			return notFoundf("chain not found")
		}
		chain, err = loadChain(tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chain, nil
}

// Chains returns every chain in owner join order.
func (s *Service) Chains(ctx context.Context, code string) ([]Chain, error) {
	var chains []Chain
	err := s.store.View(ctx, NormalizeCode(code), func(tx Tx) error {
		if !chainsVisible(tx.Game()) {
			return invalidf("chains are not available yet")
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		chains = make([]Chain, 0, len(players))
		for i := range players {
			chain, err := loadChain(tx, &players[i])
			if err != nil {
				return err
			}
			chains = append(chains, *chain)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chains, nil
}

func loadChain(tx Tx, owner *Player) (*Chain, error) {
	entries, err := tx.ChainEntries(owner.ID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []RoundEntry{}
	}
	return &Chain{ChainOwnerID: owner.ID, OwnerNickname: owner.Nickname, Entries: entries}, nil
}

func chainsVisible(game *Game) bool {
	switch game.Status {
	case StatusReveal, StatusVoting, StatusResults:
		return true
	case StatusArchived:
		return game.TotalRounds != nil
	}
	return false
}

func findPlayerByToken(players []Player, token string) *Player {
	for i := range players {
		if players[i].SessionToken == token {
			return &players[i]
		}
	}
	return nil
}
