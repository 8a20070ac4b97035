package game

import "sort"

// VoteResult is one chain's tally.
type VoteResult struct {
	ChainOwnerID  uint     `json:"chainOwnerId"`
	OwnerNickname string   `json:"ownerNickname"`
	VoteCount     int      `json:"voteCount"`
	Voters        []string `json:"voters"`
}

// ComputeResults tallies votes per chain owner, most votes first. Ties keep
// roster order. Every player appears, including those with no votes.
func ComputeResults(players []Player, votes []Vote) []VoteResult {
	results := make([]VoteResult, 0, len(players))
	index := make(map[uint]int, len(players))
	for _, player := range players {
		index[player.ID] = len(results)
		results = append(results, VoteResult{
			ChainOwnerID:  player.ID,
			OwnerNickname: player.Nickname,
			Voters:        []string{},
		})
	}
	for _, vote := range votes {
		i, ok := index[vote.ChainOwnerID]
		if !ok {
			continue
		}
		results[i].VoteCount++
		if voter := findPlayer(players, vote.VoterID); voter != nil {
			results[i].Voters = append(results[i].Voters, voter.Nickname)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].VoteCount > results[j].VoteCount
	})
	return results
}

// Ranks assigns competition ranks to results sorted by ComputeResults:
// tied counts share a rank and the next distinct count skips ahead, so
// counts 3,3,3,1 rank 1,1,1,4.
func Ranks(results []VoteResult) []int {
	ranks := make([]int, len(results))
	for i := range results {
		if i > 0 && results[i].VoteCount == results[i-1].VoteCount {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}
