// Package rotation holds the pure round math of the chain game: which chain a
// player advances in a given round, and which content kind that round asks for.
//
// Chains are identified by the join order of the player who started them.
// Every function here requires totalPlayers > 0.
package rotation

// RoundType is the kind of content a round produces.
type RoundType string

const (
	Text    RoundType = "TEXT"
	Drawing RoundType = "DRAWING"
)

// ChainOwnerForPlayer returns the join order of the chain that the player with
// joinOrder contributes to during roundNumber.
func ChainOwnerForPlayer(joinOrder, roundNumber, totalPlayers int) int {
	return ((joinOrder-roundNumber)%totalPlayers + totalPlayers) % totalPlayers
}

// PlayerForChain is the inverse of ChainOwnerForPlayer: it returns the join
// order of the player working on chainOwner's chain during roundNumber.
func PlayerForChain(chainOwner, roundNumber, totalPlayers int) int {
	return ((chainOwner+roundNumber)%totalPlayers + totalPlayers) % totalPlayers
}

// RoundTypeFor alternates content kinds: even rounds are written, odd rounds
// are drawn. Each chain advances one step per round, so global parity matches
// per-chain parity.
func RoundTypeFor(roundNumber int) RoundType {
	if roundNumber%2 == 0 {
		return Text
	}
	return Drawing
}

// Valid reports whether t is a known round type.
func (t RoundType) Valid() bool {
	return t == Text || t == Drawing
}
