package db

import "time"

// RoundEntry is one contribution to a chain. A player writes at most once per
// round and each chain receives at most one entry per round.
type RoundEntry struct {
	ID           uint      `gorm:"primaryKey"`
	GameID       uint      `gorm:"index;not null;uniqueIndex:idx_entries_round_player;uniqueIndex:idx_entries_round_chain"`
	RoundNumber  int       `gorm:"not null;uniqueIndex:idx_entries_round_player;uniqueIndex:idx_entries_round_chain"`
	ChainOwnerID uint      `gorm:"index;not null;uniqueIndex:idx_entries_round_chain"`
	PlayerID     uint      `gorm:"index;not null;uniqueIndex:idx_entries_round_player"`
	Type         string    `gorm:"size:16;not null"`
	Content      string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}
