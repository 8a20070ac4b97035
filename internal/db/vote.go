package db

import "time"

type Vote struct {
	ID           uint      `gorm:"primaryKey"`
	GameID       uint      `gorm:"index;not null;uniqueIndex:idx_votes_game_voter"`
	VoterID      uint      `gorm:"not null;uniqueIndex:idx_votes_game_voter"`
	ChainOwnerID uint      `gorm:"index;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}
