package db

import "time"

type Game struct {
	ID                   uint         `gorm:"primaryKey"`
	Code                 string       `gorm:"size:12;uniqueIndex;not null"`
	Status               string       `gorm:"size:16;not null;index"`
	CurrentRound         int          `gorm:"not null;default:0"`
	TotalRounds          *int         `gorm:"column:total_rounds"`
	RoundDurationSeconds int          `gorm:"not null;default:60"`
	RevealChainIndex     int          `gorm:"not null;default:0"`
	CreatedAt            time.Time    `gorm:"not null"`
	UpdatedAt            time.Time    `gorm:"not null;index"`
	Players              []Player     `gorm:"constraint:OnDelete:CASCADE"`
	Entries              []RoundEntry `gorm:"constraint:OnDelete:CASCADE"`
	Votes                []Vote       `gorm:"constraint:OnDelete:CASCADE"`
}
