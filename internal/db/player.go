package db

import "time"

type Player struct {
	ID             uint      `gorm:"primaryKey"`
	GameID         uint      `gorm:"index;not null;uniqueIndex:idx_players_game_token"`
	Nickname       string    `gorm:"size:32;not null"`
	JoinOrder      int       `gorm:"not null"`
	IsConnected    bool      `gorm:"not null;default:true"`
	PostGameChoice *string   `gorm:"size:16"`
	SessionToken   string    `gorm:"size:64;not null;uniqueIndex:idx_players_game_token"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}
