package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Config is a runtime tunable read through ServiceConfig.
type Config struct {
	bun.BaseModel `bun:"table:config"`
	Key           string    `bun:"key,pk" json:"key"`
	Value         string    `bun:"value" json:"value"`
	UpdatedAt     time.Time `bun:"updated_at,default:current_timestamp" json:"updated_at"`
}
