package models

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type ChangeType string

const (
	ChangeIncrease ChangeType = "increase"
	ChangeDecrease ChangeType = "decrease"
)

const (
	ResourceRP    = "rp"
	ResourceGlory = "glory"
)

// MaxResourceLogAmount bounds the magnitude of a client-submitted entry.
const MaxResourceLogAmount = 1_000_000_000

var (
	ErrCategoryRequired = errors.New("category is required")
	ErrAmountOutOfRange = errors.New("amount is out of range")
)

type ResourceLog struct {
	bun.BaseModel `bun:"table:resource_log"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	UserID        string     `bun:"user_id" json:"-"`
	Category      string     `bun:"category" json:"category"`
	ChangeType    ChangeType `bun:"change_type" json:"change_type"`
	Amount        int        `bun:"amount" json:"amount"`
	Reason        string     `bun:"reason" json:"reason"`
	CreatedAt     time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// NewResourceLog stores the magnitude of amount and carries its sign in ChangeType.
func NewResourceLog(userID, category string, amount int, reason string) *ResourceLog {
	log := &ResourceLog{
		UserID:     userID,
		Category:   category,
		ChangeType: ChangeIncrease,
		Amount:     amount,
		Reason:     reason,
	}
	if amount < 0 {
		log.ChangeType = ChangeDecrease
		log.Amount = -amount
		if amount == math.MinInt {
			log.Amount = math.MaxInt
		}
	}
	return log
}

// Signed returns the amount with the direction applied.
func (l *ResourceLog) Signed() int {
	if l.ChangeType == ChangeDecrease {
		return -l.Amount
	}
	return l.Amount
}

// ResourceLogInput is a client-submitted ledger entry with a signed amount.
type ResourceLogInput struct {
	Category string `json:"category"`
	Amount   int    `json:"amount"`
	Reason   string `json:"reason"`
}

func (in *ResourceLogInput) Validate() error {
	if strings.TrimSpace(in.Category) == "" {
		return ErrCategoryRequired
	}
	if in.Amount > MaxResourceLogAmount || in.Amount < -MaxResourceLogAmount {
		return ErrAmountOutOfRange
	}
	return nil
}
