package models

import (
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrItemRequired   = errors.New("item is required")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrDateRequired   = errors.New("date is required")
)

type Expense struct {
	bun.BaseModel `bun:"table:expense"`
	ID            string    `bun:"id,pk" json:"id"`
	UserID        *string   `bun:"user_id" json:"-"`
	Date          Date      `bun:"date,type:date" json:"date"`
	Category      string    `bun:"category" json:"category"`
	Item          string    `bun:"item" json:"item"`
	Amount        float64   `bun:"amount,type:numeric(14,2)" json:"amount"`
	PaymentMethod string    `bun:"payment_method" json:"payment_method"`
	Archived      bool      `bun:"archived" json:"archived"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,default:current_timestamp" json:"updated_at"`
}

type ExpenseInput struct {
	ID            string  `json:"id"`
	Date          *Date   `json:"date"`
	Category      string  `json:"category"`
	Item          string  `json:"item"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
}

func (in *ExpenseInput) Validate() error {
	if in.Date == nil || in.Date.IsZero() {
		return ErrDateRequired
	}
	if strings.TrimSpace(in.Item) == "" {
		return ErrItemRequired
	}
	if in.Amount < 0 {
		return ErrNegativeAmount
	}
	return nil
}

type ExpensePatch struct {
	Date          *Date    `json:"date"`
	Category      *string  `json:"category"`
	Item          *string  `json:"item"`
	Amount        *float64 `json:"amount"`
	PaymentMethod *string  `json:"payment_method"`
	Archived      *bool    `json:"archived"`
}

func (p *ExpensePatch) Validate() error {
	if p.Item != nil && strings.TrimSpace(*p.Item) == "" {
		return ErrItemRequired
	}
	if p.Amount != nil && *p.Amount < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (p *ExpensePatch) Apply(e *Expense) []string {
	var columns []string

	if p.Date != nil {
		e.Date = *p.Date
		columns = append(columns, "date")
	}
	if p.Category != nil {
		e.Category = *p.Category
		columns = append(columns, "category")
	}
	if p.Item != nil {
		e.Item = *p.Item
		columns = append(columns, "item")
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
		columns = append(columns, "amount")
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
		columns = append(columns, "payment_method")
	}
	if p.Archived != nil {
		e.Archived = *p.Archived
		columns = append(columns, "archived")
	}

	return columns
}

type CategoryTotal struct {
	Category string  `bun:"category" json:"category"`
	Total    float64 `bun:"total" json:"total"`
	Count    int     `bun:"count" json:"count"`
}

type ExpenseSummary struct {
	Total      float64         `json:"total"`
	Count      int             `json:"count"`
	Categories []CategoryTotal `json:"categories"`
}
