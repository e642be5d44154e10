package core

import (
	"errors"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// ExpenseRecord is a single entry in the ledger. Records are immutable
	// once created; the only supported mutation is whole-record deletion.
	ExpenseRecord struct {
		ID        string
		Category  string
		Friend    string
		Amount    Money
		Note      string // optional
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyFriend   = errors.New("empty friend")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r ExpenseRecord) Validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if len(r.Category) > 200 {
		return errors.New("category too long (max 200 characters)")
	}
	if strings.TrimSpace(r.Friend) == "" {
		return ErrEmptyFriend
	}
	if len(r.Friend) > 200 {
		return errors.New("friend too long (max 200 characters)")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if len(r.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}
