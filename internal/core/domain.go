package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "Income"
	Expense Kind = "Expense"
)

type (
	// Kind classifies an item as money coming in or going out.
	Kind string

	// Item is a single ledger entry owned by exactly one user.
	// Amount is always in minor currency units (cents, yen, ...).
	Item struct {
		ID        int64     `json:"id"`
		UserID    int64     `json:"userId"`
		Event     string    `json:"event"`
		Amount    int64     `json:"amount"`
		Kind      Kind      `json:"kind"`
		Memo      string    `json:"memo,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// ItemInput carries the caller-editable fields of an item.
	// The owner is never part of the input; it comes from the session.
	ItemInput struct {
		Event     string
		Amount    int64
		Kind      Kind
		Memo      string
		CreatedAt time.Time // zero means "now"
	}

	// Filter restricts listing and aggregation. Zero values mean "no restriction".
	Filter struct {
		Kind      Kind
		StartDate time.Time
		EndDate   time.Time
	}

	// Summary aggregates a user's items over a filter window.
	// Balance may be negative. Sums over an empty ledger are zero.
	Summary struct {
		TotalIncome  int64 `json:"totalIncome"`
		TotalExpense int64 `json:"totalExpense"`
		Balance      int64 `json:"balance"`
	}

	// User is an account identity. The password hash never leaves the
	// auth and storage layers.
	User struct {
		ID           int64
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrEmptyEvent         = errors.New("empty event")
	ErrEventTooLong       = errors.New("event too long (max 200 characters)")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidKind        = errors.New("invalid kind")
	ErrInvalidDate        = errors.New("invalid date")
	ErrNotFound           = errors.New("item not found")
	ErrDuplicateAccount   = errors.New("account already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
)

// IsValidationError reports whether err belongs to the recoverable
// bad-input class of the error taxonomy.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyEvent) ||
		errors.Is(err, ErrEventTooLong) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidDate)
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (in ItemInput) Validate() error {
	if len(strings.TrimSpace(in.Event)) == 0 {
		return ErrEmptyEvent
	}
	if len(in.Event) > 200 {
		return ErrEventTooLong
	}
	if in.Amount <= 0 {
		return ErrInvalidAmount
	}
	if err := in.Kind.Validate(); err != nil {
		return err
	}
	return nil
}

// ParseKindFilter interprets a kind query value for listing.
// Empty and "all" mean no restriction.
func ParseKindFilter(s string) (Kind, error) {
	switch s {
	case "", "all":
		return "", nil
	case string(Income):
		return Income, nil
	case string(Expense):
		return Expense, nil
	default:
		return "", ErrInvalidKind
	}
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// EndOfDay returns the last representable filter instant of d's calendar
// day, so a range with startDate == endDate covers the whole day.
func EndOfDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 999_000_000, d.Location())
}
