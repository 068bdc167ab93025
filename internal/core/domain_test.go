package core

import (
	"errors"
	"testing"
	"time"
)

func TestItemInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   ItemInput
		wantErr error
	}{
		{"valid income", ItemInput{Event: "salary", Amount: 5000, Kind: Income}, nil},
		{"valid expense with memo", ItemInput{Event: "groceries", Amount: 1200, Kind: Expense, Memo: "weekly"}, nil},
		{"empty event", ItemInput{Event: "", Amount: 100, Kind: Income}, ErrEmptyEvent},
		{"whitespace event", ItemInput{Event: "   ", Amount: 100, Kind: Income}, ErrEmptyEvent},
		{"zero amount", ItemInput{Event: "x", Amount: 0, Kind: Income}, ErrInvalidAmount},
		{"negative amount", ItemInput{Event: "x", Amount: -5, Kind: Expense}, ErrInvalidAmount},
		{"bad kind", ItemInput{Event: "x", Amount: 100, Kind: "Transfer"}, ErrInvalidKind},
		{"empty kind", ItemInput{Event: "x", Amount: 100, Kind: ""}, ErrInvalidKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
			if !IsValidationError(err) {
				t.Fatalf("IsValidationError(%v) = false, want true", err)
			}
		})
	}
}

func TestEventTooLong(t *testing.T) {
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	in := ItemInput{Event: string(long), Amount: 100, Kind: Income}
	if err := in.Validate(); err == nil {
		t.Fatal("expected error for over-long event")
	}
}

func TestParseKindFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", "", false},
		{"all", "", false},
		{"Income", Income, false},
		{"Expense", Expense, false},
		{"income", "", true},
		{"Transfer", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKindFilter(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidKind) {
				t.Errorf("ParseKindFilter(%q) err = %v, want ErrInvalidKind", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseKindFilter(%q) = %q, %v, want %q, nil", tt.in, got, err, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.January || d.Day() != 15 {
		t.Fatalf("ParseDate = %v", d)
	}

	for _, bad := range []string{"2024-13-01", "15/01/2024", "yesterday", "2024-01-15T10:00:00Z"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) err = %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestEndOfDay(t *testing.T) {
	d, _ := ParseDate("2024-01-31")
	end := EndOfDay(d)
	if end.Hour() != 23 || end.Minute() != 59 || end.Second() != 59 {
		t.Fatalf("EndOfDay = %v", end)
	}
	// Anything recorded during the day must fall inside the range.
	during := d.Add(18 * time.Hour)
	if during.After(end) {
		t.Fatalf("18:00 fell outside end of day %v", end)
	}
	nextDay := d.AddDate(0, 0, 1)
	if !nextDay.After(end) {
		t.Fatalf("next day not after end of day")
	}
}
