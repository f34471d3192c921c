package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidAmount is returned when an amount cannot be coerced to a finite number.
var ErrInvalidAmount = errors.New("invalid amount")

// Kind selects which ledger table a record belongs to.
type Kind string

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

// Table returns the backing table name for the kind.
func (k Kind) Table() (string, error) {
	switch k {
	case Expense:
		return "Expenses", nil
	case Income:
		return "Incomes", nil
	default:
		return "", fmt.Errorf("unknown ledger kind %q", string(k))
	}
}

// Record is one immutable ledger row. A zero Date lets the database assign it.
type Record struct {
	Name   string    `json:"name"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// Range bounds a date query, both ends inclusive. The zero Range matches every row.
type Range struct {
	From string
	To   string
}

// IsZero reports whether the range is unbounded.
func (r Range) IsZero() bool {
	return r.From == "" && r.To == ""
}

// Amount accepts either a JSON number or a numeric string; models send both.
type Amount float64

// UnmarshalJSON 兼容字符串与数字两种格式。
func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: amount is null", ErrInvalidAmount)
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		parsed, err := ParseAmount(raw)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}

	var num float64
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	*a = Amount(num)
	return nil
}

// Float64 returns the numeric value.
func (a Amount) Float64() float64 {
	return float64(a)
}

// thousandsGrouped matches comma digit grouping, western ("1,250,000.50") or Indian ("12,50,000").
var thousandsGrouped = regexp.MustCompile(`^[+-]?(\d{1,3}(,\d{3})+|\d{1,2}(,\d{2})+,\d{3})(\.\d+)?$`)

// ParseAmount coerces a textual amount such as "1500", " 250.75 " or "1,200" to a number.
// Commas are accepted only as thousands separators; "1,5" is rejected.
func ParseAmount(raw string) (Amount, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	if strings.Contains(cleaned, ",") {
		if !thousandsGrouped.MatchString(cleaned) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return Amount(val), nil
}

// FormatINR renders a total the way the assistant reports it, e.g. "1500 INR".
func FormatINR(total float64) string {
	if total == 0 {
		// avoids "-0 INR"
		total = 0
	}
	return strconv.FormatFloat(total, 'f', -1, 64) + " INR"
}
