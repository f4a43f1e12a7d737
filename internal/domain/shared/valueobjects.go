package shared

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Round rounds x to the given number of decimal places, half to even, on
// the shortest decimal that represents x: 6.25 gives 6.2 and 7.025 gives 7.02.
func Round(x float64, places int) float64 {
	f, _ := decimal.NewFromFloat(x).RoundBank(int32(places)).Float64()
	return f
}

// Mean averages values in decimal arithmetic and rounds like Round.
// An empty slice gives 0.
func Mean(values []float64, places int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	f, _ := sum.Div(decimal.NewFromInt(int64(len(values)))).RoundBank(int32(places)).Float64()
	return f
}

// Sum adds values in decimal arithmetic and rounds like Round.
func Sum(places int, values ...float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	f, _ := sum.RoundBank(int32(places)).Float64()
	return f
}

// Score is a decimal value on the 0-10 grading scale.
type Score float64

const (
	MinScore Score = 0
	MaxScore Score = 10
)

// Float64 returns the underlying float64 value.
func (s Score) Float64() float64 {
	return float64(s)
}

// OneDecimal returns the score rounded to one decimal place, the precision
// grades are stored with.
func (s Score) OneDecimal() Score {
	return Score(Round(float64(s), 1))
}

// Within reports whether the score lies in [0, max].
func (s Score) Within(max Score) bool {
	return s >= MinScore && s <= max
}

// ═══════════════════════════════════════════════════════════════════════════
// Text Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// CleanName trims surrounding whitespace and collapses inner runs of spaces.
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ═══════════════════════════════════════════════════════════════════════════
// DateRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// DateRange represents an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the date range is valid.
func (d DateRange) IsValid() bool {
	return !d.From.IsZero() && !d.To.IsZero() && !d.From.After(d.To)
}

// Days returns the number of calendar days covered by the range.
func (d DateRange) Days() int {
	if !d.IsValid() {
		return 0
	}
	return int(d.To.Sub(d.From).Hours()/24) + 1
}

// Contains checks if a day falls within the range.
func (d DateRange) Contains(day time.Time) bool {
	return !day.Before(d.From) && !day.After(d.To)
}

// NewDateRange creates a new DateRange with validation.
func NewDateRange(from, to time.Time) (DateRange, error) {
	dr := DateRange{From: from, To: to}
	if !dr.IsValid() {
		return DateRange{}, NewDomainError("shared", "NewDateRange", ErrInvalidInput, "'from' must not be after 'to'")
	}
	return dr, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// TotalPages returns the number of pages needed for total items.
func (p Pagination) TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + p.Limit() - 1) / p.Limit()
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
