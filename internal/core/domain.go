package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income       Category = "income"
	Expenses     Category = "expenses"
	Installments Category = "installments"
	Autoloan     Category = "autoloan"
	Savings      Category = "savings"
	DebtReturn   Category = "debt_return"
)

type (
	// Category names one of the six monetary columns of the ledger.
	Category string

	// Month is a calendar month, always stored as its first day at midnight UTC.
	Month struct {
		time.Time
	}

	// MonthlyRecord is one ledger row. Balance and TotalSaved are derived
	// and recomputed by the ledger engine; they are never trusted on input.
	MonthlyRecord struct {
		Month        Month
		Income       decimal.Decimal
		Expenses     decimal.Decimal
		Installments decimal.Decimal
		Autoloan     decimal.Decimal
		Savings      decimal.Decimal
		DebtReturn   decimal.Decimal
		Comment      string

		Balance    decimal.Decimal
		TotalSaved decimal.Decimal
	}

	// Transaction is a single amount added to one category of one month.
	Transaction struct {
		Month    Month
		Category Category
		Amount   decimal.Decimal
		Comment  string
	}
)

var (
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrInvalidCategory = errors.New("invalid category")
	ErrCommentTooLong  = errors.New("comment too long (max 500 characters)")
)

// categories lists the ledger columns in storage order.
var categories = []Category{Income, Expenses, Installments, Autoloan, Savings, DebtReturn}

var categoryLabels = map[Category]string{
	Income:       "Доход",
	Expenses:     "Расход",
	Installments: "Рассрочка",
	Autoloan:     "Автокредит",
	Savings:      "Накопление",
	DebtReturn:   "Возврат долга",
}

// Categories returns the six ledger categories in column order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory resolves a column key such as "debt_return".
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (c Category) IsValid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label is the human-readable name used in transaction comment tags.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) String() string {
	return string(c)
}

// NewMonth creates a Month from year and month number.
func NewMonth(year, month int) Month {
	return Month{Time: time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)}
}

// MonthOf truncates any instant to the first day of its calendar month.
// Two dates in the same month always yield equal Month values.
func MonthOf(t time.Time) Month {
	return NewMonth(t.Year(), int(t.Month()))
}

// CurrentMonth returns the first day of the current month.
func CurrentMonth() Month {
	return MonthOf(time.Now())
}

var monthLayouts = []string{
	"02-01-2006",
	"2006-01-02",
	"2006-01",
	"01.2006",
	"02.01.2006",
	time.RFC3339,
}

// ParseMonth accepts the storage layout (dd-mm-yyyy) plus ISO dates and the
// mm.yyyy labels produced by MonthLabel. Any day of month is accepted.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Month{}, ErrInvalidMonth
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

func (m Month) Validate() error {
	if m.IsZero() {
		return fmt.Errorf("%w: month cannot be zero", ErrInvalidMonth)
	}
	if m.Day() != 1 {
		return ErrInvalidMonth
	}
	return nil
}

// StorageString formats the month as dd-mm-yyyy with the day fixed at 01.
func (m Month) StorageString() string {
	return m.Format("02-01-2006")
}

// Label formats the month as mm.yyyy.
func (m Month) Label() string {
	return m.Format("01.2006")
}

func (m Month) String() string {
	return m.Format("2006-01-02")
}

// Amount returns the value stored in the given category column.
func (r MonthlyRecord) Amount(c Category) decimal.Decimal {
	switch c {
	case Income:
		return r.Income
	case Expenses:
		return r.Expenses
	case Installments:
		return r.Installments
	case Autoloan:
		return r.Autoloan
	case Savings:
		return r.Savings
	case DebtReturn:
		return r.DebtReturn
	}
	return decimal.Zero
}

// SetAmount replaces the value of the given category column.
func (r *MonthlyRecord) SetAmount(c Category, v decimal.Decimal) {
	switch c {
	case Income:
		r.Income = v
	case Expenses:
		r.Expenses = v
	case Installments:
		r.Installments = v
	case Autoloan:
		r.Autoloan = v
	case Savings:
		r.Savings = v
	case DebtReturn:
		r.DebtReturn = v
	}
}

func (t Transaction) Validate() error {
	if err := t.Month.Validate(); err != nil {
		return err
	}
	if !t.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(t.Category))
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if len(t.Comment) > 500 {
		return ErrCommentTooLong
	}
	return nil
}
