package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"

	// Home selects the home-currency amount (AmountMN / Amount).
	Home AmountField = "home"
	// Foreign selects the foreign-currency amount (AmountME).
	Foreign AmountField = "foreign"

	// TransferCategoryID is the reserved id for inter-account transfers.
	TransferCategoryID = "13"

	// DefaultTransferName names the transfer category when the catalog lacks it.
	DefaultTransferName = "Traspasos"

	// UncategorizedName is shown for category references missing from the catalog.
	UncategorizedName = "Sin categoría"

	// DateLayout is the wire format of every record date.
	DateLayout = "2006-01-02"
)

type (
	TransactionType string

	AmountField string

	// Category is a classification label ("guide") applied to records.
	Category struct {
		ID                  string `json:"id"`
		Name                string `json:"name"`
		InactiveForForecast bool   `json:"isInactiveForForecast,omitempty"`
	}

	// Account is a bank account.
	Account struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Bank        string          `json:"bank"`
		Guide       string          `json:"guide"`
		Date        string          `json:"date"`
		Description string          `json:"description"`
		AmountMN    float64         `json:"amountMN"`
		AmountME    float64         `json:"amountME"`
		Type        TransactionType `json:"type"`
		Assigned    bool            `json:"assigned"`
	}

	// ScheduledPayment has no type: the sign of Amount/AmountME decides.
	ScheduledPayment struct {
		ID           string  `json:"id"`
		Responsible  string  `json:"responsible"`
		Supplier     string  `json:"supplier"`
		Concept      string  `json:"concept"`
		AmountME     float64 `json:"amountME"`
		ExchangeRate float64 `json:"exchangeRate"`
		Amount       float64 `json:"amount"`
		Guide        string  `json:"guide,omitempty"`
		Date         string  `json:"date"`
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidAmountField = errors.New("invalid amount field")
	ErrEmptyID            = errors.New("empty id")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyConcept       = errors.New("empty concept")
)

// ParseDate parses a YYYY-MM-DD record date anchored at noon UTC, so that
// calendar arithmetic never crosses a day boundary.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.Add(12 * time.Hour), nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, string(t))
	}
}

// TypeForAmount synthesizes a type from the sign of an amount.
func TypeForAmount(amount float64) TransactionType {
	if amount >= 0 {
		return Income
	}
	return Expense
}

// ParseAmountField accepts "home"/"foreign" and the legacy "MN"/"ME" spellings.
func ParseAmountField(s string) (AmountField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "home", "mn":
		return Home, nil
	case "foreign", "me":
		return Foreign, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAmountField, s)
	}
}

// Amount returns the transaction amount selected by f.
func (t Transaction) Amount(f AmountField) float64 {
	if f == Foreign {
		return t.AmountME
	}
	return t.AmountMN
}

// AmountFor returns the scheduled payment amount selected by f.
func (p ScheduledPayment) AmountFor(f AmountField) float64 {
	if f == Foreign {
		return p.AmountME
	}
	return p.Amount
}

// IsForeignCurrency reports whether the account holds a foreign currency.
// Display only; it never changes aggregation.
func (a Account) IsForeignCurrency() bool {
	name := strings.ToUpper(a.Name)
	return strings.Contains(name, "USD") || strings.Contains(name, "EURO")
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t Transaction) Validate() error {
	if _, err := ParseDate(t.Date); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	return nil
}

func (p ScheduledPayment) Validate() error {
	if _, err := ParseDate(p.Date); err != nil {
		return err
	}
	if strings.TrimSpace(p.Guide) == "" && strings.TrimSpace(p.Concept) == "" {
		return ErrEmptyConcept
	}
	if p.ExchangeRate < 0 {
		return errors.New("exchange rate cannot be negative")
	}
	return nil
}
