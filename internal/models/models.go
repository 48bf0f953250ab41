package models

import (
	"fmt"
	"time"
)

const (
	// DefaultLoanPeriodDays is the number of days an item may be kept before it is overdue.
	DefaultLoanPeriodDays = 14

	// MaxLoans is the number of items a borrower may hold at once.
	MaxLoans = 5

	// DateLayout is the ISO calendar date format used for due dates.
	DateLayout = "2006-01-02"
)

type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "AVAILABLE"
	ItemStatusOnLoan    ItemStatus = "ON_LOAN"
)

// Item is a lendable catalog entry.
type Item struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Creator    string     `json:"creator"`
	Year       *int       `json:"year"`
	Available  bool       `json:"available"`
	BorrowedBy *string    `json:"borrowed_by"`
	DueDate    *time.Time `json:"due_date"`
}

// NewItem returns an available item.
func NewItem(id, title, creator string, year *int) *Item {
	return &Item{
		ID:        id,
		Title:     title,
		Creator:   creator,
		Year:      year,
		Available: true,
	}
}

func (i *Item) Status() ItemStatus {
	if i.Available {
		return ItemStatusAvailable
	}
	return ItemStatusOnLoan
}

// Holder returns the borrower currently holding the item, or "" when available.
func (i *Item) Holder() string {
	if i.BorrowedBy == nil {
		return ""
	}
	return *i.BorrowedBy
}

// CheckIn reports the outcome of returning an item.
type CheckIn struct {
	Overdue     bool
	DaysOverdue int
}

// CheckOut lends the item to borrowerID and returns the due date.
func (i *Item) CheckOut(borrowerID string, today time.Time, loanPeriodDays int) (time.Time, error) {
	if !i.Available {
		return time.Time{}, fmt.Errorf("%w: item %s is held by %s", ErrAlreadyCheckedOut, i.ID, i.Holder())
	}
	due := DateOf(today).AddDate(0, 0, loanPeriodDays)
	holder := borrowerID
	i.Available = false
	i.BorrowedBy = &holder
	i.DueDate = &due
	return due, nil
}

// CheckIn makes the item available again. Overdue status is captured before the
// loan fields are cleared.
func (i *Item) CheckIn(today time.Time) (CheckIn, error) {
	if i.Available {
		return CheckIn{}, fmt.Errorf("%w: item %s", ErrAlreadyAvailable, i.ID)
	}
	res := CheckIn{
		Overdue:     i.IsOverdue(today),
		DaysOverdue: i.DaysOverdue(today),
	}
	i.Available = true
	i.BorrowedBy = nil
	i.DueDate = nil
	return res, nil
}

func (i *Item) IsOverdue(today time.Time) bool {
	if i.Available || i.DueDate == nil {
		return false
	}
	return DateOf(today).After(DateOf(*i.DueDate))
}

// DaysOverdue is the number of whole days elapsed since the due date, or 0.
func (i *Item) DaysOverdue(today time.Time) int {
	if !i.IsOverdue(today) {
		return 0
	}
	return int(DateOf(today).Sub(DateOf(*i.DueDate)) / (24 * time.Hour))
}

// Borrower is a registered person entitled to hold items.
type Borrower struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Loans []string `json:"loans"`
}

func NewBorrower(id, name string) *Borrower {
	return &Borrower{ID: id, Name: name, Loans: []string{}}
}

func (b *Borrower) CanBorrow() bool {
	return len(b.Loans) < MaxLoans
}

// AddLoan records itemID against the borrower. Duplicates are not checked here.
func (b *Borrower) AddLoan(itemID string) error {
	if !b.CanBorrow() {
		return fmt.Errorf("%w: maximum of %d items", ErrLimitReached, MaxLoans)
	}
	b.Loans = append(b.Loans, itemID)
	return nil
}

func (b *Borrower) RemoveLoan(itemID string) error {
	for idx, id := range b.Loans {
		if id == itemID {
			b.Loans = append(b.Loans[:idx], b.Loans[idx+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: borrower %s does not hold item %s", ErrLoanNotFound, b.ID, itemID)
}

func (b *Borrower) HasLoan(itemID string) bool {
	for _, id := range b.Loans {
		if id == itemID {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no memory with b.
func (b *Borrower) Clone() Borrower {
	out := *b
	out.Loans = append(make([]string, 0, len(b.Loans)), b.Loans...)
	return out
}

// Clone returns a copy that shares no memory with i.
func (i *Item) Clone() Item {
	out := *i
	if i.Year != nil {
		y := *i.Year
		out.Year = &y
	}
	if i.BorrowedBy != nil {
		h := *i.BorrowedBy
		out.BorrowedBy = &h
	}
	if i.DueDate != nil {
		d := *i.DueDate
		out.DueDate = &d
	}
	return out
}

// DateOf truncates t to its calendar date, expressed as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
