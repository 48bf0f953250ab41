package repositories

import (
	"fmt"

	"lendingdesk/internal/models"
)

// Snapshot is the persisted form of the catalog: two independent keyed documents.
type Snapshot struct {
	Items     map[string]ItemRecord
	Borrowers map[string]BorrowerRecord
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Items:     map[string]ItemRecord{},
		Borrowers: map[string]BorrowerRecord{},
	}
}

// ItemRecord is the persisted form of an Item. DueDate is an ISO calendar date.
type ItemRecord struct {
	Title      string  `json:"title"`
	Creator    string  `json:"creator"`
	ID         string  `json:"id"`
	Year       *int    `json:"year"`
	Available  bool    `json:"available"`
	BorrowedBy *string `json:"borrowed_by"`
	DueDate    *string `json:"due_date"`
}

// BorrowerRecord is the persisted form of a Borrower.
type BorrowerRecord struct {
	Name  string   `json:"name"`
	ID    string   `json:"id"`
	Loans []string `json:"loans"`
}

func itemRecordFrom(item *models.Item) ItemRecord {
	c := item.Clone()
	rec := ItemRecord{
		Title:      c.Title,
		Creator:    c.Creator,
		ID:         c.ID,
		Year:       c.Year,
		Available:  c.Available,
		BorrowedBy: c.BorrowedBy,
	}
	if c.DueDate != nil {
		due := models.FormatDate(*c.DueDate)
		rec.DueDate = &due
	}
	return rec
}

func (r ItemRecord) toModel() (*models.Item, error) {
	item := &models.Item{
		ID:         r.ID,
		Title:      r.Title,
		Creator:    r.Creator,
		Year:       r.Year,
		Available:  r.Available,
		BorrowedBy: r.BorrowedBy,
	}
	if r.DueDate != nil {
		due, err := models.ParseDate(*r.DueDate)
		if err != nil {
			return nil, fmt.Errorf("invalid due date %q: %w", *r.DueDate, err)
		}
		item.DueDate = &due
	}
	return item, nil
}

func borrowerRecordFrom(b *models.Borrower) BorrowerRecord {
	c := b.Clone()
	return BorrowerRecord{Name: c.Name, ID: c.ID, Loans: c.Loans}
}

func (r BorrowerRecord) toModel() *models.Borrower {
	b := models.NewBorrower(r.ID, r.Name)
	b.Loans = append(b.Loans, r.Loans...)
	return b
}
