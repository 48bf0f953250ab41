package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lendingdesk/internal/models"
	"lendingdesk/internal/repositories"
)

// ─── Fine Calculation Constants ───────────────────────────────────────────────

// FinePerDayCents is the fine charged per whole day overdue, in cents.
const FinePerDayCents = 50

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrNotFound is wrapped by every lookup failure.
	ErrNotFound = errors.New("not found")

	// ErrItemNotFound is returned when an item identifier does not resolve.
	ErrItemNotFound = fmt.Errorf("item %w", ErrNotFound)

	// ErrBorrowerNotFound is returned when a borrower identifier does not resolve.
	ErrBorrowerNotFound = fmt.Errorf("borrower %w", ErrNotFound)

	// ErrInconsistentState is returned when an item and a borrower disagree about a
	// loan. It points at corrupted persisted data, never at a user mistake.
	ErrInconsistentState = errors.New("borrow records are inconsistent")

	// ErrInvalidInput is returned when a new record lacks a required field.
	ErrInvalidInput = errors.New("invalid input")
)

// ─── Service Interface ────────────────────────────────────────────────────────

// LendingService defines the application-level operations of the lending desk.
type LendingService interface {
	AddItem(id, title, creator string, year *int) (models.Item, error)
	RegisterBorrower(id, name string) (models.Borrower, error)
	GetItem(id string) (models.Item, error)
	GetBorrower(id string) (models.Borrower, error)
	SearchItems(query string) []models.Item

	Borrow(itemID, borrowerID string) (*Loan, error)
	Return(itemID, borrowerID string) (*Return, error)

	Stats() Stats
	OverdueItems() []OverdueEntry
	VerifyIntegrity() []Violation

	Load(ctx context.Context) error
	Save(ctx context.Context) error
}

// Loan is the receipt of a successful borrow.
type Loan struct {
	ItemID     string    `json:"item_id"`
	BorrowerID string    `json:"borrower_id"`
	DueDate    time.Time `json:"due_date"`
	Message    string    `json:"message"`
}

// Return is the receipt of a successful return.
type Return struct {
	ItemID      string `json:"item_id"`
	BorrowerID  string `json:"borrower_id"`
	Overdue     bool   `json:"overdue"`
	DaysOverdue int    `json:"days_overdue"`
	FineCents   int    `json:"fine_cents"`
	Message     string `json:"message"`
}

// Stats summarises the catalog.
type Stats struct {
	TotalItems     int `json:"total_items"`
	AvailableItems int `json:"available_items"`
	TotalBorrowers int `json:"total_borrowers"`
	OnLoan         int `json:"on_loan"`
	Overdue        int `json:"overdue"`
}

// OverdueEntry is one line of the overdue listing. Borrower is nil when the
// holder is not registered.
type OverdueEntry struct {
	Item        models.Item      `json:"item"`
	Borrower    *models.Borrower `json:"borrower"`
	DaysOverdue int              `json:"days_overdue"`
}

// Option customises a lending service.
type Option func(*lendingService)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *lendingService) { s.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *lendingService) { s.logger = logger }
}

// WithLoanPeriod overrides models.DefaultLoanPeriodDays.
func WithLoanPeriod(days int) Option {
	return func(s *lendingService) { s.loanPeriodDays = days }
}

// ─── Implementation ───────────────────────────────────────────────────────────

// lendingService serializes every operation behind mu, so each transaction runs
// to completion before the next one starts.
type lendingService struct {
	mu             sync.Mutex
	store          *repositories.CatalogStore
	docs           repositories.Documents
	now            func() time.Time
	logger         *log.Logger
	loanPeriodDays int
}

// NewLendingService wires up the store and its persistence medium.
func NewLendingService(store *repositories.CatalogStore, docs repositories.Documents, opts ...Option) LendingService {
	s := &lendingService{
		store:          store,
		docs:           docs,
		now:            time.Now,
		logger:         log.Default(),
		loanPeriodDays: models.DefaultLoanPeriodDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *lendingService) today() time.Time {
	return models.DateOf(s.now())
}

// ─── Catalog Management ───────────────────────────────────────────────────────

// AddItem inserts a new available item. An empty id is replaced by a generated one.
func (s *lendingService) AddItem(id, title, creator string, year *int) (models.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Item{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := models.NewItem(id, title, strings.TrimSpace(creator), year)
	if err := s.store.AddItem(item); err != nil {
		s.logger.Printf("[WARN] AddItem: %v", err)
		return models.Item{}, err
	}
	s.logger.Printf("[INFO] AddItem: added item %q (id=%s)", item.Title, item.ID)
	return item.Clone(), nil
}

// RegisterBorrower inserts a borrower with no loans. An empty id is replaced by a generated one.
func (s *lendingService) RegisterBorrower(id, name string) (models.Borrower, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Borrower{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	borrower := models.NewBorrower(id, name)
	if err := s.store.RegisterBorrower(borrower); err != nil {
		s.logger.Printf("[WARN] RegisterBorrower: %v", err)
		return models.Borrower{}, err
	}
	s.logger.Printf("[INFO] RegisterBorrower: registered %q (id=%s)", borrower.Name, borrower.ID)
	return borrower.Clone(), nil
}

func (s *lendingService) GetItem(id string) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.store.FindItem(id)
	if !ok {
		return models.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return item.Clone(), nil
}

func (s *lendingService) GetBorrower(id string) (models.Borrower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	borrower, ok := s.store.FindBorrower(id)
	if !ok {
		return models.Borrower{}, fmt.Errorf("%w: %s", ErrBorrowerNotFound, id)
	}
	return borrower.Clone(), nil
}

// SearchItems returns items whose title or creator contains query, ignoring case.
// An empty query matches everything.
func (s *lendingService) SearchItems(query string) []models.Item {
	needle := strings.ToLower(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	results := []models.Item{}
	for _, item := range s.store.Items() {
		if needle == "" ||
			strings.Contains(strings.ToLower(item.Title), needle) ||
			strings.Contains(strings.ToLower(item.Creator), needle) {
			results = append(results, item.Clone())
		}
	}
	return results
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// Borrow lends an item to a borrower.
//
// A borrower that already lists the item is rejected before anything changes.
// The item is then checked out first. If the borrower cannot take the loan, the
// checkout is undone so that neither record changes.
func (s *lendingService) Borrow(itemID, borrowerID string) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, borrower, err := s.resolve(itemID, borrowerID)
	if err != nil {
		return nil, err
	}

	if err := verifyNotListed(item, borrower); err != nil {
		s.logger.Printf("[ERROR] Borrow: %v", err)
		return nil, err
	}

	today := s.today()
	due, err := item.CheckOut(borrower.ID, today, s.loanPeriodDays)
	if err != nil {
		s.logger.Printf("[WARN] Borrow: item %s for borrower %s: %v", itemID, borrowerID, err)
		return nil, err
	}

	if err := borrower.AddLoan(item.ID); err != nil {
		if _, undoErr := item.CheckIn(today); undoErr != nil {
			s.logger.Printf("[ERROR] Borrow: failed to undo checkout of item %s: %v", itemID, undoErr)
		}
		s.logger.Printf("[WARN] Borrow: borrower %s cannot take item %s: %v", borrowerID, itemID, err)
		return nil, err
	}

	loan := &Loan{
		ItemID:     item.ID,
		BorrowerID: borrower.ID,
		DueDate:    due,
		Message:    fmt.Sprintf("Item '%s' borrowed by %s. Due: %s", item.Title, borrower.Name, models.FormatDate(due)),
	}
	s.logger.Printf("[INFO] Borrow: item %s lent to borrower %s, due %s", item.ID, borrower.ID, models.FormatDate(due))
	return loan, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// Return takes an item back from a borrower and computes any overdue fine.
//
// Steps:
//  1. Resolve both records.
//  2. Verify both records agree on the loan.
//  3. Check the item in, capturing overdue days.
//  4. Remove the loan from the borrower.
//  5. Charge FinePerDayCents per overdue day.
func (s *lendingService) Return(itemID, borrowerID string) (*Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, borrower, err := s.resolve(itemID, borrowerID)
	if err != nil {
		return nil, err
	}

	if err := verifyLoan(s.store, item, borrower); err != nil {
		if errors.Is(err, ErrInconsistentState) {
			s.logger.Printf("[ERROR] Return: %v", err)
		} else {
			s.logger.Printf("[WARN] Return: %v", err)
		}
		return nil, err
	}

	checkIn, err := item.CheckIn(s.today())
	if err != nil {
		return nil, err
	}
	if err := borrower.RemoveLoan(item.ID); err != nil {
		// verifyLoan guarantees the loan is present.
		s.logger.Printf("[ERROR] Return: %v", err)
		return nil, err
	}

	ret := &Return{
		ItemID:      item.ID,
		BorrowerID:  borrower.ID,
		Overdue:     checkIn.Overdue,
		DaysOverdue: checkIn.DaysOverdue,
	}
	if checkIn.Overdue {
		ret.FineCents = checkIn.DaysOverdue * FinePerDayCents
		ret.Message = fmt.Sprintf("Item '%s' returned successfully but was overdue. Overdue by %d days. Fine: $%s",
			item.Title, ret.DaysOverdue, FormatFine(ret.FineCents))
	} else {
		ret.Message = fmt.Sprintf("Item '%s' returned successfully.", item.Title)
	}
	s.logger.Printf("[INFO] Return: item %s returned by borrower %s, days overdue=%d, fine=%d", item.ID, borrower.ID, ret.DaysOverdue, ret.FineCents)
	return ret, nil
}

// ─── Reports ──────────────────────────────────────────────────────────────────

func (s *lendingService) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today()
	items := s.store.Items()
	stats := Stats{
		TotalItems:     len(items),
		TotalBorrowers: len(s.store.Borrowers()),
	}
	for _, item := range items {
		if item.Available {
			stats.AvailableItems++
		} else {
			stats.OnLoan++
		}
		if item.IsOverdue(today) {
			stats.Overdue++
		}
	}
	return stats
}

// OverdueItems lists every overdue item with its holder, ordered by item identifier.
func (s *lendingService) OverdueItems() []OverdueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today()
	entries := []OverdueEntry{}
	for _, item := range s.store.Items() {
		if !item.IsOverdue(today) {
			continue
		}
		entry := OverdueEntry{Item: item.Clone(), DaysOverdue: item.DaysOverdue(today)}
		if borrower, ok := s.store.FindBorrower(item.Holder()); ok {
			b := borrower.Clone()
			entry.Borrower = &b
		}
		entries = append(entries, entry)
	}
	return entries
}

// ─── Persistence ──────────────────────────────────────────────────────────────

// Load replaces the catalog with the persisted one and reports integrity problems.
func (s *lendingService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Load(ctx, s.docs); err != nil {
		return err
	}
	for _, v := range checkIntegrity(s.store) {
		s.logger.Printf("[WARN] Load: integrity violation: %s", v)
	}
	return nil
}

func (s *lendingService) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Save(ctx, s.docs)
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

// resolve looks up both records; a missing item is reported before a missing borrower.
func (s *lendingService) resolve(itemID, borrowerID string) (*models.Item, *models.Borrower, error) {
	item, ok := s.store.FindItem(itemID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	borrower, ok := s.store.FindBorrower(borrowerID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrBorrowerNotFound, borrowerID)
	}
	return item, borrower, nil
}

// FormatFine renders cents as a decimal amount, e.g. 250 -> "2.50".
func FormatFine(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
