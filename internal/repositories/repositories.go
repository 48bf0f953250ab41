package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"lendingdesk/internal/models"
)

// ErrDuplicateID is returned when inserting a record whose identifier is already taken.
var ErrDuplicateID = errors.New("identifier already exists")

// Documents is a persistence medium holding the items and borrowers documents as a unit.
// Read returns empty maps when nothing has been persisted yet.
type Documents interface {
	Read(ctx context.Context) (Snapshot, error)
	Write(ctx context.Context, snap Snapshot) error
}

// CatalogStore owns every Item and Borrower record for the process lifetime.
// It is not safe for concurrent use; callers serialize access.
type CatalogStore struct {
	items     map[string]*models.Item
	borrowers map[string]*models.Borrower
	logger    *log.Logger
}

func NewCatalogStore(logger *log.Logger) *CatalogStore {
	if logger == nil {
		logger = log.Default()
	}
	return &CatalogStore{
		items:     map[string]*models.Item{},
		borrowers: map[string]*models.Borrower{},
		logger:    logger,
	}
}

func (s *CatalogStore) AddItem(item *models.Item) error {
	if _, ok := s.items[item.ID]; ok {
		return fmt.Errorf("%w: item %s", ErrDuplicateID, item.ID)
	}
	s.items[item.ID] = item
	return nil
}

func (s *CatalogStore) RegisterBorrower(borrower *models.Borrower) error {
	if _, ok := s.borrowers[borrower.ID]; ok {
		return fmt.Errorf("%w: borrower %s", ErrDuplicateID, borrower.ID)
	}
	s.borrowers[borrower.ID] = borrower
	return nil
}

func (s *CatalogStore) FindItem(id string) (*models.Item, bool) {
	item, ok := s.items[id]
	return item, ok
}

func (s *CatalogStore) FindBorrower(id string) (*models.Borrower, bool) {
	borrower, ok := s.borrowers[id]
	return borrower, ok
}

// Items returns all items ordered by identifier.
func (s *CatalogStore) Items() []*models.Item {
	out := make([]*models.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Borrowers returns all borrowers ordered by identifier.
func (s *CatalogStore) Borrowers() []*models.Borrower {
	out := make([]*models.Borrower, 0, len(s.borrowers))
	for _, b := range s.borrowers {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Load replaces the in-memory records with the persisted ones. The medium is
// trusted: records are not validated here.
func (s *CatalogStore) Load(ctx context.Context, docs Documents) error {
	snap, err := docs.Read(ctx)
	if err != nil {
		s.logger.Printf("[ERROR] Load: failed to read documents: %v", err)
		return err
	}

	items := make(map[string]*models.Item, len(snap.Items))
	for key, rec := range snap.Items {
		item, err := rec.toModel()
		if err != nil {
			return fmt.Errorf("item %s: %w", key, err)
		}
		items[key] = item
	}
	borrowers := make(map[string]*models.Borrower, len(snap.Borrowers))
	for key, rec := range snap.Borrowers {
		borrowers[key] = rec.toModel()
	}

	s.items = items
	s.borrowers = borrowers
	s.logger.Printf("[INFO] Load: loaded %d items and %d borrowers", len(items), len(borrowers))
	return nil
}

// Save writes both documents. The snapshot is fully built before the medium is touched.
func (s *CatalogStore) Save(ctx context.Context, docs Documents) error {
	snap := s.Snapshot()
	if err := docs.Write(ctx, snap); err != nil {
		s.logger.Printf("[ERROR] Save: failed to write documents: %v", err)
		return err
	}
	s.logger.Printf("[INFO] Save: wrote %d items and %d borrowers", len(snap.Items), len(snap.Borrowers))
	return nil
}

// Snapshot returns the persisted representation of the current records.
func (s *CatalogStore) Snapshot() Snapshot {
	snap := Snapshot{
		Items:     make(map[string]ItemRecord, len(s.items)),
		Borrowers: make(map[string]BorrowerRecord, len(s.borrowers)),
	}
	for id, item := range s.items {
		snap.Items[id] = itemRecordFrom(item)
	}
	for id, b := range s.borrowers {
		snap.Borrowers[id] = borrowerRecordFrom(b)
	}
	return snap
}
