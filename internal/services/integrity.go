package services

import (
	"fmt"

	"lendingdesk/internal/models"
	"lendingdesk/internal/repositories"
)

// Violation describes one broken rule between the catalog's records.
type Violation struct {
	ItemID     string `json:"item_id,omitempty"`
	BorrowerID string `json:"borrower_id,omitempty"`
	Reason     string `json:"reason"`
}

func (v Violation) String() string {
	return fmt.Sprintf("item=%s borrower=%s: %s", v.ItemID, v.BorrowerID, v.Reason)
}

// verifyLoan checks that item and borrower agree that the borrower holds the item.
//
// When neither side records the loan, the pair itself is consistent and the
// caller simply does not hold the item: ErrLoanNotFound, a user mistake. If the
// item is on loan to someone else whose record does not back that loan, the
// catalog is corrupt and ErrInconsistentState is returned instead.
func verifyLoan(store *repositories.CatalogStore, item *models.Item, borrower *models.Borrower) error {
	itemSide := !item.Available && item.Holder() == borrower.ID
	borrowerSide := borrower.HasLoan(item.ID)

	switch {
	case itemSide && borrowerSide:
		return nil
	case !itemSide && !borrowerSide:
		if !item.Available {
			holder, ok := store.FindBorrower(item.Holder())
			if !ok || !holder.HasLoan(item.ID) {
				return fmt.Errorf("%w: item %s is held by %s but no such loan is recorded for that borrower", ErrInconsistentState, item.ID, item.Holder())
			}
		}
		return fmt.Errorf("%w: item %s is not on loan to borrower %s", models.ErrLoanNotFound, item.ID, borrower.ID)
	case itemSide:
		return fmt.Errorf("%w: item %s is held by %s but missing from the borrower's loans", ErrInconsistentState, item.ID, borrower.ID)
	default:
		return fmt.Errorf("%w: borrower %s lists item %s but the item is %s", ErrInconsistentState, borrower.ID, item.ID, describeHolder(item))
	}
}

// verifyNotListed rejects a borrow when the borrower already lists the item, so
// loans never hold duplicate entries.
func verifyNotListed(item *models.Item, borrower *models.Borrower) error {
	if borrower.HasLoan(item.ID) {
		return fmt.Errorf("%w: borrower %s already lists item %s but the item is %s", ErrInconsistentState, borrower.ID, item.ID, describeHolder(item))
	}
	return nil
}

func describeHolder(item *models.Item) string {
	if item.Available {
		return "available"
	}
	return "held by " + item.Holder()
}

// VerifyIntegrity checks every record against the availability and cross-entity rules.
func (s *lendingService) VerifyIntegrity() []Violation {
	s.mu.Lock()
	defer s.mu.Unlock()

	return checkIntegrity(s.store)
}

func checkIntegrity(store *repositories.CatalogStore) []Violation {
	violations := []Violation{}

	for _, item := range store.Items() {
		if item.Available != (item.BorrowedBy == nil) || item.Available != (item.DueDate == nil) {
			violations = append(violations, Violation{ItemID: item.ID, Reason: "availability, borrower and due date disagree"})
			continue
		}
		if item.Available {
			continue
		}
		borrower, ok := store.FindBorrower(item.Holder())
		if !ok {
			violations = append(violations, Violation{ItemID: item.ID, BorrowerID: item.Holder(), Reason: "held by an unregistered borrower"})
			continue
		}
		if !borrower.HasLoan(item.ID) {
			violations = append(violations, Violation{ItemID: item.ID, BorrowerID: borrower.ID, Reason: "missing from the holder's loans"})
		}
	}

	for _, borrower := range store.Borrowers() {
		if len(borrower.Loans) > models.MaxLoans {
			violations = append(violations, Violation{BorrowerID: borrower.ID, Reason: fmt.Sprintf("holds %d items, more than %d", len(borrower.Loans), models.MaxLoans)})
		}
		seen := map[string]bool{}
		for _, itemID := range borrower.Loans {
			if seen[itemID] {
				violations = append(violations, Violation{ItemID: itemID, BorrowerID: borrower.ID, Reason: "listed more than once"})
				continue
			}
			seen[itemID] = true

			item, ok := store.FindItem(itemID)
			switch {
			case !ok:
				violations = append(violations, Violation{ItemID: itemID, BorrowerID: borrower.ID, Reason: "loan references an unknown item"})
			case item.Available || item.Holder() != borrower.ID:
				violations = append(violations, Violation{ItemID: itemID, BorrowerID: borrower.ID, Reason: "loan not recorded on the item"})
			}
		}
	}
	return violations
}
