package repositories

import (
	"context"

	"gorm.io/gorm"
)

// itemRow and borrowerRow mirror ItemRecord and BorrowerRecord as tables.
type itemRow struct {
	ID         string  `gorm:"primaryKey;size:64"`
	Title      string  `gorm:"size:255;not null"`
	Creator    string  `gorm:"size:255;not null"`
	Year       *int
	Available  bool    `gorm:"not null"`
	BorrowedBy *string `gorm:"size:64;index"`
	DueDate    *string `gorm:"size:10"`
}

func (itemRow) TableName() string { return "catalog_items" }

type borrowerRow struct {
	ID    string   `gorm:"primaryKey;size:64"`
	Name  string   `gorm:"size:255;not null"`
	Loans []string `gorm:"serializer:json;type:text;not null"`
}

func (borrowerRow) TableName() string { return "catalog_borrowers" }

const insertBatchSize = 200

// GormDocuments keeps the two documents as tables; a write replaces both tables
// inside one transaction.
type GormDocuments struct {
	db *gorm.DB
}

func NewGormDocuments(db *gorm.DB) *GormDocuments {
	return &GormDocuments{db: db}
}

// Migrate creates or updates the document tables.
func (d *GormDocuments) Migrate(ctx context.Context) error {
	return d.db.WithContext(ctx).AutoMigrate(&itemRow{}, &borrowerRow{})
}

func (d *GormDocuments) Read(ctx context.Context) (Snapshot, error) {
	db := d.db.WithContext(ctx)

	var items []itemRow
	if err := db.Order("id").Find(&items).Error; err != nil {
		return Snapshot{}, err
	}
	var borrowers []borrowerRow
	if err := db.Order("id").Find(&borrowers).Error; err != nil {
		return Snapshot{}, err
	}

	snap := emptySnapshot()
	for _, row := range items {
		snap.Items[row.ID] = ItemRecord{
			Title:      row.Title,
			Creator:    row.Creator,
			ID:         row.ID,
			Year:       row.Year,
			Available:  row.Available,
			BorrowedBy: row.BorrowedBy,
			DueDate:    row.DueDate,
		}
	}
	for _, row := range borrowers {
		loans := row.Loans
		if loans == nil {
			loans = []string{}
		}
		snap.Borrowers[row.ID] = BorrowerRecord{Name: row.Name, ID: row.ID, Loans: loans}
	}
	return snap, nil
}

func (d *GormDocuments) Write(ctx context.Context, snap Snapshot) error {
	items := make([]itemRow, 0, len(snap.Items))
	for _, rec := range snap.Items {
		items = append(items, itemRow{
			ID:         rec.ID,
			Title:      rec.Title,
			Creator:    rec.Creator,
			Year:       rec.Year,
			Available:  rec.Available,
			BorrowedBy: rec.BorrowedBy,
			DueDate:    rec.DueDate,
		})
	}
	borrowers := make([]borrowerRow, 0, len(snap.Borrowers))
	for _, rec := range snap.Borrowers {
		loans := rec.Loans
		if loans == nil {
			loans = []string{}
		}
		borrowers = append(borrowers, borrowerRow{ID: rec.ID, Name: rec.Name, Loans: loans})
	}

	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wipe := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := wipe.Delete(&itemRow{}).Error; err != nil {
			return err
		}
		if err := wipe.Delete(&borrowerRow{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.CreateInBatches(&items, insertBatchSize).Error; err != nil {
				return err
			}
		}
		if len(borrowers) > 0 {
			if err := tx.CreateInBatches(&borrowers, insertBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
