package services_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendingdesk/internal/models"
	"lendingdesk/internal/repositories"
	"lendingdesk/internal/services"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advanceDays(days int) { c.now = c.now.AddDate(0, 0, days) }

type fixture struct {
	store *repositories.CatalogStore
	docs  repositories.Documents
	clock *fakeClock
	svc   services.LendingService
}

func givenService(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repositories.NewCatalogStore(log.New(io.Discard, "", 0)),
		docs:  repositories.NewJSONFileDocuments(t.TempDir()),
		clock: &fakeClock{now: time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)},
	}
	f.svc = services.NewLendingService(f.store, f.docs,
		services.WithClock(f.clock.Now),
		services.WithLogger(log.New(io.Discard, "", 0)),
	)

	year := 2000
	_, err := f.svc.AddItem("B001", "Python Intro", "G. Guido", &year)
	require.NoError(t, err)
	_, err = f.svc.AddItem("B002", "Web Dev", "H. Harvey", nil)
	require.NoError(t, err)
	_, err = f.svc.RegisterBorrower("M001", "John Doe")
	require.NoError(t, err)
	_, err = f.svc.RegisterBorrower("M002", "Jane Smith")
	require.NoError(t, err)
	return f
}

func (f *fixture) item(t *testing.T, id string) *models.Item {
	t.Helper()
	item, ok := f.store.FindItem(id)
	require.True(t, ok)
	return item
}

func (f *fixture) borrower(t *testing.T, id string) *models.Borrower {
	t.Helper()
	b, ok := f.store.FindBorrower(id)
	require.True(t, ok)
	return b
}

func Test_Borrow_Success(t *testing.T) {
	// arrange
	f := givenService(t)

	// act
	loan, err := f.svc.Borrow("B001", "M001")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "2026-10-29", models.FormatDate(loan.DueDate))
	assert.Equal(t, "Item 'Python Intro' borrowed by John Doe. Due: 2026-10-29", loan.Message)
	item := f.item(t, "B001")
	assert.False(t, item.Available)
	assert.Equal(t, "M001", item.Holder())
	assert.Equal(t, []string{"B001"}, f.borrower(t, "M001").Loans)
	assert.Empty(t, f.svc.VerifyIntegrity())
}

func Test_Borrow_Fails_WhenAlreadyCheckedOutByAnother(t *testing.T) {
	// arrange
	f := givenService(t)
	_, err := f.svc.Borrow("B001", "M001")
	require.NoError(t, err)

	// act
	_, err = f.svc.Borrow("B001", "M002")

	// assert
	require.ErrorIs(t, err, models.ErrAlreadyCheckedOut)
	assert.Contains(t, err.Error(), "M001")
	assert.Equal(t, "M001", f.item(t, "B001").Holder())
	assert.Empty(t, f.borrower(t, "M002").Loans)
}

func Test_Borrow_CompensatesItem_WhenBorrowerAtLimit(t *testing.T) {
	// arrange
	f := givenService(t)
	for i := 1; i <= models.MaxLoans; i++ {
		id := fmt.Sprintf("X%03d", i)
		_, err := f.svc.AddItem(id, "Filler "+id, "Anon", nil)
		require.NoError(t, err)
		_, err = f.svc.Borrow(id, "M001")
		require.NoError(t, err)
	}
	before := f.item(t, "B002").Clone()

	// act
	_, err := f.svc.Borrow("B002", "M001")

	// assert
	require.ErrorIs(t, err, models.ErrLimitReached)
	assert.Contains(t, err.Error(), "5")
	assert.Equal(t, before, f.item(t, "B002").Clone())
	assert.True(t, f.item(t, "B002").Available)
	assert.Len(t, f.borrower(t, "M001").Loans, models.MaxLoans)
	assert.Empty(t, f.svc.VerifyIntegrity())
}

func Test_Borrow_And_Return_ResolutionErrors(t *testing.T) {
	testCases := []struct {
		name       string
		itemID     string
		borrowerID string
		expected   error
	}{
		{name: "unknown item", itemID: "B999", borrowerID: "M001", expected: services.ErrItemNotFound},
		{name: "unknown borrower", itemID: "B001", borrowerID: "M999", expected: services.ErrBorrowerNotFound},
		{name: "both unknown reports the item", itemID: "B999", borrowerID: "M999", expected: services.ErrItemNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := givenService(t)

			_, borrowErr := f.svc.Borrow(tc.itemID, tc.borrowerID)
			_, returnErr := f.svc.Return(tc.itemID, tc.borrowerID)

			assert.ErrorIs(t, borrowErr, tc.expected)
			assert.ErrorIs(t, borrowErr, services.ErrNotFound)
			assert.ErrorIs(t, returnErr, tc.expected)
			assert.True(t, f.item(t, "B001").Available)
		})
	}
}

func Test_Return_OnTime_RestoresBothRecords(t *testing.T) {
	// arrange
	f := givenService(t)
	_, err := f.svc.Borrow("B001", "M001")
	require.NoError(t, err)

	// act
	ret, err := f.svc.Return("B001", "M001")

	// assert
	require.NoError(t, err)
	assert.False(t, ret.Overdue)
	assert.Zero(t, ret.FineCents)
	assert.Contains(t, ret.Message, "returned successfully")
	item := f.item(t, "B001")
	assert.True(t, item.Available)
	assert.Nil(t, item.BorrowedBy)
	assert.Nil(t, item.DueDate)
	assert.Empty(t, f.borrower(t, "M001").Loans)
}

func Test_Return_Overdue_ChargesFine(t *testing.T) {
	// arrange
	f := givenService(t)
	_, err := f.svc.Borrow("B001", "M001")
	require.NoError(t, err)
	f.clock.advanceDays(models.DefaultLoanPeriodDays + 5)

	// act
	ret, err := f.svc.Return("B001", "M001")

	// assert
	require.NoError(t, err)
	assert.True(t, ret.Overdue)
	assert.Equal(t, 5, ret.DaysOverdue)
	assert.Equal(t, 250, ret.FineCents)
	assert.Contains(t, ret.Message, "Overdue by 5 days")
	assert.Contains(t, ret.Message, "Fine: $2.50")
}

func Test_Return_DueToday_IsNotOverdue(t *testing.T) {
	f := givenService(t)
	_, err := f.svc.Borrow("B001", "M001")
	require.NoError(t, err)
	f.clock.advanceDays(models.DefaultLoanPeriodDays)

	ret, err := f.svc.Return("B001", "M001")

	require.NoError(t, err)
	assert.False(t, ret.Overdue)
	assert.Zero(t, ret.FineCents)
}

func Test_Return_Fails_WhenBorrowerDoesNotHoldItem(t *testing.T) {
	// arrange
	f := givenService(t)
	_, err := f.svc.Borrow("B001", "M001")
	require.NoError(t, err)

	// act
	_, wrongBorrower := f.svc.Return("B001", "M002")
	_, notLent := f.svc.Return("B002", "M001")

	// assert
	assert.ErrorIs(t, wrongBorrower, models.ErrLoanNotFound)
	assert.NotErrorIs(t, wrongBorrower, services.ErrInconsistentState)
	assert.ErrorIs(t, notLent, models.ErrLoanNotFound)
	assert.Equal(t, "M001", f.item(t, "B001").Holder())
}

func Test_Return_Fails_WhenRecordsDisagree(t *testing.T) {
	testCases := []struct {
		name    string
		corrupt func(f *fixture)
	}{
		{
			name: "item held but missing from borrower's loans",
			corrupt: func(f *fixture) {
				b, _ := f.store.FindBorrower("M001")
				b.Loans = []string{}
			},
		},
		{
			name: "borrower lists an available item",
			corrupt: func(f *fixture) {
				item, _ := f.store.FindItem("B001")
				item.Available = true
				item.BorrowedBy = nil
				item.DueDate = nil
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			f := givenService(t)
			_, err := f.svc.Borrow("B001", "M001")
			require.NoError(t, err)
			tc.corrupt(f)
			itemBefore := f.item(t, "B001").Clone()
			borrowerBefore := f.borrower(t, "M001").Clone()

			// act
			_, err = f.svc.Return("B001", "M001")

			// assert
			require.ErrorIs(t, err, services.ErrInconsistentState)
			assert.Equal(t, itemBefore, f.item(t, "B001").Clone())
			assert.Equal(t, borrowerBefore, f.borrower(t, "M001").Clone())
			assert.NotEmpty(t, f.svc.VerifyIntegrity())
			outcome := services.OutcomeOf("", err)
			assert.False(t, outcome.Success)
			assert.Contains(t, outcome.Message, "DATA INTEGRITY ERROR")
		})
	}
}

func Test_Return_ByAnotherBorrower_Fails_WhenHolderRecordIsBroken(t *testing.T) {
	testCases := []struct {
		name    string
		corrupt func(t *testing.T, f *fixture)
	}{
		{
			name: "holder no longer lists the item",
			corrupt: func(t *testing.T, f *fixture) {
				f.borrower(t, "M001").Loans = []string{}
			},
		},
		{
			name: "holder is not registered",
			corrupt: func(t *testing.T, f *fixture) {
				ghost := "M404"
				f.item(t, "B001").BorrowedBy = &ghost
				f.borrower(t, "M001").Loans = []string{}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			f := givenService(t)
			_, err := f.svc.Borrow("B001", "M001")
			require.NoError(t, err)
			tc.corrupt(t, f)
			itemBefore := f.item(t, "B001").Clone()

			// act
			_, err = f.svc.Return("B001", "M002")

			// assert
			require.ErrorIs(t, err, services.ErrInconsistentState)
			assert.NotErrorIs(t, err, models.ErrLoanNotFound)
			assert.Equal(t, itemBefore, f.item(t, "B001").Clone())
			assert.Equal(t, []string{}, f.borrower(t, "M002").Loans)
		})
	}
}

func Test_Borrow_Fails_WhenBorrowerAlreadyListsItem(t *testing.T) {
	testCases := []struct {
		name    string
		corrupt func(t *testing.T, f *fixture)
	}{
		{
			name: "item is available",
			corrupt: func(t *testing.T, f *fixture) {
				f.borrower(t, "M001").Loans = []string{"B002"}
			},
		},
		{
			name: "item is held by another borrower",
			corrupt: func(t *testing.T, f *fixture) {
				_, err := f.svc.Borrow("B002", "M002")
				require.NoError(t, err)
				f.borrower(t, "M001").Loans = []string{"B002"}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			f := givenService(t)
			tc.corrupt(t, f)
			itemBefore := f.item(t, "B002").Clone()

			// act
			loan, err := f.svc.Borrow("B002", "M001")

			// assert
			require.ErrorIs(t, err, services.ErrInconsistentState)
			assert.Nil(t, loan)
			assert.Equal(t, itemBefore, f.item(t, "B002").Clone())
			assert.Equal(t, []string{"B002"}, f.borrower(t, "M001").Loans)
		})
	}
}

func Test_AddItem_And_RegisterBorrower(t *testing.T) {
	f := givenService(t)

	_, dupItem := f.svc.AddItem("B001", "Again", "Someone", nil)
	_, dupBorrower := f.svc.RegisterBorrower("M001", "Again")
	_, noTitle := f.svc.AddItem("B003", "  ", "Someone", nil)
	generated, err := f.svc.RegisterBorrower("", "Generated Id")

	assert.ErrorIs(t, dupItem, repositories.ErrDuplicateID)
	assert.ErrorIs(t, dupBorrower, repositories.ErrDuplicateID)
	assert.ErrorIs(t, noTitle, services.ErrInvalidInput)
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
	assert.Equal(t, []string{}, generated.Loans)
	_, err = f.svc.GetBorrower(generated.ID)
	assert.NoError(t, err)
}

func Test_SearchItems(t *testing.T) {
	f := givenService(t)

	byTitle := f.svc.SearchItems("python")
	byCreator := f.svc.SearchItems("HARVEY")
	all := f.svc.SearchItems("")
	none := f.svc.SearchItems("cobol")

	require.Len(t, byTitle, 1)
	assert.Equal(t, "B001", byTitle[0].ID)
	require.Len(t, byCreator, 1)
	assert.Equal(t, "B002", byCreator[0].ID)
	assert.Len(t, all, 2)
	assert.Empty(t, none)
}

func Test_Stats_And_OverdueItems(t *testing.T) {
	// arrange
	f := givenService(t)
	_, err := f.svc.Borrow("B001", "M001")
	require.NoError(t, err)
	f.clock.advanceDays(3)
	_, err = f.svc.Borrow("B002", "M002")
	require.NoError(t, err)
	f.clock.advanceDays(models.DefaultLoanPeriodDays)

	// act
	stats := f.svc.Stats()
	overdue := f.svc.OverdueItems()

	// assert
	assert.Equal(t, services.Stats{TotalItems: 2, AvailableItems: 0, TotalBorrowers: 2, OnLoan: 2, Overdue: 1}, stats)
	require.Len(t, overdue, 1)
	assert.Equal(t, "B001", overdue[0].Item.ID)
	assert.Equal(t, 3, overdue[0].DaysOverdue)
	require.NotNil(t, overdue[0].Borrower)
	assert.Equal(t, "John Doe", overdue[0].Borrower.Name)
}

func Test_OverdueItems_UnknownHolder(t *testing.T) {
	f := givenService(t)
	item := f.item(t, "B001")
	holder := "M404"
	due := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	item.Available = false
	item.BorrowedBy = &holder
	item.DueDate = &due

	overdue := f.svc.OverdueItems()

	require.Len(t, overdue, 1)
	assert.Nil(t, overdue[0].Borrower)
	assert.Equal(t, 14, overdue[0].DaysOverdue)
	assert.Contains(t, f.svc.VerifyIntegrity(), services.Violation{ItemID: "B001", BorrowerID: "M404", Reason: "held by an unregistered borrower"})
}

func Test_SaveAndLoad_RoundTrip(t *testing.T) {
	// arrange
	f := givenService(t)
	_, err := f.svc.Borrow("B001", "M001")
	require.NoError(t, err)
	require.NoError(t, f.svc.Save(context.Background()))

	restarted := services.NewLendingService(
		repositories.NewCatalogStore(log.New(io.Discard, "", 0)),
		f.docs,
		services.WithClock(f.clock.Now),
		services.WithLogger(log.New(io.Discard, "", 0)),
	)

	// act
	require.NoError(t, restarted.Load(context.Background()))

	// assert
	item, err := restarted.GetItem("B001")
	require.NoError(t, err)
	assert.Equal(t, f.item(t, "B001").Clone(), item)
	borrower, err := restarted.GetBorrower("M001")
	require.NoError(t, err)
	assert.Equal(t, []string{"B001"}, borrower.Loans)
	empty, err := restarted.GetBorrower("M002")
	require.NoError(t, err)
	assert.Equal(t, []string{}, empty.Loans)
	assert.Equal(t, f.svc.Stats(), restarted.Stats())

	_, err = restarted.Return("B001", "M001")
	assert.NoError(t, err)
}

func Test_WithLoanPeriod(t *testing.T) {
	store := repositories.NewCatalogStore(log.New(io.Discard, "", 0))
	clock := &fakeClock{now: time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)}
	svc := services.NewLendingService(store, repositories.NewJSONFileDocuments(t.TempDir()),
		services.WithClock(clock.Now),
		services.WithLoanPeriod(7),
		services.WithLogger(log.New(io.Discard, "", 0)),
	)
	_, err := svc.AddItem("B001", "Python Intro", "G. Guido", nil)
	require.NoError(t, err)
	_, err = svc.RegisterBorrower("M001", "John Doe")
	require.NoError(t, err)

	loan, err := svc.Borrow("B001", "M001")

	require.NoError(t, err)
	assert.Equal(t, "2026-10-22", models.FormatDate(loan.DueDate))
}

func Test_FormatFine(t *testing.T) {
	assert.Equal(t, "0.50", services.FormatFine(50))
	assert.Equal(t, "2.50", services.FormatFine(250))
	assert.Equal(t, "12.00", services.FormatFine(1200))
}
