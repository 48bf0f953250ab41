// Package console runs the interactive lending desk menu over a reader and writer.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lendingdesk/internal/models"
	"lendingdesk/internal/services"
)

const menu = `
================================
      LENDING DESK
================================
1. Add New Item
2. Register New Borrower
3. Borrow Item
4. Return Item
5. Search Items
6. View Statistics
7. View Overdue Items
9. Save & Exit
0. Exit Without Saving
================================`

type Console struct {
	svc     services.LendingService
	scanner *bufio.Scanner
	out     io.Writer
}

func New(svc services.LendingService, in io.Reader, out io.Writer) *Console {
	return &Console{svc: svc, scanner: bufio.NewScanner(in), out: out}
}

// Run loops over menu choices until the operator exits or input ends.
// End of input exits without saving.
func (c *Console) Run(ctx context.Context) error {
	for {
		c.println(menu)
		choice, ok := c.prompt("Enter your choice: ")
		if !ok {
			c.println("\nInput closed. Exiting without saving.")
			return nil
		}

		switch choice {
		case "1":
			c.addItem()
		case "2":
			c.registerBorrower()
		case "3":
			c.borrow()
		case "4":
			c.returnItem()
		case "5":
			c.search()
		case "6":
			c.stats()
		case "7":
			c.overdue()
		case "9":
			if err := c.svc.Save(ctx); err != nil {
				c.printf("Save failed: %v\n", err)
				return err
			}
			c.println("\nData saved successfully.")
			c.println("Exiting application. Goodbye!")
			return nil
		case "0":
			c.println("Exiting without saving data. Goodbye!")
			return nil
		default:
			c.println("Invalid choice. Please try again.")
		}
	}
}

func (c *Console) addItem() {
	c.println("\n--- Add New Item ---")
	title, _ := c.prompt("Enter Title: ")
	creator, _ := c.prompt("Enter Creator: ")
	id, _ := c.prompt("Enter Item ID (blank to generate): ")
	yearRaw, _ := c.prompt("Enter Publication Year (optional): ")

	var year *int
	if yearRaw != "" {
		y, err := strconv.Atoi(yearRaw)
		if err != nil {
			c.printf("Error: invalid year %q.\n", yearRaw)
			return
		}
		year = &y
	}

	item, err := c.svc.AddItem(id, title, creator, year)
	c.report(services.OutcomeOf(fmt.Sprintf("Item '%s' added with ID %s.", item.Title, item.ID), err))
}

func (c *Console) registerBorrower() {
	c.println("\n--- Register New Borrower ---")
	name, _ := c.prompt("Enter Borrower Name: ")
	id, _ := c.prompt("Enter Borrower ID (blank to generate): ")

	borrower, err := c.svc.RegisterBorrower(id, name)
	c.report(services.OutcomeOf(fmt.Sprintf("Borrower '%s' registered with ID %s.", borrower.Name, borrower.ID), err))
}

func (c *Console) borrow() {
	c.println("\n--- Borrow Item ---")
	itemID, _ := c.prompt("Enter Item ID: ")
	borrowerID, _ := c.prompt("Enter Borrower ID: ")

	loan, err := c.svc.Borrow(itemID, borrowerID)
	msg := ""
	if loan != nil {
		msg = loan.Message
	}
	c.report(services.OutcomeOf(msg, err))
}

func (c *Console) returnItem() {
	c.println("\n--- Return Item ---")
	itemID, _ := c.prompt("Enter Item ID: ")
	borrowerID, _ := c.prompt("Enter Borrower ID: ")

	ret, err := c.svc.Return(itemID, borrowerID)
	msg := ""
	if ret != nil {
		msg = ret.Message
	}
	c.report(services.OutcomeOf(msg, err))
}

func (c *Console) search() {
	c.println("\n--- Search Items ---")
	query, _ := c.prompt("Enter title or creator (blank for all): ")

	items := c.svc.SearchItems(query)
	if len(items) == 0 {
		c.println("No matching items.")
		return
	}
	for _, item := range items {
		status := "available"
		switch {
		case item.Available:
		case item.DueDate == nil:
			status = "on loan"
		default:
			status = "on loan, due " + models.FormatDate(*item.DueDate)
		}
		c.printf("* [%s] '%s' by %s (%s)\n", item.ID, item.Title, item.Creator, status)
	}
}

func (c *Console) stats() {
	s := c.svc.Stats()
	c.println("\n--- Statistics ---")
	c.println(strings.Repeat("-", 25))
	c.printf("- Total Items: %d\n", s.TotalItems)
	c.printf("- Available Items: %d\n", s.AvailableItems)
	c.printf("- Total Borrowers: %d\n", s.TotalBorrowers)
	c.printf("- Items On Loan: %d\n", s.OnLoan)
	c.printf("- Overdue Items: %d\n", s.Overdue)
	c.println(strings.Repeat("-", 25))
}

func (c *Console) overdue() {
	c.println("\n--- Overdue Items ---")
	entries := c.svc.OverdueItems()
	if len(entries) == 0 {
		c.println("No items are currently overdue.")
		return
	}
	for _, e := range entries {
		holder := "Unknown"
		if e.Borrower != nil {
			holder = e.Borrower.Name
		}
		c.printf("* '%s' by %s\n", e.Item.Title, e.Item.Creator)
		c.printf("  Borrowed by: %s\n", holder)
		c.printf("  Due Date: %s, Overdue by: %d days.\n", models.FormatDate(*e.Item.DueDate), e.DaysOverdue)
	}
}

func (c *Console) report(o services.Outcome) {
	c.println(o.Message)
}

// prompt reads one trimmed line; ok is false once input is exhausted.
func (c *Console) prompt(label string) (string, bool) {
	c.printf("%s", label)
	if !c.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.scanner.Text()), true
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
