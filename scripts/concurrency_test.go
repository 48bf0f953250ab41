//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the lending desk API.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <item_id> <borrower1_id> [borrower2_id ...]
//
// Or use the convenience environment variables:
//
//	ITEM_ID=B001  BORROWER_IDS=M001,M002,...  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires N goroutines (one per borrower) all attempting to borrow the same item simultaneously.
//  2. Prints how many succeeded and how many were rejected as already checked out.
//  3. Reads GET /integrity and fails unless exactly one borrow succeeded and the records agree.
//
// Prerequisites:
//   - Server must be running (LENDING_MODE=server).
//   - The item must be available and every borrower registered with room for one more loan.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	BorrowerID string
	StatusCode int
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	itemID := os.Getenv("ITEM_ID")
	var borrowerIDs []string
	if env := os.Getenv("BORROWER_IDS"); env != "" {
		borrowerIDs = strings.Split(env, ",")
	}

	args := os.Args[1:]
	if len(args) >= 1 {
		itemID = args[0]
	}
	if len(args) >= 2 {
		borrowerIDs = args[1:]
	}

	if itemID == "" {
		log.Fatal("Usage: ITEM_ID=<id> BORROWER_IDS=<b1,b2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <item_id> <borrower1_id> [borrower2_id ...]")
	}
	if len(borrowerIDs) == 0 {
		log.Fatal("At least one borrower ID must be provided via BORROWER_IDS env or positional args")
	}

	fmt.Printf("=== Lending Desk Concurrency Test ===\n")
	fmt.Printf("Server    : %s\n", serverAddr)
	fmt.Printf("Item      : %s\n", itemID)
	fmt.Printf("Borrowers : %d\n\n", len(borrowerIDs))

	results := make([]borrowResult, len(borrowerIDs))
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i, bid := range borrowerIDs {
		wg.Add(1)
		go func(idx int, borrowerID string) {
			defer wg.Done()
			<-start
			results[idx] = attemptBorrow(serverAddr, itemID, strings.TrimSpace(borrowerID))
		}(i, bid)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()

	var lent, rejected, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] borrower=%-20s err=%v\n", r.BorrowerID, r.Err)
		case r.StatusCode == http.StatusOK:
			lent++
			fmt.Printf("  [LENT] borrower=%-20s\n", r.BorrowerID)
		case r.StatusCode == http.StatusConflict:
			rejected++
			fmt.Printf("  [BUSY] borrower=%-20s\n", r.BorrowerID)
		default:
			failures++
			fmt.Printf("  [FAIL] borrower=%-20s status=%d\n", r.BorrowerID, r.StatusCode)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Lent     : %d\n", lent)
	fmt.Printf("Rejected : %d\n", rejected)
	fmt.Printf("Failures : %d\n\n", failures)

	consistent, err := checkIntegrity(serverAddr)
	if err != nil {
		log.Fatalf("integrity check failed: %v", err)
	}
	fmt.Printf("Records consistent: %v\n", consistent)

	if lent != 1 || failures > 0 || !consistent {
		fmt.Println("\n[WARNING] expected exactly one successful borrow and consistent records.")
		os.Exit(1)
	}
}

func attemptBorrow(serverAddr, itemID, borrowerID string) borrowResult {
	url := fmt.Sprintf("%s/items/%s/borrow", serverAddr, itemID)
	body := fmt.Sprintf(`{"borrower_id":%q}`, borrowerID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		return borrowResult{BorrowerID: borrowerID, Err: err}
	}
	defer resp.Body.Close()
	return borrowResult{BorrowerID: borrowerID, StatusCode: resp.StatusCode}
}

func checkIntegrity(serverAddr string) (bool, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverAddr + "/integrity")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Consistent bool `json:"consistent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, err
	}
	return parsed.Consistent, nil
}
