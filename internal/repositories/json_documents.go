package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

const (
	ItemsFile     = "items.json"
	BorrowersFile = "borrowers.json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONFileDocuments keeps the two documents as indented JSON files in one directory.
type JSONFileDocuments struct {
	itemsPath     string
	borrowersPath string
}

func NewJSONFileDocuments(dir string) *JSONFileDocuments {
	return &JSONFileDocuments{
		itemsPath:     filepath.Join(dir, ItemsFile),
		borrowersPath: filepath.Join(dir, BorrowersFile),
	}
}

func (d *JSONFileDocuments) Read(ctx context.Context) (Snapshot, error) {
	snap := emptySnapshot()
	if err := readDocument(d.itemsPath, &snap.Items); err != nil {
		return Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if err := readDocument(d.borrowersPath, &snap.Borrowers); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Write encodes both documents before any file is created, then swaps each one
// into place through a temporary file. If the borrowers swap fails after the
// items file was replaced, the previous items file is put back, so a failed
// write leaves both documents as they were.
func (d *JSONFileDocuments) Write(ctx context.Context, snap Snapshot) error {
	items := snap.Items
	if items == nil {
		items = map[string]ItemRecord{}
	}
	borrowers := snap.Borrowers
	if borrowers == nil {
		borrowers = map[string]BorrowerRecord{}
	}

	itemsData, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	borrowersData, err := json.MarshalIndent(borrowers, "", "    ")
	if err != nil {
		return fmt.Errorf("encode borrowers: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(d.itemsPath), 0o755); err != nil {
		return err
	}
	itemsTmp, err := writeTemp(d.itemsPath, itemsData)
	if err != nil {
		return err
	}
	borrowersTmp, err := writeTemp(d.borrowersPath, borrowersData)
	if err != nil {
		_ = os.Remove(itemsTmp)
		return err
	}
	previousItems, hadItems, err := readPrevious(d.itemsPath)
	if err != nil {
		_ = os.Remove(itemsTmp)
		_ = os.Remove(borrowersTmp)
		return err
	}
	if err := os.Rename(itemsTmp, d.itemsPath); err != nil {
		_ = os.Remove(itemsTmp)
		_ = os.Remove(borrowersTmp)
		return err
	}
	if err := os.Rename(borrowersTmp, d.borrowersPath); err != nil {
		_ = os.Remove(borrowersTmp)
		if restoreErr := restoreDocument(d.itemsPath, previousItems, hadItems); restoreErr != nil {
			return fmt.Errorf("%w (restoring %s: %v)", err, ItemsFile, restoreErr)
		}
		return err
	}
	return nil
}

// readPrevious returns the current content of path and whether the file existed.
func readPrevious(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// restoreDocument puts back what readPrevious saw, removing the file if there was none.
func restoreDocument(path string, data []byte, existed bool) error {
	if !existed {
		return os.Remove(path)
	}
	tmp, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func readDocument(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeTemp(path string, data []byte) (string, error) {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}
