package disk

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the storage layer's file location policy. It replaces the
// process-wide FilePathManager singleton this system's ancestry uses
// elsewhere: every disk manager and catalog is constructed with its own
// Paths value, so tests can point each case at its own temporary root
// without touching global state.
type Paths struct {
	Root string
}

// TablePath returns the on-disk file path for a table, creating Root if
// it does not already exist. Path creation failure is fatal to engine
// start (spec §4.1), so callers should treat a non-nil error here as
// unrecoverable.
func (p Paths) TablePath(table TableId) (string, error) {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return "", fmt.Errorf("creating database root %s: %w", p.Root, err)
	}
	return filepath.Join(p.Root, fmt.Sprintf("%d.page", table)), nil
}
