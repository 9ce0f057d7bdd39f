package datasets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"despeses/internal/core"
	"despeses/internal/ledger"
	"despeses/internal/period"
)

// Store keeps per-month CSV datasets under <root>/<username>/<year>/<month>/.
// Buckets are created lazily on first write and never deleted here.
type Store struct {
	root string
}

var _ ledger.DebtSheetStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the data root the store was created with.
func (s *Store) Root() string {
	return s.root
}

// resolver builds a period resolver scoped to one user's subtree. Usernames
// are validated before they touch a path.
func (s *Store) resolver(username string) (*period.Resolver, error) {
	if err := core.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("dataset store: %w", err)
	}
	return period.NewResolver(filepath.Join(s.root, username)), nil
}

// Load reads the debt sheet for the given period. The second return reports
// whether the sheet exists; a missing sheet is not an error.
func (s *Store) Load(ctx context.Context, username string, p core.Period) ([]core.Debt, bool, error) {
	r, err := s.resolver(username)
	if err != nil {
		return nil, false, err
	}
	path := r.CanonicalPath(p.FirstDay().Time, DebtsFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open debt sheet %s: %w", path, err)
	}
	defer f.Close()

	debts, err := readDebts(f)
	if err != nil {
		return nil, false, fmt.Errorf("parse debt sheet %s: %w", path, err)
	}
	return debts, true, nil
}

// Save writes the debt sheet for the period, creating the bucket directory
// if needed. The file is written to a temp name first and renamed into
// place so readers never observe a half-written sheet.
func (s *Store) Save(ctx context.Context, username string, p core.Period, debts []core.Debt) error {
	r, err := s.resolver(username)
	if err != nil {
		return err
	}
	return s.writeFile(r, p, DebtsFile, func(f *os.File) error {
		return writeDebts(f, debts)
	})
}

// FindPreviousSheet resolves the nearest debt sheet strictly before the
// period, within the resolver's lookback window, and loads it.
func (s *Store) FindPreviousSheet(ctx context.Context, username string, before core.Period) ([]core.Debt, core.Period, bool, error) {
	r, err := s.resolver(username)
	if err != nil {
		return nil, core.Period{}, false, err
	}
	match, found, err := r.FindPrevious(before.FirstDay().Time, DebtsFile)
	if err != nil {
		return nil, core.Period{}, false, err
	}
	if !found {
		return nil, core.Period{}, false, nil
	}
	f, err := os.Open(match.Path)
	if err != nil {
		return nil, core.Period{}, false, fmt.Errorf("open debt sheet %s: %w", match.Path, err)
	}
	defer f.Close()

	debts, err := readDebts(f)
	if err != nil {
		return nil, core.Period{}, false, fmt.Errorf("parse debt sheet %s: %w", match.Path, err)
	}
	return debts, match.Period, true, nil
}

// WriteExpenseSnapshot exports the period's expenses as a CSV snapshot,
// replacing any previous snapshot for the same period.
func (s *Store) WriteExpenseSnapshot(ctx context.Context, username string, p core.Period, expenses []core.Expense) error {
	r, err := s.resolver(username)
	if err != nil {
		return err
	}
	return s.writeFile(r, p, ExpensesFile, func(f *os.File) error {
		return writeExpenses(f, expenses)
	})
}

// ReadExpenseSnapshot loads a previously exported snapshot. Used by the
// worker's re-mirror sweep; a missing snapshot is reported, not an error.
func (s *Store) ReadExpenseSnapshot(ctx context.Context, username string, p core.Period) ([]core.Expense, bool, error) {
	r, err := s.resolver(username)
	if err != nil {
		return nil, false, err
	}
	path := r.CanonicalPath(p.FirstDay().Time, ExpensesFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open expense snapshot %s: %w", path, err)
	}
	defer f.Close()

	expenses, err := readExpenses(f)
	if err != nil {
		return nil, false, fmt.Errorf("parse expense snapshot %s: %w", path, err)
	}
	return expenses, true, nil
}

// Usernames lists the users that own a dataset subtree, in name order.
// Entries that do not pass username validation are skipped; an absent
// root just means nobody has written yet.
func (s *Store) Usernames(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list dataset root %s: %w", s.root, err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if core.ValidateUsername(entry.Name()) != nil {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *Store) writeFile(r *period.Resolver, p core.Period, filename string, write func(*os.File) error) error {
	dir := r.CanonicalDir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bucket %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filename+".*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	final := filepath.Join(dir, filename)
	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp.Name(), final, err)
	}
	return nil
}
