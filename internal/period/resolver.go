// Package period maps calendar dates to the on-disk dataset layout and
// locates historical datasets.
//
// Datasets live under <root>/<year>/<month>/<filename>, where <month> is
// the full English month name, lowercased. That scheme is fixed: screens
// display Catalan month names, but storage paths never vary with locale,
// so trees written years ago keep resolving.
package period

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"despeses/internal/core"
)

// LookbackYears bounds how far back FindPrevious searches: candidate years
// run from the target year down to target year minus LookbackYears.
const LookbackYears = 10

var (
	ErrInvalidFilename = errors.New("invalid dataset filename")
)

// monthDirs is the fixed storage spelling for each month. Indexed by
// time.Month (1-12).
var monthDirs = [13]string{
	"",
	"january",
	"february",
	"march",
	"april",
	"may",
	"june",
	"july",
	"august",
	"september",
	"october",
	"november",
	"december",
}

// Match is a located dataset: the file's path and the period it belongs to.
type Match struct {
	Path   string
	Period core.Period
}

// Date returns the 1st day of the matched period, the date collaborators
// use to label "previous month" data on screens.
func (m Match) Date() core.Date {
	return m.Period.FirstDay()
}

// UnavailableError reports that a filesystem probe failed for a reason
// other than the path not existing (permissions, I/O, a file squatting on
// a directory name). It is deliberately distinct from the not-found
// outcome: callers must surface it, never treat it as "no data".
type UnavailableError struct {
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %s: %v", e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is (or wraps) an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Resolver derives canonical dataset paths under a data root and finds the
// nearest earlier period holding a named dataset. It is stateless and
// read-only: it never creates directories and never writes.
type Resolver struct {
	root string
}

// NewResolver returns a resolver over the given data root. The root is not
// required to exist yet; buckets appear lazily when stores first write.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the data root this resolver probes.
func (r *Resolver) Root() string { return r.root }

// CanonicalDir returns the bucket directory for a period:
// <root>/<year>/<english-month-lowercase>.
func (r *Resolver) CanonicalDir(p core.Period) string {
	return filepath.Join(r.root, strconv.Itoa(p.Year), monthDirs[p.Month])
}

// CanonicalPath returns the deterministic storage location of a dataset for
// the period the date falls in. Pure: the day-of-month is ignored, nothing
// is probed and nothing is created.
func (r *Resolver) CanonicalPath(d time.Time, filename string) string {
	return filepath.Join(r.CanonicalDir(core.PeriodOf(d)), filename)
}

// FindPrevious locates the nearest period strictly earlier than the target
// date's period whose bucket directory exists and contains filename as a
// regular file. Candidates are probed in descending order, month by month,
// from the month before the target back through LookbackYears years, so
// the first hit is the closest one.
//
// The boolean result distinguishes the normal no-history outcome from a
// found match; err is reserved for invalid input and *UnavailableError
// probe failures. A missing directory or file is never an error.
func (r *Resolver) FindPrevious(d time.Time, filename string) (Match, bool, error) {
	if d.IsZero() {
		return Match{}, false, fmt.Errorf("find previous %q: %w", filename, core.ErrInvalidDate)
	}
	if err := validFilename(filename); err != nil {
		return Match{}, false, err
	}

	target := core.PeriodOf(d)
	for year := target.Year; year >= target.Year-LookbackYears; year-- {
		for month := time.December; month >= time.January; month-- {
			if year == target.Year && month >= target.Month {
				continue
			}
			candidate := core.Period{Year: year, Month: month}

			ok, err := dirExists(r.CanonicalDir(candidate))
			if err != nil {
				return Match{}, false, err
			}
			if !ok {
				continue
			}

			path := filepath.Join(r.CanonicalDir(candidate), filename)
			ok, err = regularFileExists(path)
			if err != nil {
				return Match{}, false, err
			}
			if !ok {
				continue
			}
			return Match{Path: path, Period: candidate}, true, nil
		}
	}
	return Match{}, false, nil
}

// validFilename rejects names that would escape the period bucket.
func validFilename(filename string) error {
	if filename == "" || filename != filepath.Base(filename) ||
		strings.ContainsAny(filename, `/\`) || filename == "." || filename == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return nil
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &UnavailableError{Path: path, Err: err}
	}
	return info.IsDir(), nil
}

func regularFileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &UnavailableError{Path: path, Err: err}
	}
	return info.Mode().IsRegular(), nil
}
