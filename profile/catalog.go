// Package profile selects the training hyperparameters for a requested
// differential-privacy budget from a catalog of validated profiles.
//
// Every profile in a catalog guarantees that training with its
// hyperparameters does not exceed its (epsilon, delta). Resolution picks the
// profile closest to the request from below in both dimensions.
package profile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	epsilonColumn = "epsilon"
	deltaColumn   = "delta"
)

// MetadataColumns are the catalog columns that describe how a profile was
// obtained rather than how to train. They are dropped at load time.
var MetadataColumns = []string{"acc", "best_metric", "network"}

// Profile is one validated catalog entry.
type Profile struct {
	Epsilon         float64
	Delta           float64
	Hyperparameters Hyperparameters
}

// Catalog is an immutable set of profiles ordered by ascending (delta, epsilon).
type Catalog struct {
	profiles []Profile
}

// NewCatalog returns a catalog holding the given profiles. Profiles with equal
// (delta, epsilon) keep their relative order. Every profile must have a finite
// positive epsilon and a finite non-negative delta.
func NewCatalog(profiles ...Profile) (*Catalog, error) {
	sorted := make([]Profile, len(profiles))
	for i, p := range profiles {
		if err := checkBudget(p.Epsilon, p.Delta); err != nil {
			return nil, fmt.Errorf("profile %d: %w", i, err)
		}
		sorted[i] = Profile{Epsilon: p.Epsilon, Delta: p.Delta, Hyperparameters: p.Hyperparameters.clone()}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Delta != sorted[j].Delta {
			return sorted[i].Delta < sorted[j].Delta
		}
		return sorted[i].Epsilon < sorted[j].Epsilon
	})
	return &Catalog{profiles: sorted}, nil
}

// checkBudget rejects budgets a lookup cannot order, such as NaN.
func checkBudget(epsilon, delta float64) error {
	if math.IsNaN(epsilon) || math.IsInf(epsilon, 0) || epsilon <= 0 {
		return fmt.Errorf("%w: epsilon %v", ErrInvalidBudget, epsilon)
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) || delta < 0 {
		return fmt.Errorf("%w: delta %v", ErrInvalidBudget, delta)
	}
	return nil
}

// Len returns the number of profiles in the catalog.
func (c *Catalog) Len() int {
	return len(c.profiles)
}

// Profiles returns a copy of the catalog's profiles in catalog order.
func (c *Catalog) Profiles() []Profile {
	out := make([]Profile, len(c.profiles))
	for i, p := range c.profiles {
		out[i] = Profile{Epsilon: p.Epsilon, Delta: p.Delta, Hyperparameters: p.Hyperparameters.clone()}
	}
	return out
}

// LoadCatalogFile reads a CSV catalog from path.
func LoadCatalogFile(path string, drop ...string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("profile: failed to open catalog: %w", err)
	}
	defer f.Close()
	c, err := LoadCatalog(f, drop...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadCatalog reads a CSV catalog. The header must contain the epsilon and
// delta columns; every other column is a hyperparameter, except MetadataColumns
// and the columns named in drop.
func LoadCatalog(r io.Reader, drop ...string) (*Catalog, error) {
	rd := csv.NewReader(r)
	rd.TrimLeadingSpace = true

	header, err := rd.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("profile: empty catalog")
		}
		return nil, fmt.Errorf("profile: failed to read catalog header: %w", err)
	}

	dropped := make(map[string]bool)
	for _, col := range MetadataColumns {
		dropped[col] = true
	}
	for _, col := range drop {
		dropped[col] = true
	}

	epsIdx, deltaIdx := -1, -1
	for i, col := range header {
		col = strings.TrimSpace(col)
		header[i] = col
		switch col {
		case epsilonColumn:
			epsIdx = i
		case deltaColumn:
			deltaIdx = i
		}
	}
	if epsIdx < 0 || deltaIdx < 0 {
		return nil, fmt.Errorf("profile: catalog header %v lacks %q or %q", header, epsilonColumn, deltaColumn)
	}

	var profiles []Profile
	for line := 2; ; line++ {
		record, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("profile: failed to read catalog: %w", err)
		}
		p := Profile{Hyperparameters: make(Hyperparameters)}
		if p.Epsilon, err = strconv.ParseFloat(strings.TrimSpace(record[epsIdx]), 64); err != nil {
			return nil, fmt.Errorf("profile: line %d: invalid epsilon: %w", line, err)
		}
		if p.Delta, err = strconv.ParseFloat(strings.TrimSpace(record[deltaIdx]), 64); err != nil {
			return nil, fmt.Errorf("profile: line %d: invalid delta: %w", line, err)
		}
		if err := checkBudget(p.Epsilon, p.Delta); err != nil {
			return nil, fmt.Errorf("profile: line %d: %w", line, err)
		}
		for i, col := range header {
			if i == epsIdx || i == deltaIdx || dropped[col] {
				continue
			}
			p.Hyperparameters[col] = strings.TrimSpace(record[i])
		}
		profiles = append(profiles, p)
	}
	return NewCatalog(profiles...)
}
