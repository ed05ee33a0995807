package profile

import (
	"errors"
	"fmt"
)

// ErrBudgetExceeded matches every *BudgetError.
var ErrBudgetExceeded = errors.New("profile: privacy budget exceeded")

// ErrInvalidBudget is returned for epsilon <= 0 or delta < 0.
var ErrInvalidBudget = errors.New("profile: invalid privacy budget")

// BudgetError reports that no catalog profile fits within a requested budget.
// If EpsilonChecked is false, the request already failed on delta alone.
type BudgetError struct {
	Epsilon        float64
	Delta          float64
	EpsilonChecked bool
}

func (e *BudgetError) Error() string {
	if !e.EpsilonChecked {
		return fmt.Sprintf("profile: there exists no satisfying profile for the request (delta=%v)", e.Delta)
	}
	return fmt.Sprintf("profile: there exists no satisfying profile for the request (epsilon=%v, delta=%v)", e.Epsilon, e.Delta)
}

// Is reports whether target is ErrBudgetExceeded.
func (e *BudgetError) Is(target error) bool {
	return target == ErrBudgetExceeded
}

// Lookup returns the profile with the largest delta not above delta and,
// among those, the largest epsilon not above epsilon.
func (c *Catalog) Lookup(epsilon, delta float64) (Profile, error) {
	if !(epsilon > 0) || !(delta >= 0) {
		return Profile{}, fmt.Errorf("%w (epsilon=%v, delta=%v)", ErrInvalidBudget, epsilon, delta)
	}

	anyDelta := false
	best := -1
	for i, p := range c.profiles {
		if p.Delta > delta {
			continue
		}
		anyDelta = true
		if p.Epsilon > epsilon {
			continue
		}
		// profiles are sorted by (delta, epsilon), so a later match is never smaller
		best = i
	}
	switch {
	case !anyDelta:
		return Profile{}, &BudgetError{Epsilon: epsilon, Delta: delta}
	case best < 0:
		return Profile{}, &BudgetError{Epsilon: epsilon, Delta: delta, EpsilonChecked: true}
	}
	p := c.profiles[best]
	return Profile{Epsilon: p.Epsilon, Delta: p.Delta, Hyperparameters: p.Hyperparameters.clone()}, nil
}

// Resolve returns the hyperparameters of the profile selected by Lookup.
// The result holds no epsilon, delta or metadata entries.
func (c *Catalog) Resolve(epsilon, delta float64) (Hyperparameters, error) {
	p, err := c.Lookup(epsilon, delta)
	if err != nil {
		return nil, err
	}
	return p.Hyperparameters, nil
}
