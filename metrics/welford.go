package metrics

import "math"

// Welford keeps running statistics of a stream of values using Welford's
// online algorithm for the variance.
type Welford struct {
	mean  float64
	m2    float64
	min   float64
	max   float64
	count uint64
}

// Update adds val to the statistics. NaN values are ignored.
func (w *Welford) Update(val float64) {
	if math.IsNaN(val) {
		return
	}
	w.count++
	if w.count == 1 || val < w.min {
		w.min = val
	}
	if w.count == 1 || val > w.max {
		w.max = val
	}
	delta := val - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (val - w.mean)
}

// Get returns the mean and the sample variance. The variance is NaN for fewer
// than two values.
func (w *Welford) Get() (mean, variance float64, count uint64) {
	if w.count < 2 {
		return w.mean, math.NaN(), w.count
	}
	return w.mean, w.m2 / float64(w.count-1), w.count
}

// Range returns the smallest and largest value seen.
func (w *Welford) Range() (min, max float64) {
	return w.min, w.max
}

// Count returns the number of values added.
func (w *Welford) Count() uint64 {
	return w.count
}

// Reset clears the statistics.
func (w *Welford) Reset() {
	*w = Welford{}
}
