// Package model contains the logistic regression classifier trained by the
// participants.
package model

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Threshold is the probability at or above which a sample is predicted positive.
const Threshold = 0.5

// Logistic is a single-layer logistic regression model. Its flattened
// parameters are the feature weights followed by the bias.
type Logistic struct {
	params []float64
}

// NewLogistic returns a model over the given number of features. If src is not
// nil, the parameters are drawn uniformly from [-1/sqrt(n), 1/sqrt(n)];
// otherwise they start at zero.
func NewLogistic(features int, src rand.Source) *Logistic {
	m := &Logistic{params: make([]float64, features+1)}
	if src != nil && features > 0 {
		bound := 1 / math.Sqrt(float64(features))
		u := distuv.Uniform{Min: -bound, Max: bound, Src: src}
		for i := range m.params {
			m.params[i] = u.Rand()
		}
	}
	return m
}

// FromParameters returns a model holding a copy of the flattened parameters p.
func FromParameters(p []float32) (*Logistic, error) {
	if len(p) < 1 {
		return nil, fmt.Errorf("model: need at least the bias parameter")
	}
	m := &Logistic{params: make([]float64, len(p))}
	for i, v := range p {
		m.params[i] = float64(v)
	}
	return m, nil
}

// Features returns the number of input features.
func (m *Logistic) Features() int {
	return len(m.params) - 1
}

// Parameters returns a copy of the flattened parameters.
func (m *Logistic) Parameters() []float32 {
	out := make([]float32, len(m.params))
	for i, v := range m.params {
		out[i] = float32(v)
	}
	return out
}

// SetParameters replaces the parameters with p, which must have the model's length.
func (m *Logistic) SetParameters(p []float32) error {
	if len(p) != len(m.params) {
		return fmt.Errorf("model: got %d parameters, want %d", len(p), len(m.params))
	}
	for i, v := range p {
		m.params[i] = float64(v)
	}
	return nil
}

// Params returns the parameters for in-place updates by an optimizer.
func (m *Logistic) Params() []float64 {
	return m.params
}

func (m *Logistic) logit(x []float64) float64 {
	n := len(m.params) - 1
	return floats.Dot(m.params[:n], x) + m.params[n]
}

// Probability returns the predicted probability that x is positive.
func (m *Logistic) Probability(x []float64) float64 {
	return sigmoid(m.logit(x))
}

// ExampleGradient writes the gradient of the binary cross-entropy loss of one
// example into dst and returns the loss.
func (m *Logistic) ExampleGradient(dst, x []float64, y float64) float64 {
	z := m.logit(x)
	p := sigmoid(z)
	n := len(m.params) - 1
	copy(dst[:n], x)
	floats.Scale(p-y, dst[:n])
	dst[n] = p - y
	return bce(z, y)
}

// Predict classifies every row of x.
func (m *Logistic) Predict(x mat.Matrix) ([]int, error) {
	r, c := x.Dims()
	if c != m.Features() {
		return nil, fmt.Errorf("model: input has %d features, model expects %d", c, m.Features())
	}
	row := make([]float64, c)
	out := make([]int, r)
	for i := 0; i < r; i++ {
		mat.Row(row, i, x)
		if m.Probability(row) >= Threshold {
			out[i] = 1
		}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// bce is the binary cross-entropy of the logit z against label y.
func bce(z, y float64) float64 {
	// log(1+exp(z)) - y*z, computed without overflow
	return math.Max(z, 0) - y*z + math.Log1p(math.Exp(-math.Abs(z)))
}
