// Package dpsgd implements differentially private stochastic gradient descent
// for models that expose per-example gradients.
//
// A step clips every per-example gradient to MaxGradNorm, adds Gaussian noise
// with standard deviation NoiseMultiplier*MaxGradNorm to the sum and divides by
// the expected batch size SampleRate*N before the gradient descent update.
// Privacy accounting is left to whoever produced the hyperparameters.
package dpsgd

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Model is a differentiable model with mutable parameters.
type Model interface {
	// Params returns the parameters; the optimizer updates them in place.
	Params() []float64
	// ExampleGradient writes the gradient of the loss of one example into dst
	// and returns the loss.
	ExampleGradient(dst, x []float64, y float64) float64
}

// Data is a labeled training set.
type Data interface {
	Len() int
	Sample(i int) (x []float64, y float64)
}

// Config holds the DP-SGD hyperparameters.
type Config struct {
	LearningRate    float64
	NoiseMultiplier float64
	MaxGradNorm     float64
	SampleRate      float64
	Seed            uint64
}

// Optimizer takes DP-SGD steps on a model.
type Optimizer struct {
	cfg   Config
	model Model
	data  Data
	noise distuv.Normal

	grad []float64
	sum  []float64
}

// New returns an optimizer for model over data.
func New(cfg Config, model Model, data Data) (*Optimizer, error) {
	switch {
	case !(cfg.LearningRate > 0):
		return nil, fmt.Errorf("dpsgd: learning rate must be positive, got %v", cfg.LearningRate)
	case cfg.NoiseMultiplier < 0:
		return nil, fmt.Errorf("dpsgd: noise multiplier must not be negative, got %v", cfg.NoiseMultiplier)
	case !(cfg.MaxGradNorm > 0):
		return nil, fmt.Errorf("dpsgd: max grad norm must be positive, got %v", cfg.MaxGradNorm)
	case !(cfg.SampleRate > 0 && cfg.SampleRate <= 1):
		return nil, fmt.Errorf("dpsgd: sample rate must be in (0, 1], got %v", cfg.SampleRate)
	case data.Len() == 0:
		return nil, fmt.Errorf("dpsgd: empty training set")
	}
	dim := len(model.Params())
	return &Optimizer{
		cfg:   cfg,
		model: model,
		data:  data,
		noise: distuv.Normal{Mu: 0, Sigma: cfg.NoiseMultiplier * cfg.MaxGradNorm, Src: rand.NewSource(cfg.Seed)},
		grad:  make([]float64, dim),
		sum:   make([]float64, dim),
	}, nil
}

// Step performs one update on the samples in batch and returns their mean
// loss. The loss of an empty batch is zero; the model still receives noise.
func (o *Optimizer) Step(batch []int) (float64, error) {
	for i := range o.sum {
		o.sum[i] = 0
	}
	var loss float64
	for _, idx := range batch {
		if idx < 0 || idx >= o.data.Len() {
			return 0, fmt.Errorf("dpsgd: sample index %d out of range [0, %d)", idx, o.data.Len())
		}
		x, y := o.data.Sample(idx)
		loss += o.model.ExampleGradient(o.grad, x, y)
		if norm := floats.Norm(o.grad, 2); norm > o.cfg.MaxGradNorm {
			floats.Scale(o.cfg.MaxGradNorm/norm, o.grad)
		}
		floats.Add(o.sum, o.grad)
	}
	if o.noise.Sigma > 0 {
		for i := range o.sum {
			o.sum[i] += o.noise.Rand()
		}
	}
	expected := o.cfg.SampleRate * float64(o.data.Len())
	floats.AddScaled(o.model.Params(), -o.cfg.LearningRate/expected, o.sum)

	if len(batch) == 0 {
		return 0, nil
	}
	return loss / float64(len(batch)), nil
}
