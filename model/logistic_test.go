package model

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func TestParametersLayout(t *testing.T) {
	m, err := FromParameters([]float32{1, 2, 3, -0.5})
	if err != nil {
		t.Fatal(err)
	}
	if m.Features() != 3 {
		t.Errorf("Features() = %d, want 3", m.Features())
	}
	// weights first, bias last
	if got, want := m.logit([]float64{1, 0, 0}), 0.5; got != want {
		t.Errorf("logit: got: %v, want: %v", got, want)
	}
	if diff := cmp.Diff([]float32{1, 2, 3, -0.5}, m.Parameters()); diff != "" {
		t.Errorf("Parameters() mismatch (-want +got):\n%s", diff)
	}
	if err := m.SetParameters([]float32{1}); err == nil {
		t.Error("SetParameters accepted a vector of the wrong length")
	}
}

func TestNewLogisticInit(t *testing.T) {
	zero := NewLogistic(4, nil)
	if diff := cmp.Diff(make([]float32, 5), zero.Parameters()); diff != "" {
		t.Errorf("zero init mismatch (-want +got):\n%s", diff)
	}
	m := NewLogistic(4, rand.NewSource(1))
	for i, v := range m.Params() {
		if math.Abs(v) > 0.5 {
			t.Errorf("param %d = %v, outside [-0.5, 0.5]", i, v)
		}
	}
	if cmp.Equal(m.Parameters(), NewLogistic(4, rand.NewSource(2)).Parameters()) {
		t.Error("different seeds gave equal parameters")
	}
}

func TestExampleGradient(t *testing.T) {
	m, _ := FromParameters([]float32{0.5, -1, 0.25})
	x := []float64{2, 1}
	for _, y := range []float64{0, 1} {
		grad := make([]float64, 3)
		loss := m.ExampleGradient(grad, x, y)

		p := m.Probability(x)
		wantLoss := -(y*math.Log(p) + (1-y)*math.Log(1-p))
		if math.Abs(loss-wantLoss) > 1e-12 {
			t.Errorf("y=%v loss: got: %v, want: %v", y, loss, wantLoss)
		}
		// numeric check of the analytic gradient
		const h = 1e-6
		for i := range m.params {
			orig := m.params[i]
			m.params[i] = orig + h
			up := bce(m.logit(x), y)
			m.params[i] = orig - h
			down := bce(m.logit(x), y)
			m.params[i] = orig
			if num := (up - down) / (2 * h); math.Abs(num-grad[i]) > 1e-6 {
				t.Errorf("y=%v grad[%d]: got: %v, want: %v", y, i, grad[i], num)
			}
		}
	}
}

func TestBCEStable(t *testing.T) {
	for _, z := range []float64{-1000, -30, 0, 30, 1000} {
		for _, y := range []float64{0, 1} {
			if l := bce(z, y); math.IsNaN(l) || math.IsInf(l, 0) || l < 0 {
				t.Errorf("bce(%v, %v) = %v", z, y, l)
			}
		}
	}
}

func TestPredict(t *testing.T) {
	m, _ := FromParameters([]float32{1, -1, 0})
	x := mat.NewDense(3, 2, []float64{
		2, 1,
		1, 2,
		1, 1,
	})
	got, err := m.Predict(x)
	if err != nil {
		t.Fatal(err)
	}
	// a logit of exactly zero gives probability 0.5, which is positive
	if diff := cmp.Diff([]int{1, 0, 1}, got); diff != "" {
		t.Errorf("Predict() mismatch (-want +got):\n%s", diff)
	}
	if _, err := m.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("Predict accepted a matrix with the wrong width")
	}
}
