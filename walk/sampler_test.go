package walk_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/relab/fedwalk/walk"
)

func TestSamplerFullRate(t *testing.T) {
	s, err := walk.NewSampler(5, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, s.Sample()); diff != "" {
		t.Errorf("Sample() mismatch (-want +got):\n%s", diff)
	}
}

func TestSamplerDeterministic(t *testing.T) {
	a, _ := walk.NewSampler(100, 0.3, 42)
	b, _ := walk.NewSampler(100, 0.3, 42)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(a.Sample(), b.Sample()); diff != "" {
			t.Fatalf("batch %d differs for equal seeds (-a +b):\n%s", i, diff)
		}
	}
}

func TestSamplerRate(t *testing.T) {
	const (
		size = 10000
		rate = 0.25
	)
	s, err := walk.NewSampler(size, rate, 141)
	if err != nil {
		t.Fatal(err)
	}
	batch := s.Sample()
	for i := 1; i < len(batch); i++ {
		if batch[i] <= batch[i-1] {
			t.Fatalf("batch not strictly increasing at %d", i)
		}
	}
	mean := size * rate
	sd := math.Sqrt(size * rate * (1 - rate))
	if got := float64(len(batch)); math.Abs(got-mean) > 5*sd {
		t.Errorf("batch size: got: %v, want: %v ± %v", got, mean, 5*sd)
	}
}

func TestNewSamplerErrors(t *testing.T) {
	for _, rate := range []float64{0, -0.1, 1.1, math.NaN()} {
		if _, err := walk.NewSampler(10, rate, 1); err == nil {
			t.Errorf("NewSampler(rate=%v) succeeded, want error", rate)
		}
	}
	if _, err := walk.NewSampler(-1, 0.5, 1); err == nil {
		t.Error("NewSampler(size=-1) succeeded, want error")
	}
}
