package walk

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws Poisson-sampled mini-batches: every sample of the local
// dataset is included independently with probability equal to the sample rate.
// Batches may be empty.
type Sampler struct {
	size      int
	bernoulli distuv.Bernoulli
}

// NewSampler returns a sampler over size samples seeded with seed.
func NewSampler(size int, sampleRate float64, seed uint64) (*Sampler, error) {
	if size < 0 {
		return nil, fmt.Errorf("walk: negative dataset size %d", size)
	}
	if !(sampleRate > 0 && sampleRate <= 1) {
		return nil, fmt.Errorf("walk: sample rate must be in (0, 1], got %v", sampleRate)
	}
	return &Sampler{
		size:      size,
		bernoulli: distuv.Bernoulli{P: sampleRate, Src: rand.NewSource(seed)},
	}, nil
}

// Sample returns the sorted indices of the next mini-batch.
func (s *Sampler) Sample() []int {
	batch := make([]int, 0, int(float64(s.size)*s.bernoulli.P)+1)
	for i := 0; i < s.size; i++ {
		if s.bernoulli.Rand() == 1 {
			batch = append(batch, i)
		}
	}
	return batch
}
