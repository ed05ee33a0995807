package walk

import (
	"context"
	"fmt"
	"time"

	"github.com/relab/fedwalk/logging"
	"github.com/relab/fedwalk/wire"
)

// StepInfo describes one completed local step.
type StepInfo struct {
	Role      Role
	Step      int // zero-based index over all local steps of the run
	Round     int
	BatchSize int
	Loss      float64
	Duration  time.Duration
}

// Config configures a Walker.
type Config struct {
	Role            Role
	FLRounds        int
	BatchesPerRound int
	// DatasetSize is the number of local samples the sampler draws from.
	DatasetSize int
	SampleRate  float64
	Seed        uint64
	// ArtifactPath is where the server writes the final parameters.
	// It is ignored for the client.
	ArtifactPath string
	Logger       logging.Logger
	// OnStep, if set, is called after every local step.
	OnStep func(StepInfo)
}

// Steps returns the number of local steps each participant performs.
func (c Config) Steps() int {
	return c.FLRounds * c.BatchesPerRound
}

func (c Config) validate() error {
	switch {
	case c.Role != Server && c.Role != Client:
		return fmt.Errorf("walk: unknown participant %q", c.Role)
	case c.FLRounds < 1:
		return fmt.Errorf("walk: fl_rounds must be at least 1, got %d", c.FLRounds)
	case c.BatchesPerRound < 1:
		return fmt.Errorf("walk: batches_per_round must be at least 1, got %d", c.BatchesPerRound)
	case c.Role == Server && c.ArtifactPath == "":
		return fmt.Errorf("walk: the server needs an artifact path")
	}
	return nil
}

// Walker drives one participant through a walk run.
type Walker struct {
	cfg       Config
	model     Model
	optimizer Optimizer
	transport Transport
	sampler   *Sampler
	logger    logging.Logger

	sends    int
	receives int
}

// New returns a walker for one run.
func New(cfg Config, model Model, optimizer Optimizer, transport Transport) (*Walker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sampler, err := NewSampler(cfg.DatasetSize, cfg.SampleRate, cfg.Seed)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("walk")
	}
	return &Walker{
		cfg:       cfg,
		model:     model,
		optimizer: optimizer,
		transport: transport,
		sampler:   sampler,
		logger:    logger.With("participant", string(cfg.Role)),
	}, nil
}

// Sends returns how many vectors the walker has sent.
func (w *Walker) Sends() int { return w.sends }

// Receives returns how many vectors the walker has received.
func (w *Walker) Receives() int { return w.receives }

// Run performs the walk. The client sends Steps()+1 vectors and receives
// Steps(); the server receives Steps()+1 and sends Steps(), then writes the
// last vector it received to the artifact path.
//
// The context is checked between exchanges only. To abort a blocked exchange,
// close the underlying channel.
func (w *Walker) Run(ctx context.Context) error {
	local := w.model.Parameters()
	received := make([]float32, len(local))

	if w.cfg.Role == Client {
		if err := w.send(local); err != nil {
			return err
		}
	}

	n := w.cfg.Steps()
	for step := 0; step < n; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.receive(local, received); err != nil {
			return err
		}

		start := time.Now()
		batch := w.sampler.Sample()
		loss, err := w.optimizer.Step(batch)
		if err != nil {
			return fmt.Errorf("walk: step %d: %w", step, err)
		}
		info := StepInfo{
			Role:      w.cfg.Role,
			Step:      step,
			Round:     step / w.cfg.BatchesPerRound,
			BatchSize: len(batch),
			Loss:      loss,
			Duration:  time.Since(start),
		}
		w.logger.Debugf("round %d step %d: loss=%.6f batch=%d", info.Round, step, loss, len(batch))
		if w.cfg.OnStep != nil {
			w.cfg.OnStep(info)
		}

		local = w.model.Parameters()
		if err := w.send(local); err != nil {
			return err
		}
	}

	if w.cfg.Role == Server {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.receive(local, received); err != nil {
			return err
		}
		if err := wire.WriteFile(w.cfg.ArtifactPath, local); err != nil {
			return fmt.Errorf("walk: failed to save model: %w", err)
		}
		w.logger.Infof("saved final model (%d parameters) to %s", len(local), w.cfg.ArtifactPath)
	}
	return nil
}

func (w *Walker) send(v []float32) error {
	if err := w.transport.Send(v); err != nil {
		return err
	}
	w.sends++
	return nil
}

// receive reads the next vector and overwrites both local and the model with it.
func (w *Walker) receive(local, buf []float32) error {
	if err := w.transport.ReceiveInto(buf); err != nil {
		return err
	}
	w.receives++
	if err := wire.ApplyUpdate(local, buf, wire.Overwrite); err != nil {
		return err
	}
	return w.model.SetParameters(local)
}
