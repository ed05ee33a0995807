package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/relab/fedwalk/logging"
	"github.com/relab/fedwalk/walk"
	"google.golang.org/protobuf/types/known/structpb"
)

// Fields of a step measurement.
const (
	FieldParticipant = "participant"
	FieldExperiment  = "experiment"
	FieldEpsilon     = "epsilon"
	FieldDelta       = "delta"
	FieldStep        = "step"
	FieldRound       = "round"
	FieldBatchSize   = "batch_size"
	FieldLoss        = "loss"
	FieldDurationMS  = "duration_ms"
	FieldTimestamp   = "timestamp"
)

// Experiment identifies one training run of a sweep.
type Experiment struct {
	ID      string
	Epsilon float64
	Delta   float64
}

func (e Experiment) String() string {
	return fmt.Sprintf("%s (epsilon=%v, delta=%v)", e.ID, e.Epsilon, e.Delta)
}

// StepMessage returns the measurement of one local step.
func StepMessage(exp Experiment, info walk.StepInfo, ts time.Time) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		FieldParticipant: string(info.Role),
		FieldExperiment:  exp.ID,
		FieldEpsilon:     exp.Epsilon,
		FieldDelta:       exp.Delta,
		FieldStep:        info.Step,
		FieldRound:       info.Round,
		FieldBatchSize:   info.BatchSize,
		FieldLoss:        info.Loss,
		FieldDurationMS:  float64(info.Duration) / float64(time.Millisecond),
		FieldTimestamp:   ts.UTC().Format(time.RFC3339Nano),
	})
}

// Recorder logs step measurements and keeps loss statistics per experiment.
type Recorder struct {
	out    Logger
	logger logging.Logger

	mut   sync.Mutex
	stats map[string]*Welford
}

// NewRecorder returns a recorder writing measurements to out.
func NewRecorder(out Logger, logger logging.Logger) *Recorder {
	if out == nil {
		out = NopLogger()
	}
	if logger == nil {
		logger = logging.New("metrics")
	}
	return &Recorder{out: out, logger: logger, stats: make(map[string]*Welford)}
}

// Observer returns a step callback for exp, suitable for walk.Config.OnStep.
func (r *Recorder) Observer(exp Experiment) func(walk.StepInfo) {
	return func(info walk.StepInfo) {
		r.mut.Lock()
		w, ok := r.stats[exp.ID]
		if !ok {
			w = &Welford{}
			r.stats[exp.ID] = w
		}
		// an empty batch has no loss
		if info.BatchSize > 0 {
			w.Update(info.Loss)
		}
		r.mut.Unlock()

		msg, err := StepMessage(exp, info, time.Now())
		if err != nil {
			r.logger.Errorf("failed to create measurement: %v", err)
			return
		}
		r.out.Log(msg)
	}
}

// Finish logs and returns the loss statistics of exp and forgets them.
// Steps with an empty batch are not part of the statistics.
func (r *Recorder) Finish(exp Experiment) (mean, variance float64, count uint64) {
	r.mut.Lock()
	w, ok := r.stats[exp.ID]
	delete(r.stats, exp.ID)
	r.mut.Unlock()
	if !ok {
		return 0, 0, 0
	}
	mean, variance, count = w.Get()
	lo, hi := w.Range()
	r.logger.Infof("experiment %v: %d steps, loss mean=%.6f var=%.6f min=%.6f max=%.6f", exp, count, mean, variance, lo, hi)
	return mean, variance, count
}

// Close closes the measurement log.
func (r *Recorder) Close() error {
	return r.out.Close()
}
