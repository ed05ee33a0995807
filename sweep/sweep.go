// Package sweep trains one model per requested privacy budget over a single
// connection between the participants.
//
// Both participants iterate over the same (epsilon, delta) combinations in the
// same order and resolve them against the same catalog, so a combination that
// no profile satisfies is skipped by both without coordination.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/relab/fedwalk/logging"
	"github.com/relab/fedwalk/metrics"
	"github.com/relab/fedwalk/profile"
	"github.com/relab/fedwalk/walk"
	"github.com/relab/fedwalk/wire"
	"go.uber.org/multierr"
)

// DefaultArtifactName is the file the server writes each run's model to
// before it is renamed.
const DefaultArtifactName = "server_model.bin"

// Budget is one requested privacy budget.
type Budget struct {
	Epsilon float64
	Delta   float64
}

// Budgets returns the cartesian product of epsilons and deltas, epsilon-major.
func Budgets(epsilons, deltas []float64) []Budget {
	out := make([]Budget, 0, len(epsilons)*len(deltas))
	for _, e := range epsilons {
		for _, d := range deltas {
			out = append(out, Budget{Epsilon: e, Delta: d})
		}
	}
	return out
}

// ArtifactName returns the file name of the model trained for a budget.
func ArtifactName(b Budget, features int) string {
	return fmt.Sprintf("model-eps%s-delta%s-sizemodel%d.bin", formatFloat(b.Epsilon), formatFloat(b.Delta), features)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Run is the set of collaborators for one training run.
type Run struct {
	Model       walk.Model
	Optimizer   walk.Optimizer
	DatasetSize int
	// Features is the number of model inputs; it names the artifact.
	Features int
}

// Factory prepares a training run from resolved hyperparameters.
type Factory interface {
	NewRun(params profile.TrainingParams, seed uint64) (Run, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(params profile.TrainingParams, seed uint64) (Run, error)

// NewRun calls f.
func (f FactoryFunc) NewRun(params profile.TrainingParams, seed uint64) (Run, error) {
	return f(params, seed)
}

// Config configures a sweep.
type Config struct {
	Role     walk.Role
	Budgets  []Budget
	Catalog  *profile.Catalog
	Factory  Factory
	Seed     uint64
	Strategy walk.Strategy
	// OutputDir receives the server's artifacts and manifest.
	OutputDir    string
	ArtifactName string
	Recorder     *metrics.Recorder
	Logger       logging.Logger
}

// Result describes the outcome of one budget.
type Result struct {
	ID       string                  `json:"id"`
	Epsilon  float64                 `json:"epsilon"`
	Delta    float64                 `json:"delta"`
	Skipped  string                  `json:"skipped,omitempty"`
	Params   *profile.TrainingParams `json:"params,omitempty"`
	Features int                     `json:"features,omitempty"`
	Artifact string                  `json:"artifact,omitempty"`
	// LossMean is the mean loss over the local steps with a non-empty batch,
	// Steps is the number of those steps.
	LossMean float64                 `json:"loss_mean,omitempty"`
	Steps    uint64                  `json:"steps,omitempty"`
}

// Sweep trains one model per budget.
type Sweep struct {
	cfg    Config
	logger logging.Logger
}

// New returns a sweep.
func New(cfg Config) (*Sweep, error) {
	if _, err := walk.ParseRole(string(cfg.Role)); err != nil {
		return nil, err
	}
	if cfg.Strategy == "" {
		cfg.Strategy = walk.Walk
	}
	if _, err := walk.ParseStrategy(string(cfg.Strategy)); err != nil {
		return nil, err
	}
	if cfg.Catalog == nil || cfg.Factory == nil {
		return nil, errors.New("sweep: a catalog and a factory are required")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.ArtifactName == "" {
		cfg.ArtifactName = DefaultArtifactName
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NewRecorder(nil, cfg.Logger)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("sweep")
	}
	return &Sweep{cfg: cfg, logger: logger.With("participant", string(cfg.Role))}, nil
}

// Run performs the sweep over conn. The server closes conn when the sweep
// ends. Canceling ctx closes conn to unblock a pending exchange.
func (s *Sweep) Run(ctx context.Context, conn io.ReadWriteCloser) (results []Result, err error) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	if s.cfg.Role == walk.Server {
		defer func() {
			err = multierr.Append(err, ignoreClosed(conn.Close()))
		}()
		if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("sweep: %w", err)
		}
	}

	codec := wire.NewCodec(conn)
	for _, b := range s.cfg.Budgets {
		res, err := s.runOne(ctx, codec, b)
		results = append(results, res)
		if s.cfg.Role == walk.Server {
			if merr := s.writeManifest(results); merr != nil {
				s.logger.Errorf("failed to write manifest: %v", merr)
			}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = multierr.Append(ctxErr, err)
			}
			return results, fmt.Errorf("sweep: epsilon=%v delta=%v: %w", b.Epsilon, b.Delta, err)
		}
	}
	return results, nil
}

func (s *Sweep) runOne(ctx context.Context, codec *wire.Codec, b Budget) (Result, error) {
	res := Result{ID: uuid.NewString(), Epsilon: b.Epsilon, Delta: b.Delta}

	hp, err := s.cfg.Catalog.Resolve(b.Epsilon, b.Delta)
	if errors.Is(err, profile.ErrBudgetExceeded) {
		s.logger.Warnf("skipping: %v", err)
		res.Skipped = err.Error()
		return res, nil
	}
	if err != nil {
		return res, err
	}
	params, err := hp.TrainingParams()
	if err != nil {
		return res, err
	}
	res.Params = &params

	run, err := s.cfg.Factory.NewRun(params, s.cfg.Seed)
	if err != nil {
		return res, err
	}
	res.Features = run.Features

	exp := metrics.Experiment{ID: res.ID, Epsilon: b.Epsilon, Delta: b.Delta}
	artifact := filepath.Join(s.cfg.OutputDir, s.cfg.ArtifactName)
	w, err := walk.New(walk.Config{
		Role:            s.cfg.Role,
		FLRounds:        params.FLRounds,
		BatchesPerRound: params.BatchesPerRound,
		DatasetSize:     run.DatasetSize,
		SampleRate:      params.SampleRate,
		Seed:            s.cfg.Seed,
		ArtifactPath:    artifact,
		Logger:          s.logger,
		OnStep:          s.cfg.Recorder.Observer(exp),
	}, run.Model, run.Optimizer, codec)
	if err != nil {
		return res, err
	}

	s.logger.Infof("starting experiment %v with %d rounds of %d batches", exp, params.FLRounds, params.BatchesPerRound)
	err = w.Run(ctx)
	res.LossMean, _, res.Steps = s.cfg.Recorder.Finish(exp)
	if err != nil {
		return res, err
	}

	if s.cfg.Role == walk.Server {
		res.Artifact = filepath.Join(s.cfg.OutputDir, ArtifactName(b, run.Features))
		if err := os.Rename(artifact, res.Artifact); err != nil {
			return res, fmt.Errorf("failed to move model: %w", err)
		}
		s.logger.Infof("model for epsilon=%v delta=%v saved to %s", b.Epsilon, b.Delta, res.Artifact)
	}
	return res, nil
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
