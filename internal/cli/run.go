package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/relab/fedwalk/channel"
	"github.com/relab/fedwalk/internal/config"
	"github.com/relab/fedwalk/internal/profiling"
	"github.com/relab/fedwalk/logging"
	"github.com/relab/fedwalk/metrics"
	"github.com/relab/fedwalk/profile"
	"github.com/relab/fedwalk/sweep"
	"github.com/relab/fedwalk/walk"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// loadConfig reads the participant configuration from viper and, if the cue
// flag is set, overlays the given cue file. The result is not validated.
func loadConfig() (*config.ParticipantConfig, error) {
	cfg, err := config.NewViper()
	if err != nil {
		return nil, err
	}
	if cueFile := viper.GetString("cue"); cueFile != "" {
		cfg, err = config.LoadCue(cueFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", cueFile, err)
		}
	}
	return cfg, nil
}

// startProfilers starts the profilers selected by the profiling flags.
func startProfilers(dir string) (func() error, error) {
	return profiling.StartProfilers(profiling.InDir(dir,
		viper.GetBool("cpu-profile"),
		viper.GetBool("mem-profile"),
		viper.GetBool("trace"),
		viper.GetBool("fgprof-profile"),
	))
}

// runParticipant connects to the other participant and performs the sweep
// described by cfg.
func runParticipant(ctx context.Context, cfg *config.ParticipantConfig) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}
	role, _ := cfg.Role()
	strategy, _ := walk.ParseStrategy(cfg.Strategy)
	logger := logging.New(string(role))
	logger.Infof("Starting %v", cfg)

	catalog, err := profile.LoadCatalogFile(cfg.Catalog)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %d privacy profiles from %s", catalog.Len(), cfg.Catalog)

	rec, closeRec, err := openRecorder(cfg, logger)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(closeRec))

	s, err := sweep.New(sweep.Config{
		Role:     role,
		Budgets:  sweep.Budgets(cfg.Epsilons, cfg.Deltas),
		Catalog:  catalog,
		Seed:     cfg.Seed,
		Strategy: strategy,
		Factory: sweep.NewLogisticFactory(sweep.DataSource{
			TumorPath:   cfg.TumorPath,
			NormalPath:  cfg.NormalPath,
			GenesDir:    cfg.GenesDir,
			ShuffleSeed: cfg.ShuffleSeed,
		}),
		OutputDir:    cfg.OutputDir,
		ArtifactName: cfg.ArtifactName,
		Recorder:     rec,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	conn, err := dial(ctx, role, cfg, logger)
	if err != nil {
		return err
	}
	if role == walk.Client {
		// the server ends the sweep by closing the connection
		defer conn.Close()
	}

	results, err := s.Run(ctx, conn)
	var trained, skipped int
	for _, res := range results {
		if res.Skipped != "" {
			skipped++
		} else {
			trained++
		}
	}
	logger.Infof("Sweep finished: %d trained, %d skipped", trained, skipped)
	return err
}

// dial establishes the connection to the other participant.
func dial(ctx context.Context, role walk.Role, cfg *config.ParticipantConfig, logger logging.Logger) (*channel.Channel, error) {
	opts := channel.Options{
		BindRetryDelay:  cfg.BindRetryDelay,
		ConnectInterval: cfg.ConnectInterval,
		Logger:          logger,
	}
	if role == walk.Client {
		return channel.Connect(ctx, cfg.Host, cfg.Port, opts)
	}
	mode, err := channel.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	addr, err := channel.BindAddress(mode)
	if err != nil {
		return nil, err
	}
	return channel.Listen(ctx, addr, cfg.Port, opts)
}

// openRecorder returns a recorder writing to the measurements file of cfg,
// or discarding measurements if none is set. The returned function flushes
// and closes the file.
func openRecorder(cfg *config.ParticipantConfig, logger logging.Logger) (*metrics.Recorder, func() error, error) {
	if cfg.Measurements == "" {
		rec := metrics.NewRecorder(nil, logger)
		return rec, rec.Close, nil
	}
	path := cfg.Measurements
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.OutputDir, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create measurements file: %w", err)
	}
	wr := bufio.NewWriter(f)
	out, err := metrics.NewJSONLogger(wr, logger)
	if err != nil {
		return nil, nil, multierr.Append(err, f.Close())
	}
	rec := metrics.NewRecorder(out, logger)
	closeFn := func() error {
		return multierr.Combine(rec.Close(), wr.Flush(), f.Close())
	}
	return rec, closeFn, nil
}
