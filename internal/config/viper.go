package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// NewViper builds a ParticipantConfig from the flags, environment and config
// file bound to viper.
func NewViper() (*ParticipantConfig, error) {
	epsilons, err := floatSlice("epsilons")
	if err != nil {
		return nil, err
	}
	deltas, err := floatSlice("deltas")
	if err != nil {
		return nil, err
	}

	cfg := &ParticipantConfig{
		Participant:     viper.GetString("participant"),
		Mode:            viper.GetString("mode"),
		Host:            viper.GetString("host"),
		Port:            viper.GetInt("port"),
		Strategy:        viper.GetString("strategy"),
		Catalog:         viper.GetString("catalog"),
		Epsilons:        epsilons,
		Deltas:          deltas,
		TumorPath:       viper.GetString("tumor"),
		NormalPath:      viper.GetString("normal"),
		GenesDir:        viper.GetString("genes-dir"),
		Seed:            viper.GetUint64("seed"),
		ShuffleSeed:     viper.GetUint64("shuffle-seed"),
		OutputDir:       viper.GetString("output"),
		ArtifactName:    viper.GetString("artifact-name"),
		Measurements:    viper.GetString("measurements"),
		BindRetryDelay:  viper.GetDuration("bind-retry-delay"),
		ConnectInterval: viper.GetDuration("connect-interval"),
	}
	cfg.seedSet = viper.IsSet("seed")
	cfg.applyDefaults(viper.IsSet("shuffle-seed"))

	if cfg.OutputDir != "" {
		cfg.OutputDir, err = filepath.Abs(cfg.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return cfg, nil
}

func (c *ParticipantConfig) applyDefaults(shuffleSeedSet bool) {
	if c.Mode == "" {
		c.Mode = "subprocess"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Strategy == "" {
		c.Strategy = "walk"
	}
	c.defaultSeed()
	if !shuffleSeedSet {
		c.ShuffleSeed = DefaultShuffleSeed
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.ArtifactName == "" {
		c.ArtifactName = DefaultArtifactName
	}
}

// floatSlice reads a list of numbers given either as a list or as one
// comma separated string.
func floatSlice(key string) ([]float64, error) {
	var out []float64
	for _, item := range viper.GetStringSlice(key) {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q for %s: %w", s, key, err)
			}
			out = append(out, f)
		}
	}
	return out, nil
}
