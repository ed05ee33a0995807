package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/relab/fedwalk/internal/config"
	"github.com/spf13/viper"
)

func TestLoadCue(t *testing.T) {
	const src = `
config: {
	participant: "server"
	mode:        "docker"
	port:        9000
	catalog:     "profiles.csv"
	epsilons: [1, 3, 10.5]
	deltas: [0, 1e-5]
	seed: 7
}
`
	filename := filepath.Join(t.TempDir(), "sweep.cue")
	if err := os.WriteFile(filename, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	base := &config.ParticipantConfig{
		Participant: "client",
		Host:        "peer",
		TumorPath:   "tumor.tsv",
		NormalPath:  "normal.tsv",
		Strategy:    "walk",
	}
	got, err := config.LoadCue(filename, base)
	if err != nil {
		t.Fatal(err)
	}
	want := &config.ParticipantConfig{
		Participant: "server",
		Mode:        "docker",
		Host:        "peer",
		Port:        9000,
		Strategy:    "walk",
		Catalog:     "profiles.csv",
		Epsilons:    []float64{1, 3, 10.5},
		Deltas:      []float64{0, 1e-5},
		TumorPath:   "tumor.tsv",
		NormalPath:  "normal.tsv",
		Seed:        7,
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(config.ParticipantConfig{})); diff != "" {
		t.Errorf("LoadCue() mismatch (-want +got):\n%s", diff)
	}
	if base.Participant != "client" {
		t.Errorf("LoadCue modified base: got: %q, want: %q", base.Participant, "client")
	}
}

func TestParseCueRoleSeed(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		src      string
		wantSeed uint64
	}{
		{name: "ServerDefault", src: `config: {participant: "server"}`, wantSeed: config.DefaultServerSeed},
		{name: "ClientDefault", settings: map[string]any{"participant": "server"}, src: `config: {participant: "client"}`, wantSeed: config.DefaultClientSeed},
		{name: "SeedInFile", src: `config: {participant: "server", seed: 3}`, wantSeed: 3},
		{name: "SeedFlag", settings: map[string]any{"seed": 11}, src: `config: {participant: "server"}`, wantSeed: 11},
		{name: "RoleUnchanged", settings: map[string]any{"participant": "server"}, src: `config: {port: 9000}`, wantSeed: config.DefaultServerSeed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			for k, v := range tt.settings {
				viper.Set(k, v)
			}
			base, err := config.NewViper()
			if err != nil {
				t.Fatal(err)
			}
			got, err := config.ParseCue(tt.src, tt.name+".cue", base)
			if err != nil {
				t.Fatal(err)
			}
			if got.Seed != tt.wantSeed {
				t.Errorf("got: %d, want: %d", got.Seed, tt.wantSeed)
			}
		})
	}
}

func TestParseCueInvalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "NoConfig", src: `other: 1`},
		{name: "UnknownField", src: `config: {replicas: 4}`},
		{name: "UnknownMode", src: `config: {mode: "kubernetes"}`},
		{name: "UnknownStrategy", src: `config: {strategy: "fedavg"}`},
		{name: "NonPositiveEpsilon", src: `config: {epsilons: [1, 0]}`},
		{name: "NegativeDelta", src: `config: {deltas: [-1e-5]}`},
		{name: "PortRange", src: `config: {port: 70000}`},
		{name: "Syntax", src: `config: {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.ParseCue(tt.src, tt.name+".cue", nil); err == nil {
				t.Error("ParseCue() succeeded, want error")
			}
		})
	}
}
