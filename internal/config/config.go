// Package config holds the configuration of a participant process.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/relab/fedwalk/channel"
	"github.com/relab/fedwalk/walk"
	"go.uber.org/multierr"
)

// Default settings.
const (
	DefaultPort         = 8001
	DefaultServerSeed   = 141
	DefaultClientSeed   = 42
	DefaultShuffleSeed  = 42
	DefaultArtifactName = "server_model.bin"
)

// ParticipantConfig is the configuration of one participant.
type ParticipantConfig struct {
	// Participant is "server" or "client".
	Participant string `json:"participant"`
	// Mode is the launch mode; it selects the address the server binds.
	Mode string `json:"mode"`
	// Host is the address of the server, used by the client.
	Host string `json:"host"`
	Port int    `json:"port"`
	// Strategy is the training strategy; only "walk" is supported.
	Strategy string `json:"strategy"`

	// Catalog is the path of the privacy profile catalog.
	Catalog  string    `json:"catalog"`
	Epsilons []float64 `json:"epsilons"`
	Deltas   []float64 `json:"deltas"`

	TumorPath   string `json:"tumor"`
	NormalPath  string `json:"normal"`
	GenesDir    string `json:"genes_dir"`
	Seed        uint64 `json:"seed"`
	ShuffleSeed uint64 `json:"shuffle_seed"`

	// OutputDir receives the server's models, the manifest and measurements.
	OutputDir    string `json:"output"`
	ArtifactName string `json:"artifact_name"`
	// Measurements, if set, is the file step measurements are written to.
	Measurements string `json:"measurements"`

	BindRetryDelay  time.Duration `json:"-"`
	ConnectInterval time.Duration `json:"-"`

	// seedSet records that Seed was given explicitly rather than defaulted.
	seedSet bool
}

// Clone returns a deep copy of c.
func (c *ParticipantConfig) Clone() *ParticipantConfig {
	out := *c
	out.Epsilons = append([]float64(nil), c.Epsilons...)
	out.Deltas = append([]float64(nil), c.Deltas...)
	return &out
}

// SetParticipant changes the role of c. Unless the seed was given
// explicitly, it is reset to the default seed of the new role.
func (c *ParticipantConfig) SetParticipant(participant string) {
	c.Participant = participant
	c.defaultSeed()
}

func (c *ParticipantConfig) defaultSeed() {
	if c.seedSet {
		return
	}
	c.Seed = DefaultClientSeed
	if c.Participant == "server" {
		c.Seed = DefaultServerSeed
	}
}

// Role returns the validated participant role.
func (c *ParticipantConfig) Role() (walk.Role, error) {
	return walk.ParseRole(c.Participant)
}

// Validate checks that c describes a runnable participant.
func (c *ParticipantConfig) Validate() error {
	var errs []error
	if _, err := c.Role(); err != nil {
		errs = append(errs, err)
	}
	if _, err := channel.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := walk.ParseStrategy(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: invalid port %d", c.Port))
	}
	if c.Catalog == "" {
		errs = append(errs, errors.New("config: no profile catalog given"))
	}
	if len(c.Epsilons) == 0 || len(c.Deltas) == 0 {
		errs = append(errs, errors.New("config: at least one epsilon and one delta are required"))
	}
	if c.TumorPath == "" || c.NormalPath == "" {
		errs = append(errs, errors.New("config: tumor and normal data files are required"))
	}
	return multierr.Combine(errs...)
}
