package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaFile string

// LoadCue loads a sweep description from a cue file. The file must define a
// top-level config struct, which is validated against the embedded schema.
// Values in the file override those in base; base may be nil. If the file
// changes the participant and neither it nor base set the seed explicitly,
// the seed becomes the default of the new role.
func LoadCue(filename string, base *ParticipantConfig) (*ParticipantConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseCue(string(b), filename, base)
}

// ParseCue is like LoadCue but reads the cue source from src.
func ParseCue(src, filename string, base *ParticipantConfig) (*ParticipantConfig, error) {
	if base == nil {
		base = &ParticipantConfig{}
	}
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaFile).LookupPath(cue.ParsePath("config"))
	if schema.Err() != nil {
		return nil, schema.Err()
	}

	elem := ctx.CompileString(src, cue.Filename(filename))
	if elem.Err() != nil {
		return nil, elem.Err()
	}
	cfg := elem.LookupPath(cue.ParsePath("config"))
	if !cfg.Exists() {
		return nil, fmt.Errorf("%s: no config struct", filename)
	}
	if cfg.Err() != nil {
		return nil, fmt.Errorf("failed to get config from cue file: %w", cfg.Err())
	}

	unified := schema.Unify(cfg)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}
	out := base.Clone()
	if err := unified.Decode(out); err != nil {
		return nil, err
	}
	if cfg.LookupPath(cue.ParsePath("seed")).Exists() {
		out.seedSet = true
	}
	if cfg.LookupPath(cue.ParsePath("participant")).Exists() {
		out.defaultSeed()
	}
	return out, nil
}
