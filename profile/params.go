package profile

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Hyperparameters maps a hyperparameter name to its catalog value.
type Hyperparameters map[string]string

func (h Hyperparameters) clone() Hyperparameters {
	if h == nil {
		return nil
	}
	out := make(Hyperparameters, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// TrainingParams are the hyperparameters consumed by a training run.
type TrainingParams struct {
	LearningRate    float64 `mapstructure:"learning_rate" json:"learning_rate"`
	NoiseMultiplier float64 `mapstructure:"noise_multiplier" json:"noise_multiplier"`
	MaxGradNorm     float64 `mapstructure:"max_grad_norm" json:"max_grad_norm"`
	SampleRate      float64 `mapstructure:"sample_rate" json:"sample_rate"`
	BatchesPerRound int     `mapstructure:"batches_per_round" json:"batches_per_round"`
	FLRounds        int     `mapstructure:"fl_rounds" json:"fl_rounds"`
	GenesSelection  string  `mapstructure:"genes_selection" json:"genes_selection"`
}

// Steps returns the number of local steps each participant performs.
func (p TrainingParams) Steps() int {
	return p.FLRounds * p.BatchesPerRound
}

// Validate checks that the parameters describe a runnable configuration.
func (p TrainingParams) Validate() error {
	switch {
	case !(p.LearningRate > 0):
		return fmt.Errorf("profile: learning_rate must be positive, got %v", p.LearningRate)
	case p.NoiseMultiplier < 0:
		return fmt.Errorf("profile: noise_multiplier must not be negative, got %v", p.NoiseMultiplier)
	case !(p.MaxGradNorm > 0):
		return fmt.Errorf("profile: max_grad_norm must be positive, got %v", p.MaxGradNorm)
	case !(p.SampleRate > 0 && p.SampleRate <= 1):
		return fmt.Errorf("profile: sample_rate must be in (0, 1], got %v", p.SampleRate)
	case p.BatchesPerRound < 1:
		return fmt.Errorf("profile: batches_per_round must be at least 1, got %d", p.BatchesPerRound)
	case p.FLRounds < 1:
		return fmt.Errorf("profile: fl_rounds must be at least 1, got %d", p.FLRounds)
	}
	return nil
}

// Decode decodes the hyperparameters into out, which must be a pointer to a
// struct with mapstructure tags. Numeric strings are converted to the field
// type; integral floats such as "5.0" are accepted for integer fields.
func (h Hyperparameters) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       integralFloatHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]string(h)); err != nil {
		return fmt.Errorf("profile: failed to decode hyperparameters: %w", err)
	}
	return nil
}

// TrainingParams decodes and validates the training hyperparameters.
func (h Hyperparameters) TrainingParams() (TrainingParams, error) {
	var p TrainingParams
	if err := h.Decode(&p); err != nil {
		return TrainingParams{}, err
	}
	if p.GenesSelection == "None" {
		p.GenesSelection = ""
	}
	if err := p.Validate(); err != nil {
		return TrainingParams{}, err
	}
	return p, nil
}

func integralFloatHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}
	s := data.(string)
	if _, err := strconv.ParseInt(s, 0, 64); err == nil {
		return data, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return data, nil
	}
	return strconv.FormatInt(int64(f), 10), nil
}
