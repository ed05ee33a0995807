// Package walk implements the alternating-turn training hand-off between two
// participants.
//
// The two participants share a single parameter vector that walks back and
// forth over the channel. Whoever holds the vector overwrites its local model
// with it, takes one private DP-SGD step on its own data and passes the result
// on. The client starts the walk by sending its initial parameters and the
// server ends it by receiving the vector produced by the client's last step.
package walk

import (
	"errors"
	"fmt"
)

//go:generate mockgen -destination=../internal/mocks/model_mock.go -package=mocks . Model
//go:generate mockgen -destination=../internal/mocks/optimizer_mock.go -package=mocks . Optimizer
//go:generate mockgen -destination=../internal/mocks/transport_mock.go -package=mocks . Transport

// Role is the side a participant plays in the walk.
type Role string

const (
	// Server accepts the connection, receives first and persists the final model.
	Server Role = "server"
	// Client connects and sends its initial parameters first.
	Client Role = "client"
)

// ParseRole validates a role name.
func ParseRole(name string) (Role, error) {
	switch r := Role(name); r {
	case Server, Client:
		return r, nil
	default:
		return "", fmt.Errorf("walk: unknown participant %q", name)
	}
}

// Strategy names a training strategy.
type Strategy string

// Walk is the only supported strategy.
const Walk Strategy = "walk"

// ErrUnknownStrategy is returned for a strategy other than Walk.
var ErrUnknownStrategy = errors.New("walk: unknown strategy")

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	if Strategy(name) != Walk {
		return "", fmt.Errorf("%w %q", ErrUnknownStrategy, name)
	}
	return Walk, nil
}

// Model is the local model whose flattened parameters are exchanged.
// The length and order of the parameters must be the same on both sides and
// must not change during a run.
type Model interface {
	// Parameters returns a copy of the flattened parameters.
	Parameters() []float32
	// SetParameters replaces all parameters with a copy of p.
	SetParameters(p []float32) error
}

// Optimizer takes one local training step on the given sample indices.
type Optimizer interface {
	Step(batch []int) (loss float64, err error)
}

// Transport carries parameter vectors between the participants.
// *wire.Codec implements Transport.
type Transport interface {
	Send(v []float32) error
	ReceiveInto(dst []float32) error
}
