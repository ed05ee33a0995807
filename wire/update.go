package wire

// Action selects how a received vector is combined with the local parameters.
type Action string

const (
	// Overwrite replaces the local parameters with the received ones.
	Overwrite Action = "overwrite"
	// Aggregate replaces the local parameters with the mean of both vectors.
	Aggregate Action = "aggregate"
)

var updates = map[Action]func(local, received []float32){
	Overwrite: func(local, received []float32) {
		copy(local, received)
	},
	Aggregate: func(local, received []float32) {
		for i := range local {
			local[i] = 0.5 * (received[i] + local[i])
		}
	},
}

// ParseAction returns the action with the given name.
func ParseAction(name string) (Action, error) {
	a := Action(name)
	if _, ok := updates[a]; !ok {
		return "", protocolErrorf("unknown action %q", name)
	}
	return a, nil
}

// ApplyUpdate combines received into local in place according to action.
func ApplyUpdate(local, received []float32, action Action) error {
	update, ok := updates[action]
	if !ok {
		return protocolErrorf("unknown action %q", string(action))
	}
	if len(local) != len(received) {
		return protocolErrorf("received %d parameters, model has %d", len(received), len(local))
	}
	update(local, received)
	return nil
}
