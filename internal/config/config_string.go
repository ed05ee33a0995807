package config

import (
	"fmt"
	"strings"
)

// Join formats the elements of a separated by sep.
func Join[T any](a []T, sep string) string {
	return strings.Trim(strings.ReplaceAll(fmt.Sprint(a), " ", sep), "[]")
}

func (c *ParticipantConfig) String() string {
	s := strings.Builder{}
	fmt.Fprintf(&s, "Participant: %s, Mode: %s, ", c.Participant, c.Mode)
	if c.Participant == "client" {
		fmt.Fprintf(&s, "Host: %s, ", c.Host)
	}
	fmt.Fprintf(&s, "Port: %d, Strategy: %s, ", c.Port, c.Strategy)
	fmt.Fprintf(&s, "Catalog: %s, ", c.Catalog)
	fmt.Fprintf(&s, "Epsilons: %s, Deltas: %s, ", Join(c.Epsilons, ", "), Join(c.Deltas, ", "))
	fmt.Fprintf(&s, "Seed: %d", c.Seed)
	if c.OutputDir != "" {
		fmt.Fprintf(&s, ", Output: %s", c.OutputDir)
	}
	return s.String()
}
