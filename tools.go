//go:build tools

package fedwalk

import (
	_ "cuelang.org/go/cmd/cue"
	_ "github.com/golang/mock/mockgen"
)
