// Package profiling starts and stops the runtime profilers of a participant.
package profiling

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/felixge/fgprof"
	"go.uber.org/multierr"
)

// Options selects the profiles to collect. Empty paths are disabled.
type Options struct {
	CPUProfile    string
	MemProfile    string
	Trace         string
	FgprofProfile string
}

// InDir returns options writing the enabled profiles to their usual file
// names in dir.
func InDir(dir string, cpu, mem, tr, fg bool) Options {
	var o Options
	if cpu {
		o.CPUProfile = filepath.Join(dir, "cpuprofile")
	}
	if mem {
		o.MemProfile = filepath.Join(dir, "memprofile")
	}
	if tr {
		o.Trace = filepath.Join(dir, "trace")
	}
	if fg {
		o.FgprofProfile = filepath.Join(dir, "fgprofprofile")
	}
	return o
}

// StartProfilers starts the profilers selected by opts. The returned function
// stops them, writes the heap profile and closes all files. If starting fails,
// the profilers already started are stopped.
func StartProfilers(opts Options) (stop func() error, err error) {
	var stops []func() error
	stopAll := func() (err error) {
		for i := len(stops) - 1; i >= 0; i-- {
			err = multierr.Append(err, stops[i]())
		}
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, stopAll())
		}
	}()

	if opts.CPUProfile != "" {
		f, err := os.Create(opts.CPUProfile)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to start CPU profile: %w", err), f.Close())
		}
		stops = append(stops, func() error {
			pprof.StopCPUProfile()
			return f.Close()
		})
	}

	if opts.FgprofProfile != "" {
		f, err := os.Create(opts.FgprofProfile)
		if err != nil {
			return nil, err
		}
		fgprofStop := fgprof.Start(f, fgprof.FormatPprof)
		stops = append(stops, func() error {
			return multierr.Append(fgprofStop(), f.Close())
		})
	}

	if opts.Trace != "" {
		f, err := os.Create(opts.Trace)
		if err != nil {
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to start trace: %w", err), f.Close())
		}
		stops = append(stops, func() error {
			trace.Stop()
			return f.Close()
		})
	}

	return func() error {
		var err error
		if opts.MemProfile != "" {
			err = writeHeapProfile(opts.MemProfile)
		}
		return multierr.Append(err, stopAll())
	}, nil
}

func writeHeapProfile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	runtime.GC() // get up-to-date statistics
	return pprof.WriteHeapProfile(f)
}
