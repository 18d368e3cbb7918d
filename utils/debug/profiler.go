// Package debug provides a periodic pprof capture helper, running its own
// stop channel and following the Ready/Run/Done lifecycle used elsewhere in
// the module by datastore.Merger.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
)

// AutoProfiler periodically captures heap, goroutine, block, mutex and CPU
// profiles to dir, for diagnosing the hash engine's worker pool or the
// datastore merger under load.
type AutoProfiler struct {
	dir      string
	log      zerolog.Logger
	interval time.Duration
	done     chan struct{}
	stopc    chan struct{}
}

// NewAutoProfiler creates a profiler writing into dir, which is created if
// missing.
func NewAutoProfiler(dir string, log zerolog.Logger) (*AutoProfiler, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("could not create profile dir: %w", err)
	}
	return &AutoProfiler{
		dir:      dir,
		log:      log.With().Str("component", "auto-profiler").Logger(),
		interval: 3 * time.Minute,
		done:     make(chan struct{}),
		stopc:    make(chan struct{}),
	}, nil
}

// Ready starts the capture loop and returns immediately.
func (p *AutoProfiler) Ready() <-chan struct{} {
	ch := make(chan struct{})
	go p.start()
	close(ch)
	return ch
}

// Done requests the loop stop and returns a channel that is closed once it
// has stopped.
func (p *AutoProfiler) Done() <-chan struct{} {
	close(p.stopc)
	return p.done
}

func (p *AutoProfiler) start() {
	defer close(p.done)
	tick := time.NewTicker(p.interval)
	defer tick.Stop()

	for {
		p.log.Info().Msg("starting profile trace")
		p.pprof("heap")
		p.pprof("goroutine")
		p.pprof("block")
		p.pprof("mutex")
		p.cpu()
		p.log.Info().Msg("finished profile trace")

		select {
		case <-p.stopc:
			return
		case <-tick.C:
			continue
		}
	}
}

func (p *AutoProfiler) pprof(profile string) {
	path := filepath.Join(p.dir, fmt.Sprintf("%s-%s", profile, time.Now().Format(time.RFC3339)))
	log := p.log.With().Str("file", path).Logger()
	log.Debug().Msgf("capturing %s profile", profile)

	f, err := os.Create(path)
	if err != nil {
		p.log.Error().Err(err).Msgf("failed to open %s file", profile)
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Error().Err(cerr).Msgf("failed to close %s file", profile)
		}
	}()

	if err := pprof.Lookup(profile).WriteTo(f, 0); err != nil {
		p.log.Error().Err(err).Msgf("failed to write to %s file", profile)
	}
}

func (p *AutoProfiler) cpu() {
	path := filepath.Join(p.dir, fmt.Sprintf("cpu-%s", time.Now().Format(time.RFC3339)))
	log := p.log.With().Str("file", path).Logger()
	log.Debug().Msgf("capturing cpu profile")

	f, err := os.Create(path)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to open cpu file")
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Error().Err(cerr).Msgf("failed to close CPU file")
		}
	}()

	if err := pprof.StartCPUProfile(f); err != nil {
		p.log.Error().Err(err).Msg("failed to start CPU profile")
		return
	}
	time.Sleep(10 * time.Second)
	pprof.StopCPUProfile()
}
