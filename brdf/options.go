package brdf

import (
	"log/slog"

	"github.com/mrjoshuak/go-brdf/internal/parallel"
)

// Options configures loading.
type Options struct {
	// ClipRGB zeroes negative RGB values, which occur where the measured
	// spectra fall outside the RGB gamut. Spectral values are never clipped.
	ClipRGB bool

	// UseMmap reads the file through a memory mapping instead of a heap copy.
	UseMmap bool

	// Workers bounds the goroutines used to build sampling tables.
	// 0 means runtime.GOMAXPROCS(0).
	Workers int

	// Logger receives load-time diagnostics. Nil discards them.
	Logger *slog.Logger

	// Metrics records load outcomes. Nil disables metrics.
	Metrics *Metrics
}

// DefaultOptions returns options with RGB clipping enabled.
func DefaultOptions() Options {
	return Options{ClipRGB: true}
}

func (o *Options) resolve() Options {
	r := DefaultOptions()
	if o != nil {
		r = *o
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.DiscardHandler)
	}
	return r
}

func (o *Options) parallelConfig() parallel.Config {
	c := parallel.DefaultConfig()
	c.NumWorkers = o.Workers
	return c
}
