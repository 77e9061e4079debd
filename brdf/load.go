package brdf

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mrjoshuak/go-brdf/tensor"
)

// LoadRGB reads the tensor file at path and builds an RGB BRDF from its
// "rgb" field. A nil opts uses DefaultOptions.
//
// Failures wrap *tensor.IOError, *tensor.FormatError or
// *tensor.CorruptDataError.
func LoadRGB(path string, opts *Options) (*RGB, error) {
	m, err := load(path, variantRGB, opts)
	if err != nil {
		return nil, err
	}
	return &RGB{m: m}, nil
}

// LoadSpectral reads the tensor file at path and builds a spectral BRDF
// from its "spectra" and "wavelengths" fields.
func LoadSpectral(path string, opts *Options) (*Spectral, error) {
	m, err := load(path, variantSpectral, opts)
	if err != nil {
		return nil, err
	}
	return &Spectral{m: m}, nil
}

// NewRGB builds an RGB BRDF from an already parsed file. The result does
// not reference f, which may be closed afterwards.
func NewRGB(f *tensor.File, opts *Options) (*RGB, error) {
	o := opts.resolve()
	m, err := build(f, variantRGB, &o, time.Now())
	if err != nil {
		return nil, err
	}
	return &RGB{m: m}, nil
}

// NewSpectral builds a spectral BRDF from an already parsed file.
func NewSpectral(f *tensor.File, opts *Options) (*Spectral, error) {
	o := opts.resolve()
	m, err := build(f, variantSpectral, &o, time.Now())
	if err != nil {
		return nil, err
	}
	return &Spectral{m: m}, nil
}

func load(path string, v variant, opts *Options) (model, error) {
	o := opts.resolve()
	start := time.Now()

	var (
		f   *tensor.File
		err error
	)
	if o.UseMmap {
		f, err = tensor.ReadFileMmap(path)
	} else {
		f, err = tensor.ReadFile(path)
	}
	if err != nil {
		o.Metrics.observe(v, start, 0, err)
		o.Logger.Error("brdf_load_failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model{}, fmt.Errorf("brdf: load %s: %w", path, err)
	}
	defer f.Close()

	o.Logger.Debug("brdf_file_read",
		slog.String("path", path),
		slog.Int("fields", len(f.Fields())),
		slog.String("size", tensor.FormatSize(f.Size())),
		slog.Bool("mmap", o.UseMmap),
	)

	m, err := build(f, v, &o, start)
	if err != nil {
		o.Logger.Error("brdf_load_failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model{}, fmt.Errorf("brdf: load %s: %w", path, err)
	}
	return m, nil
}

func build(f *tensor.File, v variant, o *Options, start time.Time) (model, error) {
	ts, err := newTableSet(f, v, o.parallelConfig(), o.Logger)
	if err != nil {
		o.Metrics.observe(v, start, 0, err)
		return model{}, err
	}
	o.Metrics.observe(v, start, ts.bytes, nil)

	o.Logger.Info("brdf_loaded",
		slog.String("variant", v.String()),
		slog.String("description", ts.description),
		slog.Bool("isotropic", ts.isotropic),
		slog.Int("channels", len(ts.channels)),
		slog.String("tables", tensor.FormatSize(int64(ts.bytes))),
		slog.Duration("duration", time.Since(start)),
	)
	return model{t: ts, clip: o.ClipRGB && v == variantRGB}, nil
}
