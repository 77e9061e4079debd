package brdf

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrjoshuak/go-brdf/internal/parallel"
	"github.com/mrjoshuak/go-brdf/tensor"
	"github.com/mrjoshuak/go-brdf/warp"
)

// variant selects which reflectance field a table set is built from.
type variant int

const (
	variantRGB variant = iota
	variantSpectral
)

func (v variant) String() string {
	if v == variantSpectral {
		return "spectral"
	}
	return "rgb"
}

// tableSet is the immutable in-memory form of a measured BRDF file.
type tableSet struct {
	ndf   *warp.Marginal2D
	sigma *warp.Marginal2D

	// vndf and luminance are conditioned on (phi_i, theta_i).
	vndf      *warp.Marginal2D
	luminance *warp.Marginal2D

	// values is conditioned on (phi_i, theta_i, channel).
	values   *warp.Marginal2D
	channels []float64

	wavelengths []float64
	thetaI      []float64
	phiI        []float64

	isotropic   bool
	jacobian    bool
	sym         symmetry
	description string

	// bytes is the total size of the decoded tables.
	bytes int
}

// grid describes a field shaped [params..., ny, nx].
type grid struct {
	name   string
	data   []float32
	nx, ny int
	lead   []int
}

func loadGrid(f *tensor.File, name string, rank int) (*grid, error) {
	field := f.Field(name)
	if field == nil {
		return nil, tensor.Missing(name)
	}
	if len(field.Shape) != rank {
		return nil, tensor.Corrupt(name, "rank %d, want %d", len(field.Shape), rank)
	}
	g := &grid{
		name: name,
		nx:   field.Shape[rank-1],
		ny:   field.Shape[rank-2],
		lead: field.Shape[:rank-2],
	}
	if g.nx < 2 || g.ny < 2 {
		return nil, tensor.Corrupt(name, "grid %dx%d is smaller than 2x2", g.nx, g.ny)
	}
	g.data = field.Float32s()
	return g, nil
}

func loadAxis(f *tensor.File, name string) ([]float64, error) {
	field := f.Field(name)
	if field == nil {
		return nil, tensor.Missing(name)
	}
	if len(field.Shape) != 1 || field.Shape[0] == 0 {
		return nil, tensor.Corrupt(name, "want a non-empty 1D axis, have shape %s", tensor.FormatShape(field.Shape))
	}
	axis := field.Float64s()
	for i := 1; i < len(axis); i++ {
		if !(axis[i] > axis[i-1]) {
			return nil, tensor.Corrupt(name, "axis is not strictly increasing at %d", i)
		}
	}
	return axis, nil
}

func (g *grid) expectLead(dims ...int) error {
	if len(g.lead) != len(dims) {
		return tensor.Corrupt(g.name, "rank %d, want %d", len(g.lead)+2, len(dims)+2)
	}
	for i, d := range dims {
		if g.lead[i] != d {
			return tensor.Corrupt(g.name, "dimension %d is %d, want %d", i, g.lead[i], d)
		}
	}
	return nil
}

func (g *grid) build(params [][]float64, opts warp.Options) (*warp.Marginal2D, error) {
	m, err := warp.New(g.data, g.nx, g.ny, params, opts)
	if err != nil {
		reason := "invalid table"
		switch {
		case errors.Is(err, warp.ErrNegative):
			reason = "negative density"
		case errors.Is(err, warp.ErrZeroMass):
			reason = "density slice has zero mass"
		}
		return nil, &tensor.CorruptDataError{Field: g.name, Reason: reason, Err: err}
	}
	return m, nil
}

// newTableSet validates the fields of f and builds the sampling tables.
func newTableSet(f *tensor.File, v variant, cfg parallel.Config, log *slog.Logger) (*tableSet, error) {
	start := time.Now()
	ts := &tableSet{
		description: f.Description(),
		jacobian:    true,
	}

	var err error
	if ts.thetaI, err = loadAxis(f, "theta_i"); err != nil {
		return nil, err
	}
	if ts.phiI, err = loadAxis(f, "phi_i"); err != nil {
		return nil, err
	}
	ts.isotropic = len(ts.phiI) <= 2
	ts.sym = newSymmetry(ts.phiI, ts.isotropic)

	if f.Has("jacobian") {
		jf := f.Field("jacobian")
		if jf.Len() < 1 {
			return nil, tensor.Corrupt("jacobian", "empty flag")
		}
		ts.jacobian = jf.Float64s()[0] != 0
	}

	nPhi, nTheta := len(ts.phiI), len(ts.thetaI)
	incident := [][]float64{ts.phiI, ts.thetaI}

	var valueField string
	switch v {
	case variantRGB:
		valueField = "rgb"
		ts.channels = []float64{0, 1, 2}
	case variantSpectral:
		valueField = "spectra"
		if ts.wavelengths, err = loadAxis(f, "wavelengths"); err != nil {
			return nil, err
		}
		ts.channels = ts.wavelengths
	}

	ndf, err := loadGrid(f, "ndf", 2)
	if err != nil {
		return nil, err
	}
	sigma, err := loadGrid(f, "sigma", 2)
	if err != nil {
		return nil, err
	}
	vndf, err := loadGrid(f, "vndf", 4)
	if err != nil {
		return nil, err
	}
	if err := vndf.expectLead(nPhi, nTheta); err != nil {
		return nil, err
	}
	lum, err := loadGrid(f, "luminance", 4)
	if err != nil {
		return nil, err
	}
	if err := lum.expectLead(nPhi, nTheta); err != nil {
		return nil, err
	}
	values, err := loadGrid(f, valueField, 5)
	if err != nil {
		return nil, err
	}
	if err := values.expectLead(nPhi, nTheta, len(ts.channels)); err != nil {
		return nil, err
	}

	raw := warp.Options{Parallel: cfg}
	cdf := warp.Options{BuildCDF: true, Parallel: cfg}
	if ts.ndf, err = ndf.build(nil, raw); err != nil {
		return nil, err
	}
	if ts.sigma, err = sigma.build(nil, raw); err != nil {
		return nil, err
	}
	if ts.jacobian {
		for _, d := range sigma.data {
			if !(d > 0) {
				return nil, tensor.Corrupt("sigma", "projected area must be positive")
			}
		}
	}
	if ts.vndf, err = vndf.build(incident, cdf); err != nil {
		return nil, err
	}
	if ts.luminance, err = lum.build(incident, cdf); err != nil {
		return nil, err
	}
	if ts.values, err = values.build([][]float64{ts.phiI, ts.thetaI, ts.channels}, raw); err != nil {
		return nil, err
	}

	for _, g := range []*grid{ndf, sigma, vndf, lum, values} {
		ts.bytes += 8 * len(g.data)
	}
	ts.bytes += 8 * (len(vndf.data) + len(lum.data) + nPhi*nTheta*(vndf.ny+lum.ny))

	log.Debug("brdf_tables_built",
		slog.String("variant", v.String()),
		slog.Int("theta_i", nTheta),
		slog.Int("phi_i", nPhi),
		slog.Int("channels", len(ts.channels)),
		slog.String("vndf_grid", fmt.Sprintf("%dx%d", vndf.nx, vndf.ny)),
		slog.String("values_grid", fmt.Sprintf("%dx%d", values.nx, values.ny)),
		slog.Bool("isotropic", ts.isotropic),
		slog.Int("reduction", ts.sym.k),
		slog.Bool("jacobian", ts.jacobian),
		slog.Duration("duration", time.Since(start)),
	)
	return ts, nil
}
