// Package pipeline runs one conversion: load a triangle soup, weld it, build
// adjacency, merge coplanar faces and hand the result to every sink.
package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/polyweld/internal/config"
	"github.com/Faultbox/polyweld/internal/logger"
	"github.com/Faultbox/polyweld/pkg/polymesh"
	"github.com/Faultbox/polyweld/pkg/weld"
)

// MeshSource yields the triangle soup of one model.
type MeshSource interface {
	// Name identifies the model; sinks derive output names from it.
	Name() string
	Load() (polymesh.Soup, error)
}

// MeshSink consumes a finished polygon mesh.
type MeshSink interface {
	Write(name string, m *polymesh.Mesh) error
}

// Options controls the conversion stages.
type Options struct {
	Threshold   float32
	MaxPasses   int
	Weld        bool
	WeldEpsilon float32
}

// DefaultOptions returns single-pass merging at the default threshold with
// welding enabled.
func DefaultOptions() Options {
	return Options{
		Threshold:   polymesh.DefaultCoplanarThreshold,
		MaxPasses:   1,
		Weld:        true,
		WeldEpsilon: weld.DefaultEpsilon,
	}
}

// OptionsFromConfig maps the remesh and weld sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Threshold:   cfg.Remesh.Threshold,
		MaxPasses:   cfg.Remesh.MaxPasses,
		Weld:        cfg.Weld.Enabled,
		WeldEpsilon: cfg.Weld.Epsilon,
	}
}

// Result describes a finished conversion.
type Result struct {
	Name string
	Mesh *polymesh.Mesh

	InputVertices  int
	InputTriangles int
	// Welded counts positions folded into an earlier one.
	Welded int
	// Collapsed counts triangles dropped because welding left them with a
	// repeated corner.
	Collapsed int
	Remesh    polymesh.Stats
	Duration  time.Duration
}

// Run loads src, converts it and writes the mesh to every sink in order.
// Sinks are only called once the whole conversion has succeeded.
func Run(src MeshSource, opts Options, sinks ...MeshSink) (*Result, error) {
	name := src.Name()
	soup, err := src.Load()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}

	res, err := Convert(name, soup, opts)
	if err != nil {
		return nil, err
	}

	for _, sink := range sinks {
		if err := sink.Write(name, res.Mesh); err != nil {
			return res, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return res, nil
}

// Convert turns soup into a compacted, validated polygon mesh.
func Convert(name string, soup polymesh.Soup, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{
		Name:           name,
		InputVertices:  len(soup.Positions),
		InputTriangles: soup.TriangleCount(),
	}

	if err := soup.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug("mesh loaded",
		zap.String("name", name),
		zap.Int("vertices", res.InputVertices),
		zap.Int("triangles", res.InputTriangles))

	if opts.Weld {
		w := weld.Weld(soup.Positions, soup.Indices, opts.WeldEpsilon)
		soup = polymesh.Soup{Positions: w.Positions, Indices: w.Indices}
		res.Welded = w.Merged()
		logger.Debug("welded",
			zap.String("name", name),
			zap.Int("merged", res.Welded),
			zap.Int("vertices", len(w.Positions)))
	}

	soup.Indices, res.Collapsed = DropCollapsed(soup.Indices)
	if res.Collapsed > 0 {
		logger.Warn("dropped collapsed triangles",
			zap.String("name", name),
			zap.Int("count", res.Collapsed))
	}

	m, err := polymesh.BuildAdjacency(soup)
	if err != nil {
		return nil, fmt.Errorf("%s: building adjacency: %w", name, err)
	}

	stats, err := polymesh.RemeshUntilStable(m, opts.Threshold, opts.MaxPasses)
	res.Remesh = stats
	if err != nil {
		return nil, fmt.Errorf("%s: remeshing: %w", name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, polymesh.ErrInconsistent, err)
	}

	res.Mesh = m
	res.Duration = time.Since(start)
	logger.Info("mesh converted",
		zap.String("name", name),
		zap.Int("triangles", res.InputTriangles),
		zap.Int("faces", len(m.Faces)),
		zap.Int("edges", len(m.Edges)),
		zap.Int("merged", stats.Merged),
		zap.Int("rejected", stats.Rejected),
		zap.Int("passes", stats.Passes),
		zap.Duration("took", res.Duration))
	return res, nil
}

// DropCollapsed removes triangles that name the same vertex twice and
// returns the remaining index list with the number of triangles removed.
func DropCollapsed(indices []int) ([]int, int) {
	out := make([]int, 0, len(indices))
	dropped := 0
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if a == b || b == c || a == c {
			dropped++
			continue
		}
		out = append(out, a, b, c)
	}
	return out, dropped
}
