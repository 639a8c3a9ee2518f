// Package source provides mesh sources backed by model files on disk or
// inside GRF archives.
package source

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/polyweld/pkg/formats"
	"github.com/Faultbox/polyweld/pkg/grf"
	"github.com/Faultbox/polyweld/pkg/polymesh"
)

// ErrNoTriangles is returned for models that parse but contain no geometry.
var ErrNoTriangles = errors.New("model has no triangles")

// File loads a model file; the format follows from the extension.
type File struct {
	Path string
}

// Name returns the file path.
func (f *File) Name() string {
	return f.Path
}

// Load reads and parses the file.
func (f *File) Load() (polymesh.Soup, error) {
	kind, err := formats.KindOf(f.Path)
	if err != nil {
		return polymesh.Soup{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return polymesh.Soup{}, fmt.Errorf("reading model: %w", err)
	}
	return Parse(kind, f.Path, data)
}

// Archive loads a model stored inside a GRF archive.
type Archive struct {
	Archive *grf.Archive
	Path    string
}

// Name returns the archive entry path.
func (a *Archive) Name() string {
	return a.Path
}

// Load reads the entry and parses it.
func (a *Archive) Load() (polymesh.Soup, error) {
	kind, err := formats.KindOf(a.Path)
	if err != nil {
		return polymesh.Soup{}, err
	}
	data, err := a.Archive.Read(a.Path)
	if err != nil {
		return polymesh.Soup{}, err
	}
	return Parse(kind, a.Path, data)
}

// Parse decodes model data of the given kind into a triangle soup.
func Parse(kind formats.Kind, name string, data []byte) (polymesh.Soup, error) {
	mesh, err := formats.Parse(kind, name, data)
	if err != nil {
		return polymesh.Soup{}, err
	}
	if mesh.TriangleCount() == 0 {
		return polymesh.Soup{}, fmt.Errorf("%w: %s", ErrNoTriangles, name)
	}
	return Soup(mesh), nil
}

// Soup converts a parsed triangle mesh into pipeline input.
func Soup(mesh *formats.TriMesh) polymesh.Soup {
	return polymesh.Soup{Positions: mesh.Positions, Indices: mesh.Indices}
}
