package meshio

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Faultbox/polyweld/pkg/polymesh"
)

// Format selects the serialized form of a mesh.
type Format string

const (
	FormatJSON  Format = "json"
	FormatProto Format = "pb"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatProto:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or pb)", s)
	}
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Encode serializes m in the given format.
func Encode(f Format, m *polymesh.Mesh, indent int) ([]byte, error) {
	switch f {
	case FormatJSON:
		var buf bytes.Buffer
		if err := EncodeJSON(&buf, m, indent); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatProto:
		return EncodeProto(m)
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}

// Decode parses data written by Encode.
func Decode(f Format, data []byte) (*Document, error) {
	switch f {
	case FormatJSON:
		return DecodeJSON(bytes.NewReader(data))
	case FormatProto:
		return DecodeProto(data)
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}

// FileSink writes each mesh to Dir as <base name>.<format>.
type FileSink struct {
	Dir    string
	Format Format
	Indent int

	// Written records the path of the last file written.
	Written string
}

// Path returns the file a mesh called name is written to. Directories and
// the source extension are dropped: "data/model/house.rsm" becomes
// Dir/house.json.
func (s *FileSink) Path(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	return filepath.Join(s.Dir, base+s.Format.Ext())
}

// Write encodes m completely before touching the file system, so a mesh
// that fails to encode leaves no partial output.
func (s *FileSink) Write(name string, m *polymesh.Mesh) error {
	data, err := Encode(s.Format, m, s.Indent)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	out := s.Path(name)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	s.Written = out
	return nil
}
