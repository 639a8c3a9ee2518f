package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/polyweld/internal/catalog"
	"github.com/Faultbox/polyweld/internal/config"
	"github.com/Faultbox/polyweld/pkg/grf"
	"github.com/Faultbox/polyweld/pkg/meshio"
)

const plateOBJ = `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`

const tentOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
f 1 2 3
f 2 1 4
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	return cfg
}

func writeModel(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := grf.NewWriter(&buf)
	for name, content := range files {
		if err := w.Add(name, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return writeModel(t, t.TempDir(), "data.grf", buf.String())
}

func TestConvert(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	plate := writeModel(t, dir, "plate.obj", plateOBJ)
	tent := writeModel(t, dir, "tent.obj", tentOBJ)

	var out bytes.Buffer
	if err := run(cfg, "convert", []string{plate, tent}, &out); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	for _, name := range []string{"plate.json", "tent.json"} {
		data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, name))
		if err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
		doc, err := meshio.Decode(meshio.FormatJSON, data)
		if err != nil {
			t.Fatalf("decoding %s: %v", name, err)
		}
		wantFaces := map[string]int{"plate.json": 1, "tent.json": 2}[name]
		if len(doc.FaceArray) != wantFaces {
			t.Errorf("%s: faces = %d, want %d", name, len(doc.FaceArray), wantFaces)
		}
	}

	if !strings.Contains(out.String(), "2 triangles -> 1 faces, 4 edges") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestConvertProtoWithCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Format = string(meshio.FormatProto)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "meshes.db")
	plate := writeModel(t, t.TempDir(), "plate.obj", plateOBJ)

	if err := run(cfg, "convert", []string{plate}, &bytes.Buffer{}); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, "plate.pb")); err != nil {
		t.Errorf("missing protobuf output: %v", err)
	}

	var out bytes.Buffer
	if err := run(cfg, "catalog", nil, &out); err != nil {
		t.Fatalf("catalog failed: %v", err)
	}
	if !strings.Contains(out.String(), plate) {
		t.Errorf("catalog listing lacks %s:\n%s", plate, out.String())
	}

	cat, err := catalog.Open(cfg.Catalog.Path, meshio.FormatProto)
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()
	record, err := cat.Get(plate)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.Faces != 1 || record.Format != "pb" {
		t.Errorf("record = %+v", record)
	}
}

func TestConvertKeepsGoingAfterFailure(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	bad := writeModel(t, dir, "bad.obj", "v 0 0 0\nf 1 2 3\n")
	plate := writeModel(t, dir, "plate.obj", plateOBJ)

	err := run(cfg, "convert", []string{bad, plate}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an error for bad.obj")
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Output.Dir, "bad.json")); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("bad.obj produced output")
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Output.Dir, "plate.json")); statErr != nil {
		t.Errorf("plate.obj was not converted: %v", statErr)
	}
}

func TestBatch(t *testing.T) {
	cfg := testConfig(t)
	archive := writeArchive(t, map[string]string{
		"data/model/plate.obj": plateOBJ,
		"data/model/tent.obj":  tentOBJ,
		"data/model/note.txt":  "ignored",
	})

	var out bytes.Buffer
	if err := run(cfg, "batch", []string{archive, "*.obj"}, &out); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	for _, name := range []string{"plate.json", "tent.json"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if lines := strings.Count(out.String(), "\n"); lines != 2 {
		t.Errorf("expected 2 result lines, got %d:\n%s", lines, out.String())
	}

	if err := run(cfg, "batch", []string{archive, "*.rsm"}, &out); err == nil {
		t.Error("expected an error when nothing matches")
	}
}

func TestInfo(t *testing.T) {
	cfg := testConfig(t)
	tent := writeModel(t, t.TempDir(), "tent.obj", tentOBJ)

	var out bytes.Buffer
	if err := run(cfg, "info", []string{tent}, &out); err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{"(obj)", "4 vertices, 2 triangles", "2 faces, 5 edges", "Boundary:  4 edges"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("info output lacks %q:\n%s", want, out.String())
		}
	}
	if _, err := os.Stat(cfg.Output.Dir); !errors.Is(err, os.ErrNotExist) {
		t.Error("info wrote output")
	}
}

func TestList(t *testing.T) {
	archive := writeArchive(t, map[string]string{
		"data/model/plate.obj": plateOBJ,
		"data/model/note.txt":  "ignored",
	})

	var out bytes.Buffer
	if err := run(testConfig(t), "list", []string{archive}, &out); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "data/model/plate.obj" {
		t.Errorf("list output = %q", got)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		command string
		args    []string
	}{
		{"convert", nil},
		{"batch", nil},
		{"info", nil},
		{"list", nil},
		{"catalog", nil},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			err := run(testConfig(t), tt.command, tt.args, &bytes.Buffer{})
			if !errors.Is(err, errUsage) {
				t.Errorf("got %v, want a usage error", err)
			}
		})
	}

	if err := run(testConfig(t), "explode", nil, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an unknown command")
	}
	if err := run(testConfig(t), "help", nil, &bytes.Buffer{}); err != nil {
		t.Errorf("help failed: %v", err)
	}
}

func TestSplitArchives(t *testing.T) {
	tests := []struct {
		args        []string
		wantPaths   []string
		wantPattern string
	}{
		{[]string{"data.grf"}, []string{"data.grf"}, "*.rsm"},
		{[]string{"data.grf", "rdata.GRF"}, []string{"data.grf", "rdata.GRF"}, "*.rsm"},
		{[]string{"data.grf", "*.gnd"}, []string{"data.grf"}, "*.gnd"},
		{[]string{"*.gnd"}, []string{}, "*.gnd"},
		{nil, nil, "*.rsm"},
	}

	for _, tt := range tests {
		paths, pattern := splitArchives(tt.args, "*.rsm")
		if pattern != tt.wantPattern {
			t.Errorf("splitArchives(%v) pattern = %q, want %q", tt.args, pattern, tt.wantPattern)
		}
		if strings.Join(paths, ",") != strings.Join(tt.wantPaths, ",") {
			t.Errorf("splitArchives(%v) paths = %v, want %v", tt.args, paths, tt.wantPaths)
		}
	}
}
