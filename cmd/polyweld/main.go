// polyweld converts triangle models into welded polygon meshes.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/polyweld/internal/catalog"
	"github.com/Faultbox/polyweld/internal/config"
	"github.com/Faultbox/polyweld/internal/logger"
	"github.com/Faultbox/polyweld/internal/pipeline"
	"github.com/Faultbox/polyweld/internal/source"
	"github.com/Faultbox/polyweld/pkg/formats"
	"github.com/Faultbox/polyweld/pkg/meshio"
)

// errUsage marks a command invoked with the wrong arguments.
var errUsage = errors.New("usage")

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, args[0], args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, command string, args []string, out io.Writer) error {
	switch command {
	case "convert", "c":
		return cmdConvert(cfg, args, out)
	case "batch", "b":
		return cmdBatch(cfg, args, out)
	case "info":
		return cmdInfo(cfg, args, out)
	case "list", "ls":
		return cmdList(args, out)
	case "catalog":
		return cmdCatalog(cfg, args, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `polyweld - triangle model to polygon mesh converter

Usage:
  polyweld [flags] <command> [arguments]

Commands:
  convert <model>...              Convert model files (.ifs .obj .stl .rsm .gnd)
  batch <file.grf>... [pattern]   Convert every matching model (default *.rsm); later archives override earlier ones
  info <model>                    Show what a conversion would produce, writing nothing
  list <file.grf>... [pattern]    List convertible models in archives
  catalog [name]                  List the catalog, or show one record
  help                            Show this help

Flags:
  -config <path>     Config file (default ./polyweld.yaml)
  -out <dir>         Output directory
  -format json|pb    Output format
  -threshold <dot>   Coplanarity threshold (default 0.99)
  -passes <n>        Maximum merge passes (default 1)
  -epsilon <dist>    Weld distance (default 1e-5)
  -noweld            Skip vertex welding
  -catalog <path>    Also record meshes in a SQLite catalog
  -debug             Debug logging

Examples:
  polyweld convert d12.ifs
  polyweld -out meshes -passes 8 batch data.grf rdata.grf "*.rsm"
  polyweld -format pb -catalog meshes.db batch data.grf "data/model/prontera/*"`)
}

// openSinks returns the file sink and, when configured, the catalog.
func openSinks(cfg *config.Config) ([]pipeline.MeshSink, func(), error) {
	format, err := meshio.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, nil, err
	}
	sinks := []pipeline.MeshSink{&meshio.FileSink{
		Dir:    cfg.Output.Dir,
		Format: format,
		Indent: cfg.Output.Indent,
	}}
	if cfg.Catalog.Path == "" {
		return sinks, func() {}, nil
	}

	cat, err := catalog.Open(cfg.Catalog.Path, format)
	if err != nil {
		return nil, nil, err
	}
	closeCatalog := func() {
		if err := cat.Close(); err != nil {
			logger.Warn("closing catalog", zap.Error(err))
		}
	}
	return append(sinks, cat), closeCatalog, nil
}

func cmdConvert(cfg *config.Config, args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: polyweld convert <model>...", errUsage)
	}

	sinks, closeSinks, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	var errs error
	for _, path := range args {
		res, err := pipeline.Run(&source.File{Path: path}, pipeline.OptionsFromConfig(cfg), sinks...)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		printResult(out, res, outputPath(sinks))
	}
	return errs
}

// splitArchives separates leading .grf paths from an optional pattern.
func splitArchives(args []string, fallback string) ([]string, string) {
	pattern := fallback
	if n := len(args); n > 0 && !strings.EqualFold(filepath.Ext(args[n-1]), ".grf") {
		pattern = args[n-1]
		args = args[:n-1]
	}
	return args, pattern
}

func cmdBatch(cfg *config.Config, args []string, out io.Writer) error {
	paths, pattern := splitArchives(args, "*.rsm")
	if len(paths) < 1 {
		return fmt.Errorf("%w: polyweld batch <file.grf>... [pattern]", errUsage)
	}

	lib, err := source.OpenLibrary(paths...)
	if err != nil {
		return err
	}
	defer lib.Close()

	sources, err := lib.Glob(pattern)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no files in %s match %q", strings.Join(paths, ", "), pattern)
	}

	sinks, closeSinks, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	logger.Info("batch started",
		zap.Strings("archives", paths),
		zap.String("pattern", pattern),
		zap.Int("models", len(sources)))

	var errs error
	converted := 0
	for _, src := range sources {
		res, err := pipeline.Run(src, pipeline.OptionsFromConfig(cfg), sinks...)
		if err != nil {
			logger.Error("conversion failed", zap.String("name", src.Name()), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		printResult(out, res, outputPath(sinks))
		converted++
	}

	failed := len(multierr.Errors(errs))
	fmt.Fprintf(os.Stderr, "\nConverted %d of %d models", converted, len(sources))
	if failed > 0 {
		fmt.Fprintf(os.Stderr, " (%d failed)", failed)
	}
	fmt.Fprintln(os.Stderr)
	return errs
}

func cmdInfo(cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: polyweld info <model>", errUsage)
	}
	path := args[0]

	kind, err := formats.KindOf(path)
	if err != nil {
		return err
	}
	res, err := pipeline.Run(&source.File{Path: path}, pipeline.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Model:     %s (%s)\n", path, kind)
	fmt.Fprintf(out, "Input:     %d vertices, %d triangles\n", res.InputVertices, res.InputTriangles)
	fmt.Fprintf(out, "Welded:    %d vertices merged, %d triangles collapsed\n", res.Welded, res.Collapsed)
	fmt.Fprintf(out, "Output:    %d vertices, %d faces, %d edges\n",
		len(res.Mesh.Positions), len(res.Mesh.Faces), len(res.Mesh.Edges))
	fmt.Fprintf(out, "Remesh:    %d merged, %d rejected, %d passes\n",
		res.Remesh.Merged, res.Remesh.Rejected, res.Remesh.Passes)
	fmt.Fprintf(out, "Boundary:  %d edges\n", len(res.Mesh.BoundaryPairs()))
	return nil
}

func cmdList(args []string, out io.Writer) error {
	paths, pattern := splitArchives(args, "*")
	if len(paths) < 1 {
		return fmt.Errorf("%w: polyweld list <file.grf>... [pattern]", errUsage)
	}

	lib, err := source.OpenLibrary(paths...)
	if err != nil {
		return err
	}
	defer lib.Close()

	sources, err := lib.Glob(pattern)
	if err != nil {
		return err
	}

	count := 0
	for _, src := range sources {
		if _, err := formats.KindOf(src.Name()); err != nil {
			continue
		}
		fmt.Fprintln(out, src.Name())
		count++
	}
	fmt.Fprintf(os.Stderr, "\n(%d models)\n", count)
	return nil
}

func cmdCatalog(cfg *config.Config, args []string, out io.Writer) error {
	if cfg.Catalog.Path == "" {
		return fmt.Errorf("%w: polyweld -catalog <path> catalog [name]", errUsage)
	}
	format, err := meshio.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	cat, err := catalog.Open(cfg.Catalog.Path, format)
	if err != nil {
		return err
	}
	defer cat.Close()

	if len(args) > 0 {
		record, err := cat.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Name:     %s\n", record.Name)
		fmt.Fprintf(out, "Format:   %s (%d bytes)\n", record.Format, len(record.Data))
		fmt.Fprintf(out, "Mesh:     %d vertices, %d faces, %d edges\n", record.Vertices, record.Faces, record.Edges)
		fmt.Fprintf(out, "Updated:  %s\n", record.UpdatedAt.Format("2006-01-02 15:04:05"))
		return nil
	}

	records, err := cat.List()
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Fprintf(out, "%-48s %-4s %6d %6d %6d\n", r.Name, r.Format, r.Vertices, r.Faces, r.Edges)
	}
	fmt.Fprintf(os.Stderr, "\n(%d meshes)\n", len(records))
	return nil
}

func printResult(out io.Writer, res *pipeline.Result, written string) {
	fmt.Fprintf(out, "%s: %d triangles -> %d faces, %d edges", res.Name, res.InputTriangles, len(res.Mesh.Faces), len(res.Mesh.Edges))
	if written != "" {
		fmt.Fprintf(out, " (%s)", filepath.ToSlash(written))
	}
	fmt.Fprintln(out)
}

// outputPath returns the file most recently written by the file sink.
func outputPath(sinks []pipeline.MeshSink) string {
	for _, s := range sinks {
		if fs, ok := s.(*meshio.FileSink); ok {
			return fs.Written
		}
	}
	return ""
}
