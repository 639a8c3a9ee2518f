package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagThreshold = flag.Float64("threshold", 0, "Coplanarity threshold (normal dot product), 0 keeps the configured value")
	flagPasses    = flag.Int("passes", 0, "Maximum merge passes, 0 keeps the configured value")
	flagEpsilon   = flag.Float64("epsilon", -1, "Weld distance, negative keeps the configured value")
	flagNoWeld    = flag.Bool("noweld", false, "Skip vertex welding")
	flagOut       = flag.String("out", "", "Output directory")
	flagFormat    = flag.String("format", "", "Output format: json or pb")
	flagCatalog   = flag.String("catalog", "", "SQLite catalog path")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag command-line arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagThreshold != 0 {
		cfg.Remesh.Threshold = float32(*flagThreshold)
	}
	if *flagPasses > 0 {
		cfg.Remesh.MaxPasses = *flagPasses
	}
	if *flagEpsilon >= 0 {
		cfg.Weld.Epsilon = float32(*flagEpsilon)
	}
	if *flagNoWeld {
		cfg.Weld.Enabled = false
	}
	if *flagOut != "" {
		cfg.Output.Dir = *flagOut
	}
	if *flagFormat != "" {
		cfg.Output.Format = *flagFormat
	}
	if *flagCatalog != "" {
		cfg.Catalog.Path = *flagCatalog
	}
}
