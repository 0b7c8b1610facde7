package diff

import (
	"log/slog"
	"runtime"

	"github.com/pgschema/pgmodeldiff/internal/ir"
	"github.com/pgschema/pgmodeldiff/internal/logger"
)

// Config is the run configuration an engine is constructed with.
type Config struct {
	Options   Options
	PgVersion ir.PgVersion

	// Logger defaults to the process-wide logger.
	Logger *slog.Logger

	// Workers bounds the classification goroutines; zero means one per CPU.
	Workers int

	// SkipValidation disables parsing the generated DDL.
	SkipValidation bool
}

// DefaultConfig returns the default options for the default PostgreSQL version.
func DefaultConfig() Config {
	return Config{
		Options:   DefaultOptions(),
		PgVersion: ir.DefaultPgVersion,
	}
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = logger.Get()
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.PgVersion == 0 {
		c.PgVersion = ir.DefaultPgVersion
	}
	return c
}
