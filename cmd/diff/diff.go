package diff

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pgschema/pgmodeldiff/cmd/util"
	"github.com/pgschema/pgmodeldiff/internal/diff"
	"github.com/pgschema/pgmodeldiff/internal/filter"
	"github.com/pgschema/pgmodeldiff/internal/fingerprint"
	"github.com/pgschema/pgmodeldiff/internal/ignore"
	"github.com/pgschema/pgmodeldiff/internal/include"
	"github.com/pgschema/pgmodeldiff/internal/ir"
	"github.com/pgschema/pgmodeldiff/internal/logger"
	"github.com/pgschema/pgmodeldiff/internal/plan"
)

var (
	sourceFile       string
	importedFile     string
	pgVersion        string
	filters          []string
	show             []string
	workers          int
	skipValidation   bool
	expectImportedFP string
	ignoreFile       string
	outputHuman      string
	outputJSON       string
	outputSQL        string
	noColor          bool

	optionFlags = map[diff.Option]*bool{}
)

var optionUsage = map[diff.Option]string{
	diff.KeepClusterObjs:       "Never drop roles and tablespaces missing from the source model",
	diff.CascadeMode:           "Add CASCADE to generated DROP statements",
	diff.ForceRecreation:       "Drop and create changed objects instead of altering them",
	diff.RecreateUnmodifiable:  "With --force-recreation, only recreate objects that cannot be altered",
	diff.KeepObjectPerms:       "Keep permissions missing from the source model and grant them again after a recreation",
	diff.ReuseSequences:        "Detach owned sequences from recreated columns instead of dropping them",
	diff.PreserveDbName:        "Never rename the database",
	diff.DontDropMissingObjs:   "Do not drop objects missing from the source model",
	diff.DropMissingColsConstr: "With --dont-drop-missing-objs, still drop missing columns and constraints",
}

var DiffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare a source model with an imported model",
	Long: `Compare the desired state (--source) with the state imported from a database (--imported) and
print the create, alter and drop operations that turn the imported state into the source, in
executable order. Model files may be YAML, TOML or JSON and may include other model files.

Press Ctrl+C to stop a running diff; the operations emitted so far are still reported.`,
	RunE:         runDiff,
	SilenceUsage: true,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		util.ApplyEnvVar(cmd, "source", "PGMODELDIFF_SOURCE", &sourceFile)
		util.ApplyEnvVar(cmd, "imported", "PGMODELDIFF_IMPORTED", &importedFile)
		util.ApplyEnvVar(cmd, "pg-version", "PGMODELDIFF_PG_VERSION", &pgVersion)
		util.ApplyEnvIntVar(cmd, "workers", "PGMODELDIFF_WORKERS", &workers)
		util.ApplyEnvVar(cmd, "ignore-file", "PGMODELDIFF_IGNORE_FILE", &ignoreFile)
		if sourceFile == "" {
			return errors.New("source model is required (use --source flag or PGMODELDIFF_SOURCE environment variable)")
		}
		if importedFile == "" {
			return errors.New("imported model is required (use --imported flag or PGMODELDIFF_IMPORTED environment variable)")
		}
		return nil
	},
}

func init() {
	DiffCmd.Flags().StringVar(&sourceFile, "source", "", "Path to the desired state model file (env: PGMODELDIFF_SOURCE)")
	DiffCmd.Flags().StringVar(&importedFile, "imported", "", "Path to the imported database model file (env: PGMODELDIFF_IMPORTED)")
	DiffCmd.Flags().StringVar(&pgVersion, "pg-version", "", "Target PostgreSQL version; defaults to the imported model's pg_version (env: PGMODELDIFF_PG_VERSION)")
	DiffCmd.Flags().StringArrayVar(&filters, "filter", nil, "Partial diff filter, e.g. table:public.orders* or table:#16384 (repeatable)")
	DiffCmd.Flags().StringSliceVar(&show, "show", nil, "Diff types to list: create,alter,drop,ignore (default create,alter,drop)")
	DiffCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent classification workers, 0 for one per CPU (env: PGMODELDIFF_WORKERS)")
	DiffCmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "Do not parse the generated DDL")
	DiffCmd.Flags().StringVar(&ignoreFile, "ignore-file", ignore.IgnoreFileName, "TOML file of object patterns left out of both models, skipped when absent (env: PGMODELDIFF_IGNORE_FILE)")
	DiffCmd.Flags().StringVar(&expectImportedFP, "expect-imported-fingerprint", "", "Fail unless the imported model has this fingerprint")

	defaults := diff.DefaultOptions()
	for _, opt := range diff.AllOptions() {
		optionFlags[opt] = DiffCmd.Flags().Bool(opt.String(), defaults.Get(opt), optionUsage[opt])
	}

	DiffCmd.Flags().StringVar(&outputHuman, "output-human", "", "Output human-readable format to stdout or file path")
	DiffCmd.Flags().StringVar(&outputJSON, "output-json", "", "Output JSON format to stdout or file path")
	DiffCmd.Flags().StringVar(&outputSQL, "output-sql", "", "Output SQL format to stdout or file path")
	DiffCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// DiffConfig holds everything one diff command run needs
type DiffConfig struct {
	SourceFile     string
	ImportedFile   string
	PgVersion      string
	Options        diff.Options
	Filters        []string
	IgnoreFile     string
	Workers        int
	SkipValidation bool
}

func runDiff(cmd *cobra.Command, args []string) error {
	config := &DiffConfig{
		SourceFile:     sourceFile,
		ImportedFile:   importedFile,
		PgVersion:      pgVersion,
		Options:        diff.DefaultOptions(),
		Filters:        filters,
		IgnoreFile:     ignoreFile,
		Workers:        workers,
		SkipValidation: skipValidation,
	}
	for opt, value := range optionFlags {
		if err := config.Options.Set(opt, *value); err != nil {
			return err
		}
	}
	showTypes, err := parseShow(show)
	if err != nil {
		return err
	}
	outputs, err := determineOutputs()
	if err != nil {
		return err
	}

	source, imported, err := LoadModels(config)
	if err != nil {
		return err
	}
	if expectImportedFP != "" {
		actual, err := fingerprint.ComputeFingerprint(imported)
		if err != nil {
			return err
		}
		if err := fingerprint.Compare(&fingerprint.ModelFingerprint{Hash: expectImportedFP}, actual); err != nil {
			return err
		}
	}

	engine, err := NewEngine(config, source, imported)
	if err != nil {
		return err
	}
	if observer := util.ProgressObserver(); observer != nil {
		engine.AddObserver(observer)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	done := make(chan struct{})
	defer func() {
		signal.Stop(interrupts)
		close(done)
		cancel()
	}()
	go func() {
		select {
		case <-interrupts:
			logger.Get().Warn("Interrupt received, stopping the diff")
			cancel()
			engine.CancelDiff()
		case <-done:
		}
	}()

	result, err := engine.DiffModels(ctx)
	if err != nil && !errors.Is(err, diff.ErrCancelled) {
		return err
	}

	report, err := plan.NewReport(result).WithFingerprints(source, imported)
	if err != nil {
		return err
	}
	report.Show = showTypes

	for _, output := range outputs {
		if err := processOutput(report, output, cmd); err != nil {
			return err
		}
	}
	return nil
}

// LoadModels reads both model files, drops the objects of the ignore file and
// settles the target version: the flag, then the imported model's
// pg_version, then the default.
func LoadModels(config *DiffConfig) (source, imported *ir.Model, err error) {
	source, _, err = include.LoadFile(config.SourceFile)
	if err != nil {
		return nil, nil, err
	}
	imported, doc, err := include.LoadFile(config.ImportedFile)
	if err != nil {
		return nil, nil, err
	}
	if config.PgVersion == "" {
		config.PgVersion = doc.PgVersion
	}

	if config.IgnoreFile == "" {
		return source, imported, nil
	}
	ignoreConfig, err := ignore.LoadIgnoreFileFromPath(config.IgnoreFile)
	if err != nil {
		return nil, nil, err
	}
	if source, err = pruneModel(ignoreConfig, source); err != nil {
		return nil, nil, err
	}
	if imported, err = pruneModel(ignoreConfig, imported); err != nil {
		return nil, nil, err
	}
	return source, imported, nil
}

func pruneModel(c *ignore.Config, m *ir.Model) (*ir.Model, error) {
	pruned, removed, err := c.Prune(m)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		logger.Get().Debug("Ignored objects", "model", m.Name, "count", len(removed), "objects", removed)
	}
	return pruned, nil
}

// NewEngine configures a diff engine for the loaded models.
func NewEngine(config *DiffConfig, source, imported *ir.Model) (*diff.Engine, error) {
	cfg := diff.DefaultConfig()
	cfg.Options = config.Options
	cfg.Logger = logger.Get()
	cfg.Workers = config.Workers
	cfg.SkipValidation = config.SkipValidation

	engine := diff.NewEngine(cfg)
	if config.PgVersion != "" {
		if err := engine.SetPgSQLVersion(config.PgVersion); err != nil {
			return nil, err
		}
	}
	if err := engine.SetModels(source, imported); err != nil {
		return nil, err
	}
	if len(config.Filters) > 0 {
		parsed, err := filter.ParseAll(config.Filters)
		if err != nil {
			return nil, err
		}
		set, err := filter.Resolve(parsed, source)
		if err != nil {
			return nil, err
		}
		if err := engine.SetFilter(set); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

func parseShow(values []string) ([]diff.DiffType, error) {
	if len(values) == 0 {
		return plan.DefaultShow(), nil
	}
	var types []diff.DiffType
	for _, v := range values {
		if strings.TrimSpace(v) == "all" {
			return diff.DiffTypes(), nil
		}
		t, err := diff.ParseDiffType(v)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

type outputSpec struct {
	format string
	target string
}

// determineOutputs returns the requested outputs; human on stdout by default
func determineOutputs() ([]outputSpec, error) {
	var outputs []outputSpec
	stdoutCount := 0
	for _, o := range []outputSpec{{"human", outputHuman}, {"json", outputJSON}, {"sql", outputSQL}} {
		if o.target == "" {
			continue
		}
		if o.target == "stdout" {
			stdoutCount++
		}
		outputs = append(outputs, o)
	}
	if stdoutCount > 1 {
		return nil, errors.New("only one output format can use stdout")
	}
	if len(outputs) == 0 {
		outputs = append(outputs, outputSpec{format: "human", target: "stdout"})
	}
	return outputs, nil
}

// processOutput writes the report in the specified format to the target destination
func processOutput(report *plan.Report, output outputSpec, cmd *cobra.Command) error {
	var content string
	switch output.format {
	case "human":
		// colored output only on stdout, unless explicitly disabled
		content = report.HumanColored(output.target == "stdout" && !noColor)
	case "json":
		data, err := report.ToJSON()
		if err != nil {
			return err
		}
		content = data + "\n"
	case "sql":
		content = report.ToSQL()
	default:
		return errors.Errorf("unknown output format: %s", output.format)
	}

	if output.target == "stdout" {
		_, err := cmd.OutOrStdout().Write([]byte(content))
		return err
	}
	if err := os.WriteFile(output.target, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s output to %s", output.format, output.target)
	}
	return nil
}

// ResetFlags restores the flag variables to their defaults, for tests
func ResetFlags() {
	sourceFile, importedFile, pgVersion = "", "", ""
	filters, show = nil, nil
	workers = 0
	skipValidation = false
	expectImportedFP = ""
	ignoreFile = ignore.IgnoreFileName
	outputHuman, outputJSON, outputSQL = "", "", ""
	noColor = false
	defaults := diff.DefaultOptions()
	for opt, value := range optionFlags {
		*value = defaults.Get(opt)
	}
	DiffCmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
}
