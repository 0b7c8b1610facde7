package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	diffcmd "github.com/pgschema/pgmodeldiff/cmd/diff"
	"github.com/pgschema/pgmodeldiff/internal/logger"
	"github.com/pgschema/pgmodeldiff/internal/version"
)

var Debug bool

var RootCmd = &cobra.Command{
	Use:   "pgmodeldiff",
	Short: "PostgreSQL model diff tool",
	Long: fmt.Sprintf(`pgmodeldiff compares a desired PostgreSQL model with a model imported from a
database and emits the DDL that turns the database into the desired state.

Version: %s

Commands:
  diff     Compare two models and print the migration
  version  Show version information

Use "pgmodeldiff [command] --help" for more information about a command.`, version.String()),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(diffcmd.DiffCmd)
	RootCmd.AddCommand(VersionCmd)
}

func setupLogger() {
	_, noColor := os.LookupEnv("NO_COLOR")
	logger.SetGlobal(logger.New(os.Stderr, Debug, noColor), Debug)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
