package util

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// GetEnvWithDefault returns the value of an environment variable or a default value if not set
func GetEnvWithDefault(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntWithDefault returns the value of an environment variable as int or a default value if not set
func GetEnvIntWithDefault(envVar string, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// ApplyEnvVar copies an environment variable into a string flag that was not
// set on the command line.
func ApplyEnvVar(cmd *cobra.Command, flag, envVar string, target *string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if value := GetEnvWithDefault(envVar, ""); value != "" {
		*target = value
	}
}

// ApplyEnvIntVar is ApplyEnvVar for integer flags.
func ApplyEnvIntVar(cmd *cobra.Command, flag, envVar string, target *int) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if value := GetEnvIntWithDefault(envVar, 0); value != 0 {
		*target = value
	}
}
