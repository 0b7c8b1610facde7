package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// PgVersion is a PostgreSQL major version number.
type PgVersion int

const (
	MinPgVersion     PgVersion = 10
	MaxPgVersion     PgVersion = 18
	DefaultPgVersion PgVersion = 17
)

// ParsePgVersion parses strings such as "17", "16.4" or "PostgreSQL 15.2" and
// returns the major version.
func ParsePgVersion(versionStr string) (PgVersion, error) {
	versionStr = strings.TrimSpace(versionStr)
	versionStr = strings.TrimPrefix(versionStr, "PostgreSQL ")

	if versionStr == "" {
		return 0, fmt.Errorf("invalid version string: empty")
	}

	parts := strings.Split(versionStr, ".")
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("failed to parse major version from %s: %w", versionStr, err)
	}

	v := PgVersion(major)
	if !v.Supported() {
		return 0, fmt.Errorf("unsupported PostgreSQL version %d (supported: %d-%d)", major, MinPgVersion, MaxPgVersion)
	}
	return v, nil
}

// Supported reports whether the version is within the supported range.
func (v PgVersion) Supported() bool {
	return v >= MinPgVersion && v <= MaxPgVersion
}

// AtLeast reports whether v is the same as or newer than other.
func (v PgVersion) AtLeast(other PgVersion) bool {
	return v >= other
}

func (v PgVersion) String() string {
	return strconv.Itoa(int(v))
}
