package plan

import (
	"fmt"
	"strings"

	"github.com/pgschema/pgmodeldiff/internal/diff"
	"github.com/pgschema/pgmodeldiff/internal/version"
)

// GenerateHeader generates the comment block written above saved DDL
func GenerateHeader(res *diff.Result) string {
	var header strings.Builder

	header.WriteString("--\n")
	header.WriteString("-- pgmodeldiff migration\n")
	header.WriteString("--\n")
	header.WriteString("\n")

	fmt.Fprintf(&header, "-- Source model: %s\n", res.Source)
	fmt.Fprintf(&header, "-- Imported model: %s\n", res.Imported)
	fmt.Fprintf(&header, "-- Target PostgreSQL version: %s\n", res.PgVersion)
	fmt.Fprintf(&header, "-- Generated by pgmodeldiff version %s\n", version.App())
	if res.Status == diff.StatusCancelled {
		header.WriteString("-- WARNING: the diff was cancelled, this migration is incomplete\n")
	}
	header.WriteString("\n")
	return header.String()
}
