package color

import (
	"fmt"
	"os"
	"strings"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
	Bold   = "\033[1m"
)

// Color represents a colorizer that can be enabled or disabled
type Color struct {
	enabled bool
}

// New creates a new Color instance
func New(enabled bool) *Color {
	return &Color{enabled: enabled && shouldEnableColor()}
}

// shouldEnableColor determines if color should be enabled based on environment
func shouldEnableColor() bool {
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}

func (c *Color) wrap(code, text string) string {
	if !c.enabled {
		return text
	}
	return code + text + Reset
}

// Add colors a string to indicate creations
func (c *Color) Add(text string) string { return c.wrap(Green, text) }

// Change colors a string to indicate alterations
func (c *Color) Change(text string) string { return c.wrap(Yellow, text) }

// Destroy colors a string to indicate drops
func (c *Color) Destroy(text string) string { return c.wrap(Red, text) }

// Dim renders ignored objects
func (c *Color) Dim(text string) string { return c.wrap(Gray, text) }

// Bold makes text bold
func (c *Color) Bold(text string) string { return c.wrap(Bold, text) }

// Cyan colors text cyan (for headers and labels)
func (c *Color) Cyan(text string) string { return c.wrap(Cyan, text) }

// ForAction colors text by a diff type name: create, alter, drop or ignore.
func (c *Color) ForAction(action, text string) string {
	switch action {
	case "create":
		return c.Add(text)
	case "alter":
		return c.Change(text)
	case "drop":
		return c.Destroy(text)
	default:
		return c.Dim(text)
	}
}

// Symbol returns the plan symbol for a diff type name.
func (c *Color) Symbol(action string) string {
	switch action {
	case "create":
		return c.Add("+")
	case "alter":
		return c.Change("~")
	case "drop":
		return c.Destroy("-")
	default:
		return c.Dim("=")
	}
}

// FormatSummaryLine formats the counts of one object type.
func (c *Color) FormatSummaryLine(objectType string, created, altered, dropped int) string {
	return fmt.Sprintf("  %s: %s", objectType, c.counts(created, altered, dropped))
}

// FormatPlanHeader formats the main report header.
func (c *Color) FormatPlanHeader(created, altered, dropped, ignored int) string {
	return fmt.Sprintf("Diff: %s, %s.", c.counts(created, altered, dropped), c.Dim(fmt.Sprintf("%d ignored", ignored)))
}

func (c *Color) counts(created, altered, dropped int) string {
	parts := []string{
		c.Add(fmt.Sprintf("%d to create", created)),
		c.Change(fmt.Sprintf("%d to alter", altered)),
		c.Destroy(fmt.Sprintf("%d to drop", dropped)),
	}
	return strings.Join(parts, ", ")
}
