package plan

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/color"
	"github.com/pgschema/pgmodeldiff/internal/diff"
	"github.com/pgschema/pgmodeldiff/internal/fingerprint"
	"github.com/pgschema/pgmodeldiff/internal/ir"
	"github.com/pgschema/pgmodeldiff/internal/version"
)

// Report renders the result of a diff run for people and machines
type Report struct {
	Result *diff.Result

	// Fingerprints of the compared models, when known
	SourceFingerprint   *fingerprint.ModelFingerprint
	ImportedFingerprint *fingerprint.ModelFingerprint

	// Show lists the diff types listed in the operations section
	Show []diff.DiffType

	CreatedAt time.Time
}

// ReportJSON represents the structured JSON output format
type ReportJSON struct {
	Version            string         `json:"version"`
	PgmodeldiffVersion string         `json:"pgmodeldiff_version"`
	RunID              string         `json:"run_id"`
	Status             diff.Status    `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	Source             ModelInfo      `json:"source"`
	Imported           ModelInfo      `json:"imported"`
	PgVersion          string         `json:"pg_version"`
	Options            []string       `json:"options"`
	Partial            bool           `json:"partial"`
	Summary            ReportSummary  `json:"summary"`
	Operations         []Operation    `json:"operations"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// ModelInfo describes one compared model
type ModelInfo struct {
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// ReportSummary provides counts of records by diff type
type ReportSummary struct {
	Create int                    `json:"create"`
	Alter  int                    `json:"alter"`
	Drop   int                    `json:"drop"`
	Ignore int                    `json:"ignore"`
	Total  int                    `json:"total"`
	ByType map[string]TypeSummary `json:"by_type"`
}

// TypeSummary provides counts for a specific object type
type TypeSummary struct {
	Create int `json:"create"`
	Alter  int `json:"alter"`
	Drop   int `json:"drop"`
}

// Operation is one emitted record in report order
type Operation struct {
	Index int `json:"index"`
	diff.ObjectsDiffInfo
}

// DefaultShow lists the diff types shown when nothing else is asked for.
func DefaultShow() []diff.DiffType {
	return []diff.DiffType{diff.DiffCreate, diff.DiffAlter, diff.DiffDrop}
}

// NewReport creates a report for a finished, cancelled or failed run
func NewReport(result *diff.Result) *Report {
	return &Report{
		Result:    result,
		Show:      DefaultShow(),
		CreatedAt: time.Now(),
	}
}

// WithFingerprints attaches the fingerprints of both models
func (r *Report) WithFingerprints(source, imported *ir.Model) (*Report, error) {
	var err error
	if r.SourceFingerprint, err = fingerprint.ComputeFingerprint(source); err != nil {
		return nil, errors.Wrapf(err, "fingerprint of %s", source.Name)
	}
	if r.ImportedFingerprint, err = fingerprint.ComputeFingerprint(imported); err != nil {
		return nil, errors.Wrapf(err, "fingerprint of %s", imported.Name)
	}
	return r, nil
}

func (r *Report) shows(t diff.DiffType) bool {
	return slices.Contains(r.Show, t)
}

// operations returns the records of the visible diff types, keeping their
// position in the emission order.
func (r *Report) operations() []Operation {
	ops := []Operation{}
	for i, info := range r.Result.Infos {
		if r.shows(info.Type) {
			ops = append(ops, Operation{Index: i + 1, ObjectsDiffInfo: info})
		}
	}
	return ops
}

// HumanColored returns a human-readable summary of the report with color support
func (r *Report) HumanColored(enableColor bool) string {
	c := color.New(enableColor)
	var b strings.Builder
	res := r.Result

	if res.Status == diff.StatusCancelled {
		b.WriteString(c.Change(fmt.Sprintf("Diff cancelled: showing the %d operations emitted before it stopped.", len(res.Infos))) + "\n\n")
	}

	if !res.HasChanges() {
		b.WriteString("No differences were detected.\n")
		if r.shows(diff.DiffIgnore) && res.Count(diff.DiffIgnore) > 0 {
			b.WriteString("\n")
			r.writeOperations(&b, c)
		}
		return b.String()
	}

	b.WriteString(c.FormatPlanHeader(res.Count(diff.DiffCreate), res.Count(diff.DiffAlter),
		res.Count(diff.DiffDrop), res.Count(diff.DiffIgnore)) + "\n\n")

	summary := r.summary()
	b.WriteString(c.Bold("Summary by type:") + "\n")
	for _, t := range ir.ObjectTypes() {
		if ts, ok := summary.ByType[t.Plural()]; ok {
			b.WriteString(c.FormatSummaryLine(t.Plural(), ts.Create, ts.Alter, ts.Drop) + "\n")
		}
	}
	b.WriteString("\n")

	r.writeOperations(&b, c)

	b.WriteString(c.Bold("DDL to be executed:") + "\n")
	b.WriteString(strings.Repeat("-", 50) + "\n\n")
	if sql := res.Definition(); sql != "" {
		b.WriteString(sql + "\n")
	} else {
		b.WriteString("-- No DDL statements generated\n")
	}
	return b.String()
}

func (r *Report) writeOperations(b *strings.Builder, c *color.Color) {
	ops := r.operations()
	if len(ops) == 0 {
		return
	}
	b.WriteString(c.Bold("Operations:") + "\n")
	for _, op := range ops {
		fmt.Fprintf(b, "  %s %s\n", c.Symbol(op.Type.String()), c.ForAction(op.Type.String(), op.Message))
	}
	b.WriteString("\n")
}

// ToJSON returns the report as structured JSON
func (r *Report) ToJSON() (string, error) {
	data, err := json.MarshalIndent(r.structured(), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal report to JSON")
	}
	return string(data), nil
}

// ToSQL returns the DDL with a metadata header, or nothing without changes
func (r *Report) ToSQL() string {
	sql := r.Result.Definition()
	if sql == "" {
		return ""
	}
	return GenerateHeader(r.Result) + sql + "\n"
}

func (r *Report) structured() *ReportJSON {
	res := r.Result
	out := &ReportJSON{
		Version:            version.ReportFormat(),
		PgmodeldiffVersion: version.App(),
		RunID:              res.RunID,
		Status:             res.Status,
		CreatedAt:          r.CreatedAt.Truncate(time.Second),
		Source:             ModelInfo{Name: res.Source},
		Imported:           ModelInfo{Name: res.Imported},
		PgVersion:          res.PgVersion.String(),
		Options:            res.Options.Enabled(),
		Partial:            res.Partial,
		Summary:            r.summary(),
		Operations:         r.operations(),
	}
	if r.SourceFingerprint != nil {
		out.Source.Fingerprint = r.SourceFingerprint.Hash
	}
	if r.ImportedFingerprint != nil {
		out.Imported.Fingerprint = r.ImportedFingerprint.Hash
	}
	if !res.FinishedAt.IsZero() {
		out.Metadata = map[string]any{"duration_ms": res.Duration().Milliseconds()}
	}
	return out
}

func (r *Report) summary() ReportSummary {
	res := r.Result
	s := ReportSummary{
		Create: res.Count(diff.DiffCreate),
		Alter:  res.Count(diff.DiffAlter),
		Drop:   res.Count(diff.DiffDrop),
		Ignore: res.Count(diff.DiffIgnore),
		ByType: map[string]TypeSummary{},
	}
	s.Total = s.Create + s.Alter + s.Drop

	for _, info := range res.Infos {
		if info.Type == diff.DiffIgnore || info.Object == nil {
			continue
		}
		key := info.Object.Type.Plural()
		ts := s.ByType[key]
		switch info.Type {
		case diff.DiffCreate:
			ts.Create++
		case diff.DiffAlter:
			ts.Alter++
		case diff.DiffDrop:
			ts.Drop++
		}
		s.ByType[key] = ts
	}
	return s
}
