package diff

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// DiffType classifies one emitted record.
type DiffType int

const (
	DiffCreate DiffType = iota
	DiffAlter
	DiffDrop
	DiffIgnore
)

var diffTypeNames = []string{"create", "alter", "drop", "ignore"}

// DiffTypes lists the diff types in display order.
func DiffTypes() []DiffType {
	return []DiffType{DiffCreate, DiffAlter, DiffDrop, DiffIgnore}
}

func (t DiffType) String() string {
	if t < 0 || int(t) >= len(diffTypeNames) {
		return "unknown"
	}
	return diffTypeNames[t]
}

// ParseDiffType parses "create", "alter", "drop" or "ignore".
func ParseDiffType(name string) (DiffType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range diffTypeNames {
		if n == name {
			return DiffType(i), nil
		}
	}
	return 0, errors.Errorf("unknown diff type %q", name)
}

func (t DiffType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *DiffType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDiffType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ObjectsDiffInfo is one emitted diff record. Records are immutable once
// emitted.
type ObjectsDiffInfo struct {
	Type DiffType `json:"type"`

	// Object is the subject: the source definition for creates and alters,
	// the imported definition for drops.
	Object *ir.Object `json:"-"`

	// Old is the imported definition of an altered object.
	Old *ir.Object `json:"-"`

	Signature  string `json:"signature"`
	ObjectType string `json:"object_type"`
	Message    string `json:"message"`
	SQL        string `json:"sql,omitempty"`

	// Implicit records carry no DDL because the statement of another record
	// covers them, e.g. columns folded into CREATE TABLE.
	Implicit bool `json:"implicit,omitempty"`
}

// FilterSet restricts a run to part of the models. Signatures select source
// objects; OIDs select imported objects by catalog identifier.
type FilterSet struct {
	Signatures []string                   `json:"signatures,omitempty"`
	OIDs       map[ir.ObjectType][]uint32 `json:"oids,omitempty"`
}

// Empty reports whether the filter selects nothing, meaning a full diff.
func (f FilterSet) Empty() bool {
	if len(f.Signatures) > 0 {
		return false
	}
	for _, oids := range f.OIDs {
		if len(oids) > 0 {
			return false
		}
	}
	return true
}

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Result holds the records emitted by one run. A cancelled or failed run keeps
// the records emitted before it stopped.
type Result struct {
	RunID      string            `json:"run_id"`
	Status     Status            `json:"status"`
	Source     string            `json:"source"`
	Imported   string            `json:"imported"`
	PgVersion  ir.PgVersion      `json:"pg_version"`
	Options    Options           `json:"options"`
	Partial    bool              `json:"partial"`
	Infos      []ObjectsDiffInfo `json:"infos"`
	Counts     map[DiffType]int  `json:"-"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Count returns the number of records of one type.
func (r *Result) Count(t DiffType) int {
	return r.Counts[t]
}

// HasChanges reports whether any create, alter or drop was emitted.
func (r *Result) HasChanges() bool {
	return r.Count(DiffCreate)+r.Count(DiffAlter)+r.Count(DiffDrop) > 0
}

// Definition concatenates the DDL of the emitted records in order.
func (r *Result) Definition() string {
	var b strings.Builder
	for _, info := range r.Infos {
		if info.SQL == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(info.SQL)
	}
	return b.String()
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
