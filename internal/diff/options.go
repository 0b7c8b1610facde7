package diff

import (
	"strings"

	"github.com/pkg/errors"
)

// Option is one of the boolean policies that modulate a diff run.
type Option int

const (
	// KeepClusterObjs keeps roles and tablespaces that only exist in the
	// imported model.
	KeepClusterObjs Option = iota
	// CascadeMode adds CASCADE to generated DROP statements.
	CascadeMode
	// ForceRecreation drops and creates objects that could be altered.
	ForceRecreation
	// RecreateUnmodifiable limits ForceRecreation to object types that
	// cannot be altered in place.
	RecreateUnmodifiable
	// KeepObjectPerms keeps permissions missing from the source and grants
	// them again when their object is recreated.
	KeepObjectPerms
	// ReuseSequences detaches sequences owned by recreated columns instead of
	// recreating them.
	ReuseSequences
	// PreserveDbName excludes the database name from the comparison.
	PreserveDbName
	// DontDropMissingObjs keeps objects that only exist in the imported model.
	DontDropMissingObjs
	// DropMissingColsConstr still drops missing columns and constraints when
	// DontDropMissingObjs is set.
	DropMissingColsConstr
)

var optionNames = []string{
	KeepClusterObjs:       "keep-cluster-objs",
	CascadeMode:           "cascade-mode",
	ForceRecreation:       "force-recreation",
	RecreateUnmodifiable:  "recreate-unmodifiable",
	KeepObjectPerms:       "keep-object-perms",
	ReuseSequences:        "reuse-sequences",
	PreserveDbName:        "preserve-db-name",
	DontDropMissingObjs:   "dont-drop-missing-objs",
	DropMissingColsConstr: "drop-missing-cols-constr",
}

// AllOptions lists every option in declaration order.
func AllOptions() []Option {
	opts := make([]Option, len(optionNames))
	for i := range optionNames {
		opts[i] = Option(i)
	}
	return opts
}

func (o Option) String() string {
	if o < 0 || int(o) >= len(optionNames) {
		return "unknown"
	}
	return optionNames[o]
}

// ParseOption accepts the kebab-case name of an option; underscores are
// accepted too.
func ParseOption(name string) (Option, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for i, n := range optionNames {
		if n == normalized {
			return Option(i), nil
		}
	}
	return 0, errors.Errorf("unknown diff option %q", name)
}

// Options holds the policy flags of a run.
type Options struct {
	KeepClusterObjs       bool `json:"keep_cluster_objs"`
	CascadeMode           bool `json:"cascade_mode"`
	ForceRecreation       bool `json:"force_recreation"`
	RecreateUnmodifiable  bool `json:"recreate_unmodifiable"`
	KeepObjectPerms       bool `json:"keep_object_perms"`
	ReuseSequences        bool `json:"reuse_sequences"`
	PreserveDbName        bool `json:"preserve_db_name"`
	DontDropMissingObjs   bool `json:"dont_drop_missing_objs"`
	DropMissingColsConstr bool `json:"drop_missing_cols_constr"`
}

// DefaultOptions returns the options a fresh engine starts with.
func DefaultOptions() Options {
	return Options{
		KeepClusterObjs: true,
		KeepObjectPerms: true,
		ReuseSequences:  true,
	}
}

func (o *Options) field(opt Option) *bool {
	switch opt {
	case KeepClusterObjs:
		return &o.KeepClusterObjs
	case CascadeMode:
		return &o.CascadeMode
	case ForceRecreation:
		return &o.ForceRecreation
	case RecreateUnmodifiable:
		return &o.RecreateUnmodifiable
	case KeepObjectPerms:
		return &o.KeepObjectPerms
	case ReuseSequences:
		return &o.ReuseSequences
	case PreserveDbName:
		return &o.PreserveDbName
	case DontDropMissingObjs:
		return &o.DontDropMissingObjs
	case DropMissingColsConstr:
		return &o.DropMissingColsConstr
	}
	return nil
}

// Set changes one option.
func (o *Options) Set(opt Option, value bool) error {
	f := o.field(opt)
	if f == nil {
		return errors.Errorf("unknown diff option %d", opt)
	}
	*f = value
	return nil
}

// Get reports the value of one option.
func (o Options) Get(opt Option) bool {
	if f := o.field(opt); f != nil {
		return *f
	}
	return false
}

// forcesRecreation reports whether forced recreation applies to an object
// type; with RecreateUnmodifiable only types without in-place alteration are
// forced.
func (o Options) forcesRecreation(acceptsAlter bool) bool {
	if !o.ForceRecreation {
		return false
	}
	return !o.RecreateUnmodifiable || !acceptsAlter
}

// dropsMissingColumns reports whether columns and constraints missing from
// the source are dropped.
func (o Options) dropsMissingColumns() bool {
	return !o.DontDropMissingObjs || o.DropMissingColsConstr
}

// Enabled lists the names of the options set to true.
func (o Options) Enabled() []string {
	var names []string
	for _, opt := range AllOptions() {
		if o.Get(opt) {
			names = append(names, opt.String())
		}
	}
	return names
}
