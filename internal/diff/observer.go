package diff

import (
	"github.com/pgschema/pgmodeldiff/internal/ir"
)

//go:generate mockgen -destination=diffmock/observer_mock.go -package=diffmock github.com/pgschema/pgmodeldiff/internal/diff Observer

// Observer receives the events of a run on the goroutine that executes it.
type Observer interface {
	// OnProgress reports the progress percentage with a message and the type
	// of the object being handled, or ir.ObjectTypeNone.
	OnProgress(percent int, message string, objType ir.ObjectType)
	// OnDiffInfo receives every record as soon as it is emitted.
	OnDiffInfo(info ObjectsDiffInfo)
	// OnFinished is called once per run with its result and terminal error.
	OnFinished(result *Result, err error)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped.
type ObserverFuncs struct {
	Progress func(percent int, message string, objType ir.ObjectType)
	DiffInfo func(info ObjectsDiffInfo)
	Finished func(result *Result, err error)
}

func (f ObserverFuncs) OnProgress(percent int, message string, objType ir.ObjectType) {
	if f.Progress != nil {
		f.Progress(percent, message, objType)
	}
}

func (f ObserverFuncs) OnDiffInfo(info ObjectsDiffInfo) {
	if f.DiffInfo != nil {
		f.DiffInfo(info)
	}
}

func (f ObserverFuncs) OnFinished(result *Result, err error) {
	if f.Finished != nil {
		f.Finished(result, err)
	}
}
