package util

import (
	"github.com/pgschema/pgmodeldiff/internal/diff"
	"github.com/pgschema/pgmodeldiff/internal/ir"
	"github.com/pgschema/pgmodeldiff/internal/logger"
)

// ProgressObserver logs diff progress and records when debug mode is enabled.
// It returns nil otherwise.
func ProgressObserver() diff.Observer {
	if !logger.IsDebug() {
		return nil
	}
	log := logger.Get()
	return diff.ObserverFuncs{
		Progress: func(percent int, message string, objType ir.ObjectType) {
			log.Debug("Diff progress", "percent", percent, "message", message, "object_type", objType.String())
		},
		DiffInfo: func(info diff.ObjectsDiffInfo) {
			log.Debug("Diff operation", "type", info.Type.String(), "object", info.Signature, "sql", info.SQL)
		},
		Finished: func(result *diff.Result, err error) {
			if err != nil {
				log.Debug("Diff finished with error", "status", string(result.Status), "error", err)
			}
		},
	}
}
