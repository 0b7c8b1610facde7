package fingerprint

import (
	"github.com/pkg/errors"
)

// Compare returns an error if the fingerprints differ
func Compare(expected, actual *ModelFingerprint) error {
	if expected.Hash == actual.Hash {
		return nil
	}
	return errors.Errorf("model fingerprint mismatch - expected: %s, actual: %s",
		preview(expected.Hash), preview(actual.Hash))
}

func preview(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
