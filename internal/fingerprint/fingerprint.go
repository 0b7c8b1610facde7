package fingerprint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// ModelFingerprint identifies the schema content of a model
type ModelFingerprint struct {
	Hash    string `json:"hash"` // SHA256 of the encoded model
	Objects int    `json:"objects"`
}

// ComputeFingerprint hashes the encoded form of a model. Catalog OIDs are left
// out so that two databases holding the same schema share a fingerprint.
func ComputeFingerprint(m *ir.Model) (*ModelFingerprint, error) {
	doc := ir.Encode(m)
	for i := range doc.Objects {
		doc.Objects[i].OID = 0
	}
	hash, err := hashObject(doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute model hash")
	}
	return &ModelFingerprint{Hash: hash, Objects: len(doc.Objects)}, nil
}

// hashObject computes a SHA256 hash of any object
func hashObject(obj any) (string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// String returns a human-readable representation of the fingerprint
func (f *ModelFingerprint) String() string {
	if len(f.Hash) >= 8 {
		return fmt.Sprintf("Model fingerprint: %s", f.Hash[:8])
	}
	return fmt.Sprintf("Model fingerprint: %s", f.Hash)
}
