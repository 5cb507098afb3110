package entities

import (
	"fmt"
	"time"

	"github.com/modelhub/modelhub/pkg/schema"
)

type SignatureSource string

const (
	SignatureSourceModel     SignatureSource = "model"
	SignatureSourceDataframe SignatureSource = "dataframe"
	SignatureSourceManual    SignatureSource = "manual"
)

// Version is a semantic version triple.
type Version struct {
	Major int32 `json:"major"`
	Minor int32 `json:"minor"`
	Patch int32 `json:"patch"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less orders versions lexicographically on (major, minor, patch).
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}

	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}

	return v.Patch < other.Patch
}

// Next is the version suggested after v: the patch is incremented.
func (v Version) Next() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

// InitialVersion is suggested for a model without signatures.
var InitialVersion = Version{Major: 1, Minor: 0, Patch: 0}

// Signature is an immutable description of a Model's expected input. OriginID
// is lineage only and never implies ownership.
type Signature struct {
	ID           int64           `json:"id"`
	ModelID      int64           `json:"model_id"`
	Name         string          `json:"name"`
	Schema       schema.Schema   `json:"schema"`
	SchemaDigest string          `json:"schema_digest"`
	Version      Version         `json:"version"`
	OriginID     *int64          `json:"origin_id,omitempty"`
	Source       SignatureSource `json:"source"`
	CreatedAt    time.Time       `json:"created_at"`
}
