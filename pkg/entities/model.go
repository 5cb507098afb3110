package entities

import "time"

// Model is a named, owned container for one immutable artifact.
type Model struct {
	ID             int64     `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	SpecificType   string    `json:"specific_type"`
	Filename       string    `json:"filename"`
	ArtifactID     string    `json:"artifact_id"`
	ArtifactDigest string    `json:"artifact_digest"`
	Size           int64     `json:"size"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
