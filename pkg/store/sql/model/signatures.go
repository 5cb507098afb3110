package model

import (
	"fmt"

	"gorm.io/datatypes"

	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/schema"
)

// Signature mapped from table <signatures>. Rows are insert-only.
//
// DedupKey holds the schema digest for rows created from an inferred schema and
// the version text otherwise, so it is never NULL and the composite unique
// index behaves the same on every dialect.
type Signature struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement:true"`
	ModelID      int64          `gorm:"column:model_id;not null;uniqueIndex:idx_signatures_version,priority:1;uniqueIndex:idx_signatures_dedup,priority:1"`
	Name         string         `gorm:"column:name;size:255;not null"`
	Schema       datatypes.JSON `gorm:"column:schema;not null"`
	SchemaDigest string         `gorm:"column:schema_digest;size:64;not null;index"`
	Major        int32          `gorm:"column:major;not null;uniqueIndex:idx_signatures_version,priority:2"`
	Minor        int32          `gorm:"column:minor;not null;uniqueIndex:idx_signatures_version,priority:3"`
	Patch        int32          `gorm:"column:patch;not null;uniqueIndex:idx_signatures_version,priority:4"`
	DedupKey     string         `gorm:"column:dedup_key;size:128;not null;uniqueIndex:idx_signatures_dedup,priority:2"`
	OriginID     *int64         `gorm:"column:origin_id"`
	Source       string         `gorm:"column:source;size:16;not null"`
	CreatedAt    int64          `gorm:"column:created_at;autoCreateTime:milli"`
}

func (Signature) TableName() string {
	return "signatures"
}

const manualDedupPrefix = "version:"

func (s Signature) ToEntity() (*entities.Signature, error) {
	parsed, err := schema.Unmarshal(s.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to decode schema of signature %d: %w", s.ID, err)
	}

	return &entities.Signature{
		ID:           s.ID,
		ModelID:      s.ModelID,
		Name:         s.Name,
		Schema:       parsed,
		SchemaDigest: s.SchemaDigest,
		Version:      entities.Version{Major: s.Major, Minor: s.Minor, Patch: s.Patch},
		OriginID:     s.OriginID,
		Source:       entities.SignatureSource(s.Source),
		CreatedAt:    fromMillis(s.CreatedAt),
	}, nil
}

// NewSignatureFromEntity builds a row. With dedup set the row takes part in
// schema deduplication for its model.
func NewSignatureFromEntity(signature *entities.Signature, dedup bool) (Signature, error) {
	encoded, err := signature.Schema.Marshal()
	if err != nil {
		return Signature{}, fmt.Errorf("failed to encode schema: %w", err)
	}

	digest := signature.Schema.Digest()

	dedupKey := manualDedupPrefix + signature.Version.String()
	if dedup {
		dedupKey = digest
	}

	return Signature{
		ID:           signature.ID,
		ModelID:      signature.ModelID,
		Name:         signature.Name,
		Schema:       datatypes.JSON(encoded),
		SchemaDigest: digest,
		Major:        signature.Version.Major,
		Minor:        signature.Version.Minor,
		Patch:        signature.Version.Patch,
		DedupKey:     dedupKey,
		OriginID:     signature.OriginID,
		Source:       string(signature.Source),
		CreatedAt:    toMillis(signature.CreatedAt),
	}, nil
}
