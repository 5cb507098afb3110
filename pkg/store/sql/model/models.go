package model

import (
	"github.com/modelhub/modelhub/pkg/entities"
)

// Model mapped from table <models>.
type Model struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement:true"`
	OwnerID        string `gorm:"column:owner_id;size:255;not null;uniqueIndex:idx_models_owner_name,priority:1"`
	Name           string `gorm:"column:name;size:255;not null;uniqueIndex:idx_models_owner_name,priority:2"`
	Type           string `gorm:"column:type;size:64;not null"`
	SpecificType   string `gorm:"column:specific_type;size:64;not null"`
	Filename       string `gorm:"column:filename;size:255"`
	ArtifactID     string `gorm:"column:artifact_id;size:255;not null"`
	ArtifactDigest string `gorm:"column:artifact_digest;size:64;not null"`
	Size           int64  `gorm:"column:size"`
	CreatedAt      int64  `gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt      int64  `gorm:"column:updated_at;autoUpdateTime:milli"`
}

func (Model) TableName() string {
	return "models"
}

func (m Model) ToEntity() *entities.Model {
	return &entities.Model{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		Name:           m.Name,
		Type:           m.Type,
		SpecificType:   m.SpecificType,
		Filename:       m.Filename,
		ArtifactID:     m.ArtifactID,
		ArtifactDigest: m.ArtifactDigest,
		Size:           m.Size,
		CreatedAt:      fromMillis(m.CreatedAt),
		UpdatedAt:      fromMillis(m.UpdatedAt),
	}
}

func NewModelFromEntity(model *entities.Model) Model {
	return Model{
		ID:             model.ID,
		OwnerID:        model.OwnerID,
		Name:           model.Name,
		Type:           model.Type,
		SpecificType:   model.SpecificType,
		Filename:       model.Filename,
		ArtifactID:     model.ArtifactID,
		ArtifactDigest: model.ArtifactDigest,
		Size:           model.Size,
		CreatedAt:      toMillis(model.CreatedAt),
		UpdatedAt:      toMillis(model.UpdatedAt),
	}
}
