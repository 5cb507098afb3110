package model

import "github.com/modelhub/modelhub/pkg/entities"

// Target mapped from table <targets>.
type Target struct {
	ID           int64    `gorm:"column:id;primaryKey;autoIncrement:true"`
	PredictionID int64    `gorm:"column:prediction_id;not null;uniqueIndex:idx_targets_prediction_order,priority:1"`
	Order        int32    `gorm:"column:target_order;not null;uniqueIndex:idx_targets_prediction_order,priority:2"`
	Value        Document `gorm:"column:value;type:text;not null"`
	CreatedAt    int64    `gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt    int64    `gorm:"column:updated_at;autoUpdateTime:milli"`
}

func (Target) TableName() string {
	return "targets"
}

func (t Target) ToEntity() *entities.Target {
	return &entities.Target{
		ID:           t.ID,
		PredictionID: t.PredictionID,
		Order:        t.Order,
		Value:        t.Value.raw(),
		CreatedAt:    fromMillis(t.CreatedAt),
		UpdatedAt:    fromMillis(t.UpdatedAt),
	}
}

func NewTargetFromEntity(target *entities.Target) Target {
	return Target{
		ID:           target.ID,
		PredictionID: target.PredictionID,
		Order:        target.Order,
		Value:        Document(target.Value),
		CreatedAt:    toMillis(target.CreatedAt),
		UpdatedAt:    toMillis(target.UpdatedAt),
	}
}

// All lists every table for migrations, parents first.
func All() []any {
	return []any{&Model{}, &Signature{}, &Prediction{}, &Target{}}
}
