package model

import "github.com/modelhub/modelhub/pkg/entities"

// Prediction mapped from table <predictions>.
type Prediction struct {
	ID           int64    `gorm:"column:id;primaryKey;autoIncrement:true"`
	SignatureID  int64    `gorm:"column:signature_id;not null;uniqueIndex:idx_predictions_signature_name,priority:1;index:idx_predictions_signature_created,priority:1"`
	Name         string   `gorm:"column:name;size:255;not null;uniqueIndex:idx_predictions_signature_name,priority:2"`
	Input        Document `gorm:"column:input;type:text;not null"`
	Output       Document `gorm:"column:output;type:text"`
	Status       string   `gorm:"column:status;size:16;not null;index"`
	ErrorCode    string   `gorm:"column:error_code;size:64"`
	ErrorMessage string   `gorm:"column:error_message"`
	CreatedAt    int64    `gorm:"column:created_at;autoCreateTime:milli;index:idx_predictions_signature_created,priority:2"`
	UpdatedAt    int64    `gorm:"column:updated_at;autoUpdateTime:milli"`
}

func (Prediction) TableName() string {
	return "predictions"
}

func (p Prediction) ToEntity() *entities.Prediction {
	return &entities.Prediction{
		ID:           p.ID,
		SignatureID:  p.SignatureID,
		Name:         p.Name,
		Input:        p.Input.raw(),
		Output:       p.Output.raw(),
		Status:       entities.PredictionStatus(p.Status),
		ErrorCode:    p.ErrorCode,
		ErrorMessage: p.ErrorMessage,
		CreatedAt:    fromMillis(p.CreatedAt),
		UpdatedAt:    fromMillis(p.UpdatedAt),
	}
}

func NewPredictionFromEntity(prediction *entities.Prediction) Prediction {
	return Prediction{
		ID:           prediction.ID,
		SignatureID:  prediction.SignatureID,
		Name:         prediction.Name,
		Input:        Document(prediction.Input),
		Output:       Document(prediction.Output),
		Status:       string(prediction.Status),
		ErrorCode:    prediction.ErrorCode,
		ErrorMessage: prediction.ErrorMessage,
		CreatedAt:    toMillis(prediction.CreatedAt),
		UpdatedAt:    toMillis(prediction.UpdatedAt),
	}
}
