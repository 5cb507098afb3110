package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/store/sql/model"
)

func (s *Store) CreateTarget(ctx context.Context, input *entities.Target) (*entities.Target, error) {
	row := model.NewTargetFromEntity(input)

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, contract.NewError(
				contract.ErrorCodeAlreadyExists,
				fmt.Sprintf("prediction %d already has a target at order %d", input.PredictionID, input.Order),
			).WithReason(contract.ReasonDuplicateTargetOrder)
		}

		return nil, internal("failed to create target", err)
	}

	return row.ToEntity(), nil
}

func getTarget(tx *gorm.DB, id int64) (*model.Target, error) {
	var row model.Target
	if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(contract.ReasonTargetNotFound, fmt.Sprintf("target %d not found", id))
		}

		return nil, internal(fmt.Sprintf("failed to get target %d", id), err)
	}

	return &row, nil
}

func (s *Store) GetTarget(ctx context.Context, id int64) (*entities.Target, error) {
	row, err := getTarget(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}

	return row.ToEntity(), nil
}

func (s *Store) UpdateTargetValue(ctx context.Context, id int64, value []byte) (*entities.Target, error) {
	var updated *model.Target

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Target{}).Where("id = ?", id).Updates(map[string]any{
			"value":      model.Document(value),
			"updated_at": time.Now().UnixMilli(),
		}).Error; err != nil {
			return internal(fmt.Sprintf("failed to update target %d", id), err)
		}

		var err error
		updated, err = getTarget(tx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return updated.ToEntity(), nil
}

func (s *Store) ListTargets(ctx context.Context, predictionID int64) ([]*entities.Target, error) {
	var rows []model.Target
	if err := s.db.WithContext(ctx).
		Where("prediction_id = ?", predictionID).
		Order("target_order").
		Find(&rows).Error; err != nil {
		return nil, internal("failed to list targets", err)
	}

	return toTargets(rows), nil
}

func (s *Store) ListTargetsForSignature(ctx context.Context, signatureID int64) ([]*entities.Target, error) {
	var rows []model.Target
	if err := s.db.WithContext(ctx).
		Joins("JOIN predictions ON predictions.id = targets.prediction_id").
		Where("predictions.signature_id = ?", signatureID).
		Order("targets.prediction_id").Order("targets.target_order").
		Find(&rows).Error; err != nil {
		return nil, internal("failed to list targets", err)
	}

	return toTargets(rows), nil
}

func toTargets(rows []model.Target) []*entities.Target {
	targets := make([]*entities.Target, 0, len(rows))
	for _, row := range rows {
		targets = append(targets, row.ToEntity())
	}

	return targets
}
