package sql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/store/sql/model"
)

func (s *Store) CreateModel(ctx context.Context, input *entities.Model) (*entities.Model, error) {
	row := model.NewModelFromEntity(input)

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, contract.NewError(
				contract.ErrorCodeAlreadyExists,
				fmt.Sprintf("model %q already exists", input.Name),
			).WithReason(contract.ReasonModelAlreadyExists)
		}

		return nil, internal("failed to create model", err)
	}

	return row.ToEntity(), nil
}

func (s *Store) GetModel(ctx context.Context, id int64) (*entities.Model, error) {
	var row model.Model
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(contract.ReasonModelNotFound, fmt.Sprintf("model %d not found", id))
		}

		return nil, internal(fmt.Sprintf("failed to get model %d", id), err)
	}

	return row.ToEntity(), nil
}

func (s *Store) GetModelByName(ctx context.Context, ownerID, name string) (*entities.Model, error) {
	var row model.Model
	if err := s.db.WithContext(ctx).
		Where("owner_id = ? AND name = ?", ownerID, name).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(contract.ReasonModelNotFound, fmt.Sprintf("model %q not found", name))
		}

		return nil, internal(fmt.Sprintf("failed to get model %q", name), err)
	}

	return row.ToEntity(), nil
}

func (s *Store) ListModels(ctx context.Context, ownerID string) ([]*entities.Model, error) {
	var rows []model.Model
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at").Order("id").
		Find(&rows).Error; err != nil {
		return nil, internal("failed to list models", err)
	}

	models := make([]*entities.Model, 0, len(rows))
	for _, row := range rows {
		models = append(models, row.ToEntity())
	}

	return models, nil
}
