package sql

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/schema"
	"github.com/modelhub/modelhub/pkg/store/sql/model"
)

// maxVersionAttempts bounds the retries of a schema registration that lost the
// race for a version triple to a different schema.
const maxVersionAttempts = 3

func signatureAlreadyExists(message string) *contract.Error {
	return contract.NewError(contract.ErrorCodeAlreadyExists, message).
		WithReason(contract.ReasonSignatureAlreadyExists)
}

func originNotFound(originID int64) *contract.Error {
	return contract.NewError(
		contract.ErrorCodeNotFound,
		fmt.Sprintf("origin signature %d not found for this model", originID),
	).WithReason(contract.ReasonOriginNotFound)
}

func (s *Store) CreateSignature(ctx context.Context, input *entities.Signature) (*entities.Signature, error) {
	row, err := model.NewSignatureFromEntity(input, false)
	if err != nil {
		return nil, internal("failed to build signature", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.OriginID != nil {
			var origin model.Signature
			if err := tx.Select("id", "model_id").Where("id = ?", *input.OriginID).First(&origin).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return originNotFound(*input.OriginID)
				}

				return internal("failed to load origin signature", err)
			}

			if origin.ModelID != input.ModelID {
				return originNotFound(*input.OriginID)
			}
		}

		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return signatureAlreadyExists(
					fmt.Sprintf("signature version %s already exists for model %d", input.Version, input.ModelID),
				)
			}

			return internal("failed to create signature", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return row.ToEntity()
}

func findByDigest(tx *gorm.DB, modelID int64, digest string) (*model.Signature, error) {
	var rows []model.Signature
	if err := tx.Where("model_id = ? AND schema_digest = ?", modelID, digest).
		Order("id").Limit(1).Find(&rows).Error; err != nil {
		return nil, internal("failed to look up signature by schema", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return &rows[0], nil
}

func latestRow(tx *gorm.DB, modelID int64) (*model.Signature, error) {
	var rows []model.Signature
	if err := tx.Where("model_id = ?", modelID).
		Order("major DESC").Order("minor DESC").Order("patch DESC").
		Limit(1).Find(&rows).Error; err != nil {
		return nil, internal("failed to look up latest signature", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return &rows[0], nil
}

func (s *Store) createFromSchemaOnce(
	ctx context.Context,
	modelID int64,
	inputSchema schema.Schema,
	source entities.SignatureSource,
) (*model.Signature, error) {
	var created model.Signature

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByDigest(tx, modelID, inputSchema.Digest())
		if err != nil {
			return err
		}

		if existing != nil {
			return signatureAlreadyExists(
				fmt.Sprintf("an equal schema is already registered as signature %s", existing.Name),
			).With("existing_signature_id", existing.ID)
		}

		latest, err := latestRow(tx, modelID)
		if err != nil {
			return err
		}

		version := entities.InitialVersion

		var originID *int64
		if latest != nil {
			version = entities.Version{Major: latest.Major, Minor: latest.Minor, Patch: latest.Patch}.Next()
			originID = &latest.ID
		}

		created, err = model.NewSignatureFromEntity(&entities.Signature{
			ModelID:  modelID,
			Name:     version.String(),
			Schema:   inputSchema,
			Version:  version,
			OriginID: originID,
			Source:   source,
		}, true)
		if err != nil {
			return internal("failed to build signature", err)
		}

		return tx.Create(&created).Error
	})

	return &created, err
}

func (s *Store) CreateSignatureFromSchema(
	ctx context.Context,
	modelID int64,
	inputSchema schema.Schema,
	source entities.SignatureSource,
) (*entities.Signature, error) {
	for attempt := 1; attempt <= maxVersionAttempts; attempt++ {
		created, err := s.createFromSchemaOnce(ctx, modelID, inputSchema, source)
		if err == nil {
			return created.ToEntity()
		}

		if contractError, ok := contract.AsError(err); ok {
			return nil, contractError
		}

		if !isUniqueViolation(err) {
			return nil, internal("failed to create signature", err)
		}

		s.logger.WithFields(logrus.Fields{
			"model_id": modelID,
			"attempt":  attempt,
		}).Debug("signature version taken concurrently, retrying")
	}

	return nil, contract.NewError(
		contract.ErrorCodeInternalError,
		fmt.Sprintf("could not allocate a signature version for model %d", modelID),
	).With("model_id", modelID).With("attempts", maxVersionAttempts)
}

func (s *Store) GetSignature(ctx context.Context, id int64) (*entities.Signature, error) {
	var row model.Signature
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(contract.ReasonSignatureNotFound, fmt.Sprintf("signature %d not found", id))
		}

		return nil, internal(fmt.Sprintf("failed to get signature %d", id), err)
	}

	return row.ToEntity()
}

func (s *Store) ListSignatures(ctx context.Context, modelID int64) ([]*entities.Signature, error) {
	var rows []model.Signature
	if err := s.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("major").Order("minor").Order("patch").Order("created_at").Order("id").
		Find(&rows).Error; err != nil {
		return nil, internal("failed to list signatures", err)
	}

	signatures := make([]*entities.Signature, 0, len(rows))

	for _, row := range rows {
		signature, err := row.ToEntity()
		if err != nil {
			return nil, internal("failed to decode signature", err)
		}

		signatures = append(signatures, signature)
	}

	return signatures, nil
}

func (s *Store) LatestSignature(ctx context.Context, modelID int64) (*entities.Signature, error) {
	row, err := latestRow(s.db.WithContext(ctx), modelID)
	if err != nil || row == nil {
		return nil, err
	}

	return row.ToEntity()
}
