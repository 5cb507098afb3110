package sql

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/query"
	"github.com/modelhub/modelhub/pkg/query/parser"
	"github.com/modelhub/modelhub/pkg/store"
	"github.com/modelhub/modelhub/pkg/store/sql/model"
	"github.com/modelhub/modelhub/pkg/utils"
)

type PageToken struct {
	Offset int32 `json:"offset"`
}

func invalidParameter(message string, err error) *contract.Error {
	return contract.NewErrorWith(contract.ErrorCodeBadRequest, message, err).
		WithReason(contract.ReasonInvalidParameter)
}

func getOffset(pageToken string) (int, error) {
	if pageToken != "" {
		var token PageToken
		if err := json.NewDecoder(
			base64.NewDecoder(
				base64.StdEncoding,
				strings.NewReader(pageToken),
			),
		).Decode(&token); err != nil {
			return 0, invalidParameter(fmt.Sprintf("invalid page_token: %q", pageToken), err)
		}

		if token.Offset < 0 {
			return 0, invalidParameter(fmt.Sprintf("invalid page_token: %q", pageToken), nil)
		}

		return int(token.Offset), nil
	}

	return 0, nil
}

func mkNextPageToken(length, maxResults, offset int) (*string, error) {
	var nextPageToken *string

	if length == maxResults {
		var token strings.Builder

		encoder := base64.NewEncoder(base64.StdEncoding, &token)
		if err := json.NewEncoder(encoder).Encode(PageToken{
			Offset: int32(offset + maxResults),
		}); err != nil {
			return nil, internal("error encoding 'nextPageToken' value", err)
		}

		if err := encoder.Close(); err != nil {
			return nil, internal("error encoding 'nextPageToken' value", err)
		}

		nextPageToken = utils.PtrTo(token.String())
	}

	return nextPageToken, nil
}

func applyFilters(s *Store, transaction *gorm.DB, filter string) error {
	filterConditions, err := query.ParseFilter(filter)
	if err != nil {
		return invalidParameter("error parsing search filter", err)
	}

	for _, condition := range filterConditions {
		column := "predictions." + parser.Column(condition.Key)
		comparison := condition.Operator.String()
		value := condition.Value

		if condition.Operator == parser.ILike && s.db.Dialector.Name() != "postgres" {
			column = fmt.Sprintf("LOWER(%s)", column)
			comparison = "LIKE"

			if str, ok := value.(string); ok {
				value = strings.ToLower(str)
			}
		}

		transaction.Where(fmt.Sprintf("%s %s ?", column, comparison), value)
	}

	return nil
}

func (s *Store) CreatePrediction(ctx context.Context, input *entities.Prediction) (*entities.Prediction, error) {
	row := model.NewPredictionFromEntity(input)

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, contract.NewError(
				contract.ErrorCodeAlreadyExists,
				fmt.Sprintf("prediction %q already exists for signature %d", input.Name, input.SignatureID),
			).WithReason(contract.ReasonPredictionAlreadyExists)
		}

		return nil, internal("failed to create prediction", err)
	}

	return row.ToEntity(), nil
}

func (s *Store) GetPrediction(ctx context.Context, id int64) (*entities.Prediction, error) {
	var row model.Prediction
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(contract.ReasonPredictionNotFound, fmt.Sprintf("prediction %d not found", id))
		}

		return nil, internal(fmt.Sprintf("failed to get prediction %d", id), err)
	}

	return row.ToEntity(), nil
}

func (s *Store) TransitionPrediction(
	ctx context.Context,
	id int64,
	from entities.PredictionStatus,
	update store.PredictionUpdate,
) (*entities.Prediction, error) {
	var updated model.Prediction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := map[string]any{
			"status":        string(update.Status),
			"error_code":    update.ErrorCode,
			"error_message": update.ErrorMessage,
			"updated_at":    time.Now().UnixMilli(),
		}

		if update.Output != nil {
			values["output"] = model.Document(update.Output)
		}

		result := tx.Model(&model.Prediction{}).
			Where("id = ? AND status = ?", id, string(from)).
			Updates(values)
		if result.Error != nil {
			return internal(fmt.Sprintf("failed to update prediction %d", id), result.Error)
		}

		if err := tx.Where("id = ?", id).First(&updated).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(contract.ReasonPredictionNotFound, fmt.Sprintf("prediction %d not found", id))
			}

			return internal(fmt.Sprintf("failed to reload prediction %d", id), err)
		}

		if result.RowsAffected == 0 {
			return contract.NewError(
				contract.ErrorCodeInvalidStatusTransition,
				fmt.Sprintf("prediction %d is %s, not %s", id, updated.Status, from),
			).WithReason(contract.ReasonInvalidStatusTransition)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated.ToEntity(), nil
}

func (s *Store) SearchPredictions(
	ctx context.Context,
	signatureID int64,
	filter string,
	maxResults int,
	pageToken string,
) (*store.PagedList[*entities.Prediction], error) {
	transaction := s.db.WithContext(ctx).Where("predictions.signature_id = ?", signatureID)

	// MaxResults
	transaction.Limit(maxResults)

	// PageToken
	offset, err := getOffset(pageToken)
	if err != nil {
		return nil, err
	}

	transaction.Offset(offset)

	// Filter
	if err := applyFilters(s, transaction, filter); err != nil {
		return nil, err
	}

	var rows []model.Prediction
	if err := transaction.Order("predictions.created_at").Order("predictions.id").Find(&rows).Error; err != nil {
		return nil, internal("failed to search predictions", err)
	}

	predictions := make([]*entities.Prediction, 0, len(rows))
	for _, row := range rows {
		predictions = append(predictions, row.ToEntity())
	}

	nextPageToken, err := mkNextPageToken(len(rows), maxResults, offset)
	if err != nil {
		return nil, err
	}

	return &store.PagedList[*entities.Prediction]{
		Items:         predictions,
		NextPageToken: nextPageToken,
	}, nil
}

func (s *Store) ListPredictions(
	ctx context.Context,
	signatureID int64,
	status entities.PredictionStatus,
) ([]*entities.Prediction, error) {
	var rows []model.Prediction
	if err := s.db.WithContext(ctx).
		Where("signature_id = ? AND status = ?", signatureID, string(status)).
		Order("created_at").Order("id").
		Find(&rows).Error; err != nil {
		return nil, internal("failed to list predictions", err)
	}

	predictions := make([]*entities.Prediction, 0, len(rows))
	for _, row := range rows {
		predictions = append(predictions, row.ToEntity())
	}

	return predictions, nil
}

func (s *Store) FailStale(ctx context.Context, cutoff time.Time, code, message string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.Prediction{}).
		Where("status IN ? AND updated_at < ?", []string{
			string(entities.PredictionStatusPending),
			string(entities.PredictionStatusRunning),
		}, cutoff.UnixMilli()).
		Updates(map[string]any{
			"status":        string(entities.PredictionStatusFailed),
			"error_code":    code,
			"error_message": message,
			"updated_at":    time.Now().UnixMilli(),
		})
	if result.Error != nil {
		return 0, internal("failed to fail stale predictions", result.Error)
	}

	return result.RowsAffected, nil
}
