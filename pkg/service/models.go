package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/modelhub/modelhub/pkg/artifact"
	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/store"
)

type Models struct {
	store     store.ModelhubStore
	artifacts artifact.Store
	ownership Ownership
	logger    *logrus.Logger
}

func NewModels(modelStore store.ModelhubStore, artifacts artifact.Store, logger *logrus.Logger) *Models {
	return &Models{
		store:     modelStore,
		artifacts: artifacts,
		ownership: NewOwnership(modelStore),
		logger:    logger,
	}
}

type ModelInput struct {
	Name         string
	Filename     string
	Type         string
	SpecificType string
	Artifact     []byte
}

func modelAlreadyExists(name string) *contract.Error {
	return contract.NewError(
		contract.ErrorCodeAlreadyExists,
		fmt.Sprintf("model %q already exists with different content", name),
	).WithReason(contract.ReasonModelAlreadyExists)
}

// Register stores the artifact and creates the model, or returns the existing
// model when the same account uploads the same bytes under the same name again.
func (m *Models) Register(ctx context.Context, account entities.Account, input ModelInput) (*entities.Model, error) {
	digest := artifact.Digest(input.Artifact)

	existing, err := m.store.GetModelByName(ctx, account.ID, input.Name)

	switch {
	case err == nil:
		if existing.ArtifactDigest != digest {
			return nil, modelAlreadyExists(input.Name)
		}

		return existing, nil
	case !contract.HasCode(err, contract.ErrorCodeNotFound):
		return nil, err
	}

	artifactID, err := m.artifacts.Put(ctx, input.Artifact, artifact.Metadata{
		OwnerID:  account.ID,
		Filename: input.Filename,
		Digest:   digest,
	})
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to store model artifact", err)
	}

	created, err := m.store.CreateModel(ctx, &entities.Model{
		OwnerID:        account.ID,
		Name:           input.Name,
		Type:           input.Type,
		SpecificType:   input.SpecificType,
		Filename:       input.Filename,
		ArtifactID:     artifactID,
		ArtifactDigest: digest,
		Size:           int64(len(input.Artifact)),
	})
	if err != nil {
		if !contract.HasReason(err, contract.ReasonModelAlreadyExists) {
			return nil, err
		}

		// Lost a race against a concurrent upload of the same name.
		existing, getErr := m.store.GetModelByName(ctx, account.ID, input.Name)
		if getErr != nil {
			return nil, getErr
		}

		if existing.ArtifactDigest != digest {
			return nil, modelAlreadyExists(input.Name)
		}

		return existing, nil
	}

	m.logger.WithFields(logrus.Fields{
		"model_id": created.ID,
		"owner":    account.ID,
		"format":   created.Type + "/" + created.SpecificType,
	}).Info("model registered")

	return created, nil
}

func (m *Models) Get(ctx context.Context, account entities.Account, modelID int64) (*entities.Model, error) {
	return m.ownership.Model(ctx, account, modelID)
}

func (m *Models) List(ctx context.Context, account entities.Account) ([]*entities.Model, error) {
	return m.store.ListModels(ctx, account.ID)
}

// Artifact loads the immutable bytes of a model.
func (m *Models) Artifact(ctx context.Context, model *entities.Model) ([]byte, error) {
	data, err := m.artifacts.Get(ctx, model.ArtifactID)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, contract.NewErrorWith(
				contract.ErrorCodeCorruptArtifact,
				fmt.Sprintf("artifact of model %d is missing", model.ID),
				err,
			).WithReason(contract.ReasonCorruptArtifact)
		}

		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to load model artifact", err)
	}

	if artifact.Digest(data) != model.ArtifactDigest {
		return nil, contract.NewError(
			contract.ErrorCodeCorruptArtifact,
			fmt.Sprintf("artifact of model %d does not match its digest", model.ID),
		).WithReason(contract.ReasonCorruptArtifact)
	}

	return data, nil
}
