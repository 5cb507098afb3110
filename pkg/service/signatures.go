package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/metrics"
	"github.com/modelhub/modelhub/pkg/schema"
	"github.com/modelhub/modelhub/pkg/store"
)

type Signatures struct {
	store     store.ModelhubStore
	ownership Ownership
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

func NewSignatures(modelStore store.ModelhubStore, m *metrics.Metrics, logger *logrus.Logger) *Signatures {
	return &Signatures{
		store:     modelStore,
		ownership: NewOwnership(modelStore),
		metrics:   m,
		logger:    logger,
	}
}

// IsValidName accepts full semantic versions without a leading "v":
// MAJOR.MINOR.PATCH with optional pre-release and build suffixes.
func IsValidName(name string) bool {
	if name == "" || strings.HasPrefix(name, "v") {
		return false
	}

	if !semver.IsValid("v" + name) {
		return false
	}

	core, _, _ := strings.Cut(name, "+")
	core, _, _ = strings.Cut(core, "-")

	return strings.Count(core, ".") == 2
}

// VersionFromName reads the version triple out of a valid signature name,
// ignoring pre-release and build suffixes.
func VersionFromName(name string) (entities.Version, bool) {
	if !IsValidName(name) {
		return entities.Version{}, false
	}

	core, _, _ := strings.Cut(name, "+")
	core, _, _ = strings.Cut(core, "-")

	parts := strings.Split(core, ".")
	numbers := make([]int32, 0, len(parts))

	for _, part := range parts {
		number, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return entities.Version{}, false
		}

		numbers = append(numbers, int32(number))
	}

	return entities.Version{Major: numbers[0], Minor: numbers[1], Patch: numbers[2]}, true
}

func (s *Signatures) CreateFromVersion(
	ctx context.Context,
	account entities.Account,
	modelID int64,
	name string,
	inputSchema schema.Schema,
	version entities.Version,
	originID *int64,
) (*entities.Signature, error) {
	if !IsValidName(name) {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidInput,
			fmt.Sprintf("signature name %q is not a semantic version", name),
		).WithReason(contract.ReasonSignatureNameInvalid).With("name", name)
	}

	if version.Major < 0 || version.Minor < 0 || version.Patch < 0 {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidInput,
			fmt.Sprintf("version %s has a negative component", version),
		).WithReason(contract.ReasonInvalidParameter)
	}

	if err := inputSchema.Check(); err != nil {
		return nil, err
	}

	if _, err := s.ownership.Model(ctx, account, modelID); err != nil {
		return nil, err
	}

	signature, err := s.store.CreateSignature(ctx, &entities.Signature{
		ModelID:  modelID,
		Name:     name,
		Schema:   inputSchema,
		Version:  version,
		OriginID: originID,
		Source:   entities.SignatureSourceManual,
	})
	if err != nil {
		return nil, err
	}

	s.created(signature)

	return signature, nil
}

// CreateFromSchema registers a schema under the next free version. It is the
// internal path of upload processing and trusts modelID to be owned already.
func (s *Signatures) CreateFromSchema(
	ctx context.Context,
	modelID int64,
	inputSchema schema.Schema,
	source entities.SignatureSource,
) (*entities.Signature, error) {
	if err := inputSchema.Check(); err != nil {
		return nil, err
	}

	signature, err := s.store.CreateSignatureFromSchema(ctx, modelID, inputSchema, source)
	if err != nil {
		return nil, err
	}

	s.created(signature)

	return signature, nil
}

func (s *Signatures) created(signature *entities.Signature) {
	s.metrics.SignatureCreated(string(signature.Source))
	s.logger.WithFields(logrus.Fields{
		"model_id":     signature.ModelID,
		"signature_id": signature.ID,
		"version":      signature.Version.String(),
		"source":       signature.Source,
	}).Info("signature created")
}

func (s *Signatures) GetByID(ctx context.Context, signatureID int64, account entities.Account) (*entities.Signature, error) {
	signature, _, err := s.ownership.Signature(ctx, account, signatureID)

	return signature, err
}

func (s *Signatures) ListByModel(ctx context.Context, account entities.Account, modelID int64) ([]*entities.Signature, error) {
	if _, err := s.ownership.Model(ctx, account, modelID); err != nil {
		return nil, err
	}

	return s.store.ListSignatures(ctx, modelID)
}

// LatestVersion reports the highest version triple of the model, if any.
func (s *Signatures) LatestVersion(ctx context.Context, modelID int64) (entities.Version, bool, error) {
	latest, err := s.store.LatestSignature(ctx, modelID)
	if err != nil || latest == nil {
		return entities.Version{}, false, err
	}

	return latest.Version, true, nil
}

func (s *Signatures) SuggestVersion(ctx context.Context, modelID int64) (entities.Version, error) {
	latest, ok, err := s.LatestVersion(ctx, modelID)
	if err != nil {
		return entities.Version{}, err
	}

	if !ok {
		return entities.InitialVersion, nil
	}

	return latest.Next(), nil
}

// Lineage follows origins from signatureID back to the root, newest first. A
// dangling origin ends the walk.
func (s *Signatures) Lineage(ctx context.Context, account entities.Account, signatureID int64) ([]*entities.Signature, error) {
	current, _, err := s.ownership.Signature(ctx, account, signatureID)
	if err != nil {
		return nil, err
	}

	lineage := []*entities.Signature{current}
	seen := map[int64]bool{current.ID: true}

	for current.OriginID != nil && !seen[*current.OriginID] {
		origin, err := s.store.GetSignature(ctx, *current.OriginID)
		if err != nil {
			if contract.HasCode(err, contract.ErrorCodeNotFound) {
				break
			}

			return nil, err
		}

		if origin.ModelID != current.ModelID {
			return nil, contract.NewError(contract.ErrorCodeInternalError, "origin signature belongs to another model").
				With("signature_id", current.ID).
				With("origin_id", origin.ID).
				With("model_id", current.ModelID)
		}

		seen[origin.ID] = true
		lineage = append(lineage, origin)
		current = origin
	}

	return lineage, nil
}
