package imaging

import (
	"context"
	"strings"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/errors"
	"github.com/regenpgc/trialbase/internal/fieldtrial"
	"github.com/regenpgc/trialbase/internal/logger"
	"github.com/regenpgc/trialbase/internal/notify"
)

// RegisterModel returns the model with name and version, creating it when it
// does not exist.
func (s *Service) RegisterModel(ctx context.Context, m *entities.AwsModel) (*entities.AwsModel, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Version = strings.TrimSpace(m.Version)
	if m.Name == "" {
		return nil, errors.FieldError("name", "model name is required")
	}
	if m.Version == "" {
		return nil, errors.FieldError("version", "model version is required")
	}

	repo := repository.NewImageRepository(s.db)
	existing, err := repo.GetModelByName(ctx, m.Name, m.Version)
	switch {
	case err == nil:
		return existing, nil
	case !errors.IsNotFound(err):
		return nil, err
	}
	if err := repo.CreateModel(ctx, m); err != nil {
		// A concurrent caller registered the same name and version first.
		if errors.IsConflict(err) {
			return repo.GetModelByName(ctx, m.Name, m.Version)
		}
		return nil, err
	}
	return m, nil
}

// StartOperation records a new in progress run of model over image.
func (s *Service) StartOperation(ctx context.Context, imageID, modelID string) (*entities.ImageOperation, error) {
	repo := repository.NewImageRepository(s.db)
	if _, err := repo.GetImage(ctx, imageID); err != nil {
		return nil, referenceError(err, "imageId")
	}
	if _, err := repo.GetModel(ctx, modelID); err != nil {
		return nil, referenceError(err, "modelId")
	}

	op := &entities.ImageOperation{
		ImageID:  imageID,
		ModelID:  modelID,
		DateTime: s.now().UTC(),
		Status:   entities.StatusInProgress,
	}
	if err := repo.CreateOperation(ctx, op); err != nil {
		return nil, err
	}
	s.publish(ctx, op)
	return op, nil
}

// CompleteOperation moves an in progress operation to success or failure.
// Terminal operations cannot change again; a concurrent completion loses
// with a state error.
func (s *Service) CompleteOperation(ctx context.Context, operationID string, status entities.OperationStatus) (*entities.ImageOperation, error) {
	repo := repository.NewImageRepository(s.db)
	op, err := repo.GetOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if err := fieldtrial.Transition(op.Status, status); err != nil {
		return nil, err
	}
	if err := repo.UpdateOperationStatus(ctx, op.ID, op.Status, status); err != nil {
		return nil, err
	}
	op.Status = status
	s.log.Info("image operation finished",
		logger.String("operation_id", op.ID),
		logger.String("status", string(status)))
	s.publish(ctx, op)
	return op, nil
}

// Operations lists the runs over an image, oldest first.
func (s *Service) Operations(ctx context.Context, imageID string) ([]entities.ImageOperation, error) {
	repo := repository.NewImageRepository(s.db)
	if _, err := repo.GetImage(ctx, imageID); err != nil {
		return nil, err
	}
	return repo.Operations(ctx, imageID)
}

func (s *Service) publish(ctx context.Context, op *entities.ImageOperation) {
	topic := notify.ImageOperationTopic(string(op.Status))
	if err := s.publisher.Publish(ctx, topic, op); err != nil {
		s.log.Warn("failed to publish event", logger.String("topic", topic), logger.Error(err))
	}
}
