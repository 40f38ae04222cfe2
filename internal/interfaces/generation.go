package interfaces

import (
	"context"

	"spystory-server/internal/models"
)

// Generator is the narrative-text generation collaborator. Implementations
// must respect ctx deadlines and return models.ErrInvalidGenerationResult
// (wrapped) for responses that cannot be normalized; they never panic on
// malformed provider output.
//
//go:generate mockery --name Generator --output ./mocks --outpkg mocks --case=underscore
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error)
}
