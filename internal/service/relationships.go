package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

// InteractionType names a direct player action toward a character. Each type
// carries fixed deltas for the three relationship axes.
type InteractionType string

const (
	InteractionHelp      InteractionType = "help"
	InteractionBefriend  InteractionType = "befriend"
	InteractionBetray    InteractionType = "betray"
	InteractionIgnore    InteractionType = "ignore"
	InteractionThreaten  InteractionType = "threaten"
	InteractionCooperate InteractionType = "cooperate"
	InteractionCompete   InteractionType = "compete"
	InteractionProtect   InteractionType = "protect"
	InteractionAbandon   InteractionType = "abandon"
	InteractionSupport   InteractionType = "support"
)

// ErrUnknownInteraction is returned for interaction types outside the table.
var ErrUnknownInteraction = errors.New("unknown interaction type")

type interactionDeltas struct {
	relationship int
	trust        int
	loyalty      int
}

var interactionTable = map[InteractionType]interactionDeltas{
	InteractionHelp:      {relationship: 2, trust: 1, loyalty: 0},
	InteractionBefriend:  {relationship: 3, trust: 2, loyalty: 1},
	InteractionBetray:    {relationship: -5, trust: -4, loyalty: -3},
	InteractionIgnore:    {relationship: -1, trust: 0, loyalty: 0},
	InteractionThreaten:  {relationship: -3, trust: -2, loyalty: 0},
	InteractionCooperate: {relationship: 1, trust: 1, loyalty: 0},
	InteractionCompete:   {relationship: -2, trust: -1, loyalty: 0},
	InteractionProtect:   {relationship: 2, trust: 1, loyalty: 2},
	InteractionAbandon:   {relationship: -4, trust: -2, loyalty: -3},
	InteractionSupport:   {relationship: 2, trust: 1, loyalty: 1},
}

// RelationshipService owns the lazily materialized affinity overlay between
// a user and the characters they have met.
type RelationshipService struct {
	relationshipRepo interfaces.RelationshipRepository
	logger           *zap.Logger
}

func NewRelationshipService(
	relationshipRepo interfaces.RelationshipRepository,
	logger *zap.Logger,
) *RelationshipService {
	return &RelationshipService{
		relationshipRepo: relationshipRepo,
		logger:           logger.Named("RelationshipService"),
	}
}

// Get returns the relationship record, substituting the zero record when the
// user has never interacted with the character. Reads never fail on absence.
func (s *RelationshipService) Get(
	ctx context.Context,
	querier interfaces.DBTX,
	userID, characterID uuid.UUID,
) (*models.RelationshipRecord, error) {
	record, err := s.relationshipRepo.Get(ctx, querier, userID, characterID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ZeroRelationship(userID, characterID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load relationship: %w", err)
	}
	return record, nil
}

// Change applies deltas to the record and appends an audit event. Levels are
// unbounded in both directions.
func (s *RelationshipService) Change(
	ctx context.Context,
	querier interfaces.DBTX,
	userID, characterID uuid.UUID,
	deltas interactionDeltas,
	reason string,
) (*models.RelationshipRecord, error) {
	record, err := s.Get(ctx, querier, userID, characterID)
	if err != nil {
		return nil, err
	}

	record.RelationshipLevel += deltas.relationship
	record.TrustLevel += deltas.trust
	record.LoyaltyLevel += deltas.loyalty
	record.LastInteractionAt = time.Now().UTC()
	record.Audit = append(record.Audit, models.RelationshipEvent{
		Delta:     deltas.relationship,
		Reason:    reason,
		Timestamp: record.LastInteractionAt,
	})

	if err := s.relationshipRepo.Save(ctx, querier, record); err != nil {
		return nil, fmt.Errorf("failed to save relationship: %w", err)
	}

	s.logger.Debug("Relationship changed",
		zap.String("userID", userID.String()),
		zap.String("characterID", characterID.String()),
		zap.Int("relationshipLevel", record.RelationshipLevel),
		zap.String("reason", reason))
	return record, nil
}

// ProcessInteraction applies the fixed deltas for a typed interaction.
func (s *RelationshipService) ProcessInteraction(
	ctx context.Context,
	querier interfaces.DBTX,
	userID, characterID uuid.UUID,
	interaction InteractionType,
) (*models.RelationshipRecord, error) {
	deltas, ok := interactionTable[interaction]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInteraction, interaction)
	}
	return s.Change(ctx, querier, userID, characterID, deltas, "interaction: "+string(interaction))
}
