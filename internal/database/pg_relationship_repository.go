package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

const (
	relationshipFields = `user_id, character_id, relationship_level, trust_level, loyalty_level, last_interaction_at, audit`

	getRelationshipQuery = `
        SELECT ` + relationshipFields + `
        FROM relationship_records
        WHERE user_id = $1 AND character_id = $2
    `
	upsertRelationshipQuery = `
        INSERT INTO relationship_records
            (user_id, character_id, relationship_level, trust_level, loyalty_level, last_interaction_at, audit)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (user_id, character_id) DO UPDATE SET
            relationship_level = EXCLUDED.relationship_level,
            trust_level = EXCLUDED.trust_level,
            loyalty_level = EXCLUDED.loyalty_level,
            last_interaction_at = EXCLUDED.last_interaction_at,
            audit = EXCLUDED.audit
    `
)

var _ interfaces.RelationshipRepository = (*pgRelationshipRepository)(nil)

type pgRelationshipRepository struct {
	logger *zap.Logger
}

// NewPgRelationshipRepository creates the PostgreSQL RelationshipRepository.
func NewPgRelationshipRepository(logger *zap.Logger) interfaces.RelationshipRepository {
	return &pgRelationshipRepository{logger: logger.Named("PgRelationshipRepo")}
}

func (r *pgRelationshipRepository) Get(ctx context.Context, querier interfaces.DBTX, userID, characterID uuid.UUID) (*models.RelationshipRecord, error) {
	var rec models.RelationshipRecord
	err := querier.QueryRow(ctx, getRelationshipQuery, userID, characterID).Scan(
		&rec.UserID,
		&rec.CharacterID,
		&rec.RelationshipLevel,
		&rec.TrustLevel,
		&rec.LoyaltyLevel,
		&rec.LastInteractionAt,
		&rec.Audit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get relationship record",
			zap.String("userID", userID.String()),
			zap.String("characterID", characterID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get relationship record: %w", err)
	}
	return &rec, nil
}

func (r *pgRelationshipRepository) Save(ctx context.Context, querier interfaces.DBTX, record *models.RelationshipRecord) error {
	_, err := querier.Exec(ctx, upsertRelationshipQuery,
		record.UserID,
		record.CharacterID,
		record.RelationshipLevel,
		record.TrustLevel,
		record.LoyaltyLevel,
		record.LastInteractionAt,
		record.Audit,
	)
	if err != nil {
		r.logger.Error("Failed to save relationship record",
			zap.String("userID", record.UserID.String()),
			zap.String("characterID", record.CharacterID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to save relationship record: %w", err)
	}
	return nil
}
