package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

const (
	missionFields = `id, user_id, story_id, giver_character_id, target_character_id, title,
        objective, status, progress, progress_updates, reward_currency, reward_amount,
        deadline, failure_reason, created_at, updated_at, completed_at`

	insertMissionQuery = `
        INSERT INTO missions
            (id, user_id, story_id, giver_character_id, target_character_id, title,
             objective, status, progress, progress_updates, reward_currency, reward_amount,
             deadline, failure_reason, created_at, updated_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
    `
	updateMissionQuery = `
        UPDATE missions SET
            status = $2,
            progress = $3,
            progress_updates = $4,
            failure_reason = $5,
            updated_at = $6,
            completed_at = $7
            -- identity, references and reward definition never change
        WHERE id = $1
    `
	getMissionByIDQuery = `SELECT ` + missionFields + ` FROM missions WHERE id = $1`

	listMissionsByIDsQuery = `
        SELECT ` + missionFields + `
        FROM missions
        WHERE id = ANY($1::uuid[])
        ORDER BY created_at, id
    `
	getActiveMissionQuery = `
        SELECT ` + missionFields + `
        FROM missions
        WHERE user_id = $1 AND story_id = $2 AND status = 'active'
        ORDER BY created_at
        LIMIT 1
    `
)

var _ interfaces.MissionRepository = (*pgMissionRepository)(nil)

type pgMissionRepository struct {
	logger *zap.Logger
}

// NewPgMissionRepository creates the PostgreSQL MissionRepository.
func NewPgMissionRepository(logger *zap.Logger) interfaces.MissionRepository {
	return &pgMissionRepository{logger: logger.Named("PgMissionRepo")}
}

func (r *pgMissionRepository) Create(ctx context.Context, querier interfaces.DBTX, mission *models.Mission) error {
	_, err := querier.Exec(ctx, insertMissionQuery,
		mission.ID,
		mission.UserID,
		mission.StoryID,
		mission.GiverCharacterID,
		mission.TargetCharacterID,
		mission.Title,
		mission.Objective,
		mission.Status,
		mission.Progress,
		mission.ProgressUpdates,
		mission.RewardCurrency,
		mission.RewardAmount,
		mission.Deadline,
		mission.FailureReason,
		mission.CreatedAt,
		mission.UpdatedAt,
		mission.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert mission", zap.String("missionID", mission.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert mission: %w", err)
	}
	return nil
}

func (r *pgMissionRepository) Update(ctx context.Context, querier interfaces.DBTX, mission *models.Mission) error {
	mission.UpdatedAt = time.Now().UTC()
	tag, err := querier.Exec(ctx, updateMissionQuery,
		mission.ID,
		mission.Status,
		mission.Progress,
		mission.ProgressUpdates,
		mission.FailureReason,
		mission.UpdatedAt,
		mission.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update mission", zap.String("missionID", mission.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update mission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgMissionRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Mission, error) {
	m, err := scanMission(querier.QueryRow(ctx, getMissionByIDQuery, id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get mission", zap.String("missionID", id.String()), zap.Error(err))
		return nil, err
	}
	return m, nil
}

func (r *pgMissionRepository) GetActiveByUserAndStory(ctx context.Context, querier interfaces.DBTX, userID, storyID uuid.UUID) (*models.Mission, error) {
	return scanMission(querier.QueryRow(ctx, getActiveMissionQuery, userID, storyID))
}

func (r *pgMissionRepository) ListByIDs(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) ([]*models.Mission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := querier.Query(ctx, listMissionsByIDsQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	var missions []*models.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	return missions, rows.Err()
}

func scanMission(row pgx.Row) (*models.Mission, error) {
	var m models.Mission
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.StoryID,
		&m.GiverCharacterID,
		&m.TargetCharacterID,
		&m.Title,
		&m.Objective,
		&m.Status,
		&m.Progress,
		&m.ProgressUpdates,
		&m.RewardCurrency,
		&m.RewardAmount,
		&m.Deadline,
		&m.FailureReason,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan mission: %w", err)
	}
	return &m, nil
}
