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
	sessionFields = `user_id, current_story_id, current_node_id, node_count, active_missions,
        completed_missions, failed_missions, encountered_characters, choice_history,
        currency_balances, created_at, last_active_at`

	insertSessionQuery = `
        INSERT INTO session_states
            (user_id, current_story_id, current_node_id, node_count, active_missions,
             completed_missions, failed_missions, encountered_characters, choice_history,
             currency_balances, created_at, last_active_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	updateSessionQuery = `
        UPDATE session_states SET
            current_story_id = $2,
            current_node_id = $3,
            active_missions = $4,
            completed_missions = $5,
            failed_missions = $6,
            encountered_characters = $7,
            choice_history = $8,
            currency_balances = $9,
            last_active_at = $10
            -- node_count is owned by Increment/DecrementNodeCount, never by Update
        WHERE user_id = $1
    `
	getSessionQuery          = `SELECT ` + sessionFields + ` FROM session_states WHERE user_id = $1`
	getSessionForUpdateQuery = getSessionQuery + ` FOR UPDATE`

	incrementNodeCountQuery = `
        UPDATE session_states SET node_count = node_count + 1
        WHERE user_id = $1
        RETURNING node_count
    `
	decrementNodeCountQuery = `
        UPDATE session_states SET node_count = GREATEST(node_count - 1, 0)
        WHERE user_id = $1
        RETURNING node_count
    `
	insertCurrencyTransactionQuery = `
        INSERT INTO currency_transactions (id, user_id, currency, amount, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
)

var _ interfaces.SessionRepository = (*pgSessionRepository)(nil)

type pgSessionRepository struct {
	logger *zap.Logger
}

// NewPgSessionRepository creates the PostgreSQL SessionRepository.
func NewPgSessionRepository(logger *zap.Logger) interfaces.SessionRepository {
	return &pgSessionRepository{logger: logger.Named("PgSessionRepo")}
}

func (r *pgSessionRepository) Create(ctx context.Context, querier interfaces.DBTX, state *models.SessionState) error {
	_, err := querier.Exec(ctx, insertSessionQuery,
		state.UserID,
		state.CurrentStoryID,
		state.CurrentNodeID,
		state.NodeCount,
		state.ActiveMissionIDs,
		state.CompletedMissionIDs,
		state.FailedMissionIDs,
		state.EncounteredCharacters,
		state.ChoiceHistory,
		state.CurrencyBalances,
		state.CreatedAt,
		state.LastActiveAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert session state", zap.String("userID", state.UserID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert session state: %w", err)
	}
	return nil
}

func (r *pgSessionRepository) GetByUserID(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) (*models.SessionState, error) {
	return r.scanOne(ctx, querier, getSessionQuery, userID)
}

func (r *pgSessionRepository) GetByUserIDForUpdate(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) (*models.SessionState, error) {
	return r.scanOne(ctx, querier, getSessionForUpdateQuery, userID)
}

func (r *pgSessionRepository) Update(ctx context.Context, querier interfaces.DBTX, state *models.SessionState) error {
	state.LastActiveAt = time.Now().UTC()
	tag, err := querier.Exec(ctx, updateSessionQuery,
		state.UserID,
		state.CurrentStoryID,
		state.CurrentNodeID,
		state.ActiveMissionIDs,
		state.CompletedMissionIDs,
		state.FailedMissionIDs,
		state.EncounteredCharacters,
		state.ChoiceHistory,
		state.CurrencyBalances,
		state.LastActiveAt,
	)
	if err != nil {
		r.logger.Error("Failed to update session state", zap.String("userID", state.UserID.String()), zap.Error(err))
		return fmt.Errorf("failed to update session state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgSessionRepository) IncrementNodeCount(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) (int, error) {
	var count int
	err := querier.QueryRow(ctx, incrementNodeCountQuery, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment node count: %w", err)
	}
	r.logger.Debug("Node count incremented", zap.String("userID", userID.String()), zap.Int("nodeCount", count))
	return count, nil
}

func (r *pgSessionRepository) DecrementNodeCount(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) (int, error) {
	var count int
	err := querier.QueryRow(ctx, decrementNodeCountQuery, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrNotFound
		}
		return 0, fmt.Errorf("failed to decrement node count: %w", err)
	}
	r.logger.Warn("Node count decremented (compensating action)",
		zap.String("userID", userID.String()), zap.Int("nodeCount", count))
	return count, nil
}

func (r *pgSessionRepository) RecordCurrencyTransaction(ctx context.Context, querier interfaces.DBTX, tx *models.CurrencyTransaction) error {
	_, err := querier.Exec(ctx, insertCurrencyTransactionQuery,
		tx.ID, tx.UserID, tx.Currency, tx.Amount, tx.Description, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record currency transaction: %w", err)
	}
	return nil
}

func (r *pgSessionRepository) scanOne(ctx context.Context, querier interfaces.DBTX, query string, userID uuid.UUID) (*models.SessionState, error) {
	var s models.SessionState
	err := querier.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.CurrentStoryID,
		&s.CurrentNodeID,
		&s.NodeCount,
		&s.ActiveMissionIDs,
		&s.CompletedMissionIDs,
		&s.FailedMissionIDs,
		&s.EncounteredCharacters,
		&s.ChoiceHistory,
		&s.CurrencyBalances,
		&s.CreatedAt,
		&s.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get session state", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get session state: %w", err)
	}
	return &s, nil
}
