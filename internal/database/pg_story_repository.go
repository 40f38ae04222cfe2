package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

const (
	storyFields = `id, user_id, title, primary_conflict, setting, narrative_style, mood, created_at`

	insertStoryQuery = `
        INSERT INTO stories (id, user_id, title, primary_conflict, setting, narrative_style, mood, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	getStoryByIDQuery = `SELECT ` + storyFields + ` FROM stories WHERE id = $1`

	insertStoryCharacterQuery = `
        INSERT INTO story_characters (story_id, character_id)
        VALUES ($1, $2)
        ON CONFLICT (story_id, character_id) DO NOTHING
    `
	listStoryCharactersQuery = `
        SELECT c.id, c.name, c.traits, c.role, c.backstory, c.plot_lines, c.created_at
        FROM characters c
        JOIN story_characters sc ON sc.character_id = c.id
        WHERE sc.story_id = $1
        ORDER BY sc.added_at, c.id
    `
)

var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	logger *zap.Logger
}

// NewPgStoryRepository creates the PostgreSQL StoryRepository.
func NewPgStoryRepository(logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{logger: logger.Named("PgStoryRepo")}
}

func (r *pgStoryRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	_, err := querier.Exec(ctx, insertStoryQuery,
		story.ID,
		story.UserID,
		story.Title,
		story.PrimaryConflict,
		story.Setting,
		story.NarrativeStyle,
		story.Mood,
		story.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert story", zap.String("storyID", story.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	var s models.Story
	err := querier.QueryRow(ctx, getStoryByIDQuery, id).Scan(
		&s.ID, &s.UserID, &s.Title, &s.PrimaryConflict, &s.Setting, &s.NarrativeStyle, &s.Mood, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story", zap.String("storyID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return &s, nil
}

func (r *pgStoryRepository) AddCharacter(ctx context.Context, querier interfaces.DBTX, storyID, characterID uuid.UUID) error {
	if _, err := querier.Exec(ctx, insertStoryCharacterQuery, storyID, characterID); err != nil {
		return fmt.Errorf("failed to add character to story cast: %w", err)
	}
	return nil
}

func (r *pgStoryRepository) ListCharacters(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]models.Character, error) {
	var chars []models.Character
	if err := pgxscan.Select(ctx, querier, &chars, listStoryCharactersQuery, storyID); err != nil {
		r.logger.Error("Failed to list story cast", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list story cast: %w", err)
	}
	return chars, nil
}
