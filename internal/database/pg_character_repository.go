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
	characterFields = `id, name, traits, role, backstory, plot_lines, created_at`

	insertCharacterQuery = `
        INSERT INTO characters (id, name, traits, role, backstory, plot_lines, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	getCharacterByIDQuery   = `SELECT ` + characterFields + ` FROM characters WHERE id = $1`
	listCharactersByIDsQuery = `
        SELECT ` + characterFields + `
        FROM characters
        WHERE id = ANY($1::uuid[])
        ORDER BY created_at, id
    `
)

var _ interfaces.CharacterRepository = (*pgCharacterRepository)(nil)

type pgCharacterRepository struct {
	logger *zap.Logger
}

// NewPgCharacterRepository creates the PostgreSQL CharacterRepository.
func NewPgCharacterRepository(logger *zap.Logger) interfaces.CharacterRepository {
	return &pgCharacterRepository{logger: logger.Named("PgCharacterRepo")}
}

func (r *pgCharacterRepository) Create(ctx context.Context, querier interfaces.DBTX, character *models.Character) error {
	_, err := querier.Exec(ctx, insertCharacterQuery,
		character.ID,
		character.Name,
		character.Traits,
		character.Role,
		character.Backstory,
		character.PlotLines,
		character.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert character", zap.String("characterID", character.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert character: %w", err)
	}
	return nil
}

func (r *pgCharacterRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Character, error) {
	var c models.Character
	err := querier.QueryRow(ctx, getCharacterByIDQuery, id).Scan(
		&c.ID, &c.Name, &c.Traits, &c.Role, &c.Backstory, &c.PlotLines, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get character", zap.String("characterID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	return &c, nil
}

func (r *pgCharacterRepository) ListByIDs(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) ([]models.Character, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chars []models.Character
	if err := pgxscan.Select(ctx, querier, &chars, listCharactersByIDsQuery, ids); err != nil {
		r.logger.Error("Failed to list characters", zap.Error(err))
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	return chars, nil
}
