package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

const (
	insertPlotArcQuery = `
        INSERT INTO plot_arcs (id, story_id, name, status, key_node_ids, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	listActiveKeyNodeIDsQuery = `
        SELECT key_node_ids
        FROM plot_arcs
        WHERE story_id = $1 AND status = 'active'
        ORDER BY created_at, id
    `
)

var _ interfaces.PlotArcRepository = (*pgPlotArcRepository)(nil)

type pgPlotArcRepository struct {
	logger *zap.Logger
}

// NewPgPlotArcRepository creates the PostgreSQL PlotArcRepository.
func NewPgPlotArcRepository(logger *zap.Logger) interfaces.PlotArcRepository {
	return &pgPlotArcRepository{logger: logger.Named("PgPlotArcRepo")}
}

func (r *pgPlotArcRepository) Create(ctx context.Context, querier interfaces.DBTX, arc *models.PlotArc) error {
	_, err := querier.Exec(ctx, insertPlotArcQuery,
		arc.ID, arc.StoryID, arc.Name, arc.Status, arc.KeyNodeIDs, arc.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert plot arc", zap.String("arcID", arc.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert plot arc: %w", err)
	}
	return nil
}

func (r *pgPlotArcRepository) ListActiveKeyNodeIDs(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := querier.Query(ctx, listActiveKeyNodeIDsQuery, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active plot arcs: %w", err)
	}
	defer rows.Close()

	var all []uuid.UUID
	for rows.Next() {
		var ids []uuid.UUID
		if err := rows.Scan(&ids); err != nil {
			return nil, fmt.Errorf("failed to scan key node ids: %w", err)
		}
		all = append(all, ids...)
	}
	return all, rows.Err()
}
