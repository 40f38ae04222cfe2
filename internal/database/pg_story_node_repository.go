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
	storyNodeFields = `id, story_id, parent_node_id, narrative_text, is_endpoint, metadata, created_at`

	insertStoryNodeQuery = `
        INSERT INTO story_nodes (id, story_id, parent_node_id, narrative_text, is_endpoint, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	getStoryNodeByIDQuery = `SELECT ` + storyNodeFields + ` FROM story_nodes WHERE id = $1`

	getLatestStoryNodeQuery = `
        SELECT ` + storyNodeFields + `
        FROM story_nodes
        WHERE story_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `
	getRootStoryNodeQuery = `
        SELECT ` + storyNodeFields + `
        FROM story_nodes
        WHERE story_id = $1 AND parent_node_id IS NULL
        LIMIT 1
    `
	listStoryNodesByIDsQuery = `
        SELECT ` + storyNodeFields + `
        FROM story_nodes
        WHERE id = ANY($1::uuid[])
        ORDER BY created_at, id
    `
)

var _ interfaces.StoryNodeRepository = (*pgStoryNodeRepository)(nil)

type pgStoryNodeRepository struct {
	logger *zap.Logger
}

// NewPgStoryNodeRepository creates the PostgreSQL StoryNodeRepository.
func NewPgStoryNodeRepository(logger *zap.Logger) interfaces.StoryNodeRepository {
	return &pgStoryNodeRepository{logger: logger.Named("PgStoryNodeRepo")}
}

func (r *pgStoryNodeRepository) Create(ctx context.Context, querier interfaces.DBTX, node *models.StoryNode) error {
	_, err := querier.Exec(ctx, insertStoryNodeQuery,
		node.ID,
		node.StoryID,
		node.ParentNodeID,
		node.NarrativeText,
		node.IsEndpoint,
		node.Metadata,
		node.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert story node",
			zap.String("nodeID", node.ID.String()),
			zap.String("storyID", node.StoryID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to insert story node: %w", err)
	}
	return nil
}

func (r *pgStoryNodeRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.StoryNode, error) {
	return r.scanOne(ctx, querier, getStoryNodeByIDQuery, id)
}

func (r *pgStoryNodeRepository) GetLatestByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (*models.StoryNode, error) {
	return r.scanOne(ctx, querier, getLatestStoryNodeQuery, storyID)
}

func (r *pgStoryNodeRepository) GetRootByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (*models.StoryNode, error) {
	return r.scanOne(ctx, querier, getRootStoryNodeQuery, storyID)
}

func (r *pgStoryNodeRepository) ListByIDs(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) ([]models.StoryNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := querier.Query(ctx, listStoryNodesByIDsQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list story nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.StoryNode
	for rows.Next() {
		var n models.StoryNode
		if err := rows.Scan(&n.ID, &n.StoryID, &n.ParentNodeID, &n.NarrativeText, &n.IsEndpoint, &n.Metadata, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan story node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (r *pgStoryNodeRepository) scanOne(ctx context.Context, querier interfaces.DBTX, query string, arg any) (*models.StoryNode, error) {
	var n models.StoryNode
	err := querier.QueryRow(ctx, query, arg).Scan(
		&n.ID, &n.StoryID, &n.ParentNodeID, &n.NarrativeText, &n.IsEndpoint, &n.Metadata, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to scan story node", zap.Error(err))
		return nil, fmt.Errorf("failed to get story node: %w", err)
	}
	return &n, nil
}
