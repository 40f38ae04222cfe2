package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

// NodeResolver finds the node to continue a story from. The session pointer
// is a hint, not an authority: when it is stale or points into another story
// the resolver falls back to recoverable positions instead of failing.
type NodeResolver struct {
	nodeRepo interfaces.StoryNodeRepository
	logger   *zap.Logger
}

func NewNodeResolver(nodeRepo interfaces.StoryNodeRepository, logger *zap.Logger) *NodeResolver {
	return &NodeResolver{
		nodeRepo: nodeRepo,
		logger:   logger.Named("NodeResolver"),
	}
}

// Resolve walks the fallback chain for storyID: the session's current node
// when it belongs to this story, then the latest node by creation time, then
// the root. Only when every step misses does it return ErrNoValidNode.
func (r *NodeResolver) Resolve(
	ctx context.Context,
	querier interfaces.DBTX,
	session *models.SessionState,
	storyID uuid.UUID,
) (*models.StoryNode, error) {
	log := r.logger.With(zap.String("storyID", storyID.String()))

	if session != nil && session.CurrentNodeID != nil {
		if session.CurrentStoryID != nil && *session.CurrentStoryID != storyID {
			log.Warn("Session pointer belongs to a different story, falling back",
				zap.String("pointerStoryID", session.CurrentStoryID.String()))
		} else {
			node, err := r.nodeRepo.GetByID(ctx, querier, *session.CurrentNodeID)
			switch {
			case err == nil && node.StoryID == storyID:
				return node, nil
			case err == nil:
				log.Warn("Current node exists but belongs to a different story, falling back",
					zap.String("nodeID", node.ID.String()))
			case errors.Is(err, models.ErrNotFound):
				log.Warn("Current node pointer is dangling, falling back",
					zap.String("nodeID", session.CurrentNodeID.String()))
			default:
				return nil, fmt.Errorf("failed to load current node: %w", err)
			}
		}
	}

	node, err := r.nodeRepo.GetLatestByStory(ctx, querier, storyID)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load latest node: %w", err)
	}

	node, err = r.nodeRepo.GetRootByStory(ctx, querier, storyID)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load root node: %w", err)
	}

	log.Error("Story has no resolvable node")
	return nil, models.ErrNoValidNode
}
