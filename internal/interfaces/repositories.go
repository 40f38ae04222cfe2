package interfaces

import (
	"context"

	"spystory-server/internal/models"

	"github.com/google/uuid"
)

// StoryRepository persists stories and their cast membership.
//
//go:generate mockery --name StoryRepository --output ./mocks --outpkg mocks --case=underscore
type StoryRepository interface {
	Create(ctx context.Context, querier DBTX, story *models.Story) error
	// GetByID returns models.ErrNotFound if the story does not exist.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Story, error)
	// AddCharacter links a character into the story cast (idempotent).
	AddCharacter(ctx context.Context, querier DBTX, storyID, characterID uuid.UUID) error
	// ListCharacters returns the story cast in insertion order.
	ListCharacters(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]models.Character, error)
}

// StoryNodeRepository persists the per-story node tree.
//
//go:generate mockery --name StoryNodeRepository --output ./mocks --outpkg mocks --case=underscore
type StoryNodeRepository interface {
	Create(ctx context.Context, querier DBTX, node *models.StoryNode) error
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.StoryNode, error)
	// GetLatestByStory returns the most recently created node for the story,
	// tie-broken by highest id. models.ErrNotFound when the story has no nodes.
	GetLatestByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) (*models.StoryNode, error)
	// GetRootByStory returns the single node with a NULL parent.
	GetRootByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) (*models.StoryNode, error)
	// ListByIDs returns the nodes that exist among ids; missing ids are
	// skipped silently (context assembly relies on this).
	ListByIDs(ctx context.Context, querier DBTX, ids []uuid.UUID) ([]models.StoryNode, error)
}

// SessionRepository persists the per-user session aggregate.
//
//go:generate mockery --name SessionRepository --output ./mocks --outpkg mocks --case=underscore
type SessionRepository interface {
	Create(ctx context.Context, querier DBTX, state *models.SessionState) error
	GetByUserID(ctx context.Context, querier DBTX, userID uuid.UUID) (*models.SessionState, error)
	// GetByUserIDForUpdate locks the session row for the duration of the
	// surrounding transaction (SELECT ... FOR UPDATE).
	GetByUserIDForUpdate(ctx context.Context, querier DBTX, userID uuid.UUID) (*models.SessionState, error)
	Update(ctx context.Context, querier DBTX, state *models.SessionState) error
	// IncrementNodeCount bumps the persisted counter in a single statement and
	// returns the new value. It is intentionally separate from Update: the
	// counter must survive a crash between increment and node creation.
	IncrementNodeCount(ctx context.Context, querier DBTX, userID uuid.UUID) (int, error)
	// DecrementNodeCount is the compensating action for a failed generation.
	// It never drops the counter below zero.
	DecrementNodeCount(ctx context.Context, querier DBTX, userID uuid.UUID) (int, error)
	// RecordCurrencyTransaction appends an audit row for a currency movement.
	RecordCurrencyTransaction(ctx context.Context, querier DBTX, tx *models.CurrencyTransaction) error
}

// MissionRepository persists missions and their audit logs.
//
//go:generate mockery --name MissionRepository --output ./mocks --outpkg mocks --case=underscore
type MissionRepository interface {
	Create(ctx context.Context, querier DBTX, mission *models.Mission) error
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Mission, error)
	Update(ctx context.Context, querier DBTX, mission *models.Mission) error
	ListByIDs(ctx context.Context, querier DBTX, ids []uuid.UUID) ([]*models.Mission, error)
	// GetActiveByUserAndStory returns the single active mission driving the
	// narrative for the story, or models.ErrNotFound.
	GetActiveByUserAndStory(ctx context.Context, querier DBTX, userID, storyID uuid.UUID) (*models.Mission, error)
}

// CharacterRepository persists NPCs.
//
//go:generate mockery --name CharacterRepository --output ./mocks --outpkg mocks --case=underscore
type CharacterRepository interface {
	Create(ctx context.Context, querier DBTX, character *models.Character) error
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Character, error)
	ListByIDs(ctx context.Context, querier DBTX, ids []uuid.UUID) ([]models.Character, error)
}

// RelationshipRepository persists the derived relationship overlay.
//
//go:generate mockery --name RelationshipRepository --output ./mocks --outpkg mocks --case=underscore
type RelationshipRepository interface {
	// Get returns models.ErrNotFound when no record exists yet; callers
	// substitute the zero record.
	Get(ctx context.Context, querier DBTX, userID, characterID uuid.UUID) (*models.RelationshipRecord, error)
	// Save upserts the record keyed by (user, character).
	Save(ctx context.Context, querier DBTX, record *models.RelationshipRecord) error
}

// PlotArcRepository exposes the externally curated key-plot-point lists.
//
//go:generate mockery --name PlotArcRepository --output ./mocks --outpkg mocks --case=underscore
type PlotArcRepository interface {
	Create(ctx context.Context, querier DBTX, arc *models.PlotArc) error
	// ListActiveKeyNodeIDs returns the concatenated key node id lists of all
	// active arcs for the story, in arc creation order.
	ListActiveKeyNodeIDs(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]uuid.UUID, error)
}
