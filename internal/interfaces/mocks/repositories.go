package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	args := m.Called(ctx, querier, story)
	return args.Error(0)
}
func (m *StoryRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, querier, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryRepository) AddCharacter(ctx context.Context, querier interfaces.DBTX, storyID, characterID uuid.UUID) error {
	args := m.Called(ctx, querier, storyID, characterID)
	return args.Error(0)
}
func (m *StoryRepository) ListCharacters(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]models.Character, error) {
	args := m.Called(ctx, querier, storyID)
	chars, _ := args.Get(0).([]models.Character)
	return chars, args.Error(1)
}

// Mock StoryNodeRepository
type StoryNodeRepository struct {
	mock.Mock
}

func (m *StoryNodeRepository) Create(ctx context.Context, querier interfaces.DBTX, node *models.StoryNode) error {
	args := m.Called(ctx, querier, node)
	return args.Error(0)
}
func (m *StoryNodeRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.StoryNode, error) {
	args := m.Called(ctx, querier, id)
	node, _ := args.Get(0).(*models.StoryNode)
	return node, args.Error(1)
}
func (m *StoryNodeRepository) GetLatestByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (*models.StoryNode, error) {
	args := m.Called(ctx, querier, storyID)
	node, _ := args.Get(0).(*models.StoryNode)
	return node, args.Error(1)
}
func (m *StoryNodeRepository) GetRootByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (*models.StoryNode, error) {
	args := m.Called(ctx, querier, storyID)
	node, _ := args.Get(0).(*models.StoryNode)
	return node, args.Error(1)
}
func (m *StoryNodeRepository) ListByIDs(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) ([]models.StoryNode, error) {
	args := m.Called(ctx, querier, ids)
	nodes, _ := args.Get(0).([]models.StoryNode)
	return nodes, args.Error(1)
}

// Mock SessionRepository
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, querier interfaces.DBTX, state *models.SessionState) error {
	args := m.Called(ctx, querier, state)
	return args.Error(0)
}
func (m *SessionRepository) GetByUserID(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) (*models.SessionState, error) {
	args := m.Called(ctx, querier, userID)
	state, _ := args.Get(0).(*models.SessionState)
	return state, args.Error(1)
}
func (m *SessionRepository) GetByUserIDForUpdate(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) (*models.SessionState, error) {
	args := m.Called(ctx, querier, userID)
	state, _ := args.Get(0).(*models.SessionState)
	return state, args.Error(1)
}
func (m *SessionRepository) Update(ctx context.Context, querier interfaces.DBTX, state *models.SessionState) error {
	args := m.Called(ctx, querier, state)
	return args.Error(0)
}
func (m *SessionRepository) IncrementNodeCount(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, querier, userID)
	return args.Int(0), args.Error(1)
}
func (m *SessionRepository) DecrementNodeCount(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, querier, userID)
	return args.Int(0), args.Error(1)
}
func (m *SessionRepository) RecordCurrencyTransaction(ctx context.Context, querier interfaces.DBTX, tx *models.CurrencyTransaction) error {
	args := m.Called(ctx, querier, tx)
	return args.Error(0)
}

// Mock MissionRepository
type MissionRepository struct {
	mock.Mock
}

func (m *MissionRepository) Create(ctx context.Context, querier interfaces.DBTX, mission *models.Mission) error {
	args := m.Called(ctx, querier, mission)
	return args.Error(0)
}
func (m *MissionRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Mission, error) {
	args := m.Called(ctx, querier, id)
	mission, _ := args.Get(0).(*models.Mission)
	return mission, args.Error(1)
}
func (m *MissionRepository) Update(ctx context.Context, querier interfaces.DBTX, mission *models.Mission) error {
	args := m.Called(ctx, querier, mission)
	return args.Error(0)
}
func (m *MissionRepository) ListByIDs(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) ([]*models.Mission, error) {
	args := m.Called(ctx, querier, ids)
	missions, _ := args.Get(0).([]*models.Mission)
	return missions, args.Error(1)
}
func (m *MissionRepository) GetActiveByUserAndStory(ctx context.Context, querier interfaces.DBTX, userID, storyID uuid.UUID) (*models.Mission, error) {
	args := m.Called(ctx, querier, userID, storyID)
	mission, _ := args.Get(0).(*models.Mission)
	return mission, args.Error(1)
}

// Mock CharacterRepository
type CharacterRepository struct {
	mock.Mock
}

func (m *CharacterRepository) Create(ctx context.Context, querier interfaces.DBTX, character *models.Character) error {
	args := m.Called(ctx, querier, character)
	return args.Error(0)
}
func (m *CharacterRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Character, error) {
	args := m.Called(ctx, querier, id)
	character, _ := args.Get(0).(*models.Character)
	return character, args.Error(1)
}
func (m *CharacterRepository) ListByIDs(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) ([]models.Character, error) {
	args := m.Called(ctx, querier, ids)
	chars, _ := args.Get(0).([]models.Character)
	return chars, args.Error(1)
}

// Mock RelationshipRepository
type RelationshipRepository struct {
	mock.Mock
}

func (m *RelationshipRepository) Get(ctx context.Context, querier interfaces.DBTX, userID, characterID uuid.UUID) (*models.RelationshipRecord, error) {
	args := m.Called(ctx, querier, userID, characterID)
	record, _ := args.Get(0).(*models.RelationshipRecord)
	return record, args.Error(1)
}
func (m *RelationshipRepository) Save(ctx context.Context, querier interfaces.DBTX, record *models.RelationshipRecord) error {
	args := m.Called(ctx, querier, record)
	return args.Error(0)
}

// Mock PlotArcRepository
type PlotArcRepository struct {
	mock.Mock
}

func (m *PlotArcRepository) Create(ctx context.Context, querier interfaces.DBTX, arc *models.PlotArc) error {
	args := m.Called(ctx, querier, arc)
	return args.Error(0)
}
func (m *PlotArcRepository) ListActiveKeyNodeIDs(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, querier, storyID)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}
