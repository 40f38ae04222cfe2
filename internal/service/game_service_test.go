package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/interfaces/mocks"
	"spystory-server/internal/models"
	"spystory-server/internal/service"
)

// fakeTxManager runs the transactional closure directly, with a nil querier
// the repository mocks accept via mock.Anything.
type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.DBTX) error) error {
	return fn(ctx, nil)
}

type gameServiceFixture struct {
	storyRepo     *mocks.StoryRepository
	nodeRepo      *mocks.StoryNodeRepository
	sessionRepo   *mocks.SessionRepository
	missionRepo   *mocks.MissionRepository
	characterRepo *mocks.CharacterRepository
	relRepo       *mocks.RelationshipRepository
	arcRepo       *mocks.PlotArcRepository
	generator     *mocks.Generator
	guard         *mocks.SessionGuard
	listener      *mocks.StateListener
	history       *service.HistoryBuffer
	svc           service.GameService
}

func newGameServiceFixture() *gameServiceFixture {
	f := &gameServiceFixture{
		storyRepo:     new(mocks.StoryRepository),
		nodeRepo:      new(mocks.StoryNodeRepository),
		sessionRepo:   new(mocks.SessionRepository),
		missionRepo:   new(mocks.MissionRepository),
		characterRepo: new(mocks.CharacterRepository),
		relRepo:       new(mocks.RelationshipRepository),
		arcRepo:       new(mocks.PlotArcRepository),
		generator:     new(mocks.Generator),
		guard:         new(mocks.SessionGuard),
		listener:      new(mocks.StateListener),
	}

	log := zap.NewNop()
	relSvc := service.NewRelationshipService(f.relRepo, log)
	missionSvc := service.NewMissionService(f.missionRepo, f.sessionRepo, relSvc, log)
	notifier := service.NewStateNotifier(log)
	notifier.Register(f.listener)
	f.history = service.NewHistoryBuffer()

	f.svc = service.NewGameService(
		nil,
		fakeTxManager{},
		f.storyRepo,
		f.nodeRepo,
		f.sessionRepo,
		f.missionRepo,
		f.characterRepo,
		service.NewNodeResolver(f.nodeRepo, log),
		service.NewContextAssembler(f.nodeRepo, f.arcRepo, "gpt-4o-mini", log),
		f.history,
		missionSvc,
		relSvc,
		f.generator,
		f.guard,
		notifier,
		log,
	)
	return f
}

func TestGameService_EnsureSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("returns the existing session", func(t *testing.T) {
		f := newGameServiceFixture()
		existing := models.NewSessionState(userID)
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(existing, nil).Once()

		session, err := f.svc.EnsureSession(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, existing, session)
		f.sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates the empty aggregate on first contact", func(t *testing.T) {
		f := newGameServiceFixture()
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(nil, models.ErrNotFound).Once()
		f.sessionRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(s *models.SessionState) bool {
			return s.UserID == userID && len(s.ActiveMissionIDs) == 0 && s.CurrentStoryID == nil
		})).Return(nil).Once()

		session, err := f.svc.EnsureSession(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, userID, session.UserID)
		f.sessionRepo.AssertExpectations(t)
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		f := newGameServiceFixture()
		dbErr := errors.New("connection reset")
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(nil, dbErr).Once()

		session, err := f.svc.EnsureSession(ctx, userID)
		assert.Nil(t, session)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestGameService_StartSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	params := models.StoryParams{
		PrimaryConflict: "Stop the double agent",
		Setting:         "Cold War Berlin",
		ProtagonistName: "Elena Markov",
	}

	t.Run("generates the opening scene and roots the session", func(t *testing.T) {
		f := newGameServiceFixture()
		session := models.NewSessionState(userID)

		f.guard.On("Acquire", ctx, userID.String()).Return(true, nil).Once()
		f.guard.On("Release", mock.Anything, userID.String()).Return(nil).Once()
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(session, nil).Twice()

		f.generator.On("Generate", ctx, mock.MatchedBy(func(req models.GenerationRequest) bool {
			return req.OpeningScene && req.Story.PrimaryConflict == params.PrimaryConflict &&
				req.Protagonist.Name == params.ProtagonistName
		})).Return(&models.GenerationResult{
			NarrativeText: "Rain hammered the checkpoint as Elena crossed.",
			Choices:       []models.Choice{{ID: "1", Text: "Approach the guard"}},
		}, nil).Once()

		f.storyRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(st *models.Story) bool {
			return st.UserID == userID && st.Title == params.PrimaryConflict
		})).Return(nil).Once()
		f.nodeRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(n *models.StoryNode) bool {
			return n.ParentNodeID == nil && len(n.Metadata.Choices) == 1
		})).Return(nil).Once()
		f.missionRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(m *models.Mission) bool {
			return m.UserID == userID && m.Status == models.MissionStatusActive && m.RewardAmount > 0
		})).Return(nil).Once()
		f.sessionRepo.On("GetByUserIDForUpdate", ctx, mock.Anything, userID).Return(session, nil).Once()
		f.sessionRepo.On("Update", ctx, mock.Anything, session).Return(nil).Once()
		f.sessionRepo.On("IncrementNodeCount", ctx, mock.Anything, userID).Return(1, nil).Once()
		f.missionRepo.On("ListByIDs", ctx, mock.Anything, mock.Anything).Return([]*models.Mission{}, nil).Once()
		f.listener.On("OnStateChanged", mock.Anything).Once()

		node, err := f.svc.StartSession(ctx, userID, params)
		assert.NoError(t, err)
		assert.Equal(t, "Rain hammered the checkpoint as Elena crossed.", node.NarrativeText)
		assert.Nil(t, node.ParentNodeID)
		assert.Equal(t, &node.ID, session.CurrentNodeID)
		assert.Equal(t, []uuid.UUID{node.ID}, session.ChoiceHistory)
		assert.Len(t, session.ActiveMissionIDs, 1)
		// Nothing has been departed from yet.
		assert.Empty(t, f.history.Recent(userID))

		f.guard.AssertExpectations(t)
		f.generator.AssertExpectations(t)
		f.sessionRepo.AssertExpectations(t)
		f.listener.AssertExpectations(t)
	})

	t.Run("rejects a busy session", func(t *testing.T) {
		f := newGameServiceFixture()
		f.guard.On("Acquire", ctx, userID.String()).Return(false, nil).Once()

		node, err := f.svc.StartSession(ctx, userID, params)
		assert.Nil(t, node)
		assert.ErrorIs(t, err, models.ErrSessionBusy)
		f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("a failed opening writes nothing", func(t *testing.T) {
		f := newGameServiceFixture()
		session := models.NewSessionState(userID)

		f.guard.On("Acquire", ctx, userID.String()).Return(true, nil).Once()
		f.guard.On("Release", mock.Anything, userID.String()).Return(nil).Once()
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(session, nil).Once()

		genErr := errors.New("model overloaded")
		f.generator.On("Generate", ctx, mock.Anything).Return(nil, genErr).Once()

		node, err := f.svc.StartSession(ctx, userID, params)
		assert.Nil(t, node)
		assert.ErrorIs(t, err, genErr)
		f.storyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		f.nodeRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		f.missionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGameService_SubmitChoice(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	storyID := uuid.New()

	story := &models.Story{ID: storyID, UserID: userID, Title: "Stop the double agent"}

	newCurrentNode := func() *models.StoryNode {
		return &models.StoryNode{
			ID:            uuid.New(),
			StoryID:       storyID,
			NarrativeText: "The courier slipped into the alley.",
			Metadata: models.NodeMetadata{
				Choices:     []models.Choice{{ID: "1", Text: "Follow the courier"}},
				Protagonist: &models.Protagonist{Name: "Elena Markov"},
			},
		}
	}

	sessionAt := func(nodeID uuid.UUID) *models.SessionState {
		s := models.NewSessionState(userID)
		s.CurrentStoryID = &storyID
		s.CurrentNodeID = &nodeID
		return s
	}

	t.Run("applies the transition and broadcasts", func(t *testing.T) {
		f := newGameServiceFixture()
		currentNode := newCurrentNode()
		session := sessionAt(currentNode.ID)

		f.guard.On("Acquire", ctx, userID.String()).Return(true, nil).Once()
		f.guard.On("Release", mock.Anything, userID.String()).Return(nil).Once()
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(session, nil).Twice()
		f.storyRepo.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.storyRepo.On("ListCharacters", ctx, mock.Anything, storyID).Return([]models.Character{}, nil).Once()
		f.nodeRepo.On("GetByID", ctx, mock.Anything, currentNode.ID).Return(currentNode, nil).Once()
		f.missionRepo.On("GetActiveByUserAndStory", ctx, mock.Anything, userID, storyID).
			Return(nil, models.ErrNotFound).Once()
		f.sessionRepo.On("IncrementNodeCount", ctx, mock.Anything, userID).Return(2, nil).Once()
		f.arcRepo.On("ListActiveKeyNodeIDs", ctx, mock.Anything, storyID).Return([]uuid.UUID{}, nil).Once()

		f.generator.On("Generate", ctx, mock.MatchedBy(func(req models.GenerationRequest) bool {
			return !req.OpeningScene && req.ChosenChoice == "Follow the courier" && req.NodeCount == 2
		})).Return(&models.GenerationResult{
			NarrativeText: "She tailed him to the docks.",
			Choices:       []models.Choice{{ID: "1", Text: "Signal the team"}},
		}, nil).Once()

		f.sessionRepo.On("GetByUserIDForUpdate", ctx, mock.Anything, userID).Return(session, nil).Once()
		f.nodeRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(n *models.StoryNode) bool {
			return n.ParentNodeID != nil && *n.ParentNodeID == currentNode.ID &&
				n.Metadata.ChoiceText == "Follow the courier"
		})).Return(nil).Once()
		f.sessionRepo.On("Update", ctx, mock.Anything, session).Return(nil).Once()
		f.listener.On("OnStateChanged", mock.MatchedBy(func(s *models.SessionSnapshot) bool {
			return s.UserID == userID && s.CurrentNode != nil
		})).Once()

		node, err := f.svc.SubmitChoice(ctx, userID, storyID, "1", "")
		assert.NoError(t, err)
		assert.Equal(t, "She tailed him to the docks.", node.NarrativeText)
		assert.Equal(t, &node.ID, session.CurrentNodeID)

		// The trail records the departed node, not the arrived one.
		recent := f.history.Recent(userID)
		assert.Len(t, recent, 1)
		assert.Equal(t, currentNode.ID, recent[0].NodeID)
		assert.Equal(t, currentNode.NarrativeText, recent[0].NarrativeText)

		f.sessionRepo.AssertNotCalled(t, "DecrementNodeCount", mock.Anything, mock.Anything, mock.Anything)
		f.listener.AssertExpectations(t)
	})

	t.Run("a lost race returns ErrStateConflict and hands the count back", func(t *testing.T) {
		f := newGameServiceFixture()
		currentNode := newCurrentNode()
		session := sessionAt(currentNode.ID)

		f.guard.On("Acquire", ctx, userID.String()).Return(true, nil).Once()
		f.guard.On("Release", mock.Anything, userID.String()).Return(nil).Once()
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(session, nil).Once()
		f.storyRepo.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.storyRepo.On("ListCharacters", ctx, mock.Anything, storyID).Return([]models.Character{}, nil).Once()
		f.nodeRepo.On("GetByID", ctx, mock.Anything, currentNode.ID).Return(currentNode, nil).Once()
		f.missionRepo.On("GetActiveByUserAndStory", ctx, mock.Anything, userID, storyID).
			Return(nil, models.ErrNotFound).Once()
		f.sessionRepo.On("IncrementNodeCount", ctx, mock.Anything, userID).Return(2, nil).Once()
		f.arcRepo.On("ListActiveKeyNodeIDs", ctx, mock.Anything, storyID).Return([]uuid.UUID{}, nil).Once()
		f.generator.On("Generate", ctx, mock.Anything).Return(&models.GenerationResult{
			NarrativeText: "She tailed him to the docks.",
			Choices:       []models.Choice{{ID: "1", Text: "Signal the team"}},
		}, nil).Once()

		// The pointer moved while we generated.
		movedID := uuid.New()
		f.sessionRepo.On("GetByUserIDForUpdate", ctx, mock.Anything, userID).
			Return(sessionAt(movedID), nil).Once()
		f.sessionRepo.On("DecrementNodeCount", mock.Anything, mock.Anything, userID).Return(1, nil).Once()

		node, err := f.svc.SubmitChoice(ctx, userID, storyID, "1", "")
		assert.Nil(t, node)
		assert.ErrorIs(t, err, models.ErrStateConflict)
		assert.Empty(t, f.history.Recent(userID))
		f.nodeRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		f.sessionRepo.AssertExpectations(t)
	})

	t.Run("a failed generation compensates the node count", func(t *testing.T) {
		f := newGameServiceFixture()
		currentNode := newCurrentNode()
		session := sessionAt(currentNode.ID)

		f.guard.On("Acquire", ctx, userID.String()).Return(true, nil).Once()
		f.guard.On("Release", mock.Anything, userID.String()).Return(nil).Once()
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(session, nil).Once()
		f.storyRepo.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.storyRepo.On("ListCharacters", ctx, mock.Anything, storyID).Return([]models.Character{}, nil).Once()
		f.nodeRepo.On("GetByID", ctx, mock.Anything, currentNode.ID).Return(currentNode, nil).Once()
		f.missionRepo.On("GetActiveByUserAndStory", ctx, mock.Anything, userID, storyID).
			Return(nil, models.ErrNotFound).Once()
		f.sessionRepo.On("IncrementNodeCount", ctx, mock.Anything, userID).Return(2, nil).Once()
		f.arcRepo.On("ListActiveKeyNodeIDs", ctx, mock.Anything, storyID).Return([]uuid.UUID{}, nil).Once()

		genErr := errors.New("model overloaded")
		f.generator.On("Generate", ctx, mock.Anything).Return(nil, genErr).Once()
		f.sessionRepo.On("DecrementNodeCount", mock.Anything, mock.Anything, userID).Return(1, nil).Once()

		node, err := f.svc.SubmitChoice(ctx, userID, storyID, "1", "")
		assert.Nil(t, node)
		assert.ErrorIs(t, err, genErr)
		f.nodeRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		f.sessionRepo.AssertExpectations(t)
	})

	t.Run("scene characters are merged write-once", func(t *testing.T) {
		f := newGameServiceFixture()
		currentNode := newCurrentNode()
		session := sessionAt(currentNode.ID)

		known := models.Character{ID: uuid.New(), Name: "Viktor Hale", Backstory: "A courier with debts."}
		stranger := models.Character{ID: uuid.New(), Name: "Anna Brandt"}
		session.EncounteredCharacters[known.ID.String()] = models.EncounteredCharacter{Name: "The courier"}

		f.guard.On("Acquire", ctx, userID.String()).Return(true, nil).Once()
		f.guard.On("Release", mock.Anything, userID.String()).Return(nil).Once()
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(session, nil).Twice()
		f.storyRepo.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.storyRepo.On("ListCharacters", ctx, mock.Anything, storyID).
			Return([]models.Character{known, stranger}, nil).Once()
		f.nodeRepo.On("GetByID", ctx, mock.Anything, currentNode.ID).Return(currentNode, nil).Once()
		f.missionRepo.On("GetActiveByUserAndStory", ctx, mock.Anything, userID, storyID).
			Return(nil, models.ErrNotFound).Once()
		f.sessionRepo.On("IncrementNodeCount", ctx, mock.Anything, userID).Return(2, nil).Once()
		f.arcRepo.On("ListActiveKeyNodeIDs", ctx, mock.Anything, storyID).Return([]uuid.UUID{}, nil).Once()

		f.generator.On("Generate", ctx, mock.MatchedBy(func(req models.GenerationRequest) bool {
			return len(req.Cast) == 2
		})).Return(&models.GenerationResult{
			NarrativeText: "Viktor introduced the woman as Anna.",
			Choices:       []models.Choice{{ID: "1", Text: "Trust her"}},
			CharacterIDs:  []uuid.UUID{known.ID, stranger.ID, uuid.New()},
		}, nil).Once()

		f.sessionRepo.On("GetByUserIDForUpdate", ctx, mock.Anything, userID).Return(session, nil).Once()
		f.nodeRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		f.sessionRepo.On("Update", ctx, mock.Anything, session).Return(nil).Once()
		f.listener.On("OnStateChanged", mock.Anything).Once()

		node, err := f.svc.SubmitChoice(ctx, userID, storyID, "1", "")
		assert.NoError(t, err)

		// The id naming nobody in the cast was dropped; the existing
		// encountered entry kept its original snapshot.
		require.Len(t, node.Metadata.Characters, 2)
		assert.Equal(t, "The courier", session.EncounteredCharacters[known.ID.String()].Name)
		assert.Equal(t, "Anna Brandt", session.EncounteredCharacters[stranger.ID.String()].Name)
	})

	t.Run("rejects a busy session before touching state", func(t *testing.T) {
		f := newGameServiceFixture()
		f.guard.On("Acquire", ctx, userID.String()).Return(false, nil).Once()

		node, err := f.svc.SubmitChoice(ctx, userID, storyID, "1", "")
		assert.Nil(t, node)
		assert.ErrorIs(t, err, models.ErrSessionBusy)
		f.sessionRepo.AssertNotCalled(t, "IncrementNodeCount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("free-form text is carried when no choice id matches", func(t *testing.T) {
		f := newGameServiceFixture()
		currentNode := newCurrentNode()
		session := sessionAt(currentNode.ID)

		f.guard.On("Acquire", ctx, userID.String()).Return(true, nil).Once()
		f.guard.On("Release", mock.Anything, userID.String()).Return(nil).Once()
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(session, nil).Twice()
		f.storyRepo.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		f.storyRepo.On("ListCharacters", ctx, mock.Anything, storyID).Return([]models.Character{}, nil).Once()
		f.nodeRepo.On("GetByID", ctx, mock.Anything, currentNode.ID).Return(currentNode, nil).Once()
		f.missionRepo.On("GetActiveByUserAndStory", ctx, mock.Anything, userID, storyID).
			Return(nil, models.ErrNotFound).Once()
		f.sessionRepo.On("IncrementNodeCount", ctx, mock.Anything, userID).Return(2, nil).Once()
		f.arcRepo.On("ListActiveKeyNodeIDs", ctx, mock.Anything, storyID).Return([]uuid.UUID{}, nil).Once()

		f.generator.On("Generate", ctx, mock.MatchedBy(func(req models.GenerationRequest) bool {
			return req.ChosenChoice == "Climb onto the roof instead"
		})).Return(&models.GenerationResult{
			NarrativeText: "The gutter groaned under her weight.",
			Choices:       []models.Choice{{ID: "1", Text: "Jump across"}},
		}, nil).Once()

		f.sessionRepo.On("GetByUserIDForUpdate", ctx, mock.Anything, userID).Return(session, nil).Once()
		f.nodeRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		f.sessionRepo.On("Update", ctx, mock.Anything, session).Return(nil).Once()
		f.listener.On("OnStateChanged", mock.Anything).Once()

		node, err := f.svc.SubmitChoice(ctx, userID, storyID, "", "Climb onto the roof instead")
		assert.NoError(t, err)
		assert.Equal(t, "Climb onto the roof instead", node.Metadata.ChoiceText)
	})
}

func TestGameService_HistoryTrail(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("after the first choice the trail holds only the departed root", func(t *testing.T) {
		f := newGameServiceFixture()
		session := models.NewSessionState(userID)

		f.guard.On("Acquire", ctx, userID.String()).Return(true, nil)
		f.guard.On("Release", mock.Anything, userID.String()).Return(nil)
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(session, nil)
		f.sessionRepo.On("GetByUserIDForUpdate", ctx, mock.Anything, userID).Return(session, nil)
		f.sessionRepo.On("Update", ctx, mock.Anything, session).Return(nil)
		f.sessionRepo.On("IncrementNodeCount", ctx, mock.Anything, userID).Return(1, nil).Once()
		f.storyRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)
		f.nodeRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)
		f.missionRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)
		f.missionRepo.On("ListByIDs", ctx, mock.Anything, mock.Anything).Return([]*models.Mission{}, nil)
		f.listener.On("OnStateChanged", mock.Anything)

		f.generator.On("Generate", ctx, mock.MatchedBy(func(req models.GenerationRequest) bool {
			return req.OpeningScene
		})).Return(&models.GenerationResult{
			NarrativeText: "Rain hammered the checkpoint.",
			Choices:       []models.Choice{{ID: "1", Text: "Approach the guard"}},
		}, nil).Once()

		root, err := f.svc.StartSession(ctx, userID, models.StoryParams{
			PrimaryConflict: "Stop the double agent",
			Setting:         "Cold War Berlin",
		})
		require.NoError(t, err)
		require.Empty(t, f.history.Recent(userID))

		storyID := *session.CurrentStoryID
		f.storyRepo.On("GetByID", ctx, mock.Anything, storyID).
			Return(&models.Story{ID: storyID, UserID: userID}, nil)
		f.storyRepo.On("ListCharacters", ctx, mock.Anything, storyID).Return([]models.Character{}, nil)
		f.nodeRepo.On("GetByID", ctx, mock.Anything, root.ID).Return(root, nil)
		f.missionRepo.On("GetActiveByUserAndStory", ctx, mock.Anything, userID, storyID).
			Return(nil, models.ErrNotFound)
		f.sessionRepo.On("IncrementNodeCount", ctx, mock.Anything, userID).Return(2, nil).Once()
		f.arcRepo.On("ListActiveKeyNodeIDs", ctx, mock.Anything, storyID).Return([]uuid.UUID{}, nil)

		f.generator.On("Generate", ctx, mock.Anything).Return(&models.GenerationResult{
			NarrativeText: "The guard waved her through.",
			Choices:       []models.Choice{{ID: "1", Text: "Head for the dead drop"}},
		}, nil).Once()

		next, err := f.svc.SubmitChoice(ctx, userID, storyID, "1", "")
		require.NoError(t, err)

		recent := f.history.Recent(userID)
		require.Len(t, recent, 1)
		assert.Equal(t, root.ID, recent[0].NodeID)
		assert.Equal(t, root.NarrativeText, recent[0].NarrativeText)
		assert.NotEqual(t, next.ID, recent[0].NodeID)
	})
}

func TestGameService_GetMissions(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("groups missions by the session id sets", func(t *testing.T) {
		f := newGameServiceFixture()
		session := models.NewSessionState(userID)
		active := &models.Mission{ID: uuid.New(), Status: models.MissionStatusActive}
		done := &models.Mission{ID: uuid.New(), Status: models.MissionStatusCompleted}
		session.ActiveMissionIDs = []uuid.UUID{active.ID}
		session.CompletedMissionIDs = []uuid.UUID{done.ID}

		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).Return(session, nil).Once()
		f.missionRepo.On("ListByIDs", ctx, mock.Anything, []uuid.UUID{active.ID}).
			Return([]*models.Mission{active}, nil).Once()
		f.missionRepo.On("ListByIDs", ctx, mock.Anything, []uuid.UUID{done.ID}).
			Return([]*models.Mission{done}, nil).Once()

		overview, err := f.svc.GetMissions(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, []*models.Mission{active}, overview.Active)
		assert.Equal(t, []*models.Mission{done}, overview.Completed)
		assert.Empty(t, overview.Failed)
	})

	t.Run("empty sets skip the lookup entirely", func(t *testing.T) {
		f := newGameServiceFixture()
		f.sessionRepo.On("GetByUserID", ctx, mock.Anything, userID).
			Return(models.NewSessionState(userID), nil).Once()

		overview, err := f.svc.GetMissions(ctx, userID)
		assert.NoError(t, err)
		assert.Empty(t, overview.Active)
		f.missionRepo.AssertNotCalled(t, "ListByIDs", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGameService_CreateMission(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	storyID := uuid.New()

	t.Run("creates the mission and registers it as active", func(t *testing.T) {
		f := newGameServiceFixture()
		session := models.NewSessionState(userID)

		f.sessionRepo.On("GetByUserIDForUpdate", ctx, mock.Anything, userID).Return(session, nil).Once()
		f.missionRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(m *models.Mission) bool {
			return m.UserID == userID && m.StoryID == storyID &&
				m.Status == models.MissionStatusActive && m.Progress == 0
		})).Return(nil).Once()
		f.sessionRepo.On("Update", ctx, mock.Anything, session).Return(nil).Once()

		mission, err := f.svc.CreateMission(ctx, userID, storyID, service.MissionParams{
			Title:          "Recover the cipher",
			Objective:      "Retrieve the cipher machine from the embassy",
			RewardCurrency: "credits",
			RewardAmount:   500,
		})
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{mission.ID}, session.ActiveMissionIDs)
		f.missionRepo.AssertExpectations(t)
	})

	t.Run("a failed create leaves the session untouched", func(t *testing.T) {
		f := newGameServiceFixture()
		session := models.NewSessionState(userID)

		dbErr := errors.New("duplicate key")
		f.sessionRepo.On("GetByUserIDForUpdate", ctx, mock.Anything, userID).Return(session, nil).Once()
		f.missionRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(dbErr).Once()

		mission, err := f.svc.CreateMission(ctx, userID, storyID, service.MissionParams{Title: "x"})
		assert.Nil(t, mission)
		assert.ErrorIs(t, err, dbErr)
		f.sessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGameService_CreateCharacter(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()

	t.Run("creates the character and links it into the cast", func(t *testing.T) {
		f := newGameServiceFixture()
		f.storyRepo.On("GetByID", ctx, mock.Anything, storyID).
			Return(&models.Story{ID: storyID}, nil).Once()
		f.characterRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(c *models.Character) bool {
			return c.Name == "Viktor Hale" && c.Role == models.RoleUndetermined
		})).Return(nil).Once()
		f.storyRepo.On("AddCharacter", ctx, mock.Anything, storyID, mock.Anything).Return(nil).Once()

		character, err := f.svc.CreateCharacter(ctx, storyID, service.CharacterParams{Name: "Viktor Hale"})
		assert.NoError(t, err)
		assert.Equal(t, models.RoleUndetermined, character.Role)
		f.characterRepo.AssertExpectations(t)
	})

	t.Run("an unknown story aborts the whole flow", func(t *testing.T) {
		f := newGameServiceFixture()
		f.storyRepo.On("GetByID", ctx, mock.Anything, storyID).Return(nil, models.ErrNotFound).Once()

		character, err := f.svc.CreateCharacter(ctx, storyID, service.CharacterParams{Name: "Viktor Hale"})
		assert.Nil(t, character)
		assert.ErrorIs(t, err, models.ErrNotFound)
		f.characterRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}
