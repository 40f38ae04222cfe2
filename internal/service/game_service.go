package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

// TxManager is the unit-of-work boundary, satisfied by
// database.TransactionHelper.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.DBTX) error) error
}

// MissionOverview groups a user's missions by lifecycle state.
type MissionOverview struct {
	Active    []*models.Mission `json:"active"`
	Completed []*models.Mission `json:"completed"`
	Failed    []*models.Mission `json:"failed"`
}

// MissionParams is the caller-supplied input for creating a mission.
type MissionParams struct {
	Title             string     `json:"title"`
	Objective         string     `json:"objective"`
	GiverCharacterID  *uuid.UUID `json:"giverCharacterId,omitempty"`
	TargetCharacterID *uuid.UUID `json:"targetCharacterId,omitempty"`
	RewardCurrency    string     `json:"rewardCurrency,omitempty"`
	RewardAmount      int64      `json:"rewardAmount,omitempty"`
	Deadline          *time.Time `json:"deadline,omitempty"`
}

// CharacterParams is the caller-supplied input for adding a character to a
// story cast.
type CharacterParams struct {
	Name      string               `json:"name"`
	Role      models.CharacterRole `json:"role"`
	Backstory string               `json:"backstory,omitempty"`
	Traits    map[string]int       `json:"traits,omitempty"`
	PlotLines []string             `json:"plotLines,omitempty"`
}

// GameService is the session-facing facade: it owns story starts, node
// resolution and the atomic choice transition.
//
//go:generate mockery --name GameService --output ./mocks --outpkg mocks --case=underscore
type GameService interface {
	EnsureSession(ctx context.Context, userID uuid.UUID) (*models.SessionState, error)
	StartSession(ctx context.Context, userID uuid.UUID, params models.StoryParams) (*models.StoryNode, error)
	ResolveCurrentNode(ctx context.Context, userID, storyID uuid.UUID) (*models.StoryNode, error)
	SubmitChoice(ctx context.Context, userID, storyID uuid.UUID, choiceID, choiceText string) (*models.StoryNode, error)
	GetMissions(ctx context.Context, userID uuid.UUID) (*MissionOverview, error)
	CreateMission(ctx context.Context, userID, storyID uuid.UUID, params MissionParams) (*models.Mission, error)
	CreateCharacter(ctx context.Context, storyID uuid.UUID, params CharacterParams) (*models.Character, error)
	ListStoryCharacters(ctx context.Context, storyID uuid.UUID) ([]models.Character, error)
	InteractWithCharacter(ctx context.Context, userID, characterID uuid.UUID, interaction InteractionType) (*models.RelationshipRecord, error)
	GetRelationship(ctx context.Context, userID, characterID uuid.UUID) (*models.RelationshipRecord, error)
}

type gameServiceImpl struct {
	db       interfaces.DBTX
	txHelper TxManager

	storyRepo     interfaces.StoryRepository
	nodeRepo      interfaces.StoryNodeRepository
	sessionRepo   interfaces.SessionRepository
	missionRepo   interfaces.MissionRepository
	characterRepo interfaces.CharacterRepository

	resolver        *NodeResolver
	assembler       *ContextAssembler
	history         *HistoryBuffer
	missionSvc      *MissionService
	relationshipSvc *RelationshipService

	generator interfaces.Generator
	guard     interfaces.SessionGuard
	notifier  *StateNotifier
	logger    *zap.Logger
}

func NewGameService(
	db interfaces.DBTX,
	txHelper TxManager,
	storyRepo interfaces.StoryRepository,
	nodeRepo interfaces.StoryNodeRepository,
	sessionRepo interfaces.SessionRepository,
	missionRepo interfaces.MissionRepository,
	characterRepo interfaces.CharacterRepository,
	resolver *NodeResolver,
	assembler *ContextAssembler,
	history *HistoryBuffer,
	missionSvc *MissionService,
	relationshipSvc *RelationshipService,
	generator interfaces.Generator,
	guard interfaces.SessionGuard,
	notifier *StateNotifier,
	logger *zap.Logger,
) GameService {
	return &gameServiceImpl{
		db:              db,
		txHelper:        txHelper,
		storyRepo:       storyRepo,
		nodeRepo:        nodeRepo,
		sessionRepo:     sessionRepo,
		missionRepo:     missionRepo,
		characterRepo:   characterRepo,
		resolver:        resolver,
		assembler:       assembler,
		history:         history,
		missionSvc:      missionSvc,
		relationshipSvc: relationshipSvc,
		generator:       generator,
		guard:           guard,
		notifier:        notifier,
		logger:          logger.Named("GameService"),
	}
}

// EnsureSession returns the user's session aggregate, creating the empty one
// on first contact.
func (s *gameServiceImpl) EnsureSession(ctx context.Context, userID uuid.UUID) (*models.SessionState, error) {
	session, err := s.sessionRepo.GetByUserID(ctx, s.db, userID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session = models.NewSessionState(userID)
	if err := s.sessionRepo.Create(ctx, s.db, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("Created new session", zap.String("userID", userID.String()))
	return session, nil
}

const (
	// Every new story opens with an establishing mission so the generation
	// context always has an objective to steer toward.
	initialMissionReward   = 100
	initialMissionCurrency = "credits"
)

// StartSession creates a new story for the user, generates its opening scene,
// seeds the establishing mission and points the session at the fresh root node.
func (s *gameServiceImpl) StartSession(ctx context.Context, userID uuid.UUID, params models.StoryParams) (*models.StoryNode, error) {
	log := s.logger.With(zap.String("userID", userID.String()))

	acquired, err := s.guard.Acquire(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session guard: %w", err)
	}
	if !acquired {
		return nil, models.ErrSessionBusy
	}
	defer func() {
		if releaseErr := s.guard.Release(context.WithoutCancel(ctx), userID.String()); releaseErr != nil {
			log.Warn("Failed to release session guard", zap.Error(releaseErr))
		}
	}()

	if _, err := s.EnsureSession(ctx, userID); err != nil {
		return nil, err
	}

	story := &models.Story{
		ID:              uuid.New(),
		UserID:          userID,
		Title:           params.PrimaryConflict,
		PrimaryConflict: params.PrimaryConflict,
		Setting:         params.Setting,
		NarrativeStyle:  params.NarrativeStyle,
		Mood:            params.Mood,
		CreatedAt:       time.Now().UTC(),
	}
	protagonist := &models.Protagonist{
		Name:   params.ProtagonistName,
		Gender: params.ProtagonistGender,
	}

	// Generation runs before any write: a failed opening leaves nothing
	// behind to clean up.
	result, err := s.generator.Generate(ctx, models.GenerationRequest{
		Story:        story,
		Protagonist:  protagonist,
		OpeningScene: true,
	})
	if err != nil {
		log.Error("Opening scene generation failed", zap.Error(err))
		return nil, err
	}

	now := time.Now().UTC()
	rootNode := &models.StoryNode{
		ID:            uuid.New(),
		StoryID:       story.ID,
		NarrativeText: result.NarrativeText,
		IsEndpoint:    result.IsEndpoint,
		Metadata: models.NodeMetadata{
			Choices:     result.Choices,
			Protagonist: protagonist,
		},
		CreatedAt: now,
	}
	initialMission := &models.Mission{
		ID:              uuid.New(),
		UserID:          userID,
		StoryID:         story.ID,
		Title:           "Establish your cover",
		Objective:       fmt.Sprintf("Settle into %s and gather what you can about %s", params.Setting, params.PrimaryConflict),
		Status:          models.MissionStatusActive,
		ProgressUpdates: []models.ProgressUpdate{},
		RewardCurrency:  initialMissionCurrency,
		RewardAmount:    initialMissionReward,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.txHelper.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if err := s.storyRepo.Create(ctx, tx, story); err != nil {
			return fmt.Errorf("failed to create story: %w", err)
		}
		if err := s.nodeRepo.Create(ctx, tx, rootNode); err != nil {
			return fmt.Errorf("failed to create root node: %w", err)
		}
		if err := s.missionRepo.Create(ctx, tx, initialMission); err != nil {
			return fmt.Errorf("failed to create initial mission: %w", err)
		}

		session, err := s.sessionRepo.GetByUserIDForUpdate(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("failed to lock session: %w", err)
		}
		session.CurrentStoryID = &story.ID
		session.CurrentNodeID = &rootNode.ID
		session.AppendChoice(rootNode.ID)
		session.AddActiveMission(initialMission.ID)
		session.LastActiveAt = time.Now().UTC()
		if err := s.sessionRepo.Update(ctx, tx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if _, err := s.sessionRepo.IncrementNodeCount(ctx, tx, userID); err != nil {
			return fmt.Errorf("failed to count opening node: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The fresh root has not been departed from yet, so the trail starts
	// empty.
	s.history.Clear(userID)
	s.broadcast(ctx, userID, story, rootNode)

	log.Info("Story started",
		zap.String("storyID", story.ID.String()),
		zap.String("rootNodeID", rootNode.ID.String()))
	return rootNode, nil
}

// ResolveCurrentNode finds the node the user should continue storyID from,
// walking the fallback chain when the pointer is stale.
func (s *gameServiceImpl) ResolveCurrentNode(ctx context.Context, userID, storyID uuid.UUID) (*models.StoryNode, error) {
	session, err := s.sessionRepo.GetByUserID(ctx, s.db, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return s.resolver.Resolve(ctx, s.db, session, storyID)
}

// SubmitChoice runs the full continuation flow: resolve the position, count
// the attempt, generate the next scene, then apply the transition atomically.
// On a lost race it returns ErrStateConflict with no partial state applied.
func (s *gameServiceImpl) SubmitChoice(ctx context.Context, userID, storyID uuid.UUID, choiceID, choiceText string) (*models.StoryNode, error) {
	log := s.logger.With(
		zap.String("userID", userID.String()),
		zap.String("storyID", storyID.String()))

	acquired, err := s.guard.Acquire(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session guard: %w", err)
	}
	if !acquired {
		return nil, models.ErrSessionBusy
	}
	defer func() {
		if releaseErr := s.guard.Release(context.WithoutCancel(ctx), userID.String()); releaseErr != nil {
			log.Warn("Failed to release session guard", zap.Error(releaseErr))
		}
	}()

	session, err := s.sessionRepo.GetByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load story: %w", err)
	}

	currentNode, err := s.resolver.Resolve(ctx, s.db, session, storyID)
	if err != nil {
		return nil, err
	}
	expectedNodeID := currentNode.ID

	chosenText := resolveChoiceText(currentNode, choiceID, choiceText)

	cast, err := s.storyRepo.ListCharacters(ctx, s.db, storyID)
	if err != nil {
		log.Warn("Continuing without the story cast", zap.Error(err))
		cast = nil
	}

	mission, err := s.missionRepo.GetActiveByUserAndStory(ctx, s.db, userID, storyID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load active mission: %w", err)
	}

	// The counter moves before generation: the attempt itself is the thing
	// being counted. A generation failure compensates below.
	nodeCount, err := s.sessionRepo.IncrementNodeCount(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment node count: %w", err)
	}

	genCtx := s.assembler.Assemble(ctx, s.db, currentNode, mission)
	result, err := s.generator.Generate(ctx, models.GenerationRequest{
		Context:           genCtx,
		ChosenChoice:      chosenText,
		PreviousNarrative: currentNode.NarrativeText,
		RecentHistory:     s.history.Narratives(userID),
		Cast:              cast,
		Story:             story,
		Protagonist:       currentNode.Metadata.Protagonist,
		NodeCount:         nodeCount,
	})
	if err != nil {
		if _, decErr := s.sessionRepo.DecrementNodeCount(context.WithoutCancel(ctx), s.db, userID); decErr != nil {
			log.Error("Failed to compensate node count after generation failure", zap.Error(decErr))
		}
		log.Error("Continuation generation failed", zap.Error(err))
		return nil, err
	}

	newNode := &models.StoryNode{
		ID:            uuid.New(),
		StoryID:       storyID,
		ParentNodeID:  &currentNode.ID,
		NarrativeText: result.NarrativeText,
		IsEndpoint:    result.IsEndpoint,
		Metadata: models.NodeMetadata{
			Choices:        result.Choices,
			Characters:     sceneCharacters(cast, result),
			Mission:        mission.Snapshot(),
			Protagonist:    currentNode.Metadata.Protagonist,
			PreviousNodeID: &currentNode.ID,
			ChoiceID:       choiceID,
			ChoiceText:     chosenText,
		},
		CreatedAt: time.Now().UTC(),
	}

	err = s.txHelper.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		locked, err := s.sessionRepo.GetByUserIDForUpdate(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("failed to lock session: %w", err)
		}

		// Another transition won the race if the pointer moved since we
		// resolved. Nothing has been written yet, so bailing out is clean.
		if locked.CurrentStoryID != nil && *locked.CurrentStoryID == storyID {
			if locked.CurrentNodeID == nil || *locked.CurrentNodeID != expectedNodeID {
				return models.ErrStateConflict
			}
		}

		if err := s.nodeRepo.Create(ctx, tx, newNode); err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}

		locked.CurrentStoryID = &storyID
		locked.CurrentNodeID = &newNode.ID
		locked.AppendChoice(newNode.ID)
		locked.MergeEncounteredCharacters(newNode.Metadata.Characters)
		locked.LastActiveAt = time.Now().UTC()

		if mission != nil {
			if err := s.missionSvc.ApplySignal(ctx, tx, locked, mission, result.MissionSignal); err != nil {
				return err
			}
		}

		if err := s.sessionRepo.Update(ctx, tx, locked); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrStateConflict) {
			// The attempt produced a node that was never linked in; hand the
			// count back too.
			if _, decErr := s.sessionRepo.DecrementNodeCount(context.WithoutCancel(ctx), s.db, userID); decErr != nil {
				log.Error("Failed to compensate node count after conflict", zap.Error(decErr))
			}
			log.Warn("Concurrent transition conflict", zap.String("expectedNodeID", expectedNodeID.String()))
		}
		return nil, err
	}

	s.history.Push(userID, HistoryEntry{
		NodeID:        currentNode.ID,
		NarrativeText: currentNode.NarrativeText,
		Timestamp:     time.Now().UTC(),
	})
	s.broadcast(ctx, userID, story, newNode)

	log.Info("Choice applied",
		zap.String("nodeID", newNode.ID.String()),
		zap.Int("nodeCount", nodeCount),
		zap.Bool("isEndpoint", newNode.IsEndpoint))
	return newNode, nil
}

// GetMissions returns the user's missions grouped by the session's id sets.
func (s *gameServiceImpl) GetMissions(ctx context.Context, userID uuid.UUID) (*MissionOverview, error) {
	session, err := s.EnsureSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	overview := &MissionOverview{
		Active:    []*models.Mission{},
		Completed: []*models.Mission{},
		Failed:    []*models.Mission{},
	}
	for _, group := range []struct {
		ids  []uuid.UUID
		dest *[]*models.Mission
	}{
		{session.ActiveMissionIDs, &overview.Active},
		{session.CompletedMissionIDs, &overview.Completed},
		{session.FailedMissionIDs, &overview.Failed},
	} {
		if len(group.ids) == 0 {
			continue
		}
		missions, err := s.missionRepo.ListByIDs(ctx, s.db, group.ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load missions: %w", err)
		}
		*group.dest = missions
	}
	return overview, nil
}

// CreateMission registers a new active mission for the user in storyID and
// adds it to the session's active set.
func (s *gameServiceImpl) CreateMission(ctx context.Context, userID, storyID uuid.UUID, params MissionParams) (*models.Mission, error) {
	now := time.Now().UTC()
	mission := &models.Mission{
		ID:                uuid.New(),
		UserID:            userID,
		StoryID:           storyID,
		GiverCharacterID:  params.GiverCharacterID,
		TargetCharacterID: params.TargetCharacterID,
		Title:             params.Title,
		Objective:         params.Objective,
		Status:            models.MissionStatusActive,
		ProgressUpdates:   []models.ProgressUpdate{},
		RewardCurrency:    params.RewardCurrency,
		RewardAmount:      params.RewardAmount,
		Deadline:          params.Deadline,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.txHelper.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		session, err := s.sessionRepo.GetByUserIDForUpdate(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("failed to lock session: %w", err)
		}
		if err := s.missionRepo.Create(ctx, tx, mission); err != nil {
			return fmt.Errorf("failed to create mission: %w", err)
		}
		session.AddActiveMission(mission.ID)
		session.LastActiveAt = now
		if err := s.sessionRepo.Update(ctx, tx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Mission created",
		zap.String("missionID", mission.ID.String()),
		zap.String("userID", userID.String()))
	return mission, nil
}

// CreateCharacter registers a new character and links it into the story
// cast in one transaction.
func (s *gameServiceImpl) CreateCharacter(ctx context.Context, storyID uuid.UUID, params CharacterParams) (*models.Character, error) {
	role := params.Role
	if role == "" {
		role = models.RoleUndetermined
	}
	character := &models.Character{
		ID:        uuid.New(),
		Name:      params.Name,
		Traits:    params.Traits,
		Role:      role,
		Backstory: params.Backstory,
		PlotLines: params.PlotLines,
		CreatedAt: time.Now().UTC(),
	}

	err := s.txHelper.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if _, err := s.storyRepo.GetByID(ctx, tx, storyID); err != nil {
			return fmt.Errorf("failed to load story: %w", err)
		}
		if err := s.characterRepo.Create(ctx, tx, character); err != nil {
			return fmt.Errorf("failed to create character: %w", err)
		}
		if err := s.storyRepo.AddCharacter(ctx, tx, storyID, character.ID); err != nil {
			return fmt.Errorf("failed to add character to cast: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Character created",
		zap.String("characterID", character.ID.String()),
		zap.String("storyID", storyID.String()))
	return character, nil
}

// ListStoryCharacters returns the story cast in insertion order.
func (s *gameServiceImpl) ListStoryCharacters(ctx context.Context, storyID uuid.UUID) ([]models.Character, error) {
	return s.storyRepo.ListCharacters(ctx, s.db, storyID)
}

// InteractWithCharacter applies a typed direct interaction to the
// relationship overlay.
func (s *gameServiceImpl) InteractWithCharacter(ctx context.Context, userID, characterID uuid.UUID, interaction InteractionType) (*models.RelationshipRecord, error) {
	return s.relationshipSvc.ProcessInteraction(ctx, s.db, userID, characterID, interaction)
}

// GetRelationship reads the relationship record, zero-valued when absent.
func (s *gameServiceImpl) GetRelationship(ctx context.Context, userID, characterID uuid.UUID) (*models.RelationshipRecord, error) {
	return s.relationshipSvc.Get(ctx, s.db, userID, characterID)
}

// broadcast assembles a fresh snapshot and hands it to the notifier. Snapshot
// failures are logged, never surfaced: the transition already committed.
func (s *gameServiceImpl) broadcast(ctx context.Context, userID uuid.UUID, story *models.Story, node *models.StoryNode) {
	session, err := s.sessionRepo.GetByUserID(ctx, s.db, userID)
	if err != nil {
		s.logger.Warn("Skipping snapshot broadcast, session reload failed",
			zap.String("userID", userID.String()), zap.Error(err))
		return
	}

	var active []*models.Mission
	if len(session.ActiveMissionIDs) > 0 {
		active, err = s.missionRepo.ListByIDs(ctx, s.db, session.ActiveMissionIDs)
		if err != nil {
			s.logger.Warn("Snapshot broadcast without missions",
				zap.String("userID", userID.String()), zap.Error(err))
			active = nil
		}
	}

	s.notifier.Notify(&models.SessionSnapshot{
		UserID:         userID,
		Story:          story,
		CurrentNode:    node,
		NodeCount:      session.NodeCount,
		ActiveMissions: active,
		Balances:       session.CurrencyBalances,
		ChoiceHistory:  session.ChoiceHistory,
		Timestamp:      time.Now().UTC(),
	})
}

// sceneCharacters resolves the character ids the generation result reports
// (scene presence plus choice targets) against the story cast, snapshotting
// each matched character once. Ids that name nobody in the cast are dropped.
func sceneCharacters(cast []models.Character, result *models.GenerationResult) []models.CharacterSnapshot {
	if len(cast) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]models.Character, len(cast))
	for _, c := range cast {
		byID[c.ID] = c
	}

	ids := make([]uuid.UUID, 0, len(result.CharacterIDs)+len(result.Choices))
	ids = append(ids, result.CharacterIDs...)
	for _, choice := range result.Choices {
		if choice.CharacterID != nil {
			ids = append(ids, *choice.CharacterID)
		}
	}

	seen := make(map[uuid.UUID]bool, len(ids))
	var snapshots []models.CharacterSnapshot
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := byID[id]
		if !ok {
			continue
		}
		snapshots = append(snapshots, models.CharacterSnapshot{
			ID:        c.ID,
			Name:      c.Name,
			Backstory: c.Backstory,
			PlotLines: c.PlotLines,
		})
	}
	return snapshots
}

// resolveChoiceText maps a choice id to its presented text, falling back to
// free-form text for custom player actions.
func resolveChoiceText(node *models.StoryNode, choiceID, choiceText string) string {
	if choiceID != "" {
		for _, c := range node.Metadata.Choices {
			if c.ID == choiceID {
				return c.Text
			}
		}
	}
	if choiceText != "" {
		return choiceText
	}
	return choiceID
}
