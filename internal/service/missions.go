package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

const (
	// progressedDelta is the numeric advance applied when the narrative
	// reports mission progress without completing it.
	progressedDelta = 25

	completeGiverDelta  = 2
	completeTargetDelta = -3
	failGiverDelta      = -1
)

// MissionService owns mission lifecycle transitions and their side effects
// on the session aggregate and the relationship overlay. Every method runs
// inside the caller's transaction: mission, session and relationship writes
// commit or roll back together.
type MissionService struct {
	missionRepo     interfaces.MissionRepository
	sessionRepo     interfaces.SessionRepository
	relationshipSvc *RelationshipService
	logger          *zap.Logger
}

func NewMissionService(
	missionRepo interfaces.MissionRepository,
	sessionRepo interfaces.SessionRepository,
	relationshipSvc *RelationshipService,
	logger *zap.Logger,
) *MissionService {
	return &MissionService{
		missionRepo:     missionRepo,
		sessionRepo:     sessionRepo,
		relationshipSvc: relationshipSvc,
		logger:          logger.Named("MissionService"),
	}
}

// ApplySignal dispatches a narrative-confirmed mission outcome. An unchanged
// signal is a no-op; unknown statuses are ignored rather than failing the
// surrounding transition.
func (s *MissionService) ApplySignal(
	ctx context.Context,
	querier interfaces.DBTX,
	session *models.SessionState,
	mission *models.Mission,
	signal models.MissionSignal,
) error {
	switch signal.Status {
	case models.MissionSignalUnchanged, "":
		return nil
	case models.MissionSignalProgressed:
		return s.UpdateProgress(ctx, querier, mission, progressedDelta, signal.Detail)
	case models.MissionSignalCompleted:
		return s.Complete(ctx, querier, session, mission, signal.Detail)
	case models.MissionSignalFailed:
		return s.Fail(ctx, querier, session, mission, signal.Detail)
	default:
		s.logger.Warn("Ignoring unknown mission signal",
			zap.String("missionID", mission.ID.String()),
			zap.String("status", string(signal.Status)))
		return nil
	}
}

// UpdateProgress moves the numeric progress by delta, clamped to [0, 100],
// and appends an audit entry. Progress alone never completes a mission.
func (s *MissionService) UpdateProgress(
	ctx context.Context,
	querier interfaces.DBTX,
	mission *models.Mission,
	delta int,
	description string,
) error {
	if mission.Status.Terminal() {
		return models.ErrMissionNotActive
	}

	progress := mission.Progress + delta
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}

	now := time.Now().UTC()
	mission.Progress = progress
	mission.UpdatedAt = now
	mission.ProgressUpdates = append(mission.ProgressUpdates, models.ProgressUpdate{
		Progress:    progress,
		Status:      mission.Status,
		Timestamp:   now,
		Description: description,
	})

	if err := s.missionRepo.Update(ctx, querier, mission); err != nil {
		return fmt.Errorf("failed to update mission progress: %w", err)
	}

	s.logger.Info("Mission progress updated",
		zap.String("missionID", mission.ID.String()),
		zap.Int("progress", progress))
	return nil
}

// Complete moves the mission to its completed terminal state: progress pinned
// to 100, reward credited with an audit row, giver warmed and target cooled.
// The caller persists the mutated session.
func (s *MissionService) Complete(
	ctx context.Context,
	querier interfaces.DBTX,
	session *models.SessionState,
	mission *models.Mission,
	detail string,
) error {
	if mission.Status.Terminal() {
		return models.ErrMissionNotActive
	}

	now := time.Now().UTC()
	mission.Status = models.MissionStatusCompleted
	mission.Progress = 100
	mission.UpdatedAt = now
	mission.CompletedAt = &now
	mission.ProgressUpdates = append(mission.ProgressUpdates, models.ProgressUpdate{
		Progress:    100,
		Status:      models.MissionStatusCompleted,
		Timestamp:   now,
		Description: detail,
	})

	if err := s.missionRepo.Update(ctx, querier, mission); err != nil {
		return fmt.Errorf("failed to complete mission: %w", err)
	}

	session.MoveMissionToCompleted(mission.ID)

	if mission.RewardAmount > 0 && mission.RewardCurrency != "" {
		session.Credit(mission.RewardCurrency, mission.RewardAmount)
		txn := &models.CurrencyTransaction{
			ID:          uuid.New(),
			UserID:      session.UserID,
			Currency:    mission.RewardCurrency,
			Amount:      mission.RewardAmount,
			Description: fmt.Sprintf("mission reward: %s", mission.Title),
			CreatedAt:   now,
		}
		if err := s.sessionRepo.RecordCurrencyTransaction(ctx, querier, txn); err != nil {
			return fmt.Errorf("failed to record reward transaction: %w", err)
		}
	}

	if err := s.applyOutcomeDeltas(ctx, querier, session.UserID, mission,
		completeGiverDelta, completeTargetDelta, "mission completed: "+mission.Title); err != nil {
		return err
	}

	s.logger.Info("Mission completed",
		zap.String("missionID", mission.ID.String()),
		zap.String("userID", session.UserID.String()))
	return nil
}

// Fail moves the mission to its failed terminal state. Progress keeps its
// last value; the giver loses a little faith.
func (s *MissionService) Fail(
	ctx context.Context,
	querier interfaces.DBTX,
	session *models.SessionState,
	mission *models.Mission,
	reason string,
) error {
	if mission.Status.Terminal() {
		return models.ErrMissionNotActive
	}

	now := time.Now().UTC()
	mission.Status = models.MissionStatusFailed
	mission.UpdatedAt = now
	if reason != "" {
		mission.FailureReason = &reason
	}
	mission.ProgressUpdates = append(mission.ProgressUpdates, models.ProgressUpdate{
		Progress:    mission.Progress,
		Status:      models.MissionStatusFailed,
		Timestamp:   now,
		Description: reason,
	})

	if err := s.missionRepo.Update(ctx, querier, mission); err != nil {
		return fmt.Errorf("failed to fail mission: %w", err)
	}

	session.MoveMissionToFailed(mission.ID)

	if err := s.applyOutcomeDeltas(ctx, querier, session.UserID, mission,
		failGiverDelta, 0, "mission failed: "+mission.Title); err != nil {
		return err
	}

	s.logger.Info("Mission failed",
		zap.String("missionID", mission.ID.String()),
		zap.String("userID", session.UserID.String()))
	return nil
}

func (s *MissionService) applyOutcomeDeltas(
	ctx context.Context,
	querier interfaces.DBTX,
	userID uuid.UUID,
	mission *models.Mission,
	giverDelta, targetDelta int,
	reason string,
) error {
	if mission.GiverCharacterID != nil && giverDelta != 0 {
		deltas := interactionDeltas{relationship: giverDelta}
		if _, err := s.relationshipSvc.Change(ctx, querier, userID, *mission.GiverCharacterID, deltas, reason); err != nil {
			return err
		}
	}
	if mission.TargetCharacterID != nil && targetDelta != 0 {
		deltas := interactionDeltas{relationship: targetDelta}
		if _, err := s.relationshipSvc.Change(ctx, querier, userID, *mission.TargetCharacterID, deltas, reason); err != nil {
			return err
		}
	}
	return nil
}
