package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"spystory-server/internal/generation"
	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

const (
	keyPlotPointMaxChars = 300
	historySceneMaxChars = 200
	historyDepth         = 5
	contextTokenBudget   = 2000
)

// ContextAssembler builds the bounded context document handed to the
// generation collaborator. Assembly never fails: a section whose data cannot
// be loaded is skipped and logged, because a degraded context is still a
// usable context.
type ContextAssembler struct {
	nodeRepo    interfaces.StoryNodeRepository
	plotArcRepo interfaces.PlotArcRepository
	tokenModel  string
	logger      *zap.Logger
}

func NewContextAssembler(
	nodeRepo interfaces.StoryNodeRepository,
	plotArcRepo interfaces.PlotArcRepository,
	tokenModel string,
	logger *zap.Logger,
) *ContextAssembler {
	return &ContextAssembler{
		nodeRepo:    nodeRepo,
		plotArcRepo: plotArcRepo,
		tokenModel:  tokenModel,
		logger:      logger.Named("ContextAssembler"),
	}
}

// Assemble renders key plot points, recent ancestry and the mission snapshot
// into one document, blank-line separated. When the result exceeds the token
// budget the oldest history scenes are dropped first; plot points and the
// mission always survive.
func (a *ContextAssembler) Assemble(
	ctx context.Context,
	querier interfaces.DBTX,
	currentNode *models.StoryNode,
	mission *models.Mission,
) string {
	log := a.logger.With(zap.String("storyID", currentNode.StoryID.String()))

	plotSection := a.keyPlotPoints(ctx, querier, currentNode, log)
	scenes := a.recentScenes(ctx, querier, currentNode, log)
	missionSection := missionSection(mission)

	doc := joinSections(plotSection, historySection(scenes), missionSection)
	for len(scenes) > 1 && generation.CountTokens(a.tokenModel, doc) > contextTokenBudget {
		scenes = scenes[1:]
		doc = joinSections(plotSection, historySection(scenes), missionSection)
	}
	return doc
}

func (a *ContextAssembler) keyPlotPoints(
	ctx context.Context,
	querier interfaces.DBTX,
	currentNode *models.StoryNode,
	log *zap.Logger,
) string {
	keyIDs, err := a.plotArcRepo.ListActiveKeyNodeIDs(ctx, querier, currentNode.StoryID)
	if err != nil {
		log.Warn("Failed to load plot arcs, skipping key plot points", zap.Error(err))
		return ""
	}
	if len(keyIDs) == 0 {
		return ""
	}

	// Missing ids are skipped silently by the repository; a curated list may
	// reference nodes that no longer exist.
	nodes, err := a.nodeRepo.ListByIDs(ctx, querier, keyIDs)
	if err != nil {
		log.Warn("Failed to load key plot nodes, skipping key plot points", zap.Error(err))
		return ""
	}
	if len(nodes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("KEY PLOT POINTS:")
	for i, node := range nodes {
		fmt.Fprintf(&b, "\nMOMENT %d: %s", i+1, truncate(node.NarrativeText, keyPlotPointMaxChars))
	}
	return b.String()
}

// recentScenes walks parent pointers upward from the node being departed and
// returns up to historyDepth ancestor narratives in chronological order. The
// departed node itself is excluded: the generation request already carries it
// verbatim as the previous scene.
func (a *ContextAssembler) recentScenes(
	ctx context.Context,
	querier interfaces.DBTX,
	currentNode *models.StoryNode,
	log *zap.Logger,
) []string {
	chain := make([]string, 0, historyDepth)
	parentID := currentNode.ParentNodeID
	for len(chain) < historyDepth && parentID != nil {
		node, err := a.nodeRepo.GetByID(ctx, querier, *parentID)
		if err != nil {
			log.Warn("Ancestor walk stopped early", zap.Error(err))
			break
		}
		chain = append(chain, node.NarrativeText)
		parentID = node.ParentNodeID
	}

	// Reverse into chronological order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func historySection(scenes []string) string {
	if len(scenes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("RECENT STORY HISTORY:")
	for i, scene := range scenes {
		fmt.Fprintf(&b, "\nSCENE %d: %s", i+1, truncate(scene, historySceneMaxChars))
	}
	return b.String()
}

func missionSection(mission *models.Mission) string {
	if mission == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("CURRENT MISSION:")
	fmt.Fprintf(&b, "\nTitle: %s", mission.Title)
	fmt.Fprintf(&b, "\nObjective: %s", mission.Objective)
	fmt.Fprintf(&b, "\nStatus: %s", mission.Status)
	fmt.Fprintf(&b, "\nProgress: %d%%", mission.Progress)
	return b.String()
}

func joinSections(sections ...string) string {
	nonEmpty := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
