package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"spystory-server/internal/generation"
	"spystory-server/internal/middleware"
	"spystory-server/internal/models"
	"spystory-server/internal/service"
	"spystory-server/internal/websocket"
)

// GameHandler exposes the story engine over HTTP.
type GameHandler struct {
	service   service.GameService
	wsManager *websocket.ConnectionManager
	jwtSecret string
	logger    *zap.Logger
}

func NewGameHandler(s service.GameService, wsManager *websocket.ConnectionManager, jwtSecret string, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		service:   s,
		wsManager: wsManager,
		jwtSecret: jwtSecret,
		logger:    logger.Named("GameHandler"),
	}
}

// RegisterRoutes wires all authenticated routes onto the router.
func (h *GameHandler) RegisterRoutes(router *gin.Engine) {
	auth := middleware.Auth(h.jwtSecret, h.logger)

	api := router.Group("/api", auth)
	{
		api.GET("/session", h.getSession)
		api.POST("/session/start", h.startSession)

		api.GET("/stories/:id/node", h.resolveCurrentNode)
		api.POST("/stories/:id/choice", h.submitChoice)
		api.POST("/stories/:id/missions", h.createMission)
		api.POST("/stories/:id/characters", h.createCharacter)
		api.GET("/stories/:id/characters", h.listStoryCharacters)

		api.GET("/missions", h.getMissions)

		api.POST("/characters/:id/interact", h.interact)
		api.GET("/characters/:id/relationship", h.getRelationship)
	}

	router.GET("/ws", auth, h.websocketConnect)
}

func (h *GameHandler) getSession(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "unauthorized", Code: models.CodeInternal})
		return
	}

	session, err := h.service.EnsureSession(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *GameHandler) startSession(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "unauthorized", Code: models.CodeInternal})
		return
	}

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body: " + err.Error(), Code: models.CodeInternal})
		return
	}

	node, err := h.service.StartSession(c.Request.Context(), userID, models.StoryParams{
		PrimaryConflict:   req.PrimaryConflict,
		Setting:           req.Setting,
		NarrativeStyle:    req.NarrativeStyle,
		Mood:              req.Mood,
		ProtagonistName:   req.ProtagonistName,
		ProtagonistGender: req.ProtagonistGender,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toNodeResponse(node))
}

func (h *GameHandler) resolveCurrentNode(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "unauthorized", Code: models.CodeInternal})
		return
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid story id", Code: models.CodeNotFound})
		return
	}

	node, err := h.service.ResolveCurrentNode(c.Request.Context(), userID, storyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNodeResponse(node))
}

func (h *GameHandler) submitChoice(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "unauthorized", Code: models.CodeInternal})
		return
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid story id", Code: models.CodeNotFound})
		return
	}

	var req submitChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body: " + err.Error(), Code: models.CodeInternal})
		return
	}
	if req.ChoiceID == "" && req.ChoiceText == "" {
		c.JSON(http.StatusBadRequest, APIError{Message: "choiceId or choiceText is required", Code: models.CodeInternal})
		return
	}

	node, err := h.service.SubmitChoice(c.Request.Context(), userID, storyID, req.ChoiceID, req.ChoiceText)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNodeResponse(node))
}

func (h *GameHandler) getMissions(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "unauthorized", Code: models.CodeInternal})
		return
	}

	overview, err := h.service.GetMissions(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *GameHandler) createMission(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "unauthorized", Code: models.CodeInternal})
		return
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid story id", Code: models.CodeNotFound})
		return
	}

	var req createMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body: " + err.Error(), Code: models.CodeInternal})
		return
	}

	params := service.MissionParams{
		Title:          req.Title,
		Objective:      req.Objective,
		RewardCurrency: req.RewardCurrency,
		RewardAmount:   req.RewardAmount,
		Deadline:       req.Deadline,
	}
	if params.GiverCharacterID, err = parseOptionalUUID(req.GiverCharacterID); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid giverCharacterId", Code: models.CodeNotFound})
		return
	}
	if params.TargetCharacterID, err = parseOptionalUUID(req.TargetCharacterID); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid targetCharacterId", Code: models.CodeNotFound})
		return
	}

	mission, err := h.service.CreateMission(c.Request.Context(), userID, storyID, params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mission)
}

func (h *GameHandler) createCharacter(c *gin.Context) {
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid story id", Code: models.CodeNotFound})
		return
	}

	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body: " + err.Error(), Code: models.CodeInternal})
		return
	}

	character, err := h.service.CreateCharacter(c.Request.Context(), storyID, service.CharacterParams{
		Name:      req.Name,
		Role:      models.CharacterRole(req.Role),
		Backstory: req.Backstory,
		Traits:    req.Traits,
		PlotLines: req.PlotLines,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, character)
}

func (h *GameHandler) listStoryCharacters(c *gin.Context) {
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid story id", Code: models.CodeNotFound})
		return
	}

	characters, err := h.service.ListStoryCharacters(c.Request.Context(), storyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, characters)
}

func (h *GameHandler) interact(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "unauthorized", Code: models.CodeInternal})
		return
	}
	characterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid character id", Code: models.CodeNotFound})
		return
	}

	var req interactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body: " + err.Error(), Code: models.CodeInternal})
		return
	}

	record, err := h.service.InteractWithCharacter(c.Request.Context(), userID, characterID, service.InteractionType(req.Interaction))
	if err != nil {
		if errors.Is(err, service.ErrUnknownInteraction) {
			c.JSON(http.StatusBadRequest, APIError{Message: err.Error(), Code: models.CodeInternal})
			return
		}
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *GameHandler) getRelationship(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "unauthorized", Code: models.CodeInternal})
		return
	}
	characterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid character id", Code: models.CodeNotFound})
		return
	}

	record, err := h.service.GetRelationship(c.Request.Context(), userID, characterID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *GameHandler) websocketConnect(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "unauthorized", Code: models.CodeInternal})
		return
	}
	h.wsManager.HandleConnection(c.Writer, c.Request, userID)
}

// handleServiceError maps taxonomy errors to HTTP statuses. The body carries
// the stable code so clients branch without parsing messages.
func (h *GameHandler) handleServiceError(c *gin.Context, err error) {
	code := models.CodeForError(err)
	if errors.Is(err, generation.ErrGenerationFailed) {
		code = models.CodeGenerationFailed
	}

	var status int
	switch code {
	case models.CodeRetry:
		status = http.StatusConflict
	case models.CodeSessionCorrupted:
		status = http.StatusConflict
	case models.CodeNotFound:
		status = http.StatusNotFound
	case models.CodeGenerationFailed:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
		h.logger.Error("Unhandled service error", zap.Error(err))
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.JSON(status, APIError{Message: message, Code: code})
}

func parseOptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
