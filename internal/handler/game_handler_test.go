package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"spystory-server/internal/handler"
	"spystory-server/internal/models"
	"spystory-server/internal/service"
	"spystory-server/internal/service/mocks"
	"spystory-server/internal/websocket"
)

const unitJWTSecret = "unit-test-secret"

func newTestRouter(svc service.GameService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	h := handler.NewGameHandler(svc, websocket.NewConnectionManager(log), unitJWTSecret, log)
	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func signedToken(t *testing.T, userID uuid.UUID) string {
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(unitJWTSecret))
	require.NoError(t, err)
	return token
}

func performJSON(t *testing.T, router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitChoice_ErrorMapping(t *testing.T) {
	userID := uuid.New()
	storyID := uuid.New()
	token := signedToken(t, userID)
	path := fmt.Sprintf("/api/stories/%s/choice", storyID)
	body := `{"choiceId": "1"}`

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   models.ErrorCode
	}{
		{"conflict maps to 409 retry", models.ErrStateConflict, http.StatusConflict, models.CodeRetry},
		{"busy session maps to 409 retry", models.ErrSessionBusy, http.StatusConflict, models.CodeRetry},
		{"no valid node maps to 409 session_corrupted", models.ErrNoValidNode, http.StatusConflict, models.CodeSessionCorrupted},
		{"missing story maps to 404", models.ErrNotFound, http.StatusNotFound, models.CodeNotFound},
		{"malformed generation maps to 502", models.ErrInvalidGenerationResult, http.StatusBadGateway, models.CodeGenerationFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mocks.GameService)
			svc.On("SubmitChoice", mock.Anything, userID, storyID, "1", "").Return(nil, tc.err).Once()
			router := newTestRouter(svc)

			w := performJSON(t, router, http.MethodPost, path, token, body)
			assert.Equal(t, tc.wantStatus, w.Code)

			var apiErr handler.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, tc.wantCode, apiErr.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestSubmitChoice_RequiresChoiceInput(t *testing.T) {
	userID := uuid.New()
	token := signedToken(t, userID)
	svc := new(mocks.GameService)
	router := newTestRouter(svc)

	w := performJSON(t, router, http.MethodPost, fmt.Sprintf("/api/stories/%s/choice", uuid.New()), token, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "SubmitChoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	svc := new(mocks.GameService)
	router := newTestRouter(svc)

	t.Run("missing header", func(t *testing.T) {
		w := performJSON(t, router, http.MethodGet, "/api/session", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": uuid.New().String(), "exp": time.Now().Add(time.Minute).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
		require.NoError(t, err)

		w := performJSON(t, router, http.MethodGet, "/api/session", token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "not-a-uuid", "exp": time.Now().Add(time.Minute).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(unitJWTSecret))
		require.NoError(t, err)

		w := performJSON(t, router, http.MethodGet, "/api/session", token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	svc.AssertNotCalled(t, "EnsureSession", mock.Anything, mock.Anything)
}

func TestInteract_UnknownTypeIsBadRequest(t *testing.T) {
	userID := uuid.New()
	characterID := uuid.New()
	token := signedToken(t, userID)

	svc := new(mocks.GameService)
	svc.On("InteractWithCharacter", mock.Anything, userID, characterID, service.InteractionType("bribe")).
		Return(nil, fmt.Errorf("%w: %q", service.ErrUnknownInteraction, "bribe")).Once()
	router := newTestRouter(svc)

	w := performJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/characters/%s/interact", characterID), token, `{"interaction": "bribe"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
