package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"askgraph/backend/internal/clock"
	"askgraph/backend/internal/feed"
	"askgraph/backend/internal/graph"
	"askgraph/backend/internal/social"
	"askgraph/backend/internal/store"
	apperrors "askgraph/backend/pkg/errors"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.NewBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	repo := graph.NewRepository(s, clock.NewManual(time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)))
	return NewRouter(&Server{
		Store:  s,
		Repo:   repo,
		Feed:   feed.NewEngine(repo),
		Social: social.NewCoordinator(repo, social.UpvoteCountEveryCall),
		Log:    zap.NewNop(),
	})
}

func do(t *testing.T, router *gin.Engine, method, path, user string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func register(t *testing.T, router *gin.Engine, username string) {
	t.Helper()
	w, _ := do(t, router, http.MethodPost, "/api/users", "", gin.H{"username": username, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w, response := do(t, router, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, "badger", response["backend"])
}

func TestRegisterAndLogin(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "ada")

	w, _ := do(t, router, http.MethodPost, "/api/users", "", gin.H{"username": "ada", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, response := do(t, router, http.MethodPost, "/api/login", "", gin.H{"username": "ada", "password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada", response["username"])
	assert.NotContains(t, response, "password_hash")

	w, _ = do(t, router, http.MethodPost, "/api/login", "", gin.H{"username": "ada", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/users", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActingUserRequired(t *testing.T) {
	router := newTestRouter(t)
	w, _ := do(t, router, http.MethodGet, "/api/feed/timeline", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileWritesAreSelfOnly(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "ada")
	register(t, router, "bob")

	w, _ := do(t, router, http.MethodPut, "/api/users/ada/bio", "bob", gin.H{"value": "hijacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, router, http.MethodPut, "/api/users/ada/bio", "ada", gin.H{"value": "Countess"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, response := do(t, router, http.MethodGet, "/api/users/ada", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Countess", response["bio"])

	w, response = do(t, router, http.MethodPut, "/api/users/ada/interests", "ada", gin.H{"tags": "Art Music art"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "art music", response["tags"])

	w, _ = do(t, router, http.MethodGet, "/api/users/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuestionFlow(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "ada")
	register(t, router, "bob")

	w, _ := do(t, router, http.MethodPost, "/api/users/ada/follow", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/questions", "ada", gin.H{"title": "Why Go?", "tags": "go", "text": "Tell me"})
	require.Equal(t, http.StatusCreated, w.Code)
	var q graph.Question
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))

	w, response := do(t, router, http.MethodPost, "/api/questions/"+q.ID+"/answers", "bob", gin.H{"text": "Because"})
	require.Equal(t, http.StatusCreated, w.Code)
	answerID := response["id"].(string)

	w, response = do(t, router, http.MethodPost, "/api/answers/"+answerID+"/upvote", "ada", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, response["created"])

	w, response = do(t, router, http.MethodGet, "/api/questions/"+q.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	answers := response["answers"].([]any)
	require.Len(t, answers, 1)
	assert.Equal(t, float64(1), answers[0].(map[string]any)["upvotes"])

	w, response = do(t, router, http.MethodGet, "/api/feed/voteline", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := response["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "ada", items[0].(map[string]any)["author"])

	w, _ = do(t, router, http.MethodGet, "/api/questions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/questions", "ada", gin.H{"title": "t", "tags": "   ", "text": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/users/ada/follow", "ada", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperrors.NewValidation("title", "required"), http.StatusBadRequest},
		{"not found", apperrors.NewNotFound("Answer", "a1"), http.StatusNotFound},
		{"conflict", fmt.Errorf("upvote: %w", apperrors.NewConflict("update", stderrors.New("Transaction Conflict"))), http.StatusConflict},
		{"store", apperrors.NewStoreUnavailable("view", stderrors.New("DB Closed")), http.StatusServiceUnavailable},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
