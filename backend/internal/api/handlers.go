package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"askgraph/backend/internal/auth"
	"askgraph/backend/internal/feed"
	"askgraph/backend/internal/graph"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ============================================================================
// Accounts & profiles
// ============================================================================

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.fail(c, "register user", err)
		return
	}
	created, err := s.Social.Register(c.Request.Context(), req.Username, hash)
	if err != nil {
		s.fail(c, "register user", err)
		return
	}
	if !created {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": req.Username})
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := auth.Authenticate(c.Request.Context(), s.Repo, req.Username, req.Password)
	if err != nil {
		s.fail(c, "log in", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) profile(c *gin.Context) {
	u, err := s.Repo.FindUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.fail(c, "load profile", err)
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}

type valueRequest struct {
	Value string `json:"value" binding:"required"`
}

func (s *Server) changeBio(c *gin.Context) {
	s.updateProfile(c, "update bio", s.Social.ChangeBio)
}

func (s *Server) changeAvatar(c *gin.Context) {
	s.updateProfile(c, "update avatar", s.Social.ChangeAvatar)
}

func (s *Server) changePassword(c *gin.Context) {
	s.updateProfile(c, "update password", func(ctx context.Context, username, password string) error {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		return s.Social.ChangePassword(ctx, username, hash)
	})
}

func (s *Server) updateProfile(c *gin.Context, action string, apply func(ctx context.Context, username, value string) error) {
	me, ok := requireSelf(c)
	if !ok {
		return
	}
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := apply(c.Request.Context(), me, req.Value); err != nil {
		s.fail(c, action, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type tagsRequest struct {
	// Tags uses the external whitespace-separated format
	Tags string `json:"tags"`
}

func (s *Server) replaceInterests(c *gin.Context) {
	me, ok := requireSelf(c)
	if !ok {
		return
	}
	var req tagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tags := graph.ParseTags(req.Tags)
	if err := s.Social.ReplaceInterests(c.Request.Context(), me, tags); err != nil {
		s.fail(c, "update interests", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags.String()})
}

func (s *Server) interests(c *gin.Context) {
	tags, err := s.Social.Interests(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.fail(c, "load interests", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags.String()})
}

// ============================================================================
// Social graph
// ============================================================================

func (s *Server) follow(c *gin.Context) {
	created, err := s.Social.Follow(c.Request.Context(), actingUser(c), c.Param("username"))
	if err != nil {
		s.fail(c, "follow user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": true, "created": created})
}

func (s *Server) isFollowing(c *gin.Context) {
	ok, err := s.Social.IsFollowing(c.Request.Context(), actingUser(c), c.Param("username"))
	if err != nil {
		s.fail(c, "check follow", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": ok})
}

func (s *Server) similarUsers(c *gin.Context) {
	users, err := s.Feed.SimilarUsers(c.Request.Context(), c.Param("username"), limitParam(c))
	if err != nil {
		s.fail(c, "load similar users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) commonality(c *gin.Context) {
	result, err := s.Feed.Commonality(c.Request.Context(), actingUser(c), c.Param("username"))
	if err != nil {
		s.fail(c, "load commonality", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) suggestions(c *gin.Context) {
	users, err := s.Feed.SuggestFollows(c.Request.Context(), actingUser(c), limitParam(c))
	if err != nil {
		s.fail(c, "load suggestions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ============================================================================
// Feeds
// ============================================================================

func (s *Server) personalized(kind feed.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := s.Feed.Personalized(c.Request.Context(), actingUser(c), kind)
		if err != nil {
			s.fail(c, "build "+string(kind), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func (s *Server) bookmarks(c *gin.Context) {
	items, err := s.Feed.Bookmarks(c.Request.Context(), actingUser(c))
	if err != nil {
		s.fail(c, "load bookmarks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) recentQuestions(c *gin.Context) {
	items, err := s.Feed.RecentQuestions(c.Request.Context(), c.Param("username"), limitParam(c))
	if err != nil {
		s.fail(c, "load recent questions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) todaysQuestions(c *gin.Context) {
	items, err := s.Feed.TodaysRecentQuestions(c.Request.Context(), limitParam(c))
	if err != nil {
		s.fail(c, "load today's questions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) questionDetail(c *gin.Context) {
	ctx := c.Request.Context()
	items, err := s.Feed.QuestionDetail(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, "load question", err)
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}
	answers, err := s.Feed.AnswersFor(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, "load answers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": items[0], "answers": answers})
}

// ============================================================================
// Publishing
// ============================================================================

type questionRequest struct {
	Title string `json:"title" binding:"required"`
	Tags  string `json:"tags" binding:"required"`
	Text  string `json:"text" binding:"required"`
}

func (s *Server) addQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q, err := s.Social.AddQuestion(c.Request.Context(), actingUser(c), req.Title, graph.ParseTags(req.Tags), req.Text)
	if err != nil {
		s.fail(c, "add question", err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

type answerRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) addAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := s.Social.AddAnswer(c.Request.Context(), actingUser(c), c.Param("id"), req.Text)
	if err != nil {
		s.fail(c, "add answer", err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) bookmark(c *gin.Context) {
	created, err := s.Social.Bookmark(c.Request.Context(), actingUser(c), c.Param("id"))
	if err != nil {
		s.fail(c, "bookmark question", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": true, "created": created})
}

func (s *Server) upvote(c *gin.Context) {
	created, err := s.Social.UpvoteAnswer(c.Request.Context(), actingUser(c), c.Param("id"))
	if err != nil {
		s.fail(c, "upvote answer", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upvoted": true, "created": created})
}

// limitParam reads ?limit=N; zero selects the operation's default
func limitParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
