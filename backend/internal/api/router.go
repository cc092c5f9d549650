// Package api exposes the feed engine and social actions over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"askgraph/backend/internal/feed"
	"askgraph/backend/internal/graph"
	"askgraph/backend/internal/social"
	"askgraph/backend/internal/store"
)

// Server bundles the components the HTTP handlers call into
type Server struct {
	Store  store.Store
	Repo   *graph.Repository
	Feed   *feed.Engine
	Social *social.Coordinator
	Log    *zap.Logger
}

// NewRouter builds the gin engine with every route registered
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(s.Log))
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/users", s.register)
		api.POST("/login", s.login)
		api.GET("/users/:username", s.profile)
		api.GET("/users/:username/recent", s.recentQuestions)
		api.GET("/feed/today", s.todaysQuestions)
		api.GET("/questions/:id", s.questionDetail)
	}

	acting := api.Group("", requireUser())
	{
		acting.PUT("/users/:username/bio", s.changeBio)
		acting.PUT("/users/:username/avatar", s.changeAvatar)
		acting.PUT("/users/:username/password", s.changePassword)
		acting.PUT("/users/:username/interests", s.replaceInterests)
		acting.GET("/users/:username/interests", s.interests)

		acting.POST("/users/:username/follow", s.follow)
		acting.GET("/users/:username/follow", s.isFollowing)
		acting.GET("/users/:username/similar", s.similarUsers)
		acting.GET("/users/:username/commonality", s.commonality)

		acting.GET("/feed/timeline", s.personalized(feed.KindTimeline))
		acting.GET("/feed/voteline", s.personalized(feed.KindVoteline))
		acting.GET("/feed/following", s.personalized(feed.KindFollowing))
		acting.GET("/feed/bookmarks", s.bookmarks)
		acting.GET("/feed/suggestions", s.suggestions)

		acting.POST("/questions", s.addQuestion)
		acting.POST("/questions/:id/answers", s.addAnswer)
		acting.POST("/questions/:id/bookmark", s.bookmark)
		acting.POST("/answers/:id/upvote", s.upvote)
	}

	return router
}

func (s *Server) health(c *gin.Context) {
	if err := s.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "degraded",
			"backend": s.Store.Backend(),
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": s.Store.Backend()})
}
