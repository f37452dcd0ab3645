// Package api exposes the insight services over HTTP.
package api

import (
	"net/http"

	"taskquest/app"

	"github.com/gin-gonic/gin"
)

// Services are the application services the API serves
type Services struct {
	Analytics     *app.AnalyticsService
	Suggestions   *app.SuggestionService
	Predictions   *app.PredictionService
	Notifications *app.NotificationService
	Integrations  *app.IntegrationService
	Hub           *SSEHub
	Health        func() error
}

// Server is the HTTP front of TaskQuest insights
type Server struct {
	router   *gin.Engine
	services Services
}

// NewServer creates a server with every route registered
func NewServer(services Services, ginMode string) *Server {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	s := &Server{
		router:   gin.New(),
		services: services,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(RequestLogger())
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/api/v1", RequireUser())
	v1.GET("/dashboard", s.handleDashboard)
	v1.GET("/insights/:section", s.handleInsight)
	v1.GET("/feed", s.handleFeed)
	if s.services.Hub != nil {
		v1.GET("/stream", s.services.Hub.HandleSSE)
	}

	v1.GET("/reports/daily.csv", s.handleDailyCSV)
	v1.GET("/reports/daily.xlsx", s.handleDailyXLSX)
	v1.GET("/reports/weekly", s.handleWeeklyReport)

	v1.POST("/suggestions", s.handleSuggestions)
	v1.GET("/goals/:id/prediction", s.handleGoalPrediction)
	v1.GET("/productivity", s.handleProductivity)

	v1.GET("/notifications", s.handlePendingNotifications)
	v1.POST("/notifications/digest", s.handleDigest)
	v1.GET("/notifications/preferences", s.handleGetPreferences)
	v1.PUT("/notifications/preferences", s.handlePutPreferences)

	if s.services.Integrations != nil {
		integrations := http.StripPrefix("/integrations", NewIntegrationsRouter(s.services.Integrations))
		s.router.Any("/integrations/*path", gin.WrapH(integrations))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.services.Health != nil {
		if err := s.services.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
