package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/PrakyathReddy/StackDebt-sub001/errors"
	"github.com/PrakyathReddy/StackDebt-sub001/github"
	"github.com/PrakyathReddy/StackDebt-sub001/logger"
	"github.com/PrakyathReddy/StackDebt-sub001/resilience"
	"github.com/PrakyathReddy/StackDebt-sub001/scraper"
	"github.com/PrakyathReddy/StackDebt-sub001/server/middleware"
	"github.com/PrakyathReddy/StackDebt-sub001/version"
)

// API holds the handlers for the analysis and administration routes.
type API struct {
	handler *resilience.Handler
	github  *github.Client
	scraper *scraper.Client
	log     *logger.Logger
}

// NewAPI creates the route handler set.
func NewAPI(handler *resilience.Handler, gh *github.Client, sc *scraper.Client, log *logger.Logger) *API {
	return &API{
		handler: handler,
		github:  gh,
		scraper: sc,
		log:     log.WithComponent("api"),
	}
}

// Register mounts all routes on the engine. The reset endpoint is guarded by
// the admin bearer token.
func (a *API) Register(engine *gin.Engine, adminToken string) {
	engine.GET("/health", a.handleHealth)

	apiGroup := engine.Group("/api")
	apiGroup.POST("/analyze/repository", a.handleAnalyzeRepository)
	apiGroup.POST("/analyze/website", a.handleAnalyzeWebsite)

	ext := apiGroup.Group("/external-services")
	ext.GET("/status", a.handleServicesStatus)
	ext.GET("/:service/status", a.handleServiceStatus)
	ext.POST("/:service/reset", middleware.BearerAuth(adminToken), a.handleServiceReset)
}

// handleHealth reports overall service health. The service keeps serving
// (with fallbacks) while a breaker is open, so an open breaker degrades the
// status but never fails the check.
func (a *API) handleHealth(c *gin.Context) {
	statuses := a.serviceStatuses()

	status := "healthy"
	for _, st := range statuses {
		if st.State == "open" {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            status,
		"service":           "stackdebt",
		"version":           version.Get(),
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"external_services": statuses,
	})
}

type repositoryRequest struct {
	RepoURL string `json:"repo_url" binding:"required"`
}

func (a *API) handleAnalyzeRepository(c *gin.Context) {
	var req repositoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("repo_url", "required"))
		return
	}

	result, err := a.github.AnalyzeRepository(c.Request.Context(), req.RepoURL)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, result)
}

type websiteRequest struct {
	URL string `json:"url" binding:"required"`
}

func (a *API) handleAnalyzeWebsite(c *gin.Context) {
	var req websiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("url", "required"))
		return
	}

	result, err := a.scraper.AnalyzeWebsite(c.Request.Context(), req.URL)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, result)
}

func (a *API) handleServicesStatus(c *gin.Context) {
	statuses := a.serviceStatuses()

	overall := "healthy"
	for _, st := range statuses {
		if st.State == "open" {
			overall = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"external_services": statuses,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"overall_health":    overall,
	})
}

func (a *API) handleServiceStatus(c *gin.Context) {
	service := c.Param("service")
	if !a.handler.Known(service) {
		RespondWithError(c, unknownServiceError(service, a.handler.Services()))
		return
	}
	RespondOK(c, a.handler.Status(service))
}

func (a *API) handleServiceReset(c *gin.Context) {
	service := c.Param("service")
	if !a.handler.Known(service) {
		RespondWithError(c, unknownServiceError(service, a.handler.Services()))
		return
	}

	a.handler.Reset(service)
	a.log.Info("Circuit breaker reset", map[string]interface{}{
		"service": service,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":   fmt.Sprintf("Circuit breaker for %s has been reset", service),
		"service":   service,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"status":    a.handler.Status(service),
	})
}

func (a *API) serviceStatuses() map[string]resilience.Status {
	statuses := make(map[string]resilience.Status)
	for _, name := range a.handler.Services() {
		statuses[name] = a.handler.Status(name)
	}
	return statuses
}

func unknownServiceError(service string, valid []string) *apperrors.AppError {
	return apperrors.InvalidInput("service", fmt.Sprintf("unknown service: %s", service)).
		WithDetail("valid_services", valid)
}
