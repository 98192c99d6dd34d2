package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/atelier/internal/artifact"
	"github.com/zulandar/atelier/internal/lifecycle"
	"github.com/zulandar/atelier/internal/project"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, svc *artifact.Service) {
	api := router.Group("/api")

	api.GET("/projects", handleProjectList(db))
	api.POST("/projects", handleProjectCreate(db))
	api.GET("/projects/:id", handleProjectDetail(db))
	api.GET("/projects/:id/artifacts", handleArtifactList(db))
	api.POST("/projects/:id/artifacts", handleArtifactCreate(svc))

	api.GET("/artifacts/:id", handleArtifactDetail(db))
	api.PATCH("/artifacts/:id", handleArtifactUpdate(svc))
	api.POST("/artifacts/:id/interact", handleInteract(svc))
	api.GET("/artifacts/:id/interact/stream", handleInteractStream(svc))
	api.POST("/artifacts/:id/transition", handleTransition(svc))

	api.GET("/events", handleEvents(db))
}

func handleProjectList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		summaries, err := ProjectSummaries(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summaries)
	}
}

func handleProjectCreate(db *gorm.DB) gin.HandlerFunc {
	type request struct {
		Name        string `json:"name" binding:"required"`
		ProjectType string `json:"project_type" binding:"required"`
		Owner       string `json:"owner"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p, err := project.Create(db, project.CreateOpts{
			Name:            req.Name,
			ProjectTypeName: req.ProjectType,
			Owner:           req.Owner,
		})
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func handleProjectDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		detail, err := ProjectDetail(db, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

func handleArtifactList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		artifacts, err := artifact.List(db, artifact.ListFilters{
			ProjectID: id,
			State:     c.Query("state"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, artifacts)
	}
}

func handleArtifactCreate(svc *artifact.Service) gin.HandlerFunc {
	type request struct {
		Type      string `json:"type" binding:"required"`
		Name      string `json:"name"`
		Message   string `json:"message"`
		Model     string `json:"model"`
		Requester string `json:"requester"`
	}
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := svc.Create(c.Request.Context(), artifact.CreateOpts{
			ProjectID: id,
			TypeName:  req.Type,
			Name:      req.Name,
			Message:   req.Message,
			Model:     req.Model,
			Requester: req.Requester,
		})
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

func handleArtifactDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		a, err := artifact.Get(db, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		versions, err := artifact.Versions(db, a.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		history, err := artifact.History(db, a.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		content, err := artifact.CurrentContent(db, a)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"artifact": a,
			"content":  content,
			"versions": versions,
			"history":  history,
		})
	}
}

func handleArtifactUpdate(svc *artifact.Service) gin.HandlerFunc {
	type request struct {
		Name      *string `json:"name"`
		Content   *string `json:"content"`
		Requester string  `json:"requester"`
	}
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts := artifact.UpdateOpts{Requester: req.Requester}
		if req.Name != nil {
			opts.HasName = true
			opts.Name = *req.Name
		}
		if req.Content != nil {
			opts.HasContent = true
			opts.Content = *req.Content
		}
		a, err := svc.Update(id, opts)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

func handleInteract(svc *artifact.Service) gin.HandlerFunc {
	type request struct {
		Message   string `json:"message" binding:"required"`
		Model     string `json:"model"`
		Requester string `json:"requester"`
	}
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reply, err := svc.Interact(c.Request.Context(), id, req.Message, req.Model, req.Requester)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"content":    reply.Content,
			"commentary": reply.Commentary,
		})
	}
}

func handleTransition(svc *artifact.Service) gin.HandlerFunc {
	type request struct {
		StateID   uint   `json:"state_id" binding:"required"`
		Requester string `json:"requester"`
	}
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := svc.Transition(id, req.StateID, req.Requester)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// statusFor maps workflow errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, artifact.ErrUnknownArtifactType),
		errors.Is(err, artifact.ErrInvalidArtifactType):
		return http.StatusBadRequest
	case errors.Is(err, artifact.ErrDependencyNotApproved):
		return http.StatusConflict
	case errors.Is(err, artifact.ErrNoChanges),
		errors.Is(err, lifecycle.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseID reads the :id path parameter, writing a 400 on bad input.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
