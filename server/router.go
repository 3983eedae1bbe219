package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/lustra-ai/lustra/engine/auth"
	"github.com/lustra-ai/lustra/engine/pipeline"
	"github.com/lustra-ai/lustra/engine/workflow"
)

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	if s.cfg.Server.RateLimit > 0 {
		rate := limiter.Rate{Period: s.cfg.Server.RatePeriod, Limit: s.cfg.Server.RateLimit}
		router.Use(mgin.NewMiddleware(limiter.New(memory.NewStore(), rate)))
	}
	if s.cfg.Server.MaxUploadSize > 0 {
		router.MaxMultipartMemory = s.cfg.Server.MaxUploadSize
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v0")
	api.GET("/users/me", s.handleMe)

	generations := api.Group("/generations", s.requireAuth())
	generations.POST("", s.handleStart)
	generations.GET("/:id/status", s.handleStatus)
	generations.GET("/:id/result", s.handleResult)
	generations.POST("/:id/cancel", s.handleCancel)

	return router
}

// handleMe proxies the token check to the auth service.
func (s *Server) handleMe(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	user, err := s.auth.Me(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "auth service unavailable", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

// handleStart forwards a multipart start request to the workflow engine.
func (s *Server) handleStart(c *gin.Context) {
	variant, err := workflow.ParseVariant(c.PostForm("workflow_name"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow_name", "details": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file", "details": err.Error()})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file", "details": err.Error()})
		return
	}
	defer file.Close()

	var overrides pipeline.Overrides
	if raw := c.PostForm("overrides"); raw != "" {
		if err := decodeOverrides(raw, &overrides); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid overrides", "details": err.Error()})
			return
		}
	}

	handle, err := s.engine.Start(c.Request.Context(), pipeline.StartRequest{
		Variant:   variant,
		Filename:  fileHeader.Filename,
		File:      file,
		Overrides: overrides,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "workflow start failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"workflow_id": handle.String()}})
}

func (s *Server) handleStatus(c *gin.Context) {
	snap, err := s.engine.Status(c.Request.Context(), pipeline.Handle(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "workflow status failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snap})
}

func (s *Server) handleResult(c *gin.Context) {
	result, err := s.engine.Result(c.Request.Context(), pipeline.Handle(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "workflow result failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) handleCancel(c *gin.Context) {
	if err := s.engine.Cancel(c.Request.Context(), pipeline.Handle(c.Param("id"))); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "workflow cancel failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "cancellation requested"})
}
