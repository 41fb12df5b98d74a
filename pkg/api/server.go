// Package api 以 HTTP 形式暴露调度器的只读快照与刷新控制。
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sectorpulse/pkg/advisor"
	"sectorpulse/pkg/logger"
	"sectorpulse/pkg/scheduler"
)

// ErrorResponse 统一错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Server HTTP 服务
type Server struct {
	sched   *scheduler.RefreshScheduler
	advisor *advisor.Client
	log     *logrus.Entry
	httpSrv *http.Server
}

// NewServer 创建 HTTP 服务
// advisorClient 允许为 nil，此时解读接口返回 503
func NewServer(addr string, sched *scheduler.RefreshScheduler, advisorClient *advisor.Client) *Server {
	s := &Server{
		sched:   sched,
		advisor: advisorClient,
		log:     logger.WithComponent("APIServer"),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.healthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/state", s.getState)
		v1.GET("/quotes", s.getQuotes)
		v1.GET("/sectors", s.getSectors)
		v1.GET("/history", s.getHistory)

		v1.POST("/refresh", s.postRefresh)
		v1.POST("/autorefresh", s.postAutoRefresh)
		v1.POST("/commentary", s.postCommentary)
	}

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	return s
}

// Start 启动 HTTP 服务（阻塞直到关闭）
func (s *Server) Start() error {
	s.log.Infof("HTTP 服务监听 %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler 返回底层路由（测试用）
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) healthCheck(c *gin.Context) {
	snap := s.sched.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"state":       snap.State,
		"last_update": snap.Refresh.LastUpdate,
	})
}

func (s *Server) getState(c *gin.Context) {
	snap := s.sched.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"state":   snap.State,
		"refresh": snap.Refresh,
	})
}

func (s *Server) getQuotes(c *gin.Context) {
	c.JSON(http.StatusOK, s.sched.Snapshot().Quotes)
}

func (s *Server) getSectors(c *gin.Context) {
	c.JSON(http.StatusOK, s.sched.Snapshot().Sectors)
}

func (s *Server) getHistory(c *gin.Context) {
	c.JSON(http.StatusOK, s.sched.Snapshot().History)
}

// postRefresh 手动触发刷新，周期在途时返回 409
func (s *Server) postRefresh(c *gin.Context) {
	if !s.sched.Refresh() {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "refresh_in_flight",
			Message: "刷新周期进行中",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type autoRefreshRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// postAutoRefresh 开关自动刷新
func (s *Server) postAutoRefresh(c *gin.Context) {
	var req autoRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "enabled 字段必填",
		})
		return
	}

	s.sched.SetAutoRefresh(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"auto_refresh": *req.Enabled})
}

// postCommentary 基于当前快照生成盘面解读
func (s *Server) postCommentary(c *gin.Context) {
	if s.advisor == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "advisor_disabled",
			Message: "未配置解读生成服务",
		})
		return
	}

	snap := s.sched.Snapshot()
	prompt := advisor.BuildPrompt(snap.Quotes, snap.Sectors)

	text, err := s.advisor.Generate(c.Request.Context(), prompt)
	if err != nil {
		status := http.StatusBadGateway
		code := "generation_failed"
		switch {
		case errors.Is(err, advisor.ErrMissingCredential):
			status = http.StatusServiceUnavailable
			code = "missing_credential"
		case errors.Is(err, advisor.ErrRateLimited):
			status = http.StatusTooManyRequests
			code = "rate_limited"
		case errors.Is(err, advisor.ErrEmptyResponse):
			code = "empty_response"
		}
		s.log.Warnf("解读生成失败: %v", err)
		c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"commentary": text})
}
