// Package httpapi exposes the tracker as a JSON API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"taskstreak/internal/model"
	"taskstreak/internal/service"
	"taskstreak/internal/tracker"
)

// TaskService is the task surface the handlers need.
type TaskService interface {
	Create(ctx context.Context, input service.TaskInput) (*model.Task, error)
	Update(ctx context.Context, id uint, input service.TaskInput) (*model.Task, error)
	Get(ctx context.Context, id uint) (*model.Task, error)
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	Complete(ctx context.Context, id uint, details *model.Details) (tracker.Result, error)
	Uncomplete(ctx context.Context, id uint) (*model.Task, error)
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context) (tracker.Stats, error)
	Categories(ctx context.Context) ([]model.CategorySummary, error)
	History(ctx context.Context, id uint, limit int) ([]model.Completion, error)
}

type DigestService interface {
	Digest(ctx context.Context) (service.Digest, error)
}

type Sweeper interface {
	Run(ctx context.Context) (service.SweepReport, error)
}

// Server is the JSON API server.
type Server struct {
	tasks   TaskService
	digests DigestService
	sweeper Sweeper
	log     *log.Logger
	router  *gin.Engine
}

// NewServer builds the router. Call gin.SetMode before this to change the
// gin mode.
func NewServer(tasks TaskService, digests DigestService, sweeper Sweeper, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())

	s := &Server{
		tasks:   tasks,
		digests: digests,
		sweeper: sweeper,
		log:     logger,
		router:  router,
	}

	router.GET("/ping", s.handlePing)

	api := router.Group("/api/v1")
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/complete", s.handleCompleteTask)
		api.POST("/tasks/:id/uncomplete", s.handleUncompleteTask)
		api.GET("/tasks/:id/history", s.handleTaskHistory)
		api.GET("/categories", s.handleCategories)
		api.GET("/stats", s.handleStats)
		api.GET("/digest", s.handleDigest)
		api.POST("/sweep", s.handleSweep)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info("http server stopped")
		return nil
	}
}
