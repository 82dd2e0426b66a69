package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskstreak/internal/model"
	"taskstreak/internal/service"
)

const defaultHistoryLimit = 50

// completeRequest carries optional tracking data. An empty body is a quick
// completion.
type completeRequest struct {
	TimeSpentMinutes *int   `json:"timeSpentMinutes"`
	Difficulty       *int   `json:"difficulty"`
	Notes            string `json:"notes"`
}

func (r completeRequest) details() *model.Details {
	if r.TimeSpentMinutes == nil && r.Difficulty == nil && r.Notes == "" {
		return nil
	}
	d := &model.Details{Difficulty: model.DefaultDifficulty, Notes: r.Notes}
	if r.TimeSpentMinutes != nil {
		d.TimeSpent = time.Duration(*r.TimeSpentMinutes) * time.Minute
	}
	if r.Difficulty != nil {
		d.Difficulty = *r.Difficulty
	}
	return d
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (s *Server) handleListTasks(c *gin.Context) {
	filter := model.TaskFilter{
		Status:   model.Status(c.Query("status")),
		Category: c.Query("category"),
		Search:   c.Query("q"),
		Sort:     model.SortOrder(c.Query("sort")),
	}
	tasks, err := s.tasks.List(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var input service.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	task, err := s.tasks.Create(c.Request.Context(), input)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, task)
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		return
	}
	task, err := s.tasks.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		return
	}
	var input service.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	task, err := s.tasks.Update(c.Request.Context(), id, input)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		return
	}
	if err := s.tasks.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	res, err := s.tasks.Complete(c.Request.Context(), id, req.details())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (s *Server) handleUncompleteTask(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		return
	}
	task, err := s.tasks.Uncomplete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, task)
}

func (s *Server) handleTaskHistory(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 0 {
		badRequest(c, errors.New("limit must be a non-negative integer"))
		return
	}
	history, err := s.tasks.History(c.Request.Context(), id, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, history)
}

func (s *Server) handleCategories(c *gin.Context) {
	cats, err := s.tasks.Categories(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, cats)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.tasks.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

func (s *Server) handleDigest(c *gin.Context) {
	digest, err := s.digests.Digest(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, digest)
}

func (s *Server) handleSweep(c *gin.Context) {
	report, err := s.sweeper.Run(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, report)
}

func taskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, errors.New("invalid task id"))
		return 0, false
	}
	return uint(id), true
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// fail maps the error kind to a status code. Persistence and unknown
// failures are logged and hidden from the client.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		badRequest(c, err)
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	default:
		s.log.Error("request failed", "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal error",
		})
	}
}
