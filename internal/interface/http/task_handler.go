package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/taskboard-api/internal/application"
	"github.com/oksasatya/taskboard-api/internal/domain/entity"
	"github.com/oksasatya/taskboard-api/internal/interface/middleware"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
	"github.com/oksasatya/taskboard-api/pkg/response"
)

type TaskHandler struct {
	Service *application.TaskService
	Logger  *logrus.Logger
}

func NewTaskHandler(service *application.TaskService, logger *logrus.Logger) *TaskHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &TaskHandler{Service: service, Logger: logger}
}

// owner reads the id set by middleware.Auth. Routes without it are a wiring
// bug, reported as unauthenticated rather than panicking.
func owner(c *gin.Context) (int64, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Unauthorized: no token provided", nil)
	}
	return uid, ok
}

// taskID parses :id. Anything that is not a positive integer cannot name a
// task, so it is reported as not found.
func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusNotFound, "Task not found", nil)
		return 0, false
	}
	return id, true
}

// List GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	tasks, err := h.Service.List(c.Request.Context(), uid)
	if err != nil {
		writeError(c, h.Logger, err, nil)
		return
	}
	response.JSON(c, http.StatusOK, tasks)
}

// Search GET /api/tasks/search?q=&limit=
func (h *TaskHandler) Search(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	tasks, err := h.Service.Search(c.Request.Context(), uid, c.Query("q"), limit)
	if err != nil {
		writeError(c, h.Logger, err, nil)
		return
	}
	response.JSON(c, http.StatusOK, tasks)
}

type createTaskRequest struct {
	Title       string               `json:"title"`
	Description *string              `json:"description"`
	Priority    *entity.TaskPriority `json:"priority" binding:"omitempty,priority"`
}

// Create POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	task, err := h.Service.Create(c.Request.Context(), uid, application.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		writeError(c, h.Logger, err, nil)
		return
	}
	response.JSON(c, http.StatusCreated, task)
}

type updateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *entity.TaskStatus   `json:"status" binding:"omitempty,taskstatus"`
	Priority    *entity.TaskPriority `json:"priority" binding:"omitempty,priority"`
}

// Update PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}
	// an empty body is an empty partial update
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}
	task, err := h.Service.Update(c.Request.Context(), uid, id, application.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		writeError(c, h.Logger, err, nil)
		return
	}
	response.JSON(c, http.StatusOK, task)
}

type deleteTaskResponse struct {
	ID int64 `json:"id"`
}

// Delete DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}
	deleted, err := h.Service.Delete(c.Request.Context(), uid, id)
	if err != nil {
		writeError(c, h.Logger, err, nil)
		return
	}
	response.JSON(c, http.StatusOK, deleteTaskResponse{ID: deleted})
}
