package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService service.TaskService
}

func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup, guard *middleware.Guard) {
	tasks := router.Group("/api/tasks")
	{
		tasks.GET("", guard.Require("tasks:read"), h.ListTasks)
		tasks.POST("", guard.Require("tasks:create"), h.CreateTask)
		tasks.POST("/:id/complete", guard.Require("tasks:complete"), h.CompleteTask)
	}
}

// CreateTask opens a QA task for an assignee
// @Summary      Create task
// @Tags         tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTaskDTO  true  "Create Task Payload"
// @Success      201      {object}  response.Response{data=service.TaskResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req service.CreateTaskDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, task))
}

// ListTasks returns a filtered, paginated task listing
// @Summary      List tasks
// @Tags         tasks
// @Security     BearerAuth
// @Produce      json
// @Param        status       query     string  false  "Filter by status (OPEN/DONE)"
// @Param        assignee_id  query     string  false  "Filter by assignee"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	p := pagination.Parse(c)

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), c.Query("status"), c.Query("assignee_id"), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}

// CompleteTask marks a task DONE and creates its companion request
// @Summary      Complete task
// @Description  Marks the task DONE and creates the linked certificate request atomically
// @Tags         tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=service.TaskResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	task, err := h.taskService.CompleteTask(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}
