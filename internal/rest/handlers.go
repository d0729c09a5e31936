// Package rest exposes the domain operations over HTTP with gin.
package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ldi/backlog/internal/search"
	"github.com/ldi/backlog/internal/service"
	"github.com/ldi/backlog/internal/validate"
	"github.com/ldi/backlog/pkg/models"
)

type Handler struct {
	log      *logrus.Logger
	projects *service.ProjectService
	tasks    *service.TaskService
	search   *search.Engine
}

func NewHandler(log *logrus.Logger, projects *service.ProjectService, tasks *service.TaskService, engine *search.Engine) *Handler {
	return &Handler{
		log:      log,
		projects: projects,
		tasks:    tasks,
		search:   engine,
	}
}

func (h *Handler) EnrichRoutes(router *gin.Engine) {
	projectRoutes := router.Group("/projects")
	projectRoutes.POST("", h.createProjectAction)
	projectRoutes.GET("", h.listProjectsAction)
	projectRoutes.GET("/:projectID", h.getProjectAction)
	projectRoutes.POST("/:projectID/archive", h.archiveProjectAction)

	taskRoutes := router.Group("/tasks")
	taskRoutes.POST("", h.createTaskAction)
	taskRoutes.GET("", h.listTasksAction)
	taskRoutes.PATCH("/:taskID", h.updateTaskAction)
	taskRoutes.POST("/:taskID/status", h.moveTaskAction)
	taskRoutes.POST("/:taskID/archive", h.archiveTaskAction)

	router.GET("/search", h.searchTasksAction)
}

type createProjectForm struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (h *Handler) createProjectAction(c *gin.Context) {
	const op = "rest.Handler.createProjectAction"
	log := h.log.WithField("operation", op)

	var form createProjectForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	p, err := h.projects.Create(c.Request.Context(), service.CreateProjectRequest{
		Name:        form.Name,
		Description: form.Description,
		Tags:        form.Tags,
	})
	if err != nil {
		log.WithError(err).Error("failed to create project")
		handleError(c, err)
		return
	}

	log.WithField("id", p.ID).Info("project created")
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) listProjectsAction(c *gin.Context) {
	const op = "rest.Handler.listProjectsAction"
	log := h.log.WithField("operation", op)

	projects, err := h.projects.List(c.Request.Context(), boolQuery(c, "include_archived"))
	if err != nil {
		log.WithError(err).Error("failed to list projects")
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *Handler) getProjectAction(c *gin.Context) {
	const op = "rest.Handler.getProjectAction"
	log := h.log.WithField("operation", op)

	p, err := h.projects.GetByID(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		log.WithError(err).Error("failed to get project")
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) archiveProjectAction(c *gin.Context) {
	const op = "rest.Handler.archiveProjectAction"
	log := h.log.WithField("operation", op)

	p, err := h.projects.Archive(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		log.WithError(err).Error("failed to archive project")
		handleError(c, err)
		return
	}

	log.WithField("id", p.ID).Info("project archived")
	c.JSON(http.StatusOK, p)
}

type createTaskForm struct {
	ProjectID    string   `json:"project_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Priority     string   `json:"priority"`
	Status       string   `json:"status"`
	DueDate      string   `json:"due_date"`
	Tags         []string `json:"tags"`
	ParentTaskID string   `json:"parent_task_id"`
}

func (h *Handler) createTaskAction(c *gin.Context) {
	const op = "rest.Handler.createTaskAction"
	log := h.log.WithField("operation", op)

	var form createTaskForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	req := service.CreateTaskRequest{
		ProjectID:    form.ProjectID,
		Title:        form.Title,
		Description:  form.Description,
		Tags:         form.Tags,
		ParentTaskID: form.ParentTaskID,
	}

	if form.Priority != "" {
		priority, err := validate.Priority(form.Priority)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		req.Priority = priority
	}
	if form.Status != "" {
		status, err := validate.Status(form.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		req.Status = status
	}
	if form.DueDate != "" {
		due, err := validate.Date(form.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		req.DueDate = &due
	}

	task, err := h.tasks.Create(c.Request.Context(), req)
	if err != nil {
		log.WithError(err).Error("failed to create task")
		handleError(c, err)
		return
	}

	log.WithField("id", task.ID).Info("task created")
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) listTasksAction(c *gin.Context) {
	const op = "rest.Handler.listTasksAction"
	log := h.log.WithField("operation", op)

	filter := service.TaskFilter{
		ProjectID:       c.Query("project_id"),
		IncludeArchived: boolQuery(c, "include_archived"),
		Tags:            validate.TagList(c.Query("tags")),
		SortBy:          models.SortKey(c.Query("sort_by")),
		Order:           models.SortOrder(c.Query("order")),
	}

	if raw := c.Query("status"); raw != "" {
		status, err := validate.Status(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority, err := validate.Priority(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		filter.Priority = &priority
	}
	if raw := c.Query("has_subtasks"); raw != "" {
		hasSubtasks, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: "invalid has_subtasks"})
			return
		}
		filter.HasSubtasks = &hasSubtasks
	}

	tasks, err := h.tasks.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("failed to list tasks")
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

type updateTaskForm struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *string   `json:"priority"`
	DueDate     *string   `json:"due_date"`
	Tags        *[]string `json:"tags"`
}

func (h *Handler) updateTaskAction(c *gin.Context) {
	const op = "rest.Handler.updateTaskAction"
	log := h.log.WithField("operation", op)

	var form updateTaskForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	req := service.UpdateTaskRequest{
		TaskID:      c.Param("taskID"),
		Title:       form.Title,
		Description: form.Description,
		Tags:        form.Tags,
	}

	if form.Priority != nil {
		priority, err := validate.Priority(*form.Priority)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		req.Priority = &priority
	}
	if form.DueDate != nil {
		due, err := validate.Date(*form.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		req.DueDate = &due
	}

	task, err := h.tasks.Update(c.Request.Context(), req)
	if err != nil {
		log.WithError(err).Error("failed to update task")
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

type moveTaskForm struct {
	Status string `json:"status"`
}

func (h *Handler) moveTaskAction(c *gin.Context) {
	const op = "rest.Handler.moveTaskAction"
	log := h.log.WithField("operation", op)

	var form moveTaskForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	status, err := validate.Status(form.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	task, err := h.tasks.Move(c.Request.Context(), c.Param("taskID"), status)
	if err != nil {
		log.WithError(err).Error("failed to move task")
		handleError(c, err)
		return
	}

	log.WithField("id", task.ID).WithField("status", task.Status).Info("task moved")
	c.JSON(http.StatusOK, task)
}

func (h *Handler) archiveTaskAction(c *gin.Context) {
	const op = "rest.Handler.archiveTaskAction"
	log := h.log.WithField("operation", op)

	task, err := h.tasks.Archive(c.Request.Context(), c.Param("taskID"))
	if err != nil {
		log.WithError(err).Error("failed to archive task")
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *Handler) searchTasksAction(c *gin.Context) {
	const op = "rest.Handler.searchTasksAction"
	log := h.log.WithField("operation", op)

	tasks, err := h.search.Search(c.Request.Context(), search.Request{
		Query:           c.Query("q"),
		Tags:            validate.TagList(c.Query("tags")),
		IncludeArchived: boolQuery(c, "include_archived"),
		SortBy:          models.SortKey(c.Query("sort_by")),
		Order:           models.SortOrder(c.Query("order")),
	})
	if err != nil {
		log.WithError(err).Error("failed to search tasks")
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func boolQuery(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}
