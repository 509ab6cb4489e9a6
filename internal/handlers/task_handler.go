package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"eventcrm/internal/models"
	"eventcrm/internal/services"
)

type TaskHandler struct {
	service services.TaskService
}

func NewTaskHandler(service services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

type createTaskRequest struct {
	EventDepartmentID  int64  `json:"event_department_id" binding:"required"`
	Title              string `json:"title" binding:"required"`
	TitleAr            string `json:"title_ar"`
	Description        string `json:"description"`
	Deadline           string `json:"deadline"` // RFC3339
	OrderIndex         int    `json:"order_index"`
	PrerequisiteTaskID *int64 `json:"prerequisite_task_id"`
}

// @Summary      Create a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        task  body      createTaskRequest  true  "Task"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	log.Printf("[task][create] call by userID=%d role=%d", userID, roleID)

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deadline, err := parseOptionalTime(req.Deadline)
	if err != nil {
		log.Printf("[task][create][err] invalid deadline=%q: %v", req.Deadline, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deadline (RFC3339)"})
		return
	}

	task, err := h.service.Create(c.Request.Context(), models.TaskSpec{
		EventDepartmentID:  req.EventDepartmentID,
		Title:              req.Title,
		TitleAr:            req.TitleAr,
		Description:        req.Description,
		Deadline:           deadline,
		OrderIndex:         req.OrderIndex,
		PrerequisiteTaskID: req.PrerequisiteTaskID,
	})
	if err != nil {
		respondError(c, "task][create", err)
		return
	}
	log.Printf("[task][create][ok] id=%d status=%s", task.ID, task.Status)
	c.JSON(http.StatusCreated, task)
}

// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  models.Task
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "task][getByID")
	if !ok {
		return
	}
	task, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, "task][getByID", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary      List tasks
// @Tags         Tasks
// @Produce      json
// @Param        event_id  query     int     false  "Event ID"
// @Param        status    query     string  false  "Status"
// @Success      200       {array}   models.Task
// @Router       /tasks [get]
func (h *TaskHandler) GetAll(c *gin.Context) {
	var filter models.TaskFilter
	if v := c.Query("event_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return
		}
		filter.EventID = &id
	}
	if v := c.Query("status"); v != "" {
		st := models.TaskStatus(v)
		if !st.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &st
	}

	tasks, err := h.service.GetAll(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "task][list", err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// @Summary      List the tasks of an event department
// @Tags         Tasks
// @Produce      json
// @Param        id   path      int  true  "Assignment ID"
// @Success      200  {array}   models.Task
// @Failure      404  {object}  map[string]string
// @Router       /assignments/{id}/tasks [get]
func (h *TaskHandler) ListByAssignment(c *gin.Context) {
	id, ok := parseID(c, "task][byAssignment")
	if !ok {
		return
	}
	tasks, err := h.service.ListByAssignment(c.Request.Context(), id)
	if err != nil {
		respondError(c, "task][byAssignment", err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// updateTaskRequest: a missing key leaves the field alone, a null deadline or
// prerequisite clears it.
type updateTaskRequest struct {
	Title              *string            `json:"title"`
	TitleAr            *string            `json:"title_ar"`
	Description        *string            `json:"description"`
	Deadline           optional[string]   `json:"deadline"`
	OrderIndex         *int               `json:"order_index"`
	PrerequisiteTaskID optional[int64]    `json:"prerequisite_task_id"`
	Status             *models.TaskStatus `json:"status"`
}

// @Summary      Update a task
// @Description  Updates fields and/or the status. Completing a task activates its waiting dependents.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id    path      int                true  "Task ID"
// @Param        task  body      updateTaskRequest  true  "Changes"
// @Success      200   {object}  services.StatusChange
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	id, ok := parseID(c, "task][update")
	if !ok {
		return
	}
	log.Printf("[task][update] call by userID=%d role=%d id=%d", userID, roleID, id)

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][update][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := services.TaskPatch{
		Title:       req.Title,
		TitleAr:     req.TitleAr,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
	}
	if req.Deadline.Set {
		var deadline *time.Time
		if req.Deadline.Value != nil {
			t, err := parseOptionalTime(*req.Deadline.Value)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deadline (RFC3339)"})
				return
			}
			deadline = t
		}
		patch.Deadline = &deadline
	}
	if req.PrerequisiteTaskID.Set {
		pre := req.PrerequisiteTaskID.Value
		patch.PrerequisiteTaskID = &pre
	}

	out, err := h.service.Patch(c.Request.Context(), id, patch, req.Status)
	if err != nil {
		respondError(c, "task][update", err)
		return
	}
	if req.Status != nil {
		log.Printf("[task][status][ok] id=%d status=%s activated=%v", id, out.Task.Status, out.ActivatedTaskIDs)
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Check whether a task can be deleted
// @Tags         Tasks
// @Produce      json
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  services.DeleteCheck
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id}/can-delete [get]
func (h *TaskHandler) CanDelete(c *gin.Context) {
	id, ok := parseID(c, "task][canDelete")
	if !ok {
		return
	}
	check, err := h.service.CanDelete(c.Request.Context(), id)
	if err != nil {
		respondError(c, "task][canDelete", err)
		return
	}
	c.JSON(http.StatusOK, check)
}

// @Summary      Delete a task
// @Description  Refused while non-cancelled tasks depend on it.
// @Tags         Tasks
// @Produce      json
// @Param        id   path      int  true  "Task ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]interface{}
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	id, ok := parseID(c, "task][delete")
	if !ok {
		return
	}
	log.Printf("[task][delete] call by userID=%d role=%d id=%d", userID, roleID, id)

	err := h.service.Delete(c.Request.Context(), id)
	var refused *services.DeleteRefusedError
	if errors.As(err, &refused) {
		log.Printf("[task][delete][deny] id=%d: %s", id, refused.Check.Reason)
		c.JSON(http.StatusConflict, gin.H{
			"error":             refused.Check.Reason,
			"blocking_task_ids": refused.Check.BlockingTaskIDs,
		})
		return
	}
	if err != nil {
		respondError(c, "task][delete", err)
		return
	}
	log.Printf("[task][delete][ok] id=%d", id)
	c.Status(http.StatusNoContent)
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
