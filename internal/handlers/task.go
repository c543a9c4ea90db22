package handlers

import (
	"net/http"

	dom "github.com/birlikkoshan/tasksync/internal/domain"
	"github.com/birlikkoshan/tasksync/internal/dto"
	"github.com/birlikkoshan/tasksync/internal/service"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// List godoc
// @Summary      List tasks of a list in display order
// @Tags         tasks
// @Produce      json
// @Security     TokenAuth
// @Param        id   path      int  true  "List ID"
// @Success      200  {array}   dto.TaskResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /lists/{id}/tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	listID, ok := parseID(c, "id")
	if !ok {
		return
	}
	tasks, err := h.svc.List(c.Request.Context(), identity(c).UserID, listID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksToResponses(tasks))
}

// Create godoc
// @Summary      Add a task to a list
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        id    path      int                    true  "List ID"
// @Param        body  body      dto.CreateTaskRequest  true  "Task body"
// @Success      201   {object}  dto.TaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /lists/{id}/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	listID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.svc.Create(c.Request.Context(), identity(c).UserID, listID, service.NewTask{
		Text:     req.Text,
		Priority: req.Priority,
		DueDate:  req.DueDate,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, taskToResponse(t))
}

// Update godoc
// @Summary      Update a task
// @Description  Partial update. "due_date": null clears the due date; an unknown priority is ignored.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        id    path      int                    true  "Task ID"
// @Param        body  body      dto.UpdateTaskRequest  true  "Partial update"
// @Success      200   {object}  dto.TaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.svc.Update(c.Request.Context(), identity(c).UserID, id, service.TaskChanges{
		Text:       req.Text,
		Completed:  req.Completed,
		Priority:   req.Priority,
		DueDate:    req.DueDate.Value,
		SetDueDate: req.DueDate.Set,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(t))
}

// Delete godoc
// @Summary      Delete a task
// @Tags         tasks
// @Produce      json
// @Security     TokenAuth
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  dto.MessageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), identity(c).UserID, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Task deleted!"})
}

// Reorder godoc
// @Summary      Reorder the tasks of a list
// @Description  Each task gets its index in task_ids as position. Ids of other lists are ignored and omitted tasks keep their position.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        body  body      dto.ReorderRequest  true  "New order"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /tasks/reorder [put]
func (h *TaskHandler) Reorder(c *gin.Context) {
	var req dto.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.Reorder(c.Request.Context(), identity(c).UserID, req.ListID, req.TaskIDs); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Tasks reordered!"})
}

func taskToResponse(t dom.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:        t.ID,
		ListID:    t.ListID,
		Text:      t.Text,
		Completed: t.Completed,
		Priority:  string(t.Priority),
		DueDate:   t.DueDate,
		Position:  t.Position,
	}
}

func tasksToResponses(list []dom.Task) []dto.TaskResponse {
	out := make([]dto.TaskResponse, len(list))
	for i := range list {
		out[i] = taskToResponse(list[i])
	}
	return out
}
