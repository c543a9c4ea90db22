package handlers

import (
	"net/http"

	dom "github.com/birlikkoshan/tasksync/internal/domain"
	"github.com/birlikkoshan/tasksync/internal/dto"
	"github.com/birlikkoshan/tasksync/internal/service"

	"github.com/gin-gonic/gin"
)

type ListHandler struct {
	svc *service.ListService
}

func NewListHandler(svc *service.ListService) *ListHandler {
	return &ListHandler{svc: svc}
}

// List godoc
// @Summary      List the caller's lists
// @Tags         lists
// @Produce      json
// @Security     TokenAuth
// @Success      200  {array}   dto.ListResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /lists [get]
func (h *ListHandler) List(c *gin.Context) {
	lists, err := h.svc.List(c.Request.Context(), identity(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]dto.ListResponse, len(lists))
	for i := range lists {
		out[i] = listToResponse(lists[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create godoc
// @Summary      Create a list
// @Tags         lists
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        body  body      dto.CreateListRequest  true  "List body"
// @Success      201   {object}  dto.ListResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /lists [post]
func (h *ListHandler) Create(c *gin.Context) {
	var req dto.CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	l, err := h.svc.Create(c.Request.Context(), identity(c).UserID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, listToResponse(l))
}

// Delete godoc
// @Summary      Delete a list and its tasks
// @Tags         lists
// @Produce      json
// @Security     TokenAuth
// @Param        id   path      int  true  "List ID"
// @Success      200  {object}  dto.MessageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /lists/{id} [delete]
func (h *ListHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), identity(c).UserID, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "List deleted!"})
}

func listToResponse(l dom.List) dto.ListResponse {
	return dto.ListResponse{ID: l.ID, Name: l.Name}
}
