package handlers

import (
	"context"
	"net/http"

	"github.com/birlikkoshan/tasksync/internal/ai"
	"github.com/birlikkoshan/tasksync/internal/dto"

	"github.com/gin-gonic/gin"
)

// TaskParser extracts structured task fields from free text.
type TaskParser interface {
	Configured() bool
	Parse(ctx context.Context, text string) (ai.ParsedTask, error)
}

type ParseHandler struct {
	parser TaskParser
}

func NewParseHandler(p TaskParser) *ParseHandler {
	return &ParseHandler{parser: p}
}

// Parse godoc
// @Summary      Suggest task fields from free text
// @Description  Nothing is stored. Answers 503 when no AI key is configured.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        body  body      dto.ParseTaskRequest  true  "Free text"
// @Success      200   {object}  dto.ParseTaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /parse-task [post]
func (h *ParseHandler) Parse(c *gin.Context) {
	if !h.parser.Configured() {
		fail(c, ai.ErrNotConfigured)
		return
	}
	var req dto.ParseTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.parser.Parse(c.Request.Context(), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ParseTaskResponse{
		Text:     p.Text,
		Priority: string(p.Priority),
		DueDate:  p.DueDate,
	})
}
