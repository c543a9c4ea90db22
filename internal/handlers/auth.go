package handlers

import (
	"net/http"

	"github.com/birlikkoshan/tasksync/internal/dto"
	"github.com/birlikkoshan/tasksync/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles register, login and account deletion.
type AuthHandler struct {
	userSvc *service.UserService
}

// NewAuthHandler returns a new AuthHandler.
func NewAuthHandler(userSvc *service.UserService) *AuthHandler {
	return &AuthHandler{userSvc: userSvc}
}

// Login godoc
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "Credentials"
// @Success      200   {object}  dto.LoginResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := h.userSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     sess.Token,
		Username:  sess.User.Username,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Register godoc
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterRequest  true  "Credentials"
// @Success      201   {object}  dto.UserResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.userSvc.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.UserResponse{ID: user.ID, Username: user.Username})
}

// DeleteAccount godoc
// @Summary      Delete the caller's account with all lists and tasks
// @Tags         auth
// @Produce      json
// @Security     TokenAuth
// @Success      200  {object}  dto.MessageResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /account [delete]
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	if err := h.userSvc.DeleteAccount(c.Request.Context(), identity(c).UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Account deleted!"})
}
