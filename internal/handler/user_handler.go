package handler

import (
	"net/http"

	"github.com/HiteshriGautam/Store-Rating-System/internal/middleware"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
	"github.com/HiteshriGautam/Store-Rating-System/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{
		users: users,
	}
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Address  string `json:"address" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Role    *string `json:"role"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// List
// GET /users?search=&name=&email=&address=&role=&sort=&order=
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), middleware.ActorFrom(c), service.UserFilter{
		Search:  c.Query("search"),
		Name:    c.Query("name"),
		Email:   c.Query("email"),
		Address: c.Query("address"),
		Role:    c.Query("role"),
		Sort:    c.Query("sort"),
		Order:   c.Query("order"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
	})
}

// POST /users
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	actor := middleware.ActorFrom(c)
	logger.Log.Info("Admin creating user",
		zap.String("admin_id", actor.ID),
		zap.String("email", req.Email),
		zap.String("role", req.Role),
	)

	user, err := h.users.CreateUser(c.Request.Context(), actor, service.CreateUserInput(req))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": user,
	})
}

// GET /users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}

// PUT /users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), service.UserPatch(req))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}

// DELETE /users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	logger.Log.Info("Admin deleting user",
		zap.String("admin_id", actor.ID),
		zap.String("target_user_id", c.Param("id")),
	)

	if err := h.users.DeleteUser(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted",
	})
}

// PUT /users/:id/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password updated",
	})
}
