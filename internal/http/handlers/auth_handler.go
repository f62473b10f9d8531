package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samilink/backend/internal/http/handlers/common"
	"github.com/samilink/backend/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Phone    string `json:"phone" binding:"required"`
		Name     string `json:"name"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "телефон и пароль обязательны")
		return
	}

	res, err := h.auth.Register(c.Request.Context(), req.Phone, req.Name, req.Password, req.Role)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// Login POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Phone    string `json:"phone" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "телефон и пароль обязательны")
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Me GET /profile
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := common.CurrentUser(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, user)
}
