package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/nuobot/config"
	"github.com/cppla/nuobot/utils"
)

const tokenValidity = 72 * time.Hour

// AuthController issues tokens for the management API. There is a single
// operator identity configured at boot; no user registration.
type AuthController struct{}

// NewAuthController creates a new controller instance.
func NewAuthController() *AuthController {
	return &AuthController{}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login validates the operator credential and returns a bearer token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "username and password are required")
		return
	}

	cfg := config.Get()
	if cfg.AdminPasswordHash == "" {
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "management API is not configured")
		return
	}
	if req.Username != cfg.AdminUsername || !utils.CheckPassword(cfg.AdminPasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40100, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(req.Username, tokenValidity)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_in": int(tokenValidity.Seconds()),
	})
}
