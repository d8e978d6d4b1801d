package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/auth"
)

type TokenHandler interface {
	Refresh(c *gin.Context)
}

type tokenHandler struct {
	issuer *auth.Issuer
}

func NewTokenHandler(issuer *auth.Issuer) TokenHandler {
	return &tokenHandler{issuer: issuer}
}

// Refresh exchanges a valid refresh token for a new access token. This is
// the only route outside the auth middleware.
func (h *tokenHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.InvalidArgument("refreshToken is required"))
		return
	}

	accessToken, err := h.issuer.Refresh(req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}
