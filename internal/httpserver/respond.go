package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"merchantry/internal/domain"
	usersvc "merchantry/internal/service/user"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"status": "error", "message": message})
}

func respondSuccess(c *gin.Context, status int, payload any) {
	c.JSON(status, gin.H{"status": "success", "payload": payload})
}

// respondServiceError maps domain sentinels onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, usersvc.ErrInvalidCredentials), errors.Is(err, usersvc.ErrInvalidToken):
		respondError(c, http.StatusUnauthorized, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}
