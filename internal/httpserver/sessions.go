package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	usersvc "merchantry/internal/service/user"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func registerHandler(users userService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in usersvc.RegisterInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		u, err := users.Register(c.Request.Context(), in)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

func loginHandler(users userService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in loginRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, http.StatusBadRequest, "email and password required")
			return
		}
		u, access, refresh, err := users.Login(c.Request.Context(), in.Email, in.Password)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user":          u,
			"access_token":  access,
			"refresh_token": refresh,
			"token_type":    "Bearer",
			"expires_in":    users.AccessTTLSeconds(),
		})
	}
}

func currentUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			respondError(c, http.StatusUnauthorized, "no user logged in")
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

func listUsersHandler(users userService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := users.List(c.Request.Context())
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
