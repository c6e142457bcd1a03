package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"merchantry/internal/domain"
)

func listTicketsHandler(tickets ticketStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			respondError(c, http.StatusUnauthorized, "no user logged in")
			return
		}
		list, err := tickets.ListByPurchaser(c.Request.Context(), u.Email)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if list == nil {
			list = []domain.Ticket{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// getTicketHandler returns a ticket by code. Non-admins only see their own.
func getTicketHandler(tickets ticketStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			respondError(c, http.StatusUnauthorized, "no user logged in")
			return
		}
		t, err := tickets.GetByCode(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if u.Role != domain.RoleAdmin && t.Purchaser != u.Email {
			respondError(c, http.StatusNotFound, "not found")
			return
		}
		c.JSON(http.StatusOK, t)
	}
}
