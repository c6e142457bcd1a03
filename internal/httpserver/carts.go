package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"merchantry/internal/domain"
	"merchantry/internal/events"
)

type cartLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type replaceCartRequest struct {
	Products []cartLineRequest `json:"products"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func createCartHandler(carts cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := carts.Create(c.Request.Context())
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondSuccess(c, http.StatusCreated, cart)
	}
}

func getCartHandler(carts cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, lines, err := carts.GetDetailed(c.Request.Context(), c.Param("cid"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{
			"id":        cart.ID,
			"createdAt": cart.CreatedAt,
			"products":  lines,
		})
	}
}

func replaceCartHandler(carts cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in replaceCartRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		lines := make([]domain.CartLine, 0, len(in.Products))
		for _, p := range in.Products {
			lines = append(lines, domain.CartLine{ProductID: p.ProductID, Quantity: p.Quantity})
		}
		cart, err := carts.ReplaceLines(c.Request.Context(), c.Param("cid"), lines)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, cart)
	}
}

func clearCartHandler(carts cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := carts.Clear(c.Request.Context(), c.Param("cid")); err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "all products removed from cart"})
	}
}

func addCartProductHandler(carts cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		in := quantityRequest{Quantity: 1}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&in); err != nil {
				respondError(c, http.StatusBadRequest, "invalid request body")
				return
			}
		}
		cart, err := carts.AddProduct(c.Request.Context(), c.Param("cid"), c.Param("pid"), in.Quantity)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, cart)
	}
}

func setCartProductHandler(carts cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in quantityRequest
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		cart, err := carts.SetProductQuantity(c.Request.Context(), c.Param("cid"), c.Param("pid"), in.Quantity)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, cart)
	}
}

func removeCartProductHandler(carts cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := carts.RemoveProduct(c.Request.Context(), c.Param("cid"), c.Param("pid")); err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "product removed from cart"})
	}
}

// purchaseHandler runs the checkout for the authenticated user and publishes
// the resulting events. Per-line failures ride inside the 200 response; only
// a missing cart or a storage failure produce an error status.
func purchaseHandler(checkouts checkoutService, producer *events.Producer, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			respondError(c, http.StatusUnauthorized, "no user logged in")
			return
		}
		cartID := c.Param("cid")
		result, err := checkouts.Checkout(c.Request.Context(), cartID, u.Email)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		items := make([]events.PurchasedItem, 0, len(result.Purchased))
		for _, p := range result.Purchased {
			items = append(items, events.PurchasedItem{
				ProductID:      p.ProductID,
				Quantity:       p.Quantity,
				UnitPriceCents: p.UnitPriceCents,
			})
		}
		producer.Publish(c.Request.Context(), events.PartitionKey(cartID), events.EventTicketIssued, events.TicketIssuedPayload{
			CartID:      cartID,
			TicketCode:  result.Ticket.Code,
			Purchaser:   result.Ticket.Purchaser,
			AmountCents: result.Ticket.AmountCents,
			Items:       items,
		})
		if len(result.FailedProductIDs) > 0 {
			producer.Publish(c.Request.Context(), events.PartitionKey(cartID), events.EventStockRejected, events.StockRejectedPayload{
				CartID:     cartID,
				Purchaser:  result.Ticket.Purchaser,
				ProductIDs: result.FailedProductIDs,
			})
		}
		logger.Printf("purchase: cart_id=%s ticket=%s failed=%d", cartID, result.Ticket.Code, len(result.FailedProductIDs))

		respondSuccess(c, http.StatusOK, result)
	}
}
