package httpserver

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"merchantry/internal/domain"
	productsvc "merchantry/internal/service/product"
)

func listProductsHandler(products productService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				respondError(c, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = parsed
		}
		list, err := products.List(c.Request.Context(), limit)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if list == nil {
			list = []domain.Product{}
		}
		c.JSON(http.StatusOK, list)
	}
}

func getProductHandler(products productService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := products.Get(c.Request.Context(), c.Param("pid"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func createProductHandler(products productService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in productsvc.CreateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		p, err := products.Create(c.Request.Context(), in)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func updateProductHandler(products productService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in productsvc.UpdateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		p, err := products.Update(c.Request.Context(), c.Param("pid"), in)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func deleteProductHandler(products productService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := products.Delete(c.Request.Context(), c.Param("pid")); err != nil {
			respondServiceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// productFeedHandler streams the catalog over SSE. On connect the client gets
// the current list, then a fresh list after every product-changed
// notification.
func productFeedHandler(products productService, sub feedSubscriber, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sub == nil {
			respondError(c, http.StatusServiceUnavailable, "feed not configured")
			return
		}
		ctx := c.Request.Context()
		changes := sub.Subscribe(ctx)

		send := func() bool {
			list, err := products.List(ctx, 0)
			if err != nil {
				logger.Printf("feed: list products error=%v", err)
				return false
			}
			c.SSEvent("products", list)
			return true
		}

		c.Writer.Header().Set("Cache-Control", "no-cache")
		if !send() {
			return
		}
		c.Writer.Flush()

		c.Stream(func(_ io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case _, ok := <-changes:
				if !ok {
					return false
				}
				return send()
			}
		})
	}
}
