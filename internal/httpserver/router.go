package httpserver

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"merchantry/internal/domain"
	"merchantry/internal/events"
	cartsvc "merchantry/internal/service/cart"
	checkoutsvc "merchantry/internal/service/checkout"
	productsvc "merchantry/internal/service/product"
	usersvc "merchantry/internal/service/user"
)

type productService interface {
	List(ctx context.Context, limit int) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in productsvc.UpdateInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type cartService interface {
	Create(ctx context.Context) (*domain.Cart, error)
	Get(ctx context.Context, id string) (*domain.Cart, error)
	GetDetailed(ctx context.Context, id string) (*domain.Cart, []cartsvc.DetailedLine, error)
	AddProduct(ctx context.Context, cartID, productID string, quantity int) (*domain.Cart, error)
	SetProductQuantity(ctx context.Context, cartID, productID string, quantity int) (*domain.Cart, error)
	RemoveProduct(ctx context.Context, cartID, productID string) error
	ReplaceLines(ctx context.Context, cartID string, lines []domain.CartLine) (*domain.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

type checkoutService interface {
	Checkout(ctx context.Context, cartID, purchaser string) (*checkoutsvc.Result, error)
}

type userService interface {
	Register(ctx context.Context, in usersvc.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	AccessTTLSeconds() int
}

type ticketStore interface {
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	ListByPurchaser(ctx context.Context, purchaser string) ([]domain.Ticket, error)
}

type feedSubscriber interface {
	Subscribe(ctx context.Context) <-chan string
}

// Deps carries the services the router depends on. Feed and Events are
// optional; the corresponding endpoints degrade when absent.
type Deps struct {
	ProductSvc  productService
	CartSvc     cartService
	CheckoutSvc checkoutService
	UserSvc     userService
	Tickets     ticketStore
	Feed        feedSubscriber
	Events      *events.Producer
}

const currentUserKey = "currentUser"

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	auth := authMiddleware(deps.UserSvc)

	api := router.Group("/api")
	{
		products := api.Group("/products")
		products.GET("", listProductsHandler(deps.ProductSvc))
		products.GET("/feed", productFeedHandler(deps.ProductSvc, deps.Feed, logger))
		products.GET("/:pid", getProductHandler(deps.ProductSvc))
		products.POST("", auth, requireRole(domain.RoleAdmin), createProductHandler(deps.ProductSvc))
		products.PUT("/:pid", auth, requireRole(domain.RoleAdmin), updateProductHandler(deps.ProductSvc))
		products.DELETE("/:pid", auth, requireRole(domain.RoleAdmin), deleteProductHandler(deps.ProductSvc))

		carts := api.Group("/carts")
		carts.POST("", createCartHandler(deps.CartSvc))
		carts.GET("/:cid", getCartHandler(deps.CartSvc))
		carts.PUT("/:cid", replaceCartHandler(deps.CartSvc))
		carts.DELETE("/:cid", clearCartHandler(deps.CartSvc))
		carts.POST("/:cid/products/:pid", addCartProductHandler(deps.CartSvc))
		carts.PUT("/:cid/products/:pid", setCartProductHandler(deps.CartSvc))
		carts.DELETE("/:cid/products/:pid", removeCartProductHandler(deps.CartSvc))
		carts.POST("/:cid/purchase", auth, purchaseHandler(deps.CheckoutSvc, deps.Events, logger))

		sessions := api.Group("/sessions")
		sessions.POST("/register", registerHandler(deps.UserSvc))
		sessions.POST("/login", loginHandler(deps.UserSvc))
		sessions.GET("/current", auth, currentUserHandler())
		sessions.GET("/users", auth, requireRole(domain.RoleAdmin), listUsersHandler(deps.UserSvc))

		tickets := api.Group("/tickets", auth)
		tickets.GET("", listTicketsHandler(deps.Tickets))
		tickets.GET("/:code", getTicketHandler(deps.Tickets))
	}

	return router, nil
}

// authMiddleware resolves the bearer token to a user and stores it in the
// request context. Missing or invalid tokens end the request with 401.
func authMiddleware(users userService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" || token == header {
			respondError(c, http.StatusUnauthorized, "no token provided")
			c.Abort()
			return
		}
		u, err := users.LookupByToken(c.Request.Context(), token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(currentUserKey, u)
		c.Next()
	}
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil || u.Role != role {
			respondError(c, http.StatusForbidden, "forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}
