package handlers

import (
	"time"

	"mechanical_shop/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit configures the limiter applied to the auth and chat groups.
// A nil Checker disables limiting.
type RateLimit struct {
	Checker  ratelimit.Checker
	Requests int
	Window   time.Duration
}

type Router struct {
	Tokens      TokenValidator
	FrontendURL string
	RateLimit   RateLimit

	Health      *HealthHandler
	Auth        *AuthHandler
	Products    *ProductHandler
	Cart        *CartHandler
	SessionCart *SessionCartHandler
	Orders      *OrderHandler
	Addresses   *AddressHandler
	Payments    *PaymentHandler
	Chat        *ChatHandler
}

func (r *Router) limit(scope string, keyFn ratelimit.KeyFunc) gin.HandlerFunc {
	if r.RateLimit.Checker == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return ratelimit.Middleware(r.RateLimit.Checker, scope, r.RateLimit.Requests, r.RateLimit.Window, keyFn)
}

// Engine builds the gin engine with every route registered.
func (r *Router) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(), CORS(r.FrontendURL))

	requireAuth := RequireAuth(r.Tokens)

	engine.GET("/health", r.Health.Health)

	api := engine.Group("/api")

	authGroup := api.Group("/auth", r.limit("auth", ratelimit.ByClientIP))
	{
		authGroup.POST("/register", r.Auth.Register)
		authGroup.POST("/login", r.Auth.Login)
		authGroup.POST("/refresh", r.Auth.Refresh)
		authGroup.POST("/google-mobile", r.Auth.GoogleMobile)
		authGroup.GET("/google", r.Auth.GoogleRedirect)
		authGroup.GET("/google/callback", r.Auth.GoogleCallback)
		authGroup.GET("/me", requireAuth, r.Auth.Me)
	}

	products := api.Group("/products")
	{
		products.GET("", r.Products.List)
		products.GET("/categories/all", r.Products.Categories)
		products.GET("/:id", r.Products.Get)
	}

	cart := api.Group("/cart")
	{
		session := cart.Group("/session/:deviceId", OptionalAuth(r.Tokens))
		session.GET("", r.SessionCart.Get)
		session.DELETE("", r.SessionCart.Clear)
		session.POST("/items", r.SessionCart.Add)
		session.PUT("/items/:productId", r.SessionCart.Update)
		session.DELETE("/items/:productId", r.SessionCart.Remove)
		session.POST("/switch", r.SessionCart.Switch)

		cart.GET("", requireAuth, r.Cart.Get)
		cart.POST("", requireAuth, r.Cart.Add)
		cart.DELETE("", requireAuth, r.Cart.Clear)
		cart.PUT("/:itemId", requireAuth, r.Cart.Update)
		cart.DELETE("/:itemId", requireAuth, r.Cart.Remove)
	}

	orders := api.Group("/orders", requireAuth)
	{
		orders.POST("", r.Orders.Create)
		orders.GET("", r.Orders.List)
		orders.GET("/:id", r.Orders.Get)
		orders.PUT("/:id/cancel", r.Orders.Cancel)
		orders.POST("/:id/payment-proof", r.Orders.UploadPaymentProof)
	}

	admin := api.Group("/admin", requireAuth, RequireAdmin())
	{
		admin.PUT("/orders/:id/status", r.Orders.UpdateStatus)
	}

	addresses := api.Group("/addresses", requireAuth)
	{
		addresses.GET("", r.Addresses.List)
		addresses.POST("", r.Addresses.Create)
		addresses.PUT("/:id", r.Addresses.Update)
		addresses.DELETE("/:id", r.Addresses.Delete)
		addresses.PUT("/:id/default", r.Addresses.SetDefault)
	}

	payment := api.Group("/payment/sepay")
	{
		payment.POST("/webhook", r.Payments.Webhook)
		payment.POST("/create", requireAuth, r.Payments.Create)
		payment.GET("/status/:orderId", requireAuth, r.Payments.Status)
	}

	chat := api.Group("/chat", requireAuth, r.limit("chat", ratelimit.ByUserOrIP))
	{
		chat.POST("/message", r.Chat.SendMessage)
		chat.GET("/history", r.Chat.History)
	}

	return engine
}
