// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/keyforge/storefront/internal/interfaces/http/handlers"
	"github.com/keyforge/storefront/internal/interfaces/http/middleware"
	"github.com/keyforge/storefront/internal/pkg/auth"
)

// Handlers groups every HTTP handler mounted under the API
type Handlers struct {
	Auth         *handlers.AuthHandler
	Profile      *handlers.UserProfileHandler
	Product      *handlers.ProductHandler
	Cart         *handlers.CartHandler
	Order        *handlers.OrderHandler
	Dashboard    *handlers.DashboardHandler
	Invoice      *handlers.InvoiceHandler
	Campaign     *handlers.CampaignHandler
	Notification *handlers.NotificationAdminHandler
	UserAdmin    *handlers.UserAdminHandler
	Analytics    *handlers.AnalyticsHandler
}

// SetupRoutes mounts every route group
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	SetupAuthRoutes(rg, h, jwtManager)
	SetupProductRoutes(rg, h)
	SetupCartRoutes(rg, h)
	SetupAccountRoutes(rg, h, jwtManager)
	SetupAdminRoutes(rg, h, jwtManager)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)

		protected := authGroup.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager))
		{
			protected.POST("/logout", h.Auth.Logout)
			protected.GET("/validate", h.Auth.ValidateToken)
			protected.GET("/profile", h.Profile.GetProfile)
			protected.PUT("/profile", h.Profile.UpdateProfile)
			protected.PUT("/password", h.Profile.ChangePassword)
		}
	}
}

// SetupProductRoutes sets up the public catalog
func SetupProductRoutes(rg *gin.RouterGroup, h *Handlers) {
	products := rg.Group("/products")
	{
		products.GET("", h.Product.GetProducts)
		products.GET("/:id", h.Product.GetProduct)
		products.GET("/slug/:slug", h.Product.GetProductBySlug)
	}

	rg.GET("/categories", h.Product.GetCategories)
}

// SetupCartRoutes sets up the session cart. Carts belong to the browser
// session, not the account, so no auth is required.
func SetupCartRoutes(rg *gin.RouterGroup, h *Handlers) {
	cartGroup := rg.Group("/cart")
	{
		cartGroup.GET("", h.Cart.GetCart)
		cartGroup.GET("/count", h.Cart.GetCartCount)
		cartGroup.GET("/events", h.Cart.Events)
		cartGroup.POST("/items", h.Cart.AddToCart)
		cartGroup.PUT("/items/:id", h.Cart.UpdateCartItem)
		cartGroup.DELETE("/items/:id", h.Cart.RemoveFromCart)
		cartGroup.DELETE("", h.Cart.ClearCart)
	}
}

// SetupAccountRoutes sets up checkout and the customer dashboard
func SetupAccountRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	account := rg.Group("")
	account.Use(middleware.AuthMiddleware(jwtManager))
	{
		account.POST("/checkout", h.Order.Checkout)

		account.GET("/orders", h.Order.GetOrders)
		account.GET("/orders/:id", h.Order.GetOrder)
		account.GET("/license-keys", h.Order.GetLicenseKeys)

		account.GET("/invoices", h.Invoice.GetInvoices)
		account.GET("/invoices/:id/download", h.Invoice.DownloadInvoice)

		account.GET("/dashboard", h.Dashboard.GetDashboard)
		account.GET("/notifications", h.Dashboard.GetNotifications)
		account.POST("/notifications/read-all", h.Dashboard.MarkAllNotificationsRead)
		account.POST("/notifications/:id/read", h.Dashboard.MarkNotificationRead)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager))
	admin.Use(middleware.AdminMiddleware())
	{
		products := admin.Group("/products")
		{
			products.GET("", h.Product.AdminGetProducts)
			products.GET("/:id", h.Product.AdminGetProduct)
			products.POST("", h.Product.AdminCreateProduct)
			products.PUT("/:id", h.Product.AdminUpdateProduct)
			products.DELETE("/:id", h.Product.AdminDeleteProduct)
		}

		campaigns := admin.Group("/campaigns")
		{
			campaigns.GET("", h.Campaign.AdminGetCampaigns)
			campaigns.GET("/:id", h.Campaign.AdminGetCampaign)
			campaigns.POST("", h.Campaign.AdminCreateCampaign)
			campaigns.PUT("/:id", h.Campaign.AdminUpdateCampaign)
			campaigns.PATCH("/:id/toggle", h.Campaign.AdminToggleCampaign)
			campaigns.DELETE("/:id", h.Campaign.AdminDeleteCampaign)
		}

		orders := admin.Group("/orders")
		{
			orders.GET("", h.Order.AdminGetOrders)
			orders.GET("/:id", h.Order.AdminGetOrder)
			orders.PUT("/:id/status", h.Order.AdminUpdateOrderStatus)
			orders.POST("/:id/invoice", h.Invoice.AdminGenerateInvoice)
		}

		invoices := admin.Group("/invoices")
		{
			invoices.GET("", h.Invoice.AdminGetInvoices)
			invoices.GET("/:id/download", h.Invoice.AdminDownloadInvoice)
		}

		notifications := admin.Group("/notifications")
		{
			notifications.GET("", h.Notification.GetNotifications)
			notifications.POST("", h.Notification.SendNotification)
			notifications.DELETE("/:id", h.Notification.DeleteNotification)
		}

		users := admin.Group("/users")
		{
			users.GET("", h.UserAdmin.GetUsers)
			users.PUT("/:id/status", h.UserAdmin.UpdateUserStatus)
		}

		analytics := admin.Group("/analytics")
		{
			analytics.GET("/dashboard", h.Analytics.GetDashboard)
			analytics.GET("/sales", h.Analytics.GetSales)
		}
	}
}
