package routes

import (
	"net/http"

	"bakehouse/globals"
	"bakehouse/middleware"

	"github.com/julienschmidt/httprouter"
)

var staff = middleware.Chain(middleware.Authenticate, middleware.RequireRole(globals.RoleAdmin, globals.RoleShop))
var adminOnly = middleware.Chain(middleware.Authenticate, middleware.RequireRole(globals.RoleAdmin))

func AddStaticRoutes(router *httprouter.Router, s Set) {
	router.ServeFiles("/uploads/*filepath", http.Dir(s.UploadDir))
}

func AddHealthRoutes(router *httprouter.Router, s Set) {
	router.GET("/health", s.Settings.Health)
}

func AddProductRoutes(router *httprouter.Router, s Set) {
	router.GET("/api/products", s.Products.ListProducts)
	router.GET("/api/products/:id", s.Products.GetProduct)
	router.GET("/api/categories", s.Products.ListCategories)

	router.POST("/api/admin/products", adminOnly(s.Products.CreateProduct))
	router.PUT("/api/admin/products/:id", adminOnly(s.Products.UpdateProduct))
	router.DELETE("/api/admin/products/:id", adminOnly(s.Products.DeleteProduct))
	router.POST("/api/admin/products/:id/image", adminOnly(s.Products.UploadImage))
}

func AddReviewsRoutes(router *httprouter.Router, s Set) {
	router.GET("/api/products/:id/reviews", s.Reviews.GetReviews)
	router.POST("/api/products/:id/reviews", middleware.Authenticate(s.Reviews.AddReview))
	router.DELETE("/api/reviews/:reviewId", middleware.Authenticate(s.Reviews.DeleteReview))
}

func AddCartRoutes(router *httprouter.Router, s Set) {
	router.GET("/api/cart", middleware.Authenticate(s.Cart.GetCart))
	router.POST("/api/cart/items", middleware.Authenticate(s.Cart.AddItem))
	router.PUT("/api/cart/items/:productId", middleware.Authenticate(s.Cart.SetQuantity))
	router.DELETE("/api/cart/items/:productId", middleware.Authenticate(s.Cart.RemoveItem))
	router.DELETE("/api/cart", middleware.Authenticate(s.Cart.ClearCart))
	router.POST("/api/cart/checkout", middleware.Chain(
		s.Limiter.Limit,
		middleware.Authenticate,
		s.Idempotency.Middleware,
	)(s.Cart.Checkout))
}

func AddOrderRoutes(router *httprouter.Router, s Set) {
	router.POST("/api/orders", middleware.Chain(
		s.Limiter.Limit,
		middleware.Authenticate,
		s.Idempotency.Middleware,
	)(s.Orders.CreateOrder))
	router.GET("/api/orders", middleware.Authenticate(s.Orders.GetMyOrders))
	router.GET("/api/orders/:id", middleware.Authenticate(s.Orders.GetOrder))
	router.GET("/api/orders/:id/receipt", middleware.Authenticate(s.Receipt.Receipt))
	router.POST("/api/orders/:id/cancel", middleware.Authenticate(s.Orders.Cancel))
	router.POST("/api/orders/:id/payment/verify", middleware.Authenticate(s.Orders.VerifyPayment))

	router.PUT("/api/orders/:id/status", staff(s.Orders.UpdateStatus))
	router.POST("/api/orders/:id/delivery", staff(s.Orders.UpdateDelivery))
	router.GET("/api/shops/:shopId/orders", staff(s.Orders.GetShopOrders))

	router.GET("/api/live/orders", middleware.Authenticate(s.Orders.LiveOrders))
	router.GET("/api/live/shops/:shopId/orders", staff(s.Orders.LiveShopOrders))
}

func AddTrackingRoutes(router *httprouter.Router, s Set) {
	router.GET("/api/track", middleware.Chain(s.Limiter.Limit, middleware.OptionalAuth)(s.Tracking.Track))
}

func AddSettingsRoutes(router *httprouter.Router, s Set) {
	router.GET("/api/settings", s.Settings.GetSettings)
	router.PUT("/api/admin/settings", adminOnly(s.Settings.UpdateSettings))
}

func AddAdminRoutes(router *httprouter.Router, s Set) {
	router.GET("/api/admin/audit", adminOnly(s.Admin.Audit))
	router.GET("/api/admin/debug/orders/:userId", adminOnly(s.Admin.DebugOrders))
}
