package routes

import (
	"bakehouse/admin"
	"bakehouse/cart"
	"bakehouse/orders"
	"bakehouse/pay"
	"bakehouse/products"
	"bakehouse/ratelim"
	"bakehouse/receipt"
	"bakehouse/reviews"
	"bakehouse/settings"
	"bakehouse/tracking"

	"github.com/julienschmidt/httprouter"
)

// Set holds every handler group the router serves.
type Set struct {
	Orders      *orders.Handlers
	Tracking    *tracking.Handlers
	Reviews     *reviews.Handlers
	Products    *products.Handlers
	Cart        *cart.Handlers
	Receipt     *receipt.Handlers
	Settings    *settings.Handlers
	Admin       *admin.Handlers
	Idempotency *pay.Idempotency
	Limiter     *ratelim.RateLimiter
	UploadDir   string
}

func RoutesWrapper(router *httprouter.Router, s Set) {
	AddHealthRoutes(router, s)
	AddStaticRoutes(router, s)
	AddProductRoutes(router, s)
	AddReviewsRoutes(router, s)
	AddCartRoutes(router, s)
	AddOrderRoutes(router, s)
	AddTrackingRoutes(router, s)
	AddSettingsRoutes(router, s)
	AddAdminRoutes(router, s)
}
