package router

import (
	"net/http"

	"github.com/labelforge/orderdesk/internal/logger"
	"github.com/labelforge/orderdesk/internal/middleware"
	"github.com/labelforge/orderdesk/internal/notification"
	"github.com/labelforge/orderdesk/internal/operator"
	"github.com/labelforge/orderdesk/internal/order"
	"github.com/labelforge/orderdesk/internal/pricing"
	"github.com/labelforge/orderdesk/internal/ratelimit"
	"github.com/labelforge/orderdesk/internal/shipment"
	"github.com/labelforge/orderdesk/internal/token"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	orderH *order.Handler,
	pricingH *pricing.Handler,
	tokenH *token.Handler,
	shipmentH *shipment.Handler,
	notificationH *notification.Handler,
	operatorH *operator.Handler,
	limiter *ratelimit.Limiter,
	jwtSecret []byte,
) chi.Router {
	r := chi.NewRouter()

	r.Use(logger.WithLogging)
	r.Use(chiMiddleware.Recoverer)

	r.Use(middleware.GzipHandler)
	r.Use(middleware.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware(ratelimit.ClassPublic))

		r.Post("/api/orders", orderH.Create)
		r.Post("/api/promo/validate", pricingH.ValidatePromo)
		r.Get("/api/confirmation/{token}", tokenH.ResolveConfirmation)
		r.Get("/api/orders/by-number", tokenH.OrderByNumber)
		r.Post("/api/invoice-token", tokenH.IssueInvoiceToken)
		r.Get("/api/invoice/{token}", tokenH.DownloadInvoice)
	})

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware(ratelimit.ClassLogin))

		r.Post("/api/tracking/verify", tokenH.VerifyTracking)
		r.Post("/api/operator/login", operatorH.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware(ratelimit.ClassPublic))
		r.Use(middleware.OperatorAuth(jwtSecret, operator.Subject))

		r.Post("/api/shipments", shipmentH.CreateShipment)
		r.Get("/api/orders/{id}", orderH.Get)
		r.Get("/api/orders/{id}/shipments", shipmentH.ListByOrder)
		r.Post("/api/notifications/send", notificationH.Send)
		r.Get("/api/orders/{id}/emails", notificationH.ListByOrder)
	})

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware(ratelimit.ClassAdmin))
		r.Use(middleware.OperatorAuth(jwtSecret, operator.Subject))

		r.Patch("/api/orders/{id}", orderH.UpdateStatus)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
