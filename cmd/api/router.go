package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/auth"
	"github.com/noah-isme/backend-mithai/internal/cart"
	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/enquiry"
	"github.com/noah-isme/backend-mithai/internal/health"
	"github.com/noah-isme/backend-mithai/internal/media"
	"github.com/noah-isme/backend-mithai/internal/obs"
	"github.com/noah-isme/backend-mithai/internal/order"
	"github.com/noah-isme/backend-mithai/internal/payment"
	"github.com/noah-isme/backend-mithai/internal/ratelimit"
	"github.com/noah-isme/backend-mithai/internal/realtime"
	"github.com/noah-isme/backend-mithai/internal/sawamani"
	"github.com/noah-isme/backend-mithai/internal/security"
)

// routes carries everything the HTTP surface needs.
type routes struct {
	Logger      zerolog.Logger
	Auth        auth.Middleware
	Idem        common.Idem
	Limits      ratelimit.Backend
	LimitWindow time.Duration
	LimitMax    int
	CORSOrigins []string
	RealIP      security.RealIP
	Headers     security.Headers
	BodyLimit   security.BodyLimit
	HTTPMetrics *obs.HTTPMetrics
	Tracing     bool
	Pprof       http.Handler
	Health      health.Handler
	Catalog     *catalog.Handler
	Cart        *cart.Handler
	Orders      *order.Handler
	OrdersAdmin *order.AdminHandler
	Payments    *payment.Handler
	Enquiries   *enquiry.Handler
	Sawamani    *sawamani.Handler
	Media       *media.Handler
	Live        *realtime.Hub
}

func newRouter(d routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(d.RealIP.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.CORS(d.CORSOrigins))
	r.Use(d.Headers.Middleware)

	if d.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if d.Pprof != nil {
		r.Mount("/debug/pprof", d.Pprof)
	}
	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)

	publicLimit := func(scope string) func(http.Handler) http.Handler {
		return ratelimit.Handler{
			Backend: d.Limits,
			Scope:   scope,
			Window:  d.LimitWindow,
			Max:     d.LimitMax,
			Logger:  d.Logger,
		}.Middleware
	}

	r.Route("/api/v1", func(v chi.Router) {
		// The live feed is mounted outside the body limit so the hijacked
		// connection is left alone.
		v.With(d.Auth.RequireAdmin).Get("/admin/orders/live", d.Live.ServeHTTP)

		v.Group(func(api chi.Router) {
			api.Use(d.BodyLimit.Middleware)

			api.Get("/catalog", d.Catalog.List)
			api.Get("/catalog/{idOrSlug}", d.Catalog.Detail)
			api.Get("/products", d.Catalog.ListKind(catalog.KindProduct))
			api.Get("/namkeens", d.Catalog.ListKind(catalog.KindNamkeen))
			api.Get("/boxes", d.Catalog.ListKind(catalog.KindBox))

			api.With(publicLimit("enquiry")).Post("/enquiries", d.Enquiries.Create)

			api.Route("/sawamani", func(s chi.Router) {
				s.Get("/packings", d.Sawamani.Packings)
				s.Post("/preview", d.Sawamani.Preview)
				s.With(publicLimit("sawamani")).Post("/", d.Sawamani.Create)
			})

			api.Group(func(authR chi.Router) {
				authR.Use(d.Auth.RequireAuth)

				authR.Route("/cart", func(c chi.Router) {
					c.Get("/", d.Cart.Get)
					c.Delete("/", d.Cart.Clear)
					c.Post("/items", d.Cart.AddItem)
					c.Patch("/items/{productId}", d.Cart.UpdateItem)
					c.Delete("/items/{productId}", d.Cart.RemoveItem)
				})

				authR.With(d.Idem.Middleware).Post("/checkout", d.Orders.Checkout)

				authR.Get("/orders", d.Orders.List)
				authR.Get("/orders/{id}", d.Orders.Get)
				authR.Post("/orders/{id}/cancel", d.Orders.Cancel)
				authR.Get("/orders/{id}/upi", d.Payments.UPI)
				authR.Get("/orders/{id}/upi.png", d.Payments.QRCode)
			})

			api.Group(func(admin chi.Router) {
				admin.Use(d.Auth.RequireAdmin)

				admin.Get("/admin/catalog", d.Catalog.AdminList)
				admin.Post("/admin/catalog", d.Catalog.Create)
				admin.Get("/admin/catalog/export.xlsx", d.Catalog.Export)
				admin.Get("/admin/catalog/{id}", d.Catalog.AdminGet)
				admin.Put("/admin/catalog/{id}", d.Catalog.Update)
				admin.Delete("/admin/catalog/{id}", d.Catalog.Delete)

				admin.Get("/admin/orders", d.OrdersAdmin.List)
				admin.Get("/admin/orders/export.xlsx", d.OrdersAdmin.Export)
				admin.Get("/admin/orders/{id}", d.OrdersAdmin.Get)
				admin.Patch("/admin/orders/{id}/status", d.OrdersAdmin.PatchStatus)

				admin.Get("/admin/enquiries", d.Enquiries.List)
				admin.Get("/admin/enquiries/{id}", d.Enquiries.Get)
				admin.Patch("/admin/enquiries/{id}", d.Enquiries.Update)
				admin.Delete("/admin/enquiries/{id}", d.Enquiries.Delete)

				admin.Get("/admin/sawamani", d.Sawamani.List)
				admin.Get("/admin/sawamani/{id}", d.Sawamani.Get)
				admin.Patch("/admin/sawamani/{id}", d.Sawamani.Update)
				admin.Delete("/admin/sawamani/{id}", d.Sawamani.Delete)
			})
		})

		// Uploads carry their own size cap in the media handler.
		v.With(d.Auth.RequireAdmin).Post("/admin/media", d.Media.Upload)
	})

	return r
}
