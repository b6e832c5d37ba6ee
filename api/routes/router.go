package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marcaromas/marcaromas-backend/api/controllers"
	webhookcontrollers "github.com/marcaromas/marcaromas-backend/api/controllers/webhooks"
	"github.com/marcaromas/marcaromas-backend/api/middleware"
	"github.com/marcaromas/marcaromas-backend/internal/auth"
	"github.com/marcaromas/marcaromas-backend/internal/catalog"
	checkoutsvc "github.com/marcaromas/marcaromas-backend/internal/checkout"
	"github.com/marcaromas/marcaromas-backend/internal/notifications"
	"github.com/marcaromas/marcaromas-backend/internal/orders"
	"github.com/marcaromas/marcaromas-backend/internal/reconciler"
	"github.com/marcaromas/marcaromas-backend/internal/reporting"
	subscriptionsvc "github.com/marcaromas/marcaromas-backend/internal/subscriptions"
	"github.com/marcaromas/marcaromas-backend/pkg/auth/session"
	"github.com/marcaromas/marcaromas-backend/pkg/config"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Redis         *redis.Client
	Session       sessionManager
	Readiness     map[string]controllers.Pinger
	AuthService   auth.Service
	Register      auth.RegisterService
	Catalog       catalog.Repository
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Subscriptions subscriptionsvc.Service
	Signup        subscriptionsvc.SignupService
	Notifications notifications.Service
	Reconciler    reconciler.Service
	Reporting     reporting.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	// storefront catalog is public
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/products", controllers.CatalogListProducts(deps.Catalog, logg))
		r.Get("/products/{slug}", controllers.CatalogProductBySlug(deps.Catalog, logg))
		r.Get("/plans", controllers.CatalogListPlans(deps.Catalog, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mercadopago", webhookcontrollers.MercadoPagoWebhook(deps.Reconciler, cfg.MercadoPago, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Register, deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Session, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Session, cfg.JWT, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AdminAuthLogin(deps.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Get("/{orderId}/timeline", controllers.OrderTimeline(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", controllers.Subscribe(deps.Signup, logg))
			r.Get("/", controllers.ListMySubscriptions(deps.Subscriptions, logg))
			r.Get("/{subscriptionId}", controllers.SubscriptionDetail(deps.Subscriptions, logg))
			r.Get("/{subscriptionId}/timeline", controllers.SubscriptionTimeline(deps.Subscriptions, logg))
			r.Put("/{subscriptionId}/address", controllers.UpdateSubscriptionAddress(deps.Subscriptions, logg))
			r.Post("/{subscriptionId}/pause", controllers.PauseSubscription(deps.Subscriptions, logg))
			r.Post("/{subscriptionId}/resume", controllers.ResumeSubscription(deps.Subscriptions, logg))
			r.Post("/{subscriptionId}/cancel", controllers.CancelSubscription(deps.Subscriptions, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(deps.Orders, logg))
			r.Get("/{orderId}/timeline", controllers.AdminOrderTimeline(deps.Orders, logg))
			r.Post("/{orderId}/process", controllers.AdminStartProcessing(deps.Orders, logg))
			r.Post("/{orderId}/ship", controllers.AdminShipOrder(deps.Orders, logg))
			r.Post("/{orderId}/deliver", controllers.AdminDeliverOrder(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.AdminCancelOrder(deps.Orders, logg))
			r.Post("/{orderId}/refund", controllers.AdminRefundOrder(deps.Orders, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", controllers.AdminListSubscriptions(deps.Subscriptions, logg))
			r.Get("/{subscriptionId}", controllers.AdminSubscriptionDetail(deps.Subscriptions, logg))
			r.Get("/{subscriptionId}/timeline", controllers.AdminSubscriptionTimeline(deps.Subscriptions, logg))
			r.Post("/{subscriptionId}/pause", controllers.AdminPauseSubscription(deps.Subscriptions, logg))
			r.Post("/{subscriptionId}/cancel", controllers.AdminCancelSubscription(deps.Subscriptions, logg))
			r.Post("/{subscriptionId}/deliveries", controllers.AdminRecordDelivery(deps.Subscriptions, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/revenue-by-channel", controllers.AdminRevenueByChannel(deps.Reporting, logg))
			r.Get("/top-products", controllers.AdminTopProducts(deps.Reporting, logg))
			r.Get("/subscription-churn", controllers.AdminSubscriptionChurn(deps.Reporting, logg))
			r.Get("/customer-segments", controllers.AdminCustomerSegments(deps.Reporting, logg))
			r.Get("/subscription-overview", controllers.AdminSubscriptionOverview(deps.Reporting, logg))
		})
	})

	return r
}
