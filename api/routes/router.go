package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelarsoto/communa-backend/api/controllers"
	"github.com/avelarsoto/communa-backend/api/middleware"
	"github.com/avelarsoto/communa-backend/internal/likes"
	"github.com/avelarsoto/communa-backend/internal/notifications"
	"github.com/avelarsoto/communa-backend/internal/realtime"
	"github.com/avelarsoto/communa-backend/pkg/auth/session"
	"github.com/avelarsoto/communa-backend/pkg/config"
	"github.com/avelarsoto/communa-backend/pkg/logger"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              controllers.Pinger
	Redis           controllers.Pinger
	Sessions        session.AccessSessionChecker
	Notifications   notifications.Service
	Likes           likes.Service
	RealtimeHandler *realtime.Handler
	Metrics         prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	if deps.RealtimeHandler != nil {
		r.Handle("/ws/notifications", deps.RealtimeHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Get("/api/ping", controllers.PrivatePing())

		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationsCount(deps.Notifications, logg))
			r.Patch("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Patch("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})

		r.Post("/api/likes", controllers.ToggleLike(deps.Likes, logg))
	})

	return r
}
