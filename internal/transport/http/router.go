package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-notify-api/internal/application/delivery"
	"github.com/go-notify-api/internal/application/digest"
	"github.com/go-notify-api/internal/application/notification"
	"github.com/go-notify-api/internal/application/preference"
	"github.com/go-notify-api/internal/config"
	"github.com/go-notify-api/internal/transport/http/handler"
	appmiddleware "github.com/go-notify-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Producer-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 10 requests/second, burst of 20 — applied to mutation endpoints.
	mutationRL := appmiddleware.NewRateLimiter(rate.Limit(10), 20)

	prefSvc := preference.NewService(deps.PreferenceRepo)
	notifSvc := notification.NewService(deps.NotificationRepo, deps.UnreadCountRepo)
	digestSvc := digest.NewService(deps.DigestRepo, deps.Mailer, deps.Contacts)
	routerSvc := delivery.NewService(delivery.ServiceDeps{
		NotificationRepo: deps.NotificationRepo,
		Counter:          deps.UnreadCountRepo,
		Preferences:      prefSvc,
		Digests:          digestSvc,
		Mailer:           deps.Mailer,
		Push:             deps.PushSender,
		Contacts:         deps.Contacts,
	})

	healthH := handler.NewHealthHandler()
	notifH := handler.NewNotificationHandler(notifSvc, routerSvc)
	prefH := handler.NewPreferenceHandler(prefSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)

		// ── Producer seam (shared-secret, not user-facing) ───────────────────
		r.With(appmiddleware.ProducerToken(cfg.ProducerToken)).
			Post("/notifications", notifH.Create)
		if deps.Queue != nil {
			digestH := handler.NewDigestHandler(deps.Queue)
			r.With(appmiddleware.ProducerToken(cfg.ProducerToken)).
				Post("/digests/flush", digestH.Flush)
		}

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/unread-count", notifH.UnreadCount)
			r.With(mutationRL.Limit).Post("/notifications/mark-read", notifH.MarkRead)
			r.With(mutationRL.Limit).Post("/notifications/reconcile", notifH.Reconcile)
			r.With(mutationRL.Limit).Delete("/notifications/{id}", notifH.Delete)

			r.Get("/preferences", prefH.Get)
			r.Put("/preferences", prefH.Update)
		})
	})

	return r
}
