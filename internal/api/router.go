package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cloudcoder/internal/api/handler"
	"cloudcoder/internal/api/middleware"
	"cloudcoder/internal/app/service"
	"cloudcoder/internal/common/security"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth       *service.AuthService
	Courses    *service.CourseService
	Problems   *service.ProblemService
	Changes    *service.ChangeService
	Submission *service.SubmissionService
	Settings   *service.SettingsService
}

// WebhookConfig says where builders' test run reports are queued.
type WebhookConfig struct {
	Redis  *redis.Client
	Queue  string
	Secret string
}

func NewRouter(svc Services, hook WebhookConfig, gatherer prometheus.Gatherer, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Looks for "Authorization: Bearer T" and puts the verified token in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(svc.Auth)
		v1.Group(func(public chi.Router) {
			authHandler.RegisterRoutes(public)
		})

		webhookHandler := handler.NewWebhookHandler(hook.Redis, hook.Queue, hook.Secret, log)
		v1.Route("/webhook", webhookHandler.RegisterRoutes)

		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.Authenticator)

			courseHandler := handler.NewCourseHandler(svc.Courses, svc.Problems)
			authed.Route("/courses", courseHandler.RegisterRoutes)

			problemHandler := handler.NewProblemHandler(svc.Problems, svc.Changes, svc.Submission)
			authed.Route("/problems", problemHandler.RegisterRoutes)

			submissionHandler := handler.NewSubmissionHandler(svc.Submission, svc.Changes)
			submissionHandler.RegisterRoutes(authed)

			settingsHandler := handler.NewSettingsHandler(svc.Settings)
			authed.Route("/settings", settingsHandler.RegisterRoutes)
		})
	})

	return r
}
