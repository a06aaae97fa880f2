package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thientv98/slack-oauth/internal/config"
	"github.com/thientv98/slack-oauth/internal/handlers"
	"github.com/thientv98/slack-oauth/internal/integrations/slack"
	"github.com/thientv98/slack-oauth/internal/middleware"
	"github.com/thientv98/slack-oauth/internal/services"
	"github.com/thientv98/slack-oauth/internal/storage"
)

// Dependencies are the process-scoped resources every route is built from
type Dependencies struct {
	Config       *config.Config
	Store        storage.Store
	Translator   services.Translator
	SlackClients slack.ClientFactory
	OAuthClient  slack.HTTPDoer
	// RequestTimeout defaults to middleware.DefaultRequestTimeout
	RequestTimeout time.Duration
}

// NewRouter wires every HTTP route of the app
func NewRouter(deps Dependencies) *mux.Router {
	timeout := deps.RequestTimeout
	if timeout == 0 {
		timeout = middleware.DefaultRequestTimeout
	}

	pages := handlers.NewPageHandler(deps.Config)
	system := handlers.NewSystemHandler(deps.Config, deps.Translator.Name())
	installations := handlers.NewInstallationHandler(deps.Store)

	oauth := slack.NewOAuthHandler(deps.Config, deps.Store, deps.OAuthClient)
	commands := slack.NewCommandHandler(deps.Store, deps.SlackClients)
	interactive := slack.NewInteractiveHandler(deps.Store, deps.SlackClients)
	events := slack.NewEventHandler(slack.NewDispatcher(deps.Store, deps.Translator, deps.SlackClients))

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.MetricsMiddleware)
	router.Use(middleware.TimeoutMiddleware(timeout))

	// Pages
	router.HandleFunc("/", pages.HandleHome).Methods(http.MethodGet)
	router.HandleFunc("/success", pages.HandleSuccess).Methods(http.MethodGet)
	router.HandleFunc("/error", pages.HandleError).Methods(http.MethodGet)

	// System routes
	router.HandleFunc("/health", system.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ping", system.HandlePing).Methods(http.MethodGet)
	router.HandleFunc("/status", system.HandleStatus).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API routes with rate limiting
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.APIRateLimitMiddleware(deps.Config.TrustProxyHeaders))
	apiRouter.HandleFunc("/installations", installations.HandleListInstallations).Methods(http.MethodGet)
	apiRouter.HandleFunc("/installations/{teamId}", installations.HandleGetInstallation).Methods(http.MethodGet)

	// Slack routes with rate limiting
	slackRouter := router.PathPrefix("/slack").Subrouter()
	slackRouter.Use(middleware.WebhookRateLimitMiddleware())
	slackRouter.HandleFunc("/oauth/authorize", oauth.Authorize).Methods(http.MethodGet)
	slackRouter.HandleFunc("/oauth/callback", oauth.Callback).Methods(http.MethodGet)

	// Callbacks from Slack carry a signature
	callbacks := slackRouter.Methods(http.MethodPost).Subrouter()
	callbacks.Use(middleware.SlackSignatureMiddleware(deps.Config.SlackSigningSecret))
	callbacks.HandleFunc("/commands/translate-config", commands.HandleTranslateConfig)
	callbacks.HandleFunc("/interactive", interactive.HandleInteractive)
	callbacks.HandleFunc("/events", events.HandleEvents)

	return router
}
