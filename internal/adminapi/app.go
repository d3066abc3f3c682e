package adminapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"mcpx/pkg/bootconfig"
	"mcpx/pkg/middleware"
	"mcpx/pkg/openapi"
	"mcpx/pkg/origins"
	"mcpx/pkg/publicconfig"
	"mcpx/pkg/store"
)

const (
	ServiceName = "mcpx-admin-api"
	streamPath  = "/sessions/stream"

	// defaultHeartbeat applies at the stream layer, independently of the
	// public payload default.
	defaultHeartbeat = 15 * time.Second
	// maxHeartbeatSeconds bounds the ticker interval.
	maxHeartbeatSeconds = 24 * 60 * 60
)

// Config holds admin-api specific configuration.
type Config struct {
	Boot             bootconfig.Config
	AllowListTTL     time.Duration
	SingleFlight     bool
	JWKSTTL          time.Duration
	DebugDoubleWrite bool
	Version          string
	// HTTPClient is used for identity provider discovery and JWKS; nil means a default client.
	HTTPClient *http.Client
}

// App is the admin-api application container.
// Handlers and middleware have methods on this type.
//
// Shared deps and config only; request-scoped work goes through context.
type App struct {
	log     *zap.SugaredLogger
	dal     store.DAL
	cfg     Config
	origins *origins.Provider
	public  *publicconfig.Provider
	auth    *middleware.Authenticator
	apiDoc  *openapi.Registry
	now     func() time.Time
}

// New wires the providers around dal. cfg.Boot must already be resolved.
func New(log *zap.SugaredLogger, dal store.DAL, cfg Config) *App {
	opts := []origins.Option{origins.WithTTL(cfg.AllowListTTL), origins.WithLogger(log)}
	if cfg.SingleFlight {
		opts = append(opts, origins.WithSingleFlight())
	}
	allow := origins.NewProvider(dal, opts...)

	app := &App{
		log:     log,
		dal:     dal,
		cfg:     cfg,
		origins: allow,
		public:  publicconfig.New(dal, allow),
		auth: middleware.NewAuthenticator(middleware.AuthConfig{
			Authority:      cfg.Boot.Authority,
			Audience:       cfg.Boot.Audience,
			QueryTokenPath: streamPath,
			MetadataTTL:    cfg.JWKSTTL,
			HTTPClient:     cfg.HTTPClient,
		}, log),
		now: time.Now,
	}
	app.apiDoc = app.describe()
	return app
}

// Origins exposes the allow-list cache so main can invalidate it on SIGHUP.
func (a *App) Origins() *origins.Provider { return a.origins }
