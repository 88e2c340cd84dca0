package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"vostcard-gateway/internal/config"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	// Must outlast the slowest permitted upstream call.
	writeTimeout       = (config.MaxUpstreamTimeoutSeconds + 10) * time.Second
	idleTimeout        = 120 * time.Second
	rateLimiterExpires = 3 * time.Minute
)

type Server struct {
	mu         sync.Mutex
	cfg        config.Config
	app        *echo.Echo
	services   atomic.Pointer[Services]
	address    string
	listener   net.Listener
	configPath string
}

// Option customizes a Server.
type Option func(*Server)

// WithListener serves on an existing listener instead of binding the
// configured port.
func WithListener(l net.Listener) Option {
	return func(s *Server) {
		s.listener = l
	}
}

// WithConfigWatch reloads services whenever the config file at path changes.
func WithConfigWatch(path string) Option {
	return func(s *Server) {
		s.configPath = path
	}
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, services *Services, opts ...Option) (*Server, error) {
	if services == nil {
		return nil, errors.New("services must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler
	extractor, err := ipExtractor(cfg.Server)
	if err != nil {
		return nil, err
	}
	e.IPExtractor = extractor

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error.Error())
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORS.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		MaxAge:       cfg.Server.CORS.MaxAgeSeconds,
	}))
	if limiter := rateLimiter(cfg.Server.RateLimit); limiter != nil {
		e.Use(limiter)
	}

	srv := &Server{
		cfg:     cfg,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}
	srv.services.Store(services)
	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed echo instance.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Reload rebuilds the services from cfg and swaps them in. Requests already
// in flight finish on the services they started with.
func (s *Server) Reload(cfg config.Config) error {
	services, err := BuildServices(cfg)
	if err != nil {
		return err
	}
	s.services.Store(services)

	s.mu.Lock()
	changed := !reflect.DeepEqual(cfg.Server, s.cfg.Server)
	s.cfg = cfg
	s.mu.Unlock()
	if changed {
		slog.Warn("server settings changed; restart to apply them", "port", cfg.Server.Port)
	}
	return nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener := s.listener
	if listener == nil {
		l, err := net.Listen("tcp", s.address)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.address, err)
		}
		listener = l
	}

	printStartupBanner(listener.Addr().String())
	slog.Info("starting server", "addr", listener.Addr().String())

	httpServer := &http.Server{
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	})
	if s.configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, s.configPath, func(cfg config.Config) {
				if err := s.Reload(cfg); err != nil {
					slog.Error("apply reloaded config", "err", err)
				}
			})
		})
	}

	return g.Wait()
}

// ipExtractor resolves the client IP from the peer address, or from
// X-Forwarded-For when the request came through a trusted proxy.
func ipExtractor(cfg config.ServerConfig) (echo.IPExtractor, error) {
	ranges, err := cfg.TrustedProxyRanges()
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return echo.ExtractIPDirect(), nil
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range ranges {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}

func rateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst == 0 {
		burst = int(math.Ceil(cfg.RequestsPerSecond))
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RequestsPerSecond),
		Burst:     burst,
		ExpiresIn: rateLimiterExpires,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			slog.Warn("rate limit exceeded", "client", identifier)
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
}

func printStartupBanner(addr string) {
	fmt.Println()
	fmt.Println("vostcard-gateway ready")
	fmt.Printf("Listening on %s\n", addr)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /generate-script       (also /api/generate-script, /.netlify/functions/generate-script)")
	fmt.Println("  POST /api/scripts")
	fmt.Println("  POST /api/geocode           (also /.netlify/functions/geocode)")
	fmt.Println("  POST /api/notifications/advertiser  (also /.netlify/functions/sendAdvertiserNotification)")
	fmt.Println("  POST /api/notifications/bug-report  (also /.netlify/functions/sendBugReport)")
	fmt.Println()
}
