package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"avaneesh/dnp3-tester/pkg/logger"
)

// Handlers holds all handler instances
type Handlers struct {
	API    *Handler
	Stream *StreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps Dependencies) *Handlers {
	h := NewHandler(deps)
	return &Handlers{
		API:    h,
		Stream: NewStreamHandler(h.store, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, hs *Handlers) {
	h := hs.API
	e.GET("/health", h.HandleHealth)

	g := e.Group("/api")

	// Session operations, scoped by X-Session-ID
	g.POST("/session", h.HandleNewSession)
	g.POST("/connect", h.HandleConnect)
	g.POST("/disconnect", h.HandleDisconnect)
	g.POST("/config/apply", h.HandleApplyConfig)
	g.GET("/data", h.HandleGetData)
	g.POST("/read", h.HandleRead)
	g.POST("/control", h.HandleControl)
	g.POST("/datapoints/add", h.HandleAddPoint)
	g.POST("/datapoints/clear", h.HandleClearPoints)

	// Shared telemetry
	g.GET("/logs", h.HandleGetLogs)
	g.GET("/logs/msgpack", h.HandleGetLogsMsgpack)
	g.GET("/frames", h.HandleGetFrames)
	g.GET("/frames/msgpack", h.HandleGetFramesMsgpack)
	g.GET("/frames/pcap", h.HandleFramesPCAP)
	g.GET("/frames/:id/decode", h.HandleDecodeFrame)
	g.GET("/stream", hs.Stream.HandleStream)

	// Host
	g.GET("/serial_ports", h.HandleSerialPorts)
	g.GET("/host_ip", h.HandleHostIP)
	g.GET("/default_config.json", h.HandleDefaultConfig)
}

// SetupMiddleware installs the error handler, panic recovery, CORS and
// request logging through log
func SetupMiddleware(e *echo.Echo, allowOrigins []string, log logger.Logger) {
	log = logger.OrNoOp(log)
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.Recover())

	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, HeaderSessionID},
	}))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		Skipper: func(c echo.Context) bool {
			// polled several times a second by the UI
			p := c.Request().URL.Path
			return p == "/api/data" || p == "/api/logs" || p == "/api/frames" || strings.HasPrefix(p, "/health")
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Warn("%s %s -> %d: %v", v.Method, v.URI, v.Status, v.Error)
			} else {
				log.Debug("%s %s -> %d", v.Method, v.URI, v.Status)
			}
			return nil
		},
	}))
}

// NewServer builds an Echo instance with middleware and routes
func NewServer(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	var origins []string
	if deps.Settings != nil {
		origins = deps.Settings.Server.AllowOrigins
	}
	SetupMiddleware(e, origins, deps.Logger)
	RegisterRoutes(e, NewHandlers(deps))
	return e
}
