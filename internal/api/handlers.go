// Package api serves the operator UI: session operations, telemetry views,
// frame export and a websocket live stream.
package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"avaneesh/dnp3-tester/internal/config"
	"avaneesh/dnp3-tester/internal/points"
	"avaneesh/dnp3-tester/internal/session"
	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/channel"
	"avaneesh/dnp3-tester/pkg/logger"
)

// HeaderSessionID selects the session a request operates on
const HeaderSessionID = "X-Session-ID"

// Dependencies holds everything the handlers need
type Dependencies struct {
	Registry *session.Registry
	Settings *config.Settings
	Logger   logger.Logger
	Version  string

	// ListPorts and HostIP default to the OS implementations
	ListPorts func() ([]string, error)
	HostIP    func() (string, error)
}

// Handler handles API requests
type Handler struct {
	registry  *session.Registry
	store     *telemetry.Store
	settings  *config.Settings
	logger    logger.Logger
	version   string
	listPorts func() ([]string, error)
	hostIP    func() (string, error)
}

// NewHandler creates a handler. A nil Settings means config.DefaultSettings.
func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		registry:  deps.Registry,
		store:     deps.Registry.Store(),
		settings:  deps.Settings,
		logger:    logger.OrNoOp(deps.Logger),
		version:   deps.Version,
		listPorts: deps.ListPorts,
		hostIP:    deps.HostIP,
	}
	if h.settings == nil {
		h.settings = config.DefaultSettings()
	}
	if h.listPorts == nil {
		h.listPorts = channel.ListSerialPorts
	}
	if h.hostIP == nil {
		h.hostIP = outboundIP
	}
	return h
}

func (h *Handler) session(c echo.Context) *session.Service {
	return h.registry.Get(c.Request().Header.Get(HeaderSessionID))
}

// HandleConnect starts a master or outstation for the session
func (h *Handler) HandleConnect(c echo.Context) error {
	var req config.Connection
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid connection request", err)
	}
	s := h.session(c)
	h.logger.Info("connect request [session %s]: %s", s.ID(), req)

	h.autoload(s)

	var err error
	if req.Mode == config.ModeMaster {
		err = s.StartMaster(req)
	} else {
		err = s.StartOutstation(req)
	}
	if err != nil {
		return failed(c, err)
	}
	return ok(c)
}

// autoload applies the default device configuration to a session with no points
func (h *Handler) autoload(s *session.Service) {
	if len(s.Points()) > 0 || h.settings.Device.DefaultConfig == "" {
		return
	}
	for _, path := range h.defaultConfigPaths() {
		dev, err := config.LoadDevice(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			h.logger.Warn("session %s: default configuration %s: %v", s.ID(), path, err)
			return
		}
		s.ApplyConfig(dev)
		h.logger.Info("session %s: auto-loaded %s", s.ID(), path)
		return
	}
}

// defaultConfigPaths lists where the default configuration is looked for. A
// relative path is also tried under frontend/.
func (h *Handler) defaultConfigPaths() []string {
	path := h.settings.Device.DefaultConfig
	if filepath.IsAbs(path) {
		return []string{path}
	}
	return []string{path, filepath.Join("frontend", path)}
}

// HandleDisconnect stops the session's role
func (h *Handler) HandleDisconnect(c echo.Context) error {
	h.session(c).Disconnect()
	return ok(c)
}

// HandleApplyConfig replaces the session's points with a device configuration,
// sent as JSON or, with a YAML content type, as YAML
func (h *Handler) HandleApplyConfig(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read body", err)
	}
	name := "body.json"
	if ct := c.Request().Header.Get(echo.HeaderContentType); strings.Contains(ct, "yaml") {
		name = "body.yaml"
	}
	dev, err := config.ParseDevice(name, body)
	if err != nil {
		return NewBadRequestError("invalid device configuration", err)
	}
	h.session(c).ApplyConfig(dev)
	return ok(c)
}

// HandleGetData returns the session's points and counters
func (h *Handler) HandleGetData(c echo.Context) error {
	s := h.session(c)
	return c.JSON(http.StatusOK, dataResponse{
		Points:    pointViews(s.Points()),
		Stats:     s.Stats(),
		Connected: s.Connected(),
		Role:      s.Role(),
		Logs:      []string{},
	})
}

// HandleRead issues an integrity poll
func (h *Handler) HandleRead(c echo.Context) error {
	if err := h.session(c).ReadAll(c.Request().Context()); err != nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Read completed",
	})
}

// HandleControl operates an output point
func (h *Handler) HandleControl(c echo.Context) error {
	var req controlRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid control request", err)
	}
	s := h.session(c)
	if req.CommandType == "" {
		req.CommandType = "Latch"
	}
	h.logger.Info("control request [session %s]: %s[%d] = %v, mode=%s, type=%s",
		s.ID(), req.PointType, req.Index, req.Value, req.OpMode, req.CommandType)

	typ, err := points.ParseType(req.PointType)
	if err != nil || (typ != points.BinaryOutput && typ != points.AnalogOutput) {
		return c.JSON(http.StatusOK, controlResponse{Status: "error", Message: "Unsupported point type"})
	}

	msg, err := s.ExecuteControl(c.Request().Context(), typ, req.Index, req.Value, req.OpMode)
	if err != nil {
		return c.JSON(http.StatusOK, controlResponse{Status: "error", Message: err.Error()})
	}
	return c.JSON(http.StatusOK, controlResponse{Status: "success", Message: msg})
}

// HandleAddPoint adds one point to the session's table
func (h *Handler) HandleAddPoint(c echo.Context) error {
	var req addPointRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid data point request", err)
	}
	typ, err := points.ParseType(req.PointType)
	if err != nil {
		return c.JSON(http.StatusOK, envelope{Error: "Invalid point type: " + req.PointType})
	}
	if err := h.session(c).AddPoint(typ, req.Index, req.Name); err != nil {
		return failed(c, err)
	}
	return ok(c)
}

// HandleClearPoints empties the session's table
func (h *Handler) HandleClearPoints(c echo.Context) error {
	h.session(c).ClearPoints()
	return ok(c)
}
