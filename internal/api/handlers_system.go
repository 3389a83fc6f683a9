package api

import (
	"errors"
	"net"
	"net/http"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HandleHealth returns server health status
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"sessions": len(h.registry.IDs()),
	})
}

// HandleNewSession mints a session id and creates its session
func (h *Handler) HandleNewSession(c echo.Context) error {
	id := uuid.New().String()
	h.registry.Get(id)
	return c.JSON(http.StatusCreated, map[string]string{"session_id": id})
}

// HandleSerialPorts lists serial ports, sorted and without duplicates
func (h *Handler) HandleSerialPorts(c echo.Context) error {
	ports, err := h.listPorts()
	if err != nil {
		h.logger.Warn("serial port enumeration: %v", err)
		ports = nil
	}
	sort.Strings(ports)
	out := make([]string, 0, len(ports))
	for i, p := range ports {
		if i > 0 && p == ports[i-1] {
			continue
		}
		out = append(out, p)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ports": out})
}

// HandleHostIP reports the address of the interface used for outbound traffic,
// or an empty string
func (h *Handler) HandleHostIP(c echo.Context) error {
	ip, err := h.hostIP()
	if err != nil {
		h.logger.Debug("host ip: %v", err)
		ip = ""
	}
	return c.JSON(http.StatusOK, map[string]string{"ip": ip})
}

// HandleDefaultConfig serves the default device configuration file
func (h *Handler) HandleDefaultConfig(c echo.Context) error {
	for _, path := range h.defaultConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return c.File(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return NewInternalError("failed to read default configuration", err)
		}
	}
	return NewNotFoundError("default configuration", h.settings.Device.DefaultConfig)
}

// outboundIP finds the local address a UDP socket would use to reach a public
// host. Nothing is sent.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", errors.New("unexpected local address type")
	}
	return addr.IP.String(), nil
}
