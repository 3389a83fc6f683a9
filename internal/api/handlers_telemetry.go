package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"avaneesh/dnp3-tester/internal/capture"
	"avaneesh/dnp3-tester/internal/framedecode"
)

const mimeMsgpack = "application/msgpack"

// HandleGetLogs returns the shared log buffer, oldest first
func (h *Handler) HandleGetLogs(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"logs": logViews(h.store.Logs()),
	})
}

// HandleGetFrames returns the shared frame buffer, oldest first
func (h *Handler) HandleGetFrames(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"frames": frameViews(h.store.Frames()),
	})
}

// HandleGetLogsMsgpack is HandleGetLogs encoded as msgpack
func (h *Handler) HandleGetLogsMsgpack(c echo.Context) error {
	data, err := msgpack.Marshal(map[string]interface{}{
		"logs": logViews(h.store.Logs()),
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, mimeMsgpack, data)
}

// HandleGetFramesMsgpack is HandleGetFrames encoded as msgpack, with frame
// data as binary
func (h *Handler) HandleGetFramesMsgpack(c echo.Context) error {
	data, err := msgpack.Marshal(map[string]interface{}{
		"frames": frameViews(h.store.Frames()),
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, mimeMsgpack, data)
}

// HandleFramesPCAP downloads the frame buffer as a pcap file
func (h *Handler) HandleFramesPCAP(c echo.Context) error {
	frames := h.store.Frames()
	name := "dnp3-" + time.Now().UTC().Format("20060102-150405") + ".pcap"

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/vnd.tcpdump.pcap")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	res.WriteHeader(http.StatusOK)

	if err := capture.WritePCAP(res, frames, capture.Options{Port: h.settings.Capture.TCPPort}); err != nil {
		// headers are already sent
		h.logger.Error("pcap export: %v", err)
	}
	return nil
}

// HandleDecodeFrame summarizes one captured frame
func (h *Handler) HandleDecodeFrame(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return NewBadRequestError("invalid frame id", err)
	}
	f, found := h.store.FindFrame(id)
	if !found {
		return NewNotFoundError("frame", idParam)
	}
	summary, err := framedecode.Decode(f.Data)
	if err != nil {
		return NewBadRequestError("frame could not be decoded", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"frame":   newFrameView(f),
		"summary": summary,
		"text":    summary.String(),
	})
}
