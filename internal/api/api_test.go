package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avaneesh/dnp3-tester/internal/config"
	"avaneesh/dnp3-tester/internal/session"
	"avaneesh/dnp3-tester/internal/telemetry"
	"avaneesh/dnp3-tester/pkg/app"
	"avaneesh/dnp3-tester/pkg/master"
	"avaneesh/dnp3-tester/pkg/outstation"
	"avaneesh/dnp3-tester/pkg/types"
)

type stubMaster struct{}

func (stubMaster) Read(context.Context, app.ClassField) error { return nil }
func (stubMaster) DirectOperate(_ context.Context, cmds []types.Command) ([]types.CommandStatus, error) {
	return make([]types.CommandStatus, len(cmds)), nil
}
func (stubMaster) SelectAndOperate(_ context.Context, cmds []types.Command) ([]types.CommandStatus, error) {
	return make([]types.CommandStatus, len(cmds)), nil
}
func (stubMaster) Close() error { return nil }

type stubOutstation struct {
	db *outstation.Database
}

func (o *stubOutstation) Transaction(fn func(db *outstation.Database)) { o.db.Transaction(fn) }
func (o *stubOutstation) Close() error                                { return nil }

type stubEngine struct {
	err error
}

func (e *stubEngine) StartMaster(session.Link, master.MasterConfig, master.ReadHandler) (session.MasterConn, error) {
	if e.err != nil {
		return nil, e.err
	}
	return stubMaster{}, nil
}

func (e *stubEngine) StartOutstation(_ session.Link, _ outstation.OutstationConfig, _ outstation.ControlHandler,
	init func(db *outstation.Database)) (session.OutstationConn, error) {
	if e.err != nil {
		return nil, e.err
	}
	o := &stubOutstation{db: outstation.NewDatabase(nil)}
	o.Transaction(init)
	return o, nil
}

type testEnv struct {
	e        *echo.Echo
	registry *session.Registry
	store    *telemetry.Store
	engine   *stubEngine
	settings *config.Settings
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	engine := &stubEngine{}
	store := telemetry.NewStore()
	registry := session.NewRegistry(engine, store, nil, session.Options{
		MasterGrace:        time.Millisecond,
		OutstationGrace:    time.Millisecond,
		SimulationInterval: time.Hour,
		VerifyDelay:        time.Millisecond,
	})
	t.Cleanup(registry.Close)

	settings := config.DefaultSettings()
	settings.Device.DefaultConfig = filepath.Join(t.TempDir(), "missing.json")

	e := NewServer(Dependencies{
		Registry:  registry,
		Settings:  settings,
		Version:   "test",
		ListPorts: func() ([]string, error) { return []string{"/dev/ttyUSB1", "/dev/ttyS0", "/dev/ttyUSB1"}, nil },
		HostIP:    func() (string, error) { return "192.168.1.20", nil },
	})
	return &testEnv{e: e, registry: registry, store: store, engine: engine, settings: settings}
}

func (env *testEnv) do(t *testing.T, method, path, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionID != "" {
		req.Header.Set(HeaderSessionID, sessionID)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestConnectAndData(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/connect", "bench", `{"mode":"outstation","ip":"","port":20000,"localAddr":10,"remoteAddr":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	data := decode(t, env.do(t, http.MethodGet, "/api/data", "bench", ""))
	assert.Equal(t, true, data["connected"])
	assert.Equal(t, "outstation", data["role"])
	assert.Equal(t, []interface{}{}, data["logs"])

	other := decode(t, env.do(t, http.MethodGet, "/api/data", "", ""))
	assert.Equal(t, false, other["connected"])
	assert.Equal(t, []string{"bench", session.DefaultID}, env.registry.IDs())

	rec = env.do(t, http.MethodPost, "/api/disconnect", "bench", "")
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	data = decode(t, env.do(t, http.MethodGet, "/api/data", "bench", ""))
	assert.Equal(t, false, data["connected"])
}

func TestConnectFailure(t *testing.T) {
	env := newTestEnv(t)
	env.engine.err = errors.New("address in use")

	rec := env.do(t, http.MethodPost, "/api/connect", "", `{"mode":"master","port":20000}`)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "address in use")

	rec = env.do(t, http.MethodPost, "/api/connect", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decode(t, rec)["code"])
}

func TestConnectAutoloadsDefaultConfig(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "default_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "Feeder",
		"binary_inputs": [{"index": 0, "name": "Breaker"}],
		"analog_inputs": [{"index": 0, "name": "Voltage", "unit": "kV"}]
	}`), 0o644))
	env.settings.Device.DefaultConfig = path

	env.do(t, http.MethodPost, "/api/connect", "", `{"mode":"outstation","port":20000}`)

	data := decode(t, env.do(t, http.MethodGet, "/api/data", "", ""))
	pts := data["points"].([]interface{})
	require.Len(t, pts, 2)
	first := pts[0].(map[string]interface{})
	assert.Equal(t, "BinaryInput", first["type"])
	assert.Equal(t, "Breaker", first["name"])
	assert.Equal(t, "Offline", first["quality"])

	rec := env.do(t, http.MethodGet, "/api/default_config.json", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Feeder")
}

func TestDefaultConfigMissing(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/default_config.json", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["code"])
}

func TestDataPoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/datapoints/add", "", `{"point_type":"AnalogOutput","index":7,"name":"Setpoint"}`)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/datapoints/add", "", `{"point_type":"AnalogOutput","index":7,"name":"Again"}`)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "data point AnalogOutput[7] already exists", body["error"])

	rec = env.do(t, http.MethodPost, "/api/datapoints/add", "", `{"point_type":"Bogus","index":1,"name":"x"}`)
	assert.Equal(t, "Invalid point type: Bogus", decode(t, rec)["error"])

	data := decode(t, env.do(t, http.MethodGet, "/api/data", "", ""))
	pts := data["points"].([]interface{})
	require.Len(t, pts, 1)
	assert.Equal(t, "Online", pts[0].(map[string]interface{})["quality"])

	env.do(t, http.MethodPost, "/api/datapoints/clear", "", "")
	data = decode(t, env.do(t, http.MethodGet, "/api/data", "", ""))
	assert.Empty(t, data["points"])
}

func TestApplyConfigYAML(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/config/apply", strings.NewReader("counters:\n  - index: 3\n    name: Pulses\n"))
	req.Header.Set(echo.HeaderContentType, "application/yaml")
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	pts := env.registry.Get("").Points()
	require.Len(t, pts, 1)
	assert.Equal(t, "Pulses", pts[0].Name)

	rec = env.do(t, http.MethodPost, "/api/config/apply", "", `{"binary_inputs": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadAndControl(t *testing.T) {
	env := newTestEnv(t)

	body := decode(t, env.do(t, http.MethodPost, "/api/read", "", ""))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "master not connected", body["error"])

	rec := env.do(t, http.MethodPost, "/api/control", "", `{"point_type":"AnalogInput","index":0,"value":1,"op_mode":"Direct"}`)
	assert.JSONEq(t, `{"status":"error","message":"Unsupported point type"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/control", "", `{"point_type":"BinaryOutput","index":0,"value":1,"op_mode":"Direct"}`)
	assert.JSONEq(t, `{"status":"error","message":"master not connected"}`, rec.Body.String())

	env.do(t, http.MethodPost, "/api/connect", "", `{"mode":"master","port":20000}`)

	body = decode(t, env.do(t, http.MethodPost, "/api/read", "", ""))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Read completed", body["message"])

	rec = env.do(t, http.MethodPost, "/api/control", "", `{"point_type":"BinaryOutput","index":0,"value":1,"op_mode":"SBO"}`)
	assert.JSONEq(t, `{"status":"success","message":"SBO Control executed"}`, rec.Body.String())
}

func TestHostEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/serial_ports", "", "")
	assert.JSONEq(t, `{"ports":["/dev/ttyS0","/dev/ttyUSB1"]}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/host_ip", "", "")
	assert.JSONEq(t, `{"ip":"192.168.1.20"}`, rec.Body.String())

	health := decode(t, env.do(t, http.MethodGet, "/health", "", ""))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])

	rec = env.do(t, http.MethodPost, "/api/session", "", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decode(t, rec)["session_id"].(string)
	assert.Len(t, id, 36)
	_, found := env.registry.Lookup(id)
	assert.True(t, found)
}

func TestCORSAllowsSessionHeader(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/data", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, HeaderSessionID)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), HeaderSessionID)
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	ErrorHandler(NewConflictError("busy"), e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"code":"CONFLICT","message":"busy"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	ErrorHandler(errors.New("boom"), e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":"UNKNOWN_ERROR","message":"An unexpected error occurred","details":"boom"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	ErrorHandler(echo.ErrMethodNotAllowed, e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
