package initialize

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fota-manager/backend/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func newTestApp(t *testing.T) (*App, *apiClient) {
	t.Helper()
	root := t.TempDir()
	t.Setenv("FOTA_STORAGE_ROOT", filepath.Join(root, "firmware"))
	t.Setenv("FOTA_STORAGE_AUTH_ROOT", filepath.Join(root, "auth"))
	t.Setenv("FOTA_AUTH_ADMIN_PASSWORD", "pw")
	t.Setenv("FOTA_PUSH_STEPS", "3")
	t.Setenv("FOTA_PUSH_STEP_INTERVAL_MS", "1")
	t.Setenv("FOTA_WATCHER_ENABLED", "false")
	cfg, err := config.Load("")
	require.NoError(t, err)

	app, err := BuildWithConfig(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close(context.Background())
	})
	return app, &apiClient{t: t, base: srv.URL}
}

func (c *apiClient) do(method, path, contentType string, body io.Reader) (int, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, b
}

func (c *apiClient) json(method, path string, in interface{}, out interface{}) int {
	c.t.Helper()
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		require.NoError(c.t, err)
		body = bytes.NewReader(b)
	}
	code, raw := c.do(method, path, "application/json", body)
	if out != nil && len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, out), string(raw))
	}
	return code
}

func (c *apiClient) upload(path string, fields map[string]string, fileName string, data []byte) (int, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(c.t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(c.t, err)
	_, err = fw.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())
	return c.do(http.MethodPost, path, mw.FormDataContentType(), &buf)
}

func (c *apiClient) login(user, password string) (int, map[string]interface{}) {
	var out map[string]interface{}
	code := c.json(http.MethodPost, "/login", map[string]string{"user_id": user, "password": password}, &out)
	if code == http.StatusOK {
		c.token, _ = out["access_token"].(string)
	}
	return code, out
}

func TestLoginAndAuthGuard(t *testing.T) {
	_, c := newTestApp(t)

	code, _ := c.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodGet, "/targets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.login("admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = c.login("ghost", "pw")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = c.login("", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, out := c.login("admin", "pw")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["is_admin"])

	var targets struct{ Targets []string }
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/targets", nil, &targets))
	assert.Empty(t, targets.Targets)

	code, _ = c.do(http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = c.do(http.MethodGet, "/targets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminOnlyUsers(t *testing.T) {
	_, c := newTestApp(t)
	_, _ = c.login("admin", "pw")

	code := c.json(http.MethodPost, "/admin/users", map[string]string{"user_id": "op", "password": "oppw"}, nil)
	require.Equal(t, http.StatusCreated, code)

	var users struct{ Users []string }
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/admin/users", nil, &users))
	assert.Equal(t, []string{"admin", "op"}, users.Users)

	code, out := c.login("op", "oppw")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["is_admin"])

	code = c.json(http.MethodGet, "/admin/users", nil, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestInventoryDevicePushFlow(t *testing.T) {
	app, c := newTestApp(t)
	_, _ = c.login("admin", "pw")

	code, body := c.upload("/targets", map[string]string{"name": "ECU-X", "version": "1.0.0"}, "ecu.bin", []byte("one"))
	require.Equal(t, http.StatusCreated, code, string(body))
	code, _ = c.upload("/targets", map[string]string{"name": "ECU-X", "version": "1.0.0"}, "ecu.bin", []byte("one"))
	assert.Equal(t, http.StatusConflict, code)

	var versions struct {
		Versions []string
		Cached   bool
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/targets/versions?target=ECU-X", nil, &versions))
	assert.Equal(t, []string{"1.0.0"}, versions.Versions)
	assert.False(t, versions.Cached)
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/targets/versions?target=ECU-X", nil, &versions))
	assert.True(t, versions.Cached)

	code, body = c.upload("/targets/versions", map[string]string{"target": "ECU-X", "version": "2.0.0"}, "ecu.bin", []byte("two"))
	require.Equal(t, http.StatusCreated, code, string(body))
	// uploading invalidates the cached list
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/targets/versions?target=ECU-X", nil, &versions))
	assert.Equal(t, []string{"1.0.0", "2.0.0"}, versions.Versions)
	assert.False(t, versions.Cached)

	code = c.json(http.MethodGet, "/targets/versions?target=ECU-Z", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	dev := map[string]string{"target": "ECU-X", "vcu_serial": "SN001", "ip_address": "10.0.0.5", "firmware_version": "1.0.0"}
	require.Equal(t, http.StatusCreated, c.json(http.MethodPost, "/devices", dev, nil))
	bad := map[string]string{"target": "ECU-X", "vcu_serial": "", "ip_address": "10.0.0.5"}
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/devices", bad, nil))

	var job struct {
		ID       string
		State    string
		Progress float64
	}
	code = c.json(http.MethodPost, "/push", map[string]interface{}{"target": "ECU-X", "vcu_serial": "SN001", "version": "2.0.0", "wait": true}, &job)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Completed", job.State)
	assert.Equal(t, 1.0, job.Progress)

	code = c.json(http.MethodPost, "/push", map[string]interface{}{"target": "ECU-X", "vcu_serial": "SN404", "version": "2.0.0"}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/push?id="+job.ID, nil, &job))
	assert.Equal(t, "Completed", job.State)

	var devices struct {
		Devices []struct {
			VCUSerial           string `json:"vcu_serial"`
			LastFirmwareVersion string `json:"last_firmware_version"`
			UpdateStatus        string `json:"update_status"`
		}
		NextSlNo int `json:"next_sl_no"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/devices?target=ECU-X", nil, &devices))
	require.Len(t, devices.Devices, 1)
	assert.Equal(t, "2.0.0", devices.Devices[0].LastFirmwareVersion)
	assert.Equal(t, "Updated", devices.Devices[0].UpdateStatus)
	assert.Equal(t, 2, devices.NextSlNo)

	var history struct {
		Records []struct {
			JobID string `json:"job_id"`
			State string `json:"state"`
		}
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/push/history?target=ECU-X&vcu_serial=SN001", nil, &history))
	require.Len(t, history.Records, 1)
	assert.Equal(t, job.ID, history.Records[0].JobID)

	var logs struct{ Logs []string }
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/session/logs", nil, &logs))
	assert.NotEmpty(t, logs.Logs)

	ledger, err := os.ReadFile(filepath.Join(app.Cfg.Storage.Root, "ECU-X", "ECU-X_device_details.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(ledger), ",SN001,10.0.0.5,2.0.0,")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, app.Push.Shutdown(ctx))
}

func TestMetricsEndpoint(t *testing.T) {
	_, c := newTestApp(t)
	_, _ = c.do(http.MethodGet, "/ping", "", nil)
	code, body := c.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `fota_http_requests_total{code="200",method="GET",route="GET /ping"}`)
}
