package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fota-manager/backend/app/dto"
	"fota-manager/backend/app/services"
)

// Session holds the API endpoint and the bearer token of the logged in user.
type Session struct {
	BaseURL string
	Token   string
	UserID  string
	IsAdmin bool
	HTTP    *http.Client
}

func NewSession() *Session {
	return &Session{HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Msg, e.Status)
}

// normalizeURL accepts "host:port" as well as a full URL.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("server address is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server address %q", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func (s *Session) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	return req, nil
}

func (s *Session) send(req *http.Request, out interface{}) error {
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &body)
		return &APIError{Status: resp.StatusCode, Msg: body.Error}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s: %w", req.URL.Path, err)
		}
	}
	return nil
}

func (s *Session) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := s.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, out)
}

// upload posts fields plus the file at filePath as a multipart form.
func (s *Session) upload(ctx context.Context, path string, fields map[string]string, filePath string, out interface{}) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile(dto.FormFile, filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := s.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(req, out)
}

func (s *Session) Login(ctx context.Context, server, userID, password string) error {
	base, err := normalizeURL(server)
	if err != nil {
		return err
	}
	s.BaseURL = base
	s.Token = ""
	var tok dto.TokenResponse
	if err := s.doJSON(ctx, http.MethodPost, "/login", dto.LoginRequest{UserID: userID, Password: password}, &tok); err != nil {
		return err
	}
	s.Token = tok.AccessToken
	s.UserID = userID
	s.IsAdmin = tok.IsAdmin
	return nil
}

// Logout drops the server session. The local token is cleared either way.
func (s *Session) Logout(ctx context.Context) error {
	if s.Token == "" {
		return nil
	}
	err := s.doJSON(ctx, http.MethodPost, "/logout", nil, nil)
	s.Token = ""
	return err
}

func (s *Session) Targets(ctx context.Context) ([]string, error) {
	var out dto.TargetListResponse
	err := s.doJSON(ctx, http.MethodGet, "/targets", nil, &out)
	return out.Targets, err
}

func (s *Session) Versions(ctx context.Context, target string) ([]string, error) {
	var out dto.VersionListResponse
	err := s.doJSON(ctx, http.MethodGet, "/targets/versions?target="+url.QueryEscape(target), nil, &out)
	return out.Versions, err
}

func (s *Session) Devices(ctx context.Context, target string) (*dto.DeviceListResponse, error) {
	var out dto.DeviceListResponse
	if err := s.doJSON(ctx, http.MethodGet, "/devices?target="+url.QueryEscape(target), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) CreateTarget(ctx context.Context, name, version, filePath string) error {
	fields := map[string]string{dto.FormName: name, dto.FormVersion: version}
	return s.upload(ctx, "/targets", fields, filePath, nil)
}

func (s *Session) AddVersion(ctx context.Context, target, version, filePath string) error {
	fields := map[string]string{dto.FormTarget: target, dto.FormVersion: version}
	return s.upload(ctx, "/targets/versions", fields, filePath, nil)
}

func (s *Session) AddDevice(ctx context.Context, req dto.AddDeviceRequest) error {
	return s.doJSON(ctx, http.MethodPost, "/devices", req, nil)
}

// StartPush returns as soon as the server accepted the job.
func (s *Session) StartPush(ctx context.Context, target, serial, version string) (*services.PushJob, error) {
	var job services.PushJob
	req := dto.PushRequest{Target: target, VCUSerial: serial, Version: version}
	if err := s.doJSON(ctx, http.MethodPost, "/push", req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Session) Job(ctx context.Context, id string) (*services.PushJob, error) {
	var job services.PushJob
	if err := s.doJSON(ctx, http.MethodGet, "/push?id="+url.QueryEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Session) AddUser(ctx context.Context, userID, password string) error {
	return s.doJSON(ctx, http.MethodPost, "/admin/users", dto.CreateUserRequest{UserID: userID, Password: password}, nil)
}

func (s *Session) Logs(ctx context.Context) ([]string, error) {
	var out dto.SessionLogsResponse
	err := s.doJSON(ctx, http.MethodGet, "/session/logs", nil, &out)
	return out.Logs, err
}
