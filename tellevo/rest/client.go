package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

var (
	// ErrUnauthorized is matched by errors.Is for every 401 response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is matched by errors.Is for every 404 response.
	ErrNotFound = errors.New("not found")
)

// APIError is returned for any response with status >= 400.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Is reports whether the status code maps to one of the sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Client provides REST API access to the TeLlevo admin backend.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

// NewClient creates a new REST API client.
// baseURL should be the base URL of the API, e.g., "http://localhost:8080/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the JWT token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current JWT token, empty after a 401.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized registers fn to run after any 401 response, once the stored
// token has been cleared.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// Authentication endpoints

// Login authenticates with admin credentials. On success the returned token
// is stored for subsequent requests.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/login", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		c.SetToken(resp.Token)
	}
	return &resp, nil
}

// Register creates a new account. Not every backend exposes this endpoint.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DashboardOverview returns the dashboard headline figures.
func (c *Client) DashboardOverview(ctx context.Context) (*DashboardOverview, error) {
	var resp DashboardOverview
	if err := c.get(ctx, "/dashboard/overview", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Empresa endpoints

// ListEmpresas returns every registered company.
func (c *Client) ListEmpresas(ctx context.Context) ([]EmpresaResponse, error) {
	var resp []EmpresaResponse
	if err := c.get(ctx, "/empresas", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetEmpresa returns a single company by id.
func (c *Client) GetEmpresa(ctx context.Context, id int64) (*EmpresaResponse, error) {
	var resp EmpresaResponse
	if err := c.get(ctx, empresaPath(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetEmpresaByDominio looks a company up by its email domain, e.g. "@acme.cl".
func (c *Client) GetEmpresaByDominio(ctx context.Context, dominio string) (*EmpresaResponse, error) {
	var resp EmpresaResponse
	if err := c.get(ctx, "/empresas/dominio/"+url.PathEscape(dominio), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateEmpresa registers a company whose logo is already hosted.
func (c *Client) CreateEmpresa(ctx context.Context, req EmpresaRequest) (*EmpresaResponse, error) {
	var resp EmpresaResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/empresas", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateEmpresa replaces a company's fields.
func (c *Client) UpdateEmpresa(ctx context.Context, id int64, req EmpresaRequest) (*EmpresaResponse, error) {
	var resp EmpresaResponse
	if err := c.sendJSON(ctx, http.MethodPut, empresaPath(id), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteEmpresa removes a company.
func (c *Client) DeleteEmpresa(ctx context.Context, id int64) (*EmpresaResponse, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, empresaPath(id), http.NoBody)
	if err != nil {
		return nil, err
	}
	var resp EmpresaResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateEmpresaWithUpload registers a company and uploads its logo in one
// multipart request.
func (c *Client) CreateEmpresaWithUpload(ctx context.Context, form EmpresaUpload) (*EmpresaResponse, error) {
	var resp EmpresaResponse
	fields := map[string]string{"nombre": form.Nombre, "dominio": form.Dominio}
	if err := c.sendMultipart(ctx, http.MethodPost, "/empresas/upload", fields, form.Logo, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateEmpresaWithUpload replaces a company's fields and logo.
func (c *Client) UpdateEmpresaWithUpload(ctx context.Context, id int64, form EmpresaUpload) (*EmpresaResponse, error) {
	var resp EmpresaResponse
	fields := map[string]string{"nombre": form.Nombre, "dominio": form.Dominio}
	if err := c.sendMultipart(ctx, http.MethodPut, empresaPath(id)+"/upload", fields, form.Logo, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadLogo replaces the logo of an existing company.
func (c *Client) UploadLogo(ctx context.Context, id int64, logo Logo) (*LogoResponse, error) {
	var resp LogoResponse
	if err := c.sendMultipart(ctx, http.MethodPost, empresaPath(id)+"/logo", nil, logo, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func empresaPath(id int64) string {
	return "/empresas/" + strconv.FormatInt(id, 10)
}

// Helper methods

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, dest any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *Client) sendMultipart(ctx context.Context, method, path string, fields map[string]string, logo Logo, dest any) error {
	if logo.Content == nil {
		return errors.New("logo file is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range []string{"nombre", "dominio"} {
		if v, ok := fields[name]; ok {
			if err := w.WriteField(name, v); err != nil {
				return fmt.Errorf("write field %s: %w", name, err)
			}
		}
	}
	part, err := w.CreateFormFile("logoFile", logo.Filename)
	if err != nil {
		return fmt.Errorf("create logo part: %w", err)
	}
	if _, err := io.Copy(part, logo.Content); err != nil {
		return fmt.Errorf("copy logo: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.unauthorized()
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			apiErr.Message = errResp.Message
			if apiErr.Message == "" {
				apiErr.Message = errResp.Error
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(body))
		}
		return apiErr
	}

	if dest != nil && len(body) > 0 {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

func (c *Client) unauthorized() {
	c.mu.Lock()
	c.token = ""
	hook := c.onUnauthorized
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
}
