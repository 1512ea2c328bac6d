package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/api")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginStoresToken(t *testing.T) {
	var auth []string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/login":
			var req LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "admin@tellevoapp.cl", req.Username)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			writeJSON(w, http.StatusOK, LoginResponse{Token: "jwt-1", Message: "Inicio de sesión exitoso"})
		case "/api/empresas":
			writeJSON(w, http.StatusOK, []EmpresaResponse{{ID: 1, Nombre: "Acme", Dominio: "@acme.cl"}})
		default:
			http.NotFound(w, r)
		}
	})

	resp, err := c.Login(context.Background(), LoginRequest{Username: "admin@tellevoapp.cl", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", resp.Token)
	assert.Equal(t, "jwt-1", c.Token())

	empresas, err := c.ListEmpresas(context.Background())
	require.NoError(t, err)
	require.Len(t, empresas, 1)
	assert.Equal(t, "Acme", empresas[0].Nombre)

	assert.Equal(t, []string{"", "Bearer jwt-1"}, auth)
}

func TestUnauthorizedClearsTokenAndRunsHook(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "Token expirado"})
	})
	c.SetToken("stale")
	hookCalls := 0
	c.OnUnauthorized(func() {
		hookCalls++
		assert.Empty(t, c.Token())
	})

	_, err := c.DashboardOverview(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Token expirado", apiErr.Message)
	assert.Equal(t, 1, hookCalls)
	assert.Empty(t, c.Token())
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantIs      error
	}{
		{name: "NotFoundMessage", status: http.StatusNotFound, body: `{"message":"Empresa no encontrada"}`, wantMessage: "Empresa no encontrada", wantIs: ErrNotFound},
		{name: "BadRequest", status: http.StatusBadRequest, body: `{"message":"El dominio es obligatorio"}`, wantMessage: "El dominio es obligatorio"},
		{name: "PlainText", status: http.StatusInternalServerError, body: "boom\n", wantMessage: "boom"},
		{name: "ErrorField", status: http.StatusForbidden, body: `{"error":"Forbidden"}`, wantMessage: "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.GetEmpresa(context.Background(), 42)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.False(t, errors.Is(err, ErrUnauthorized))
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestEmpresaRoutes(t *testing.T) {
	type call struct{ method, path string }
	var calls []call
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.EscapedPath()})
		writeJSON(w, http.StatusOK, EmpresaResponse{ID: 9, Message: "ok"})
	})
	ctx := context.Background()
	req := EmpresaRequest{Nombre: "Acme", Dominio: "@acme.cl", LogoURL: "https://cdn.example.org/acme.svg"}

	_, err := c.GetEmpresa(ctx, 9)
	require.NoError(t, err)
	_, err = c.GetEmpresaByDominio(ctx, "@acme.cl")
	require.NoError(t, err)
	_, err = c.CreateEmpresa(ctx, req)
	require.NoError(t, err)
	_, err = c.UpdateEmpresa(ctx, 9, req)
	require.NoError(t, err)
	deleted, err := c.DeleteEmpresa(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "ok", deleted.Message)
	_, err = c.Health(ctx)
	require.NoError(t, err)

	assert.Equal(t, []call{
		{http.MethodGet, "/api/empresas/9"},
		{http.MethodGet, "/api/empresas/dominio/@acme.cl"},
		{http.MethodPost, "/api/empresas"},
		{http.MethodPut, "/api/empresas/9"},
		{http.MethodDelete, "/api/empresas/9"},
		{http.MethodGet, "/api/health"},
	}, calls)
}

func TestUploadsSendMultipartForm(t *testing.T) {
	type form struct {
		method, path, nombre, dominio, filename, content string
	}
	var got []form
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("logoFile")
		require.NoError(t, err)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		got = append(got, form{
			method:   r.Method,
			path:     r.URL.Path,
			nombre:   r.FormValue("nombre"),
			dominio:  r.FormValue("dominio"),
			filename: hdr.Filename,
			content:  string(data),
		})
		if strings.HasSuffix(r.URL.Path, "/logo") {
			writeJSON(w, http.StatusOK, LogoResponse{Message: "Logo subido exitosamente", LogoURL: "/uploads/acme.svg"})
			return
		}
		writeJSON(w, http.StatusCreated, EmpresaResponse{ID: 3, Nombre: "Acme"})
	})
	ctx := context.Background()
	logo := func() Logo { return Logo{Filename: "acme.svg", Content: strings.NewReader("<svg/>")} }

	created, err := c.CreateEmpresaWithUpload(ctx, EmpresaUpload{Nombre: "Acme", Dominio: "@acme.cl", Logo: logo()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)
	_, err = c.UpdateEmpresaWithUpload(ctx, 3, EmpresaUpload{Nombre: "Acme 2", Dominio: "@acme.cl", Logo: logo()})
	require.NoError(t, err)
	uploaded, err := c.UploadLogo(ctx, 3, logo())
	require.NoError(t, err)
	assert.Equal(t, "/uploads/acme.svg", uploaded.LogoURL)

	assert.Equal(t, []form{
		{http.MethodPost, "/api/empresas/upload", "Acme", "@acme.cl", "acme.svg", "<svg/>"},
		{http.MethodPut, "/api/empresas/3/upload", "Acme 2", "@acme.cl", "acme.svg", "<svg/>"},
		{http.MethodPost, "/api/empresas/3/logo", "", "", "acme.svg", "<svg/>"},
	}, got)
}

func TestUploadRequiresLogo(t *testing.T) {
	c := NewClient("http://127.0.0.1:0/api")

	_, err := c.UploadLogo(context.Background(), 1, Logo{Filename: "x.svg"})

	assert.Error(t, err)
}

func TestDashboardOverview(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"usuariosActivos":1247,"viajesCompletados":3589,"kmsCompartidos":45678.5,"co2Ahorrado":2341.8,"pagosRealizados":89456}`)
	})

	got, err := c.DashboardOverview(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &DashboardOverview{
		UsuariosActivos:   1247,
		ViajesCompletados: 3589,
		KmsCompartidos:    45678.5,
		CO2Ahorrado:       2341.8,
		PagosRealizados:   89456,
	}, got)
}
