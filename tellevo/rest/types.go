package rest

import "io"

// Authentication types

// LoginRequest is the request body for the admin login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse contains the JWT token returned after successful authentication.
type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Service string `json:"service,omitempty"`
}

// Dashboard types

// DashboardOverview holds the headline figures shown on the admin dashboard.
type DashboardOverview struct {
	UsuariosActivos   int64   `json:"usuariosActivos"`
	ViajesCompletados int64   `json:"viajesCompletados"`
	KmsCompartidos    float64 `json:"kmsCompartidos"`
	CO2Ahorrado       float64 `json:"co2Ahorrado"`
	PagosRealizados   int64   `json:"pagosRealizados"`
}

// Empresa types

// EmpresaRequest is the JSON body for creating or updating a company.
// Dominio has the form "@empresa.cl"; LogoURL must point at an .svg file.
type EmpresaRequest struct {
	Nombre  string `json:"nombre"`
	Dominio string `json:"dominio"`
	LogoURL string `json:"logoUrl"`
}

// EmpresaResponse is a company as returned by the backend. Message is set on
// create, update and delete.
type EmpresaResponse struct {
	ID         int64  `json:"id,omitempty"`
	Nombre     string `json:"nombre,omitempty"`
	CodigoPais string `json:"codigoPais,omitempty"`
	Dominio    string `json:"dominio,omitempty"`
	LogoURL    string `json:"logoUrl,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Logo is an image file sent as the logoFile multipart field.
type Logo struct {
	Filename string
	Content  io.Reader
}

// EmpresaUpload is the multipart form for the upload variants of create and
// update.
type EmpresaUpload struct {
	Nombre  string
	Dominio string
	Logo    Logo
}

// LogoResponse is returned after uploading a logo for an existing company.
type LogoResponse struct {
	Message string `json:"message"`
	LogoURL string `json:"logoUrl"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
