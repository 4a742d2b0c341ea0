package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CrearProductoRequest carries only operator input; the barcode and its
// image are generated by the service.
type CrearProductoRequest struct {
	Nombre string           `json:"nombre" validate:"required,max=255"`
	Precio *decimal.Decimal `json:"precio"`
}

type ActualizarProductoRequest struct {
	Nombre *string          `json:"nombre" validate:"omitempty,max=255"`
	Precio *decimal.Decimal `json:"precio"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Nombre string `form:"nombre"`
	Page   int    `form:"page,default=1"  validate:"min=1"`
	Limit  int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID             string          `json:"id"`
	Nombre         string          `json:"nombre"`
	Precio         decimal.Decimal `json:"precio"`
	CodigoBarras   string          `json:"codigo_barras"`
	CodigoCompleto string          `json:"codigo_completo"`
	ImagenURL      string          `json:"imagen_url"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ProductoListResponse struct {
	Data       []ProductoResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// ConsultaPrecioResponse is returned by the public price check endpoint (no auth required).
type ConsultaPrecioResponse struct {
	ID             string          `json:"id"`
	Nombre         string          `json:"nombre"`
	Precio         decimal.Decimal `json:"precio"`
	CodigoCompleto string          `json:"codigo_completo"`
}

// EnviarEtiquetaRequest asks for the printable label to be mailed.
type EnviarEtiquetaRequest struct {
	Email string `json:"email" validate:"required,email"`
}
