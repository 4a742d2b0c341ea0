package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is a sellable item identified by a random 12-digit EAN-13 payload.
// The 13th (check) digit is always derived from CodigoBarras and never stored.
type Producto struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre       string          `gorm:"size:255;index;not null"`
	Precio       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CodigoBarras *string         `gorm:"size:12;uniqueIndex"`
	// ImagenCodigo is the storage reference of the rendered PNG.
	ImagenCodigo *string
	CreatedAt    time.Time `gorm:"autoCreateTime;<-:create"`
	UpdatedAt    time.Time
}

func (Producto) TableName() string { return "productos" }

// Codigo returns the payload or "" while it is still unassigned.
func (p *Producto) Codigo() string {
	if p.CodigoBarras == nil {
		return ""
	}
	return *p.CodigoBarras
}
