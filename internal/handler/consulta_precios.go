package handler

import (
	"net/http"
	"strings"

	"github.com/garcia-cyber/popcornRDC/internal/barcode"
	"github.com/garcia-cyber/popcornRDC/internal/dto"
	"github.com/garcia-cyber/popcornRDC/internal/infra"
	"github.com/garcia-cyber/popcornRDC/internal/service"

	"github.com/gin-gonic/gin"
)

// ConsultaPreciosHandler serves the public price check endpoint.
// No authentication required and no side effects besides the cache.
type ConsultaPreciosHandler struct {
	svc   service.ProductoService
	cache *infra.PrecioCache
}

func NewConsultaPreciosHandler(svc service.ProductoService, cache *infra.PrecioCache) *ConsultaPreciosHandler {
	return &ConsultaPreciosHandler{svc: svc, cache: cache}
}

// GetPrecioPorCodigo godoc
// @Summary Consulta de precio por codigo de barras (sin autenticacion)
// @Tags precio
// @Produce json
// @Param codigo path string true "Codigo de 12 o 13 digitos"
// @Success 200 {object} dto.ConsultaPrecioResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/precio/{codigo} [get]
func (h *ConsultaPreciosHandler) GetPrecioPorCodigo(c *gin.Context) {
	codigo := strings.TrimSpace(c.Param("codigo"))
	ctx := c.Request.Context()

	if cached, ok := h.cache.Get(ctx, codigo); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	p, err := h.svc.BuscarPorCodigo(ctx, codigo)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.ConsultaPrecioResponse{
		ID:     p.ID.String(),
		Nombre: p.Nombre,
		Precio: p.Precio,
	}
	if sim, err := barcode.Codificar(p.Codigo()); err == nil {
		resp.CodigoCompleto = sim.Completo
	}
	h.cache.Set(ctx, codigo, resp)

	c.JSON(http.StatusOK, resp)
}
