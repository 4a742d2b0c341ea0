package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/garcia-cyber/popcornRDC/internal/apierror"
	"github.com/garcia-cyber/popcornRDC/internal/dto"
	"github.com/garcia-cyber/popcornRDC/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EtiquetaEncolador queues a label e-mail for background delivery.
type EtiquetaEncolador interface {
	EncolarEtiqueta(ctx context.Context, productoID uuid.UUID, email string) error
}

type ProductosHandler struct {
	svc  service.ProductoService
	cola EtiquetaEncolador
}

func NewProductosHandler(svc service.ProductoService, cola EtiquetaEncolador) *ProductosHandler {
	return &ProductosHandler{svc: svc, cola: cola}
}

// Crear godoc
// @Summary Registrar producto (genera codigo EAN-13 e imagen)
// @Tags productos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearProductoRequest true "Producto"
// @Success 201 {object} dto.ProductoResponse
// @Failure 422 {object} apierror.ValidationError
// @Failure 409 {object} apierror.APIError
// @Router /v1/productos [post]
func (h *ProductosHandler) Crear(c *gin.Context) {
	var req dto.CrearProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Location", "/v1/productos/"+resp.ID)
	c.JSON(http.StatusCreated, resp)
}

func (h *ProductosHandler) Listar(c *gin.Context) {
	var filter dto.ProductoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductosHandler) ObtenerPorID(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductosHandler) Actualizar(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.ActualizarProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductosHandler) Eliminar(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Imagen godoc
// @Summary Imagen PNG del codigo de barras
// @Tags productos
// @Produce png
// @Param id path string true "ID del producto"
// @Success 200 {file} binary
// @Router /v1/productos/{id}/codigo.png [get]
func (h *ProductosHandler) Imagen(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	png, err := h.svc.Imagen(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	// The code never changes for a product, so the image is immutable.
	c.Header("Cache-Control", "public, max-age=86400, immutable")
	c.Data(http.StatusOK, "image/png", png)
}

// Etiqueta godoc
// @Summary Etiqueta imprimible en PDF
// @Tags productos
// @Produce application/pdf
// @Param id path string true "ID del producto"
// @Success 200 {file} binary
// @Router /v1/productos/{id}/etiqueta.pdf [get]
func (h *ProductosHandler) Etiqueta(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, pdf, err := h.svc.Etiqueta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "etiqueta-"+p.Codigo()+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// EnviarEtiqueta godoc
// @Summary Enviar la etiqueta por e-mail (asincrono)
// @Tags productos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del producto"
// @Param body body dto.EnviarEtiquetaRequest true "Destinatario"
// @Success 202 {object} map[string]string
// @Router /v1/productos/{id}/etiqueta/enviar [post]
func (h *ProductosHandler) EnviarEtiqueta(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.EnviarEtiquetaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, err := h.svc.ObtenerPorID(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	if h.cola == nil {
		c.JSON(http.StatusServiceUnavailable, apierror.New("Envio de etiquetas no disponible"))
		return
	}
	if err := h.cola.EncolarEtiqueta(c.Request.Context(), id, req.Email); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "encolado"})
}
