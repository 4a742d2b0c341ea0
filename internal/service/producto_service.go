package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/garcia-cyber/popcornRDC/internal/barcode"
	"github.com/garcia-cyber/popcornRDC/internal/dto"
	"github.com/garcia-cyber/popcornRDC/internal/infra"
	"github.com/garcia-cyber/popcornRDC/internal/model"
	"github.com/garcia-cyber/popcornRDC/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// precioMaximo is the first value that no longer fits decimal(10,2).
var precioMaximo = decimal.New(1, 8)

// ProductoService defines the business logic contract for products.
type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	// BuscarPorCodigo resolves a 12-digit payload or a 13-digit EAN-13 symbol.
	BuscarPorCodigo(ctx context.Context, codigo string) (*model.Producto, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
	Imagen(ctx context.Context, id uuid.UUID) ([]byte, error)
	Etiqueta(ctx context.Context, id uuid.UUID) (*model.Producto, []byte, error)
}

type productoService struct {
	repo      repository.ProductoRepository
	asignador *barcode.Asignador
	render    barcode.Renderizador
	store     infra.ImagenStore
	cache     *infra.PrecioCache
	etiqueta  infra.EtiquetaOpciones
}

func NewProductoService(
	repo repository.ProductoRepository,
	asignador *barcode.Asignador,
	render barcode.Renderizador,
	store infra.ImagenStore,
	cache *infra.PrecioCache,
	etiqueta infra.EtiquetaOpciones,
) ProductoService {
	return &productoService{
		repo:      repo,
		asignador: asignador,
		render:    render,
		store:     store,
		cache:     cache,
		etiqueta:  etiqueta,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// Two sequential writes:
//   1. allocate a free payload and insert the row (durable identity)
//   2. encode + render + store the PNG, then attach its reference
// If step 2 fails the row and the stored image are removed before the error
// is returned, so a reported success always has an image.
// A unique violation in step 1 (two creators sampled the same free code) is
// retried once with a fresh allocation.

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	nombre, precio, err := validarProducto(req.Nombre, req.Precio)
	if err != nil {
		return nil, err
	}

	p, err := s.crearConCodigo(ctx, nombre, precio)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		log.Warn().Str("nombre", nombre).Msg("codigo de barras tomado por otra alta concurrente, reasignando")
		p, err = s.crearConCodigo(ctx, nombre, precio)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %v", ErrConflicto, err)
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("id", p.ID.String()).Str("codigo", p.Codigo()).Msg("producto creado")
	resp := toProductoResponse(p)
	return &resp, nil
}

func (s *productoService) crearConCodigo(ctx context.Context, nombre string, precio decimal.Decimal) (*model.Producto, error) {
	codigo, err := s.asignador.Asignar(ctx, s.repo.ExisteCodigo)
	if err != nil {
		return nil, err
	}

	p := &model.Producto{Nombre: nombre, Precio: precio, CodigoBarras: &codigo}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	ref, err := s.finalizar(ctx, p)
	if err != nil {
		s.compensar(p, ref)
		return nil, err
	}
	p.ImagenCodigo = &ref
	return p, nil
}

// finalizar renders and stores the image and attaches it to p. The returned
// ref is non-empty as soon as the image was stored, even on error.
func (s *productoService) finalizar(ctx context.Context, p *model.Producto) (string, error) {
	_, png, err := s.render.Generar(p.Codigo())
	if err != nil {
		return "", fmt.Errorf("generar imagen: %w", err)
	}
	ref, err := s.store.Guardar(ctx, infra.ImagenKey(p.Codigo()), png)
	if err != nil {
		return "", fmt.Errorf("guardar imagen: %w", err)
	}
	if err := s.repo.AsignarImagen(ctx, p.ID, ref); err != nil {
		return ref, fmt.Errorf("asignar imagen: %w", err)
	}
	return ref, nil
}

// compensar undoes phase 1 after a failed phase 2. It uses a fresh context so
// a cancelled request still cleans up.
func (s *productoService) compensar(p *model.Producto, ref string) {
	ctx := context.Background()
	if err := s.repo.Delete(ctx, p.ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error().Err(err).Str("id", p.ID.String()).Msg("no se pudo revertir el alta del producto")
	}
	if ref != "" {
		if err := s.store.Eliminar(ctx, ref); err != nil {
			log.Error().Err(err).Str("ref", ref).Msg("no se pudo eliminar la imagen huerfana")
		}
	}
}

// ── Lectura ───────────────────────────────────────────────────────────────────

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toProductoResponse(p)
	return &resp, nil
}

// BuscarPorCodigo only touches the repository for 12 or 13 digit inputs.
// A 13-digit symbol is a pure function of its first 12 digits, so the match
// is the product stored under that prefix whose derived symbol equals the
// input. A wrong check digit can never match.
func (s *productoService) BuscarPorCodigo(ctx context.Context, codigo string) (*model.Producto, error) {
	codigo = strings.TrimSpace(codigo)

	var payload string
	switch {
	case barcode.SoloDigitos(codigo, barcode.LongitudPayload):
		payload = codigo
	case barcode.SoloDigitos(codigo, barcode.LongitudCompleto):
		if barcode.ValidarCompleto(codigo) != nil {
			return nil, ErrNoEncontrado
		}
		payload = codigo[:barcode.LongitudPayload]
	default:
		return nil, ErrNoEncontrado
	}

	p, err := s.repo.FindByCodigo(ctx, payload)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	if len(codigo) == barcode.LongitudCompleto {
		sim, err := barcode.Codificar(p.Codigo())
		if err != nil {
			return nil, err
		}
		if sim.Completo != codigo {
			return nil, ErrNoEncontrado
		}
	}
	return p, nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	productos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, len(productos))
	for i := range productos {
		data[i] = toProductoResponse(&productos[i])
	}
	return &dto.ProductoListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

// ── Edicion ───────────────────────────────────────────────────────────────────

// Actualizar changes name and/or price; the barcode and its image stay as they are.
func (s *productoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}

	nombre, precio := p.Nombre, p.Precio
	if req.Nombre != nil {
		nombre = *req.Nombre
	}
	if req.Precio != nil {
		precio = *req.Precio
	}
	nombre, precio, err = validarProducto(nombre, &precio)
	if err != nil {
		return nil, err
	}
	p.Nombre, p.Precio = nombre, precio

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoEncontrado
		}
		return nil, err
	}
	s.invalidarCache(ctx, p)

	resp := toProductoResponse(p)
	return &resp, nil
}

// Eliminar removes the record. The stored image is left in place.
func (s *productoService) Eliminar(ctx context.Context, id uuid.UUID) error {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoEncontrado
		}
		return err
	}
	s.invalidarCache(ctx, p)
	return nil
}

// ── Imagen / etiqueta ─────────────────────────────────────────────────────────

// Imagen returns the stored PNG. When the object is gone from storage the
// image is rendered again from the payload; it is not written back.
func (s *productoService) Imagen(ctx context.Context, id uuid.UUID) ([]byte, error) {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.imagen(ctx, p)
}

func (s *productoService) imagen(ctx context.Context, p *model.Producto) ([]byte, error) {
	if p.CodigoBarras == nil {
		return nil, ErrNoEncontrado
	}
	if p.ImagenCodigo != nil {
		data, err := s.store.Abrir(ctx, *p.ImagenCodigo)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, infra.ErrImagenNoEncontrada) {
			return nil, err
		}
		log.Warn().Str("ref", *p.ImagenCodigo).Msg("imagen ausente en el almacenamiento, regenerando")
	}
	_, png, err := s.render.Generar(p.Codigo())
	return png, err
}

// Etiqueta builds the printable label PDF for a product.
func (s *productoService) Etiqueta(ctx context.Context, id uuid.UUID) (*model.Producto, []byte, error) {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	png, err := s.imagen(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	sim, err := barcode.Codificar(p.Codigo())
	if err != nil {
		return nil, nil, err
	}
	pdf, err := infra.GenerarEtiquetaPDF(p, sim, png, s.etiqueta)
	if err != nil {
		return nil, nil, err
	}
	return p, pdf, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *productoService) buscar(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productoService) invalidarCache(ctx context.Context, p *model.Producto) {
	if p.CodigoBarras == nil {
		return
	}
	keys := []string{p.Codigo()}
	if sim, err := barcode.Codificar(p.Codigo()); err == nil {
		keys = append(keys, sim.Completo)
	}
	s.cache.Invalidar(ctx, keys...)
}

// CampoError reports which input field failed validation.
type CampoError struct {
	Campo  string
	Motivo string
}

func (e *CampoError) Error() string { return e.Campo + ": " + e.Motivo }

func (e *CampoError) Unwrap() error { return ErrValidacion }

func validarProducto(nombre string, precio *decimal.Decimal) (string, decimal.Decimal, error) {
	nombre = strings.TrimSpace(nombre)
	switch {
	case nombre == "":
		return "", decimal.Zero, &CampoError{Campo: "nombre", Motivo: "requerido"}
	case len([]rune(nombre)) > 255:
		return "", decimal.Zero, &CampoError{Campo: "nombre", Motivo: "maximo 255 caracteres"}
	case precio == nil:
		return "", decimal.Zero, &CampoError{Campo: "precio", Motivo: "requerido"}
	case precio.IsNegative():
		return "", decimal.Zero, &CampoError{Campo: "precio", Motivo: "no puede ser negativo"}
	case !precio.Equal(precio.Round(2)):
		return "", decimal.Zero, &CampoError{Campo: "precio", Motivo: "maximo 2 decimales"}
	case precio.GreaterThanOrEqual(precioMaximo):
		return "", decimal.Zero, &CampoError{Campo: "precio", Motivo: "fuera de rango"}
	}
	return nombre, *precio, nil
}

func toProductoResponse(p *model.Producto) dto.ProductoResponse {
	resp := dto.ProductoResponse{
		ID:           p.ID.String(),
		Nombre:       p.Nombre,
		Precio:       p.Precio,
		CodigoBarras: p.Codigo(),
		CreatedAt:    p.CreatedAt,
	}
	if sim, err := barcode.Codificar(p.Codigo()); err == nil {
		resp.CodigoCompleto = sim.Completo
	}
	if p.ImagenCodigo != nil {
		resp.ImagenURL = "/v1/productos/" + p.ID.String() + "/codigo.png"
	}
	return resp
}
