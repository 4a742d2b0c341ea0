package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/garcia-cyber/popcornRDC/internal/barcode"
	"github.com/garcia-cyber/popcornRDC/internal/config"
	"github.com/garcia-cyber/popcornRDC/internal/dto"
	"github.com/garcia-cyber/popcornRDC/internal/model"
	"github.com/garcia-cyber/popcornRDC/internal/router"
	"github.com/garcia-cyber/popcornRDC/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeProductos struct {
	mu        sync.Mutex
	productos map[uuid.UUID]*model.Producto
	errCrear  error
}

func newFakeProductos() *fakeProductos {
	return &fakeProductos{productos: make(map[uuid.UUID]*model.Producto)}
}

func (f *fakeProductos) respuesta(p *model.Producto) *dto.ProductoResponse {
	sim, _ := barcode.Codificar(p.Codigo())
	return &dto.ProductoResponse{
		ID: p.ID.String(), Nombre: p.Nombre, Precio: p.Precio,
		CodigoBarras: p.Codigo(), CodigoCompleto: sim.Completo,
		ImagenURL: "/v1/productos/" + p.ID.String() + "/codigo.png",
	}
}

func (f *fakeProductos) Crear(_ context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if f.errCrear != nil {
		return nil, f.errCrear
	}
	if strings.TrimSpace(req.Nombre) == "" {
		return nil, &service.CampoError{Campo: "nombre", Motivo: "requerido"}
	}
	if req.Precio == nil {
		return nil, &service.CampoError{Campo: "precio", Motivo: "requerido"}
	}
	codigo, _ := barcode.GenerarCodigo()
	p := &model.Producto{ID: uuid.New(), Nombre: req.Nombre, Precio: *req.Precio, CodigoBarras: &codigo}
	f.mu.Lock()
	f.productos[p.ID] = p
	f.mu.Unlock()
	return f.respuesta(p), nil
}

func (f *fakeProductos) buscar(id uuid.UUID) (*model.Producto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.productos[id]
	if !ok {
		return nil, service.ErrNoEncontrado
	}
	return p, nil
}

func (f *fakeProductos) ObtenerPorID(_ context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := f.buscar(id)
	if err != nil {
		return nil, err
	}
	return f.respuesta(p), nil
}

func (f *fakeProductos) BuscarPorCodigo(_ context.Context, codigo string) (*model.Producto, error) {
	codigo = strings.TrimSpace(codigo)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.productos {
		sim, _ := barcode.Codificar(p.Codigo())
		if p.Codigo() == codigo || sim.Completo == codigo {
			return p, nil
		}
	}
	return nil, service.ErrNoEncontrado
}

func (f *fakeProductos) Listar(_ context.Context, _ dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dto.ProductoListResponse{Page: 1, Limit: 20}
	for _, p := range f.productos {
		out.Data = append(out.Data, *f.respuesta(p))
	}
	out.Total = int64(len(out.Data))
	return out, nil
}

func (f *fakeProductos) Actualizar(_ context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := f.buscar(id)
	if err != nil {
		return nil, err
	}
	if req.Precio != nil {
		p.Precio = *req.Precio
	}
	return f.respuesta(p), nil
}

func (f *fakeProductos) Eliminar(_ context.Context, id uuid.UUID) error {
	if _, err := f.buscar(id); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.productos, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeProductos) Imagen(_ context.Context, id uuid.UUID) ([]byte, error) {
	p, err := f.buscar(id)
	if err != nil {
		return nil, err
	}
	_, png, err := barcode.DefaultRenderizador().Generar(p.Codigo())
	return png, err
}

func (f *fakeProductos) Etiqueta(_ context.Context, id uuid.UUID) (*model.Producto, []byte, error) {
	p, err := f.buscar(id)
	if err != nil {
		return nil, nil, err
	}
	return p, []byte("%PDF-1.3 fake"), nil
}

type fakeAuth struct{}

func (fakeAuth) Autenticar(_ context.Context, username, password string) (*model.Usuario, error) {
	if username == "caisse" && password == "secreto123" {
		return &model.Usuario{ID: uuid.New(), Username: "caisse", Activo: true}, nil
	}
	return nil, service.ErrCredenciales
}

func (a fakeAuth) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if _, err := a.Autenticar(ctx, req.Username, req.Password); err != nil {
		return nil, err
	}
	return &dto.LoginResponse{AccessToken: "x", TokenType: "bearer"}, nil
}

func (fakeAuth) Refresh(context.Context, string) (*dto.LoginResponse, error) {
	return nil, errors.New("refresh token invalido o expirado")
}

type fakeCola struct {
	enviados []string
}

func (c *fakeCola) EncolarEtiqueta(_ context.Context, _ uuid.UUID, email string) error {
	c.enviados = append(c.enviados, email)
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

const testSecret = "test_jwt_secret_32_chars_minimum!"

func newEngine(t *testing.T) (*gin.Engine, *fakeProductos, *fakeCola) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "test", JWTSecret: testSecret, SessionSecret: "session_secret_for_tests_32bytes"}
	prods, cola := newFakeProductos(), &fakeCola{}
	r := router.New(cfg, nil, nil, router.Servicios{Productos: prods, Auth: fakeAuth{}}, cola)
	return r, prods, cola
}

func accessToken(t *testing.T, typ string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(), "username": "caisse", "typ": typ,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func doJSON(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func crearProducto(t *testing.T, r http.Handler) dto.ProductoResponse {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/v1/productos",
		map[string]any{"nombre": "Popcorn", "precio": "2.50"}, accessToken(t, service.TokenAcceso))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.ProductoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ── API ──────────────────────────────────────────────────────────────────────

func TestCrear_RequiereToken(t *testing.T) {
	r, prods, _ := newEngine(t)

	w := doJSON(r, http.MethodPost, "/v1/productos", map[string]any{"nombre": "A", "precio": "1"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/v1/productos", map[string]any{"nombre": "A", "precio": "1"}, accessToken(t, service.TokenRefresh))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, prods.productos)
}

func TestCrear_Exitoso(t *testing.T) {
	r, _, _ := newEngine(t)
	resp := crearProducto(t, r)

	assert.Len(t, resp.CodigoBarras, 12)
	assert.Len(t, resp.CodigoCompleto, 13)
	assert.True(t, resp.Precio.Equal(decimal.RequireFromString("2.5")))
}

func TestCrear_ErroresMapeados(t *testing.T) {
	r, prods, _ := newEngine(t)
	tok := accessToken(t, service.TokenAcceso)

	w := doJSON(r, http.MethodPost, "/v1/productos", map[string]any{"nombre": "Sin precio"}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"precio"`)

	w = doJSON(r, http.MethodPost, "/v1/productos", map[string]any{"precio": "1"}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	prods.errCrear = service.ErrConflicto
	w = doJSON(r, http.MethodPost, "/v1/productos", map[string]any{"nombre": "A", "precio": "1"}, tok)
	assert.Equal(t, http.StatusConflict, w.Code)

	prods.errCrear = service.ErrCodigosAgotados
	w = doJSON(r, http.MethodPost, "/v1/productos", map[string]any{"nombre": "A", "precio": "1"}, tok)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "codigo de barras libre")
}

func TestConsultaPrecio_Publica(t *testing.T) {
	r, _, _ := newEngine(t)
	creado := crearProducto(t, r)

	for _, codigo := range []string{creado.CodigoBarras, creado.CodigoCompleto} {
		w := doJSON(r, http.MethodGet, "/v1/precio/"+codigo, nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.ConsultaPrecioResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Popcorn", resp.Nombre)
		assert.Equal(t, creado.CodigoCompleto, resp.CodigoCompleto)
	}

	w := doJSON(r, http.MethodGet, "/v1/precio/12345", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no_encontrado")
}

func TestImagenYEtiqueta_Publicas(t *testing.T) {
	r, _, _ := newEngine(t)
	creado := crearProducto(t, r)

	w := doJSON(r, http.MethodGet, creado.ImagenURL, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = doJSON(r, http.MethodGet, "/v1/productos/"+creado.ID+"/etiqueta.pdf", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = doJSON(r, http.MethodGet, "/v1/productos/no-es-uuid/codigo.png", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActualizarYEliminar(t *testing.T) {
	r, _, _ := newEngine(t)
	tok := accessToken(t, service.TokenAcceso)
	creado := crearProducto(t, r)

	w := doJSON(r, http.MethodPut, "/v1/productos/"+creado.ID, map[string]any{"precio": "3.00"}, tok)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodDelete, "/v1/productos/"+creado.ID, nil, tok)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodGet, "/v1/productos/"+creado.ID, nil, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnviarEtiqueta(t *testing.T) {
	r, _, cola := newEngine(t)
	tok := accessToken(t, service.TokenAcceso)
	creado := crearProducto(t, r)

	w := doJSON(r, http.MethodPost, "/v1/productos/"+creado.ID+"/etiqueta/enviar", map[string]any{"email": "no-es-email"}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(r, http.MethodPost, "/v1/productos/"+creado.ID+"/etiqueta/enviar", map[string]any{"email": "a@b.cd"}, tok)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"a@b.cd"}, cola.enviados)

	w = doJSON(r, http.MethodPost, "/v1/productos/"+uuid.NewString()+"/etiqueta/enviar", map[string]any{"email": "a@b.cd"}, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestID(t *testing.T) {
	r, _, _ := newEngine(t)

	w := doJSON(r, http.MethodGet, "/v1/precio/000000000000", nil, "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/v1/precio/000000000000", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

// ── Operator pages ───────────────────────────────────────────────────────────

func postForm(r http.Handler, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWeb_NouveauRequiereSesion(t *testing.T) {
	r, _, _ := newEngine(t)

	w := get(r, "/nouveau", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestWeb_LoginYAlta(t *testing.T) {
	r, prods, _ := newEngine(t)

	w := postForm(r, "/login", url.Values{"username": {"caisse"}, "password": {"mal"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postForm(r, "/login", url.Values{"username": {"caisse"}, "password": {"secreto123"}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = get(r, "/nouveau", cookies)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postForm(r, "/nouveau", url.Values{"nom": {"Popcorn"}, "prix": {"abc"}}, cookies)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = postForm(r, "/nouveau", url.Values{"nom": {"Popcorn"}, "prix": {"2,50"}}, cookies)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, strings.HasSuffix(w.Header().Get("Location"), "/imprimer"))
	require.Len(t, prods.productos, 1)

	w = get(r, w.Header().Get("Location"), cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "codigo.png")

	w = get(r, "/deco", cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestWeb_Scan(t *testing.T) {
	r, _, _ := newEngine(t)
	creado := crearProducto(t, r)

	w := get(r, "/scan?code_barre="+creado.CodigoCompleto, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Popcorn")
	assert.Contains(t, w.Body.String(), "2.50")

	w = get(r, "/scan?code_barre=999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(r, "/scan", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
