//go:build integration

package router_test

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/garcia-cyber/popcornRDC/internal/config"
	"github.com/garcia-cyber/popcornRDC/internal/dto"
	"github.com/garcia-cyber/popcornRDC/internal/infra"
	"github.com/garcia-cyber/popcornRDC/internal/model"
	"github.com/garcia-cyber/popcornRDC/internal/repository"
	"github.com/garcia-cyber/popcornRDC/internal/router"
	"github.com/garcia-cyber/popcornRDC/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

type e2eEnv struct {
	server *httptest.Server
	token  string
	db     *gorm.DB
	rdb    *redis.Client
}

func setupE2E(t *testing.T) *e2eEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("popcorn_test"),
		tcPostgres.WithUsername("popcorn"),
		tcPostgres.WithPassword("popcorn"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                   "test",
		JWTSecret:             "test-secret-key",
		JWTExpirationHours:    8,
		JWTRefreshHours:       24,
		SessionSecret:         "session_secret_for_tests_32bytes",
		DatabaseURL:           pgURL,
		RedisURL:              rdURL,
		StorageDriver:         "local",
		BarcodeStoragePath:    t.TempDir(),
		BarcodeModuleWidth:    2,
		BarcodeHeight:         100,
		BarcodeMargin:         11,
		AllocationMaxAttempts: 1000,
		ShopName:              "Popcorn RDC",
		Currency:              "FC",
	}

	// NewDatabase runs the embedded migrations first.
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	require.NoError(t, err)
	store, err := infra.NewLocalStore(cfg.BarcodeStoragePath)
	require.NoError(t, err)

	hash, err := service.HashPassword("secreto123")
	require.NoError(t, err)
	require.NoError(t, repository.NewUsuarioRepository(db).Upsert(ctx, &model.Usuario{
		Username: "caisse", Nombre: "Caisse", PasswordHash: hash, Activo: true,
	}))

	svcs := router.NewServicios(cfg, db, rdb, store)
	srv := httptest.NewServer(router.New(cfg, db, rdb, svcs, nil))
	t.Cleanup(srv.Close)

	resp := e2eDo(t, srv, http.MethodPost, "/v1/auth/login", map[string]string{"username": "caisse", "password": "secreto123"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login dto.LoginResponse
	e2eDecode(t, resp, &login)

	return &e2eEnv{server: srv, token: login.AccessToken, db: db, rdb: rdb}
}

func e2eDo(t *testing.T, srv *httptest.Server, method, path string, body any, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func e2eDecode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestE2E_CicloCompleto(t *testing.T) {
	env := setupE2E(t)
	ctx := context.Background()

	// 1. Create (auth required)
	resp := e2eDo(t, env.server, http.MethodPost, "/v1/productos", map[string]any{"nombre": "Popcorn", "precio": "2.50"}, "")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e2eDo(t, env.server, http.MethodPost, "/v1/productos", map[string]any{"nombre": "Popcorn", "precio": "2.50"}, env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var creado dto.ProductoResponse
	e2eDecode(t, resp, &creado)
	require.Len(t, creado.CodigoBarras, 12)

	// 2. Public lookup by payload and by full symbol
	for _, codigo := range []string{creado.CodigoBarras, creado.CodigoCompleto} {
		resp = e2eDo(t, env.server, http.MethodGet, "/v1/precio/"+codigo, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var precio dto.ConsultaPrecioResponse
		e2eDecode(t, resp, &precio)
		assert.Equal(t, creado.ID, precio.ID)
		assert.True(t, precio.Precio.Equal(decimal.RequireFromString("2.50")))
	}
	n, err := env.rdb.Exists(ctx, "precio:"+creado.CodigoCompleto).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// 3. Image is served
	resp = e2eDo(t, env.server, http.MethodGet, creado.ImagenURL, nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// 4. Price update invalidates the cache
	resp = e2eDo(t, env.server, http.MethodPut, "/v1/productos/"+creado.ID, map[string]any{"precio": "3.00"}, env.token)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	n, err = env.rdb.Exists(ctx, "precio:"+creado.CodigoCompleto, "precio:"+creado.CodigoBarras).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	resp = e2eDo(t, env.server, http.MethodGet, "/v1/precio/"+creado.CodigoCompleto, nil, "")
	var actualizado dto.ConsultaPrecioResponse
	e2eDecode(t, resp, &actualizado)
	assert.True(t, actualizado.Precio.Equal(decimal.NewFromInt(3)))

	// 5. Delete
	resp = e2eDo(t, env.server, http.MethodDelete, "/v1/productos/"+creado.ID, nil, env.token)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e2eDo(t, env.server, http.MethodGet, "/v1/precio/"+creado.CodigoBarras, nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestE2E_AltasConcurrentesCodigosUnicos(t *testing.T) {
	env := setupE2E(t)

	const total = 20
	var wg sync.WaitGroup
	codigos := make(chan string, total)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/v1/productos",
				bytes.NewBufferString(`{"nombre":"Concurrente","precio":"1"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+env.token)
			resp, err := env.server.Client().Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			var p dto.ProductoResponse
			if resp.StatusCode == http.StatusCreated && json.NewDecoder(resp.Body).Decode(&p) == nil {
				codigos <- p.CodigoBarras
			}
		}()
	}
	wg.Wait()
	close(codigos)

	vistos := map[string]bool{}
	for c := range codigos {
		assert.False(t, vistos[c])
		vistos[c] = true
	}
	assert.Len(t, vistos, total)
}

func TestE2E_IndiceUnicoRechazaDuplicados(t *testing.T) {
	env := setupE2E(t)
	repo := repository.NewProductoRepository(env.db)
	ctx := context.Background()

	codigo := "590123412345"
	require.NoError(t, repo.Create(ctx, &model.Producto{Nombre: "A", Precio: decimal.NewFromInt(1), CodigoBarras: &codigo}))

	otro := codigo
	err := repo.Create(ctx, &model.Producto{Nombre: "B", Precio: decimal.NewFromInt(1), CodigoBarras: &otro})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	malo := "12345"
	err = repo.Create(ctx, &model.Producto{Nombre: "C", Precio: decimal.NewFromInt(1), CodigoBarras: &malo})
	assert.Error(t, err)
}
