package router

import (
	"time"

	"github.com/garcia-cyber/popcornRDC/internal/barcode"
	"github.com/garcia-cyber/popcornRDC/internal/config"
	"github.com/garcia-cyber/popcornRDC/internal/handler"
	"github.com/garcia-cyber/popcornRDC/internal/infra"
	"github.com/garcia-cyber/popcornRDC/internal/middleware"
	"github.com/garcia-cyber/popcornRDC/internal/repository"
	"github.com/garcia-cyber/popcornRDC/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Servicios groups what the HTTP layer and the background workers share.
type Servicios struct {
	Productos service.ProductoService
	Auth      service.AuthService
	Cache     *infra.PrecioCache
}

// NewServicios builds repositories and services.
// Dependency graph: Service ← Repository ← DB/Redis/ImagenStore
func NewServicios(cfg *config.Config, db *gorm.DB, rdb *redis.Client, store infra.ImagenStore) Servicios {
	productoRepo := repository.NewProductoRepository(db)
	usuarioRepo := repository.NewUsuarioRepository(db)

	render := barcode.Renderizador{
		AnchoModulo: cfg.BarcodeModuleWidth,
		Alto:        cfg.BarcodeHeight,
		Margen:      cfg.BarcodeMargin,
	}
	cache := infra.NewPrecioCache(rdb)

	return Servicios{
		Productos: service.NewProductoService(
			productoRepo,
			barcode.NewAsignador(cfg.AllocationMaxAttempts),
			render,
			store,
			cache,
			infra.EtiquetaOpciones{Tienda: cfg.ShopName, Moneda: cfg.Currency},
		),
		Auth:  service.NewAuthService(usuarioRepo, cfg),
		Cache: cache,
	}
}

// New returns a configured Gin engine. cola may be nil when label e-mails
// are disabled; rdb may be nil in which case the price cache is off.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, svcs Servicios, cola handler.EtiquetaEncolador) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.SetHTMLTemplate(handler.WebTemplates())

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.NewLimiter(1000, time.Minute).Middleware("Demasiadas solicitudes. Intente nuevamente en un momento."))

	loginLimiter := middleware.NewLimiter(20, time.Minute)
	consultaLimiter := middleware.NewLimiter(300, time.Minute)
	sessionStore := middleware.NewSessionStore(cfg.SessionSecret, cfg.Env == "production")

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svcs.Auth)
	productosH := handler.NewProductosHandler(svcs.Productos, cola)
	consultaH := handler.NewConsultaPreciosHandler(svcs.Productos, svcs.Cache)
	webH := handler.NewWebHandler(svcs.Productos, svcs.Auth, sessionStore)

	// ── API ──────────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(loginLimiter), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Lookup, barcode image and label are public; creation is not.
	r.GET("/v1/precio/:codigo", middleware.ConsultaRateLimiter(consultaLimiter), consultaH.GetPrecioPorCodigo)
	r.GET("/v1/productos/:id/codigo.png", productosH.Imagen)
	r.GET("/v1/productos/:id/etiqueta.pdf", productosH.Etiqueta)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		prods := v1.Group("/productos")
		{
			prods.GET("", productosH.Listar)
			prods.POST("", productosH.Crear)
			prods.GET("/:id", productosH.ObtenerPorID)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Eliminar)
			prods.POST("/:id/etiqueta/enviar", productosH.EnviarEtiqueta)
		}
		v1.GET("/etiquetas/fallidas", handler.EtiquetasFallidas(rdb))
	}

	// ── Operator pages ───────────────────────────────────────────────────────
	r.GET("/", webH.Home)
	r.GET("/login", webH.LoginForm)
	r.POST("/login", middleware.LoginRateLimiter(loginLimiter), webH.LoginSubmit)
	r.GET("/deco", webH.Logout)
	r.GET("/scan", middleware.ConsultaRateLimiter(consultaLimiter), webH.Scan)
	r.GET("/produit/:id/imprimer", webH.Imprimir)

	back := r.Group("", middleware.RequireSession(sessionStore))
	{
		back.GET("/dashboard", webH.Dashboard)
		back.GET("/nouveau", webH.NuevoForm)
		back.POST("/nouveau", webH.NuevoSubmit)
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
