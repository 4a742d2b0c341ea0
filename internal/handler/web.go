package handler

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/garcia-cyber/popcornRDC/internal/barcode"
	"github.com/garcia-cyber/popcornRDC/internal/dto"
	"github.com/garcia-cyber/popcornRDC/internal/middleware"
	"github.com/garcia-cyber/popcornRDC/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templatesFS embed.FS

// WebTemplates parses the operator pages embedded in the binary.
func WebTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))
}

// WebHandler serves the server-rendered operator pages.
type WebHandler struct {
	productos service.ProductoService
	auth      service.AuthService
	store     sessions.Store
}

func NewWebHandler(productos service.ProductoService, auth service.AuthService, store sessions.Store) *WebHandler {
	return &WebHandler{productos: productos, auth: auth, store: store}
}

// sesion never fails: an unreadable cookie yields a fresh session.
func (h *WebHandler) sesion(c *gin.Context) *sessions.Session {
	sess, err := h.store.Get(c.Request, middleware.SessionName)
	if err != nil {
		log.Debug().Err(err).Msg("cookie de sesion invalida, se descarta")
	}
	return sess
}

func (h *WebHandler) operador(c *gin.Context) string {
	if v := c.GetString(middleware.SessionOperador); v != "" {
		return v
	}
	name, _ := h.sesion(c).Values[middleware.SessionNameKey].(string)
	return name
}

// flashes pops pending flash messages and persists the session if any.
func (h *WebHandler) flashes(c *gin.Context) []string {
	sess := h.sesion(c)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = sess.Save(c.Request, c.Writer)
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (h *WebHandler) errorPage(c *gin.Context, err error) {
	_ = c.Error(err)
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{
		"Titulo":  "Erreur",
		"Mensaje": "Une erreur interne est survenue.",
	})
	c.Abort()
}

// ── Accueil / authentification ───────────────────────────────────────────────

func (h *WebHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Titulo":   "Accueil",
		"Operador": h.operador(c),
	})
}

func (h *WebHandler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Titulo":   "Connexion",
		"Flashes":  h.flashes(c),
		"Username": "",
	})
}

func (h *WebHandler) LoginSubmit(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	user, err := h.auth.Autenticar(c.Request.Context(), username, password)
	if err != nil {
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"Titulo":   "Connexion",
			"Mensaje":  "Nom d'utilisateur ou mot de passe incorrect.",
			"Username": username,
		})
		return
	}

	sess := h.sesion(c)
	sess.Values[middleware.SessionUserKey] = user.ID.String()
	sess.Values[middleware.SessionNameKey] = user.Username
	if err := sess.Save(c.Request, c.Writer); err != nil {
		h.errorPage(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Logout is the /deco page.
func (h *WebHandler) Logout(c *gin.Context) {
	sess := h.sesion(c)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	_ = sess.Save(c.Request, c.Writer)
	c.Redirect(http.StatusSeeOther, "/")
}

// ── Back office ──────────────────────────────────────────────────────────────

func (h *WebHandler) Dashboard(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	filter := dto.ProductoFilter{Nombre: strings.TrimSpace(c.Query("q")), Page: page, Limit: 50}

	lista, err := h.productos.Listar(c.Request.Context(), filter)
	if err != nil {
		h.errorPage(c, err)
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Titulo":   "Tableau de bord",
		"Operador": h.operador(c),
		"Flashes":  h.flashes(c),
		"Busqueda": filter.Nombre,
		"Lista":    lista,
	})
}

func (h *WebHandler) NuevoForm(c *gin.Context) {
	c.HTML(http.StatusOK, "nouveau.html", gin.H{
		"Titulo":   "Enregistrer un nouveau produit",
		"Operador": h.operador(c),
	})
}

func (h *WebHandler) NuevoSubmit(c *gin.Context) {
	nombre := c.PostForm("nom")
	precioStr := strings.TrimSpace(strings.ReplaceAll(c.PostForm("prix"), ",", "."))

	datos := gin.H{
		"Titulo":   "Enregistrer un nouveau produit",
		"Operador": h.operador(c),
		"Nom":      nombre,
		"Prix":     c.PostForm("prix"),
	}

	req := dto.CrearProductoRequest{Nombre: nombre}
	if precioStr != "" {
		p, err := decimal.NewFromString(precioStr)
		if err != nil {
			datos["Errores"] = map[string]string{"precio": "nombre invalide"}
			c.HTML(http.StatusUnprocessableEntity, "nouveau.html", datos)
			return
		}
		req.Precio = &p
	}

	resp, err := h.productos.Crear(c.Request.Context(), req)
	var campo *service.CampoError
	switch {
	case errors.As(err, &campo):
		datos["Errores"] = map[string]string{campo.Campo: campo.Motivo}
		c.HTML(http.StatusUnprocessableEntity, "nouveau.html", datos)
		return
	case errors.Is(err, service.ErrConflicto):
		datos["Mensaje"] = "Conflit lors de l'attribution du code-barres, veuillez reessayer."
		c.HTML(http.StatusConflict, "nouveau.html", datos)
		return
	case err != nil:
		h.errorPage(c, err)
		return
	}

	sess := h.sesion(c)
	sess.AddFlash("Produit " + resp.Nombre + " enregistre.")
	_ = sess.Save(c.Request, c.Writer)
	c.Redirect(http.StatusSeeOther, "/produit/"+resp.ID+"/imprimer")
}

// ── Pages publiques ──────────────────────────────────────────────────────────

// Scan looks a product up from ?code_barre= (12 or 13 digits).
func (h *WebHandler) Scan(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code_barre"))
	datos := gin.H{
		"Titulo":   "Recherche de prix",
		"Operador": h.operador(c),
		"Code":     code,
	}
	if code == "" {
		datos["Mensaje"] = "Veuillez scanner un code-barres."
		c.HTML(http.StatusOK, "scan.html", datos)
		return
	}

	p, err := h.productos.BuscarPorCodigo(c.Request.Context(), code)
	switch {
	case errors.Is(err, service.ErrNoEncontrado):
		datos["Mensaje"] = "Aucun produit trouve avec le code : " + code
		c.HTML(http.StatusNotFound, "scan.html", datos)
		return
	case err != nil:
		h.errorPage(c, err)
		return
	}

	datos["Producto"] = p
	if sim, err := barcode.Codificar(p.Codigo()); err == nil {
		datos["Completo"] = sim.Completo
	}
	datos["Mensaje"] = "Prix trouve pour " + p.Nombre + "."
	c.HTML(http.StatusOK, "scan.html", datos)
}

// Imprimir shows the barcode of one product ready to print.
func (h *WebHandler) Imprimir(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.HTML(http.StatusNotFound, "error.html", gin.H{"Titulo": "Introuvable", "Mensaje": "Produit introuvable."})
		return
	}
	p, err := h.productos.ObtenerPorID(c.Request.Context(), id)
	switch {
	case errors.Is(err, service.ErrNoEncontrado):
		c.HTML(http.StatusNotFound, "error.html", gin.H{"Titulo": "Introuvable", "Mensaje": "Produit introuvable."})
		return
	case err != nil:
		h.errorPage(c, err)
		return
	}
	c.HTML(http.StatusOK, "imprimer.html", gin.H{
		"Titulo":   "Imprimer " + p.Nombre,
		"Operador": h.operador(c),
		"Flashes":  h.flashes(c),
		"Producto": p,
	})
}
