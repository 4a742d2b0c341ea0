package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const (
	SessionName     = "popcorn_session"
	SessionUserKey  = "user_id"
	SessionNameKey  = "username"
	SessionOperador = "operador"
)

// NewSessionStore builds the signed cookie store for the operator pages.
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   8 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// RequireSession sends visitors without an operator session to /login.
func RequireSession(store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Get(c.Request, SessionName)
		if err != nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		username, ok := sess.Values[SessionNameKey].(string)
		if _, tiene := sess.Values[SessionUserKey].(string); !tiene || !ok {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Set(SessionOperador, username)
		c.Next()
	}
}
