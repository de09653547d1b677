package middleware

import (
	"encoding/gob"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

type Options struct {
	SessionKey     string
	SessionName    string
	SecureCookies  bool
	AllowedOrigins []string
}

func init() {
	gob.Register(uint(0))
}

func SetUpMiddleware(r *gin.Engine, opts Options) {
	name := opts.SessionName
	if name == "" {
		name = "scorekeep"
	}
	store := cookie.NewStore([]byte(opts.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		Secure:   opts.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(name, store))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowOrigins = nil
		cfg.AllowOriginFunc = func(string) bool { return true }
	}
	r.Use(cors.New(cfg))
}
