package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"cmfbsub/internal/config"
	"cmfbsub/internal/database"
	"cmfbsub/internal/services"
	"cmfbsub/pkg/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewRouter builds the gin engine with sessions, templates and all routes.
func NewRouter(cfg *config.Config, store *database.Store, fb *services.FacebookService, cs *services.CreateSendService) *gin.Engine {
	h := NewHandler(cfg, store, fb, cs)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		logging.Errorf("Unhandled panic: %v", err)
		c.HTML(http.StatusInternalServerError, "error.html", nil)
	}))

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("cmfbsub", sessionStore))

	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	r.GET("/", h.Settings)
	r.GET("/saved/:pageId", h.SavedPage)
	r.POST("/apikey", h.APIKey)
	r.GET("/clients/:apiKey", h.Clients)
	r.GET("/lists/:apiKey/:clientId", h.Lists)
	r.GET("/customfields/:apiKey/:listId", h.CustomFields)
	r.POST("/page/:pageId", h.SavePage)

	r.GET("/tab", h.Tab)
	r.POST("/tab", h.Tab) // Facebook POSTs page tab requests
	r.POST("/subscribe/:pageId", h.Subscribe)

	r.GET("/ondeauth", h.Deauthorize)

	r.GET("/auth/facebook", h.AuthStart)
	r.GET("/auth/facebook/callback", h.AuthCallback)
	r.GET("/auth/failure", h.AuthFailure)
	r.GET("/logout", h.Logout)

	r.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "not_found.html", nil)
	})

	return r
}
