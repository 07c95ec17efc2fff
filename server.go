package main

import (
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nIBOP/portfolio-site/internal/analytics"
	"github.com/nIBOP/portfolio-site/internal/blog"
	"github.com/nIBOP/portfolio-site/internal/config"
	"github.com/nIBOP/portfolio-site/internal/pdfview"
	"github.com/nIBOP/portfolio-site/internal/site"
)

// server holds everything the handlers share.
type server struct {
	cfg      *config.Config
	site     *site.Config
	posts    *blog.Repository
	renderer *blog.Renderer
	hits     *analytics.Store
	viewers  *pdfview.Manager
	loader   pdfview.Loader
	thumbs   *thumbnailCache
	mailer   Mailer

	adminToken string
}

func newServer(cfg *config.Config, siteCfg *site.Config, posts *blog.Repository, hits *analytics.Store,
	viewers *pdfview.Manager, loader pdfview.Loader, mailer Mailer) *server {
	s := &server{
		cfg:        cfg,
		site:       siteCfg,
		posts:      posts,
		renderer:   blog.NewRenderer(),
		hits:       hits,
		viewers:    viewers,
		loader:     loader,
		thumbs:     newThumbnailCache(thumbnailCacheSize),
		mailer:     mailer,
		adminToken: generateAdminToken(),
	}

	log.Printf("Admin access available at: /admin/login")
	if gin.Mode() == gin.DebugMode {
		log.Printf("Admin token (dev only): %s", s.adminToken)
		if cfg.DefaultAdmin() {
			log.Println("WARNING: Using default admin credentials. Set ADMIN_USERNAME and ADMIN_PASSWORD.")
		}
	}
	return s
}

func (s *server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"tagName": s.site.TagDisplayName,
		"join":    strings.Join,
	}
}

// routes builds the gin engine.
func (s *server) routes() (*gin.Engine, error) {
	r := gin.Default()

	tmpl, err := parseTemplates(s.cfg.TemplatesDir, s.templateFuncs())
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	r.Static("/static", s.cfg.StaticDir)
	r.Static("/images", filepath.Join(s.cfg.StaticDir, "images"))

	r.Use(s.visitorTrackingMiddleware())

	r.GET("/", s.handleHome)
	r.GET("/blog", s.handleBlog)
	r.GET("/blog/:slug", s.handlePost)
	r.GET("/viewer", s.handleViewerPage)
	r.GET("/thumbnails", s.handleThumbnail)
	r.POST("/contact", s.handleContact)

	s.setupViewerAPI(r)
	s.setupAdminRoutes(r)

	r.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "not-found.html", gin.H{"title": notFoundTitle, "message": pageNotFoundMessage})
	})
	return r, nil
}
