package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/nIBOP/portfolio-site/internal/analytics"
	"github.com/nIBOP/portfolio-site/internal/blog"
	"github.com/nIBOP/portfolio-site/internal/config"
	"github.com/nIBOP/portfolio-site/internal/pdfview"
	"github.com/nIBOP/portfolio-site/internal/site"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	// maxprocs.Set only fails on a malformed GOMAXPROCS; the runtime default applies then.
	_, _ = maxprocs.Set(maxprocs.Logger(log.Printf))

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	siteCfg, posts, err := loadContent(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.ListPosts {
		if err := listPosts(os.Stdout, posts.List(""), siteCfg, terminalWidth()); err != nil {
			log.Fatal(err)
		}
		return
	}

	hits, err := analytics.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open analytics database: ", err)
	}
	go func() {
		if _, err := hits.Cleanup(context.Background()); err != nil {
			log.Printf("Error cleaning up old visitor data: %v", err)
		}
	}()
	log.Println("Privacy-conscious visitor tracking initialized")

	client := &http.Client{Timeout: cfg.PDFFetchTimeout}
	allowed := append(siteCfg.DocumentHosts(), cfg.PDFAllowedHosts...)
	loader := pdfview.NewFetchLoader(os.DirFS(cfg.StaticDir), "/static/", client, allowed...)
	loader.MaxBytes = cfg.PDFMaxBytes
	log.Printf("PDF viewer may fetch from: %s", strings.Join(allowed, ", "))

	viewers := pdfview.NewManager(loader, cfg.ViewerIdleTTL)
	viewers.SetMaxSessions(cfg.ViewerSessions)
	viewers.StartJanitor(time.Minute)

	s := newServer(cfg, siteCfg, posts, hits, viewers, loader, newSMTPMailer(cfg))
	r, err := s.routes()
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Listening on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down: %v", err)
	}
	viewers.Close()
	if err := hits.Close(); err != nil {
		log.Printf("Error closing analytics database: %v", err)
	}
}

// loadContent reads the site file and the blog posts, from disk when
// configured and from the embedded defaults otherwise.
func loadContent(cfg *config.Config) (*site.Config, *blog.Repository, error) {
	var siteCfg *site.Config
	var err error
	if cfg.SiteConfig != "" {
		siteCfg, err = site.LoadFile(cfg.SiteConfig)
	} else {
		siteCfg, err = site.Parse(defaultSiteFile)
	}
	if err != nil {
		return nil, nil, err
	}

	var content fs.FS
	if cfg.ContentDir != "" {
		content = os.DirFS(cfg.ContentDir)
	} else {
		content, err = fs.Sub(embeddedContent, "content")
		if err != nil {
			return nil, nil, err
		}
	}
	posts, err := blog.Load(content)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Loaded %d posts and %d specializations", posts.Len(), len(siteCfg.Specializations))
	return siteCfg, posts, nil
}
