// admin.go - privacy-conscious hit dashboard
package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nIBOP/portfolio-site/internal/analytics"
)

const adminCookie = "admin_token"

func generateAdminToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatal("Failed to generate admin token: ", err)
	}
	return hex.EncodeToString(b)
}

func equalSecret(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// adminAuthMiddleware redirects to the login page without a valid token.
func (s *server) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || !equalSecret(token, s.adminToken) {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// visitorTrackingMiddleware records page views in the background.
func (s *server) visitorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method == http.MethodGet && analytics.ShouldTrack(path, c.GetHeader("DNT")) {
			s.hits.RecordAsync(c.ClientIP(), c.GetHeader("User-Agent"), path)
		}
		c.Next()
	}
}

func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", s.handlePrivacy)
	r.GET("/admin/login", s.handleLoginForm)
	r.POST("/admin/login", s.handleLogin)
	r.GET("/admin/logout", s.handleLogout)

	admin := r.Group("/admin", s.adminAuthMiddleware())
	admin.GET("/dashboard", s.handleDashboard)
	admin.GET("/visitors", s.handleVisitors)
	admin.GET("/api/stats", s.handleStatsJSON(false))
	admin.GET("/export/stats", s.handleStatsJSON(true))
	admin.POST("/privacy/cleanup", s.handleCleanup)
}

func (s *server) handlePrivacy(c *gin.Context) {
	c.HTML(http.StatusOK, "privacy.html", gin.H{
		"title":     "Privacy Policy",
		"retention": analytics.RetentionMonths,
	})
}

func (s *server) handleLoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
}

func (s *server) handleLogin(c *gin.Context) {
	who := s.hits.HashIP(c.ClientIP())

	// evaluate both so timing does not reveal which one was wrong
	userOK := equalSecret(c.PostForm("username"), s.cfg.AdminUsername)
	passOK := equalSecret(c.PostForm("password"), s.cfg.AdminPassword)
	if !userOK || !passOK {
		log.Printf("admin: failed login from %s", who)
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": invalidCredentials,
		})
		return
	}

	c.SetCookie(adminCookie, s.adminToken, 3600*24, "/admin", "", false, true)
	log.Printf("admin: login from %s", who)
	c.Redirect(http.StatusFound, "/admin/dashboard")
}

func (s *server) handleLogout(c *gin.Context) {
	c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
	log.Printf("admin: logout from %s", s.hits.HashIP(c.ClientIP()))
	c.Redirect(http.StatusFound, "/admin/login")
}

func (s *server) handleDashboard(c *gin.Context) {
	stats, err := s.hits.Stats(c.Request.Context())
	if err != nil {
		log.Printf("admin: load stats: %v", err)
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": statsLoadError})
		return
	}
	c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
		"title":          "Dashboard",
		"stats":          stats,
		"viewerSessions": s.viewers.Len(),
		"posts":          s.posts.Len(),
	})
}

func (s *server) handleVisitors(c *gin.Context) {
	recent, err := s.hits.Recent(c.Request.Context(), 200)
	if err != nil {
		log.Printf("admin: load visitors: %v", err)
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": visitorsLoadError})
		return
	}
	c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
		"title":    "Visitors",
		"visitors": recent,
	})
}

// handleStatsJSON serves the stats as JSON, as a download when attach is set.
func (s *server) handleStatsJSON(attach bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := s.hits.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if attach {
			c.Header("Content-Disposition", "attachment; filename=visitor-stats.json")
			log.Printf("admin: stats exported by %s", s.hits.HashIP(c.ClientIP()))
		}
		c.JSON(http.StatusOK, stats)
	}
}

func (s *server) handleCleanup(c *gin.Context) {
	n, err := s.hits.Cleanup(c.Request.Context())
	if err != nil {
		log.Printf("admin: cleanup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Privacy cleanup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "removed": n})
}
