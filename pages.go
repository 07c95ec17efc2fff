package main

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nIBOP/portfolio-site/internal/pdfview"
	"github.com/nIBOP/portfolio-site/internal/site"
)

const (
	defaultThumbnailWidth = 480
	maxThumbnailWidth     = 1200
)

// specButton is one entry of the specialization picker. Clicking the
// active button clears the selection.
type specButton struct {
	ID     string
	Label  string
	Href   string
	Active bool
}

// projectCard is a project with its links resolved.
type projectCard struct {
	site.Project
	ReadMore  string
	ViewerURL string
	ImageURL  string
}

func viewerLink(pdfURL string) string {
	return "/viewer?url=" + url.QueryEscape(pdfURL)
}

func newProjectCard(p site.Project) projectCard {
	card := projectCard{Project: p, ReadMore: p.BlogLink(), ImageURL: p.Image}
	if p.PDFURL != "" {
		card.ViewerURL = viewerLink(p.PDFURL)
		if card.ImageURL == "" {
			card.ImageURL = "/thumbnails?url=" + url.QueryEscape(p.PDFURL)
		}
	}
	return card
}

func (s *server) handleHome(c *gin.Context) {
	selectedID := strings.TrimSpace(c.Query("spec"))
	selected, ok := s.site.ByID(selectedID)

	buttons := make([]specButton, 0, len(s.site.Specializations))
	for _, spec := range s.site.Specializations {
		b := specButton{ID: spec.ID, Label: spec.DisplayName, Href: "/?spec=" + url.QueryEscape(spec.ID)}
		if ok && spec.ID == selected.ID {
			b.Active = true
			b.Href = "/"
		}
		buttons = append(buttons, b)
	}

	data := gin.H{
		"title":          s.site.Profile.Name,
		"profile":        s.site.Profile,
		"timeline":       s.site.Timeline,
		"skills":         s.site.Skills,
		"buttons":        buttons,
		"specPrompt":     specPrompt,
		"contactHeading": contactHeading,
		"contactEnabled": s.mailer != nil,
		"contactText":    contactDisabled,
	}
	if ok {
		cards := make([]projectCard, 0, len(selected.Projects))
		for _, p := range selected.Projects {
			cards = append(cards, newProjectCard(p))
		}
		data["selected"] = selected
		data["cards"] = cards
		data["resumeIntro"] = resumeIntro
		data["resumeButton"] = resumeButton
		data["openPDFButton"] = openPDFButton
		data["readMoreLink"] = readMoreLink
		if selected.ResumeURL != "" {
			data["resumeViewer"] = viewerLink(selected.ResumeURL)
		}
	}
	c.HTML(http.StatusOK, "index.html", data)
}

// tagChip is one blog filter link.
type tagChip struct {
	ID     string
	Label  string
	Href   string
	Active bool
}

func (s *server) handleBlog(c *gin.Context) {
	tag := strings.TrimSpace(c.Query("tag"))

	chips := []tagChip{{Label: allTagsLabel, Href: "/blog", Active: tag == ""}}
	for _, id := range s.posts.Tags() {
		chips = append(chips, tagChip{
			ID:     id,
			Label:  s.site.TagDisplayName(id),
			Href:   "/blog?tag=" + url.QueryEscape(id),
			Active: id == tag,
		})
	}

	c.HTML(http.StatusOK, "blog.html", gin.H{
		"title":    blogTitle,
		"intro":    blogIntro,
		"fromHome": c.Query("from") == "home",
		"notice":   fromHomeNotice,
		"tag":      tag,
		"tagLabel": s.site.TagDisplayName(tag),
		"chips":    chips,
		"posts":    s.posts.List(tag),
		"empty":    noPostsMessage,
	})
}

func (s *server) handlePost(c *gin.Context) {
	post, ok := s.posts.BySlug(c.Param("slug"))
	if !ok {
		c.HTML(http.StatusNotFound, "not-found.html", gin.H{
			"title":   notFoundTitle,
			"message": postNotFoundMessage,
		})
		return
	}

	body, err := s.renderer.Render(c.Request.Context(), post.Body)
	if err != nil {
		log.Printf("Error rendering post %s: %v", post.Slug, err)
		c.HTML(http.StatusInternalServerError, "not-found.html", gin.H{
			"title":   blogTitle,
			"message": renderErrorMessage,
		})
		return
	}

	c.HTML(http.StatusOK, "post.html", gin.H{
		"title": post.Title,
		"post":  post,
		"dated": post.Dated(),
		"body":  body,
	})
}

func (s *server) handleViewerPage(c *gin.Context) {
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		c.HTML(http.StatusBadRequest, "not-found.html", gin.H{
			"title":   viewerTitle,
			"message": viewerMissingURL,
		})
		return
	}
	c.HTML(http.StatusOK, "viewer.html", gin.H{
		"title":       viewerTitle,
		"url":         target,
		"loadFailed":  pdfview.LoadFailedMessage,
		"presetSteps": []int{50, 75, 100, 125, 150, 200},
	})
}

// handleThumbnail renders page 1 of a document as a PNG.
func (s *server) handleThumbnail(c *gin.Context) {
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	width := defaultThumbnailWidth
	if v := c.Query("width"); v != "" {
		w, err := strconv.Atoi(v)
		if err != nil || w < 1 || w > maxThumbnailWidth {
			c.JSON(http.StatusBadRequest, gin.H{"error": "width must be between 1 and " + strconv.Itoa(maxThumbnailWidth)})
			return
		}
		width = w
	}

	data, err := s.thumbs.load(thumbnailKey(target, width), func() ([]byte, error) {
		return renderThumbnail(c.Request.Context(), s.loader, target, width)
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, pdfview.ErrUnsupportedURL):
			status = http.StatusBadRequest
		case errors.Is(err, pdfview.ErrTooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, pdfview.ErrFetch), errors.Is(err, pdfview.ErrNotPDF),
			errors.Is(err, pdfview.ErrLoad), errors.Is(err, pdfview.ErrNoPages):
			status = http.StatusBadGateway
		}
		log.Printf("Error rendering thumbnail %s: %v", target, err)
		c.JSON(status, gin.H{"error": pdfview.LoadFailedMessage})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", data)
}
