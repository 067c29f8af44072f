package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Icestreamm/baseer-backend/internal/adapters/primary/http/middleware"
)

// Paths commonly requested by vulnerability scanners.
var scannerPrefixes = []string{
	"/admin", "/wp-admin", "/wp-login", "/.env", "/.git",
	"/phpmyadmin", "/mysql", "/sql", "/backup", "/config",
	"/api", "/v1", "/v2", "/graphql", "/swagger", "/docs",
	"/login", "/signin", "/register", "/signup",
	"/.well-known", "/robots.txt", "/sitemap.xml",
	"/test", "/debug", "/console", "/shell",
}

var (
	botAgents       = []string{"bot", "crawler", "spider", "scanner", "curl", "wget", "python-requests"}
	scriptFragments = []string{".php", ".asp", ".jsp", ".exe", ".sh", ".py"}
)

// BotFilter classifies unmatched requests as scanner traffic. Scanner prefixes
// that cover a served endpoint are ignored.
type BotFilter struct {
	prefixes []string
}

// NewBotFilter builds a filter for a server exposing the given paths.
func NewBotFilter(servedPaths ...string) *BotFilter {
	f := &BotFilter{}
	for _, p := range scannerPrefixes {
		if !coversAny(p, servedPaths) {
			f.prefixes = append(f.prefixes, p)
		}
	}
	return f
}

func coversAny(prefix string, paths []string) bool {
	for _, p := range paths {
		if strings.HasPrefix(strings.ToLower(p), prefix) {
			return true
		}
	}
	return false
}

// IsBot reports whether a request looks automated.
func (f *BotFilter) IsBot(path, userAgent string) bool {
	path = strings.ToLower(path)
	for _, p := range f.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	userAgent = strings.ToLower(userAgent)
	for _, a := range botAgents {
		if strings.Contains(userAgent, a) {
			return true
		}
	}

	for _, s := range scriptFragments {
		if strings.Contains(path, s) {
			return true
		}
	}
	return false
}

// NotFound answers unmatched routes. Scanners get a bare body and are kept out
// of the logs; everyone else gets the list of endpoints.
func (f *BotFilter) NotFound(endpoints gin.H) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		userAgent := c.GetHeader("User-Agent")

		if f.IsBot(path, userAgent) {
			c.Set(middleware.SkipLogKey, true)
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
			return
		}

		log.WithFields(log.Fields{
			"path":       path,
			"method":     c.Request.Method,
			"user_agent": truncateRunes(userAgent, 50),
		}).Warn("route not found")

		c.JSON(http.StatusNotFound, gin.H{
			"error":               "Route not found",
			"path":                path,
			"available_endpoints": endpoints,
		})
	}
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
