package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mediabooster-Norge/Analyse-sub000/stats"
)

// Stats tracks analysis-related requests into the statistics storage.
func Stats(storage *stats.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		kind, tracked := requestKind(c.Request.Method, c.Request.URL.Path)
		if !tracked {
			return
		}
		durationMs := float64(time.Since(start).Milliseconds())
		storage.Track(kind, durationMs, c.Writer.Status() >= 400)
	}
}

func requestKind(method, path string) (stats.RequestKind, bool) {
	switch {
	case method == "POST" && path == "/api/analyze":
		return stats.KindAnalysis, true
	case method == "POST" && path == "/api/competitors":
		return stats.KindCompetitor, true
	case method == "PUT" && strings.HasPrefix(path, "/api/analyses/"):
		return stats.KindUpdate, true
	}
	return 0, false
}
