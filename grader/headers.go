// Package grader ships default implementations of the TLS- and header-grading
// collaborators behind the analyzer's interfaces.
package grader

import (
	"net/http"

	"github.com/Mediabooster-Norge/Analyse-sub000/analyzer"
)

// HeaderGrader inspects the response header map for the six security headers
// and maps the flags to a 0-100 score.
type HeaderGrader struct{}

func NewHeaderGrader() *HeaderGrader {
	return &HeaderGrader{}
}

func (g *HeaderGrader) GradeHeaders(headers http.Header) analyzer.HeaderGrade {
	grade := analyzer.HeaderGrade{
		HSTS:              headers.Get("Strict-Transport-Security") != "",
		CSP:               headers.Get("Content-Security-Policy") != "",
		XFrameOptions:     headers.Get("X-Frame-Options") != "",
		XContentTypeOpts:  headers.Get("X-Content-Type-Options") != "",
		ReferrerPolicy:    headers.Get("Referrer-Policy") != "",
		PermissionsPolicy: headers.Get("Permissions-Policy") != "",
	}

	score := 0
	if grade.HSTS {
		score += 25
	}
	if grade.CSP {
		score += 25
	}
	if grade.XFrameOptions {
		score += 15
	}
	if grade.XContentTypeOpts {
		score += 15
	}
	if grade.ReferrerPolicy {
		score += 10
	}
	if grade.PermissionsPolicy {
		score += 10
	}
	grade.Score = score
	return grade
}
