package analyzer

import (
	"context"
	"net/http"
	"strings"
)

// GradeAssumed is the TLS grade used when the certificate is not inspected:
// quick mode, or the TLS collaborator being unreachable.
const GradeAssumed = "A (assumed)"

// sslGradeScores maps collaborator grades to the numeric scale used in the
// composite. The grade vocabulary is owned by the TLS collaborator.
var sslGradeScores = map[string]int{
	"A+":         100,
	"A":          95,
	"A-":         90,
	"B":          75,
	"C":          60,
	"D":          40,
	"E":          25,
	"F":          0,
	GradeAssumed: 70,
}

// TLSGrader is the certificate-grading collaborator.
type TLSGrader interface {
	GradeCertificate(ctx context.Context, pageURL string) (TLSGrade, error)
}

// HeaderGrader is the HTTP-security-header grading collaborator.
type HeaderGrader interface {
	GradeHeaders(headers http.Header) HeaderGrade
}

// SecurityAnalyzer combines the two collaborator grades into one score.
type SecurityAnalyzer struct {
	tls     TLSGrader
	headers HeaderGrader
}

func NewSecurityAnalyzer(tls TLSGrader, headers HeaderGrader) *SecurityAnalyzer {
	return &SecurityAnalyzer{tls: tls, headers: headers}
}

// Analyze grades transport security. In quick mode the TLS collaborator is
// skipped entirely and the grade is assumed from the URL scheme, which bounds
// cost when scoring many competitor pages. In full mode a TLS collaborator
// failure degrades to the same heuristic instead of aborting the pipeline.
func (a *SecurityAnalyzer) Analyze(ctx context.Context, pageURL string, headers http.Header, quick bool) SecurityResult {
	result := SecurityResult{}

	if quick {
		result.TLS = assumedGrade(pageURL)
	} else {
		grade, err := a.tls.GradeCertificate(ctx, pageURL)
		if err != nil {
			result.TLS = assumedGrade(pageURL)
			result.Degraded = true
		} else {
			result.TLS = grade
		}
	}

	result.Headers = a.headers.GradeHeaders(headers)
	result.Score = SecurityScore(sslGradeScores[result.TLS.Grade], result.Headers.Score)
	return result
}

// SecurityScore applies the fixed TLS/header weighting.
func SecurityScore(sslScore, headerScore int) int {
	return roundScore(float64(sslScore)*0.55 + float64(headerScore)*0.45)
}

func assumedGrade(pageURL string) TLSGrade {
	if strings.HasPrefix(strings.ToLower(pageURL), "https://") {
		return TLSGrade{Grade: GradeAssumed}
	}
	return TLSGrade{Grade: "F"}
}
