package analyzer

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type stubTLSGrader struct {
	grade TLSGrade
	err   error
	calls int
}

func (s *stubTLSGrader) GradeCertificate(_ context.Context, _ string) (TLSGrade, error) {
	s.calls++
	if s.err != nil {
		return TLSGrade{}, s.err
	}
	return s.grade, nil
}

type stubHeaderGrader struct {
	grade HeaderGrade
}

func (s *stubHeaderGrader) GradeHeaders(_ http.Header) HeaderGrade {
	return s.grade
}

func TestSecurityScore(t *testing.T) {
	cases := []struct {
		ssl, header, want int
	}{
		{70, 0, 39}, // quick mode, HTTPS, no security headers
		{100, 100, 100},
		{0, 0, 0},
		{95, 60, 79},
	}
	for _, tc := range cases {
		if got := SecurityScore(tc.ssl, tc.header); got != tc.want {
			t.Errorf("SecurityScore(%d,%d) = %d, want %d", tc.ssl, tc.header, got, tc.want)
		}
	}
}

func TestSecurityAnalyzerQuickMode(t *testing.T) {
	tls := &stubTLSGrader{grade: TLSGrade{Grade: "A+"}}
	a := NewSecurityAnalyzer(tls, &stubHeaderGrader{})

	t.Run("HTTPSAssumed", func(t *testing.T) {
		result := a.Analyze(context.Background(), "https://example.com/", http.Header{}, true)
		if tls.calls != 0 {
			t.Error("quick mode must not call the TLS grader")
		}
		if result.TLS.Grade != GradeAssumed {
			t.Errorf("expected assumed grade, got %q", result.TLS.Grade)
		}
		if result.Score != 39 {
			t.Errorf("expected 39, got %d", result.Score)
		}
	})

	t.Run("PlainHTTPGetsF", func(t *testing.T) {
		result := a.Analyze(context.Background(), "http://example.com/", http.Header{}, true)
		if result.TLS.Grade != "F" {
			t.Errorf("expected F, got %q", result.TLS.Grade)
		}
		if result.Score != 0 {
			t.Errorf("expected 0, got %d", result.Score)
		}
	})
}

func TestSecurityAnalyzerFullMode(t *testing.T) {
	t.Run("UsesCollaboratorGrade", func(t *testing.T) {
		days := 120
		tls := &stubTLSGrader{grade: TLSGrade{Grade: "A", DaysUntilExpiry: &days}}
		headers := &stubHeaderGrader{grade: HeaderGrade{HSTS: true, CSP: true, Score: 50}}
		a := NewSecurityAnalyzer(tls, headers)

		result := a.Analyze(context.Background(), "https://example.com/", http.Header{}, false)
		if tls.calls != 1 {
			t.Errorf("expected one TLS call, got %d", tls.calls)
		}
		// round(95*0.55 + 50*0.45) = round(74.75) = 75
		if result.Score != 75 {
			t.Errorf("expected 75, got %d", result.Score)
		}
		if result.Degraded {
			t.Error("unexpected degraded flag")
		}
	})

	t.Run("DegradesWhenCollaboratorUnreachable", func(t *testing.T) {
		tls := &stubTLSGrader{err: errors.New("connection refused")}
		a := NewSecurityAnalyzer(tls, &stubHeaderGrader{})

		result := a.Analyze(context.Background(), "https://example.com/", http.Header{}, false)
		if !result.Degraded {
			t.Error("expected degraded result")
		}
		if result.TLS.Grade != GradeAssumed {
			t.Errorf("expected assumed fallback grade, got %q", result.TLS.Grade)
		}
		if result.Score != 39 {
			t.Errorf("expected 39, got %d", result.Score)
		}
	})
}
