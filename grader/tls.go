package grader

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/Mediabooster-Norge/Analyse-sub000/analyzer"
)

// TLSGrader grades a site's certificate by performing a handshake and
// inspecting the leaf certificate's expiry window.
type TLSGrader struct {
	timeout time.Duration
}

func NewTLSGrader() *TLSGrader {
	return &TLSGrader{timeout: 10 * time.Second}
}

func (g *TLSGrader) GradeCertificate(ctx context.Context, pageURL string) (analyzer.TLSGrade, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return analyzer.TLSGrade{}, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "https" {
		return analyzer.TLSGrade{Grade: "F"}, nil
	}

	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "443")
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: g.timeout},
		Config:    &tls.Config{ServerName: u.Hostname()},
	}
	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return analyzer.TLSGrade{}, fmt.Errorf("tls handshake %s: %w", host, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return analyzer.TLSGrade{Grade: "F"}, nil
	}

	leaf := state.PeerCertificates[0]
	days := int(time.Until(leaf.NotAfter).Hours() / 24)
	grade := gradeFromExpiry(days, state.Version)
	return analyzer.TLSGrade{Grade: grade, DaysUntilExpiry: &days}, nil
}

// gradeFromExpiry maps the expiry window and protocol version to a grade.
// Certificates close to expiry are the most common operational TLS defect,
// so the window dominates the grade.
func gradeFromExpiry(days int, version uint16) string {
	switch {
	case days < 0:
		return "F"
	case days < 7:
		return "D"
	case days < 30:
		return "C"
	case version < tls.VersionTLS12:
		return "B"
	case days < 90:
		return "A-"
	case version >= tls.VersionTLS13:
		return "A+"
	default:
		return "A"
	}
}
