package client

import (
	"net"
	"net/url"
	"strings"
)

// SyntheticMode selects when failures are replaced with synthetic payloads.
type SyntheticMode string

const (
	SyntheticAuto   SyntheticMode = "auto"
	SyntheticAlways SyntheticMode = "always"
	SyntheticNever  SyntheticMode = "never"
)

// EnvironmentDetector decides whether the client runs in a degraded,
// non-live deployment.
type EnvironmentDetector interface {
	IsSynthetic() bool
}

var deploymentSuffixes = []string{"vercel.app", "netlify.app", "herokuapp.com"}

var loopbackHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"::1":       {},
}

// HostDetector applies the host heuristic to the configured base URL: any
// host other than a loopback name, or one on a known hosting platform, is
// treated as a demo deployment.
type HostDetector struct {
	Mode SyntheticMode
	Host string
}

// NewHostDetector extracts the host from baseURL.
func NewHostDetector(mode SyntheticMode, baseURL string) HostDetector {
	return HostDetector{Mode: mode, Host: hostOf(baseURL)}
}

func (d HostDetector) IsSynthetic() bool {
	switch d.Mode {
	case SyntheticAlways:
		return true
	case SyntheticNever:
		return false
	}
	host := strings.ToLower(d.Host)
	for _, suffix := range deploymentSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	_, loopback := loopbackHosts[host]
	return !loopback
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.Trim(host, "[]")
}
