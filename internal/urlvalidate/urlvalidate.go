// Package urlvalidate canonicalizes import URLs and blocks requests that
// would reach a private, loopback, link-local or metadata address (SSRF
// protection), per spec §4.1.
package urlvalidate

import (
	"net"
	"net/url"
	"strings"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/logging"
)

// blockedPorts mirrors the fixed port blocklist from §4.1.
var blockedPorts = map[string]bool{
	"22": true, "23": true, "25": true, "110": true, "143": true,
	"445": true, "3306": true, "5432": true, "6379": true, "27017": true,
}

// blockedHostnames catches cloud metadata endpoints that don't resolve to
// an obviously-private literal (e.g. link-local 169.254.169.254 is also
// caught by the IP-range check below, but some providers use a DNS name).
var blockedHostnames = map[string]bool{
	"metadata.google.internal": true,
	"metadata.goog":            true,
}

// trackingParams is the fixed allow-strip set from §4.1.
var trackingParamPrefixes = []string{"utm_"}
var trackingParams = map[string]bool{
	"gclid": true, "fbclid": true, "msclkid": true, "mc_cid": true, "mc_eid": true,
}

// Validate canonicalizes raw into a safe, normalized URL or returns a
// *curatorerrors.Error classified per §4.1/§7.
func Validate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", curatorerrors.New(curatorerrors.KindURLEmpty, "url must not be empty")
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		logging.ValidateWarn("failed to parse url %q: %v", raw, err)
		return "", curatorerrors.Wrap(curatorerrors.KindURLInvalid, err, "malformed url")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", curatorerrors.Newf(curatorerrors.KindURLInvalidProtocol, "scheme %q not allowed", u.Scheme)
	}

	if u.User != nil {
		return "", curatorerrors.New(curatorerrors.KindURLInvalid, "credentials in url not allowed")
	}

	host := u.Hostname()
	if host == "" {
		return "", curatorerrors.New(curatorerrors.KindURLInvalid, "url has no host")
	}

	if err := checkSSRF(host); err != nil {
		return "", err
	}

	if port := u.Port(); port != "" && blockedPorts[port] {
		return "", curatorerrors.Newf(curatorerrors.KindSSRFBlocked, "port %s is blocked", port)
	}

	if u.Scheme == "http" {
		u.Scheme = "https"
	}

	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(u.Host, "www.")

	stripTrackingParams(u)

	for strings.Contains(u.Path, "//") {
		u.Path = strings.ReplaceAll(u.Path, "//", "/")
	}

	u.Fragment = ""

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	canonical := u.String()
	logging.ValidateDebug("canonicalized %q -> %q", raw, canonical)
	return canonical, nil
}

// ValidateRedirect re-checks a redirect target against the same SSRF/port
// blocklist Validate applies to the original URL (§4.2 step 3: a 3xx
// response is itself a Fetching-stage failure mode when its target would
// reach a private, loopback or metadata address, not only a
// Validating-stage one). internal/extract.Fetcher calls this from its
// http.Client's CheckRedirect hook on every hop.
func ValidateRedirect(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return curatorerrors.Newf(curatorerrors.KindURLInvalidProtocol, "redirect scheme %q not allowed", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return curatorerrors.New(curatorerrors.KindURLInvalid, "redirect url has no host")
	}
	if err := checkSSRF(host); err != nil {
		return err
	}
	if port := u.Port(); port != "" && blockedPorts[port] {
		return curatorerrors.Newf(curatorerrors.KindSSRFBlocked, "redirect port %s is blocked", port)
	}
	return nil
}

// checkSSRF rejects hostnames or IP literals that resolve to a
// private/loopback/link-local/unique-local range (§4.1).
func checkSSRF(host string) error {
	if blockedHostnames[strings.ToLower(host)] {
		return curatorerrors.Newf(curatorerrors.KindSSRFBlocked, "hostname %q is blocked", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Hostname, not a literal. It is not resolved here, and
		// internal/extract does not re-check the address it resolves to
		// before connecting; only the syntactically obvious local names
		// are rejected.
		lower := strings.ToLower(host)
		if lower == "localhost" || strings.HasSuffix(lower, ".localhost") || strings.HasSuffix(lower, ".local") {
			return curatorerrors.Newf(curatorerrors.KindSSRFBlocked, "hostname %q resolves locally", host)
		}
		return nil
	}

	if isBlockedIP(ip) {
		return curatorerrors.Newf(curatorerrors.KindSSRFBlocked, "ip %s is in a private/internal range", ip)
	}
	return nil
}

// isBlockedIP reports whether ip falls in any of the ranges listed in
// §4.1: private, loopback, link-local, unique-local and the 0/8 "this
// network" block.
func isBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		if v4[0] == 0 {
			return true
		}
	}
	return false
}

func stripTrackingParams(u *url.URL) {
	q := u.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if trackingParams[lower] {
			q.Del(key)
			continue
		}
		for _, prefix := range trackingParamPrefixes {
			if strings.HasPrefix(lower, prefix) {
				q.Del(key)
				break
			}
		}
	}
	u.RawQuery = q.Encode()
	if u.RawQuery == "" {
		u.RawQuery = ""
	}
}
