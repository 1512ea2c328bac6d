// Package endpoint computes the websocket URL of the ventas feed from the
// deployment environment. The result is computed once and handed to
// tellevo.NewClient; the client never re-resolves.
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/tellevo/tellevo-sdk-go/tellevo"
)

// Environment is everything the resolver may look at.
type Environment struct {
	// BackendHost and BackendPort are the explicitly configured backend, if
	// any.
	BackendHost string
	BackendPort string
	// ForceInsecure disables wss even for pages served over https.
	ForceInsecure bool
	// Dev selects a direct connection to the backend port.
	Dev bool
	// PageHost is the host[:port] the frontend was served from.
	PageHost string
	// PageProtocol is "http" or "https", with or without a trailing colon.
	PageProtocol string
}

// Resolver turns an Environment into a websocket URL.
type Resolver func(Environment) (string, error)

// Policy holds the deployment-specific literals used while resolving.
type Policy struct {
	// ProductionDomain matches itself and every subdomain.
	ProductionDomain string
	// FallbackHost is used when the page host is empty or unrecognized.
	FallbackHost string
	DefaultPort  int
	Path         string
	// InsecureHosts never get wss, whatever the page protocol.
	InsecureHosts []string
}

// DefaultPolicy returns the TeLlevo production policy.
func DefaultPolicy() Policy {
	return Policy{
		ProductionDomain: "tellevoapp.com",
		FallbackHost:     "admin.tellevoapp.com",
		DefaultPort:      8080,
		Path:             tellevo.StreamPath,
	}
}

// Resolver returns p.Resolve as a Resolver.
func (p Policy) Resolver() Resolver { return p.Resolve }

// Resolve applies, in order: an explicit backend host (unless it is a
// production host, which is reached through the same-origin proxy), the
// same-origin proxy for production or https pages, localhost for private
// network pages, and finally the fallback host.
func (p Policy) Resolve(env Environment) (string, error) {
	pageHostname, _, err := splitHost(env.PageHost)
	if err != nil {
		return "", fmt.Errorf("page host %q: %w", env.PageHost, err)
	}
	pageSecure := strings.EqualFold(strings.TrimSuffix(env.PageProtocol, ":"), "https")

	var (
		host   string
		port   = strconv.Itoa(p.DefaultPort)
		direct bool
	)
	switch {
	case env.BackendHost != "":
		host = env.BackendHost
		if env.BackendPort != "" {
			port = env.BackendPort
		}
		direct = !p.isProduction(host)
	case pageHostname != "" && (p.isProduction(pageHostname) || pageSecure):
		host = pageHostname
		port = "443"
	case isPrivate(pageHostname):
		host = "localhost"
		if env.BackendPort != "" {
			port = env.BackendPort
		}
		direct = true
	default:
		host = p.FallbackHost
		direct = true
	}
	if err := validatePort(port); err != nil {
		return "", err
	}

	scheme := "ws"
	if pageSecure && !env.ForceInsecure && !isLoopback(host) && !p.isInsecure(host) {
		scheme = "wss"
	}

	u := url.URL{Scheme: scheme, Path: p.Path}
	switch {
	case env.Dev || (direct && !pageSecure):
		u.Host = net.JoinHostPort(host, port)
	case pageSecure && pageHostname != "":
		// The TLS proxy listens on the default port.
		u.Host = pageHostname
	case env.PageHost != "":
		u.Host = env.PageHost
	default:
		u.Host = host
	}
	return u.String(), nil
}

func (p Policy) isProduction(host string) bool {
	if p.ProductionDomain == "" {
		return false
	}
	host = strings.ToLower(host)
	return host == p.ProductionDomain || strings.HasSuffix(host, "."+p.ProductionDomain)
}

func (p Policy) isInsecure(host string) bool {
	for _, h := range p.InsecureHosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}

func isPrivate(host string) bool {
	return isLoopback(host) || strings.HasPrefix(host, "192.168.")
}

func splitHost(hostport string) (string, string, error) {
	if hostport == "" {
		return "", "", nil
	}
	if !strings.Contains(hostport, ":") || strings.HasSuffix(hostport, "]") {
		return strings.Trim(hostport, "[]"), "", nil
	}
	return net.SplitHostPort(hostport)
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid backend port %q", port)
	}
	return nil
}

// ParseOrigin splits a page origin such as "https://admin.tellevoapp.com"
// into the PageHost and PageProtocol fields of an Environment.
func ParseOrigin(origin string) (host, protocol string, err error) {
	if origin == "" {
		return "", "", nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", "", fmt.Errorf("parse origin: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("origin %q must be http or https", origin)
	}
	return u.Host, u.Scheme, nil
}
