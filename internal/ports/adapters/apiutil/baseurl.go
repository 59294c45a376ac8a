// Package apiutil holds the HTTP helpers shared by the remote API adapters:
// base URL allow-listing, secret redaction and lenient JSON extraction.
package apiutil

import (
	"fmt"
	"net/url"
	"strings"
)

// BaseURLPolicy describes which endpoints an adapter may talk to.
// Name is the setting reported in errors (for example OPENROUTER_BASE_URL).
type BaseURLPolicy struct {
	Name         string
	HostsName    string
	Default      string
	DefaultHosts []string
}

var (
	OpenRouter = BaseURLPolicy{
		Name:         "OPENROUTER_BASE_URL",
		HostsName:    "OPENROUTER_ALLOWED_HOSTS",
		Default:      "https://openrouter.ai",
		DefaultHosts: []string{"openrouter.ai", "api.openrouter.ai"},
	}
	ElevenLabs = BaseURLPolicy{
		Name:         "ELEVENLABS_BASE_URL",
		HostsName:    "ELEVENLABS_ALLOWED_HOSTS",
		Default:      "https://api.elevenlabs.io",
		DefaultHosts: []string{"api.elevenlabs.io", "api.us.elevenlabs.io"},
	}
)

func (p BaseURLPolicy) Normalize(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = p.Default
	}
	return strings.TrimRight(baseURL, "/")
}

func (p BaseURLPolicy) Validate(baseURL string, allowedHosts []string) error {
	baseURL = p.Normalize(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", p.Name, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid %s %q: absolute URL with host is required", p.Name, baseURL)
	}
	if u.User != nil {
		return fmt.Errorf("invalid %s %q: userinfo is not allowed", p.Name, baseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid %s %q: query and fragment are not allowed", p.Name, baseURL)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("invalid %s %q: host is required", p.Name, baseURL)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("invalid %s %q: https is required", p.Name, baseURL)
	}

	allowed := p.allowedHosts(allowedHosts)
	if _, ok := allowed[host]; !ok {
		return fmt.Errorf("invalid %s %q: host %q is not in %s", p.Name, baseURL, host, p.HostsName)
	}
	return nil
}

func (p BaseURLPolicy) allowedHosts(configured []string) map[string]struct{} {
	out := normalizeHosts(configured)
	if len(out) == 0 {
		return normalizeHosts(p.DefaultHosts)
	}
	return out
}

func normalizeHosts(hosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if v == "" {
			continue
		}
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		out[v] = struct{}{}
	}
	return out
}
