package capture

import (
	"net/url"
	"strings"
	"sync"
)

// DefaultDomains is the capture scope used when none is configured.
var DefaultDomains = []string{
	"events.launchdarkly.com",
}

// DomainMatcher decides whether a URL is in capture scope. A URL matches when
// its host contains one of the configured domains as a substring. The list can
// be changed while interception is active.
type DomainMatcher struct {
	mu      sync.RWMutex
	domains []string
}

func NewDomainMatcher(domains []string) *DomainMatcher {
	m := &DomainMatcher{}
	m.SetDomains(domains)
	return m
}

// Match reports whether rawURL targets a configured domain. URLs that fail to
// parse or carry no host never match.
func (m *DomainMatcher) Match(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.domains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// Domains returns a copy of the configured list.
func (m *DomainMatcher) Domains() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.domains))
	copy(out, m.domains)
	return out
}

// SetDomains replaces the list. Entries are trimmed and lower-cased; blanks
// and duplicates are dropped.
func (m *DomainMatcher) SetDomains(domains []string) {
	cleaned := make([]string, 0, len(domains))
	seen := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = normalizeDomain(d)
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		cleaned = append(cleaned, d)
	}

	m.mu.Lock()
	m.domains = cleaned
	m.mu.Unlock()
}

// Add appends a domain unless it is already present.
func (m *DomainMatcher) Add(domain string) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.domains {
		if d == domain {
			return
		}
	}
	m.domains = append(m.domains, domain)
}

// Remove drops a domain. It reports whether the domain was present.
func (m *DomainMatcher) Remove(domain string) bool {
	domain = normalizeDomain(domain)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.domains {
		if d == domain {
			m.domains = append(m.domains[:i:i], m.domains[i+1:]...)
			return true
		}
	}
	return false
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}
