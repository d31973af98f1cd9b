package config

import "strings"

// SiteConfig holds request overrides for one merchant host.
// Some storefronts only render their checkout for a session or a locale,
// which is what these overrides are for.
type SiteConfig struct {
	// Cookie is sent as the Cookie header on requests to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are merged over the global headers for this host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// mergeSite folds site into the entry for host, site values winning.
func (c *Config) mergeSite(host string, site SiteConfig) {
	key := siteKey(host)
	if key == "" {
		return
	}
	if c.Sites == nil {
		c.Sites = make(map[string]SiteConfig)
	}
	cur := c.Sites[key]
	if site.Cookie != "" {
		cur.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		merged := make(map[string]string, len(cur.Headers)+len(site.Headers))
		for k, v := range cur.Headers {
			merged[k] = v
		}
		for k, v := range site.Headers {
			merged[k] = v
		}
		cur.Headers = merged
	}
	c.Sites[key] = cur
}

// SiteHeaders returns the per-host request headers keyed by lower-case host.
// Each entry holds only the overrides: the site's headers plus its Cookie.
// Global Headers are applied separately and are overridden by these.
func (c *Config) SiteHeaders() map[string]map[string]string {
	if len(c.Sites) == 0 {
		return nil
	}
	out := make(map[string]map[string]string, len(c.Sites))
	for host, site := range c.Sites {
		h := make(map[string]string, len(site.Headers)+1)
		for k, v := range site.Headers {
			h[k] = v
		}
		if site.Cookie != "" {
			h["Cookie"] = site.Cookie
		}
		if len(h) > 0 {
			out[host] = h
		}
	}
	return out
}

// siteKey normalizes a configured host: lower case, no scheme, port or path.
func siteKey(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	if i := strings.LastIndexByte(h, ':'); i >= 0 && !strings.Contains(h[i:], "]") {
		h = h[:i]
	}
	return strings.Trim(h, "[]")
}
