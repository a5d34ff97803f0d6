// Package config loads and validates the process-wide mirror configuration
// described in spec.md §3, and optionally watches it for hot reload.
//
// A *Config value is immutable once returned by Load: requests hold a
// reference to the snapshot they were dispatched with, and a reload
// publishes a brand new *Config by swapping an atomic pointer rather than
// mutating any field in place.
package config

import (
	"net/url"
	"time"
)

// ForceHTTPSPolicy controls which origin-space domains are always fetched
// over https, independent of what the mirror-space URL said.
type ForceHTTPSPolicy string

const (
	ForceHTTPSNone ForceHTTPSPolicy = "none"
	ForceHTTPSAll  ForceHTTPSPolicy = "all"
	// ForceHTTPSSet means ForceHTTPSDomains names the exact set.
	ForceHTTPSSet ForceHTTPSPolicy = "set"
)

// InjectPosition names where custom content is spliced into an HTML
// response (spec.md §4.E).
type InjectPosition string

const (
	InjectHeadFirst InjectPosition = "head_first"
	InjectHeadLast  InjectPosition = "head_last"
)

// InjectRule is one entry of custom_inject_content: content injected into
// responses whose url_no_scheme matches URLRegex (or all responses, if
// URLRegex is empty).
type InjectRule struct {
	URLRegex string `yaml:"url_regex"`
	Content  string `yaml:"content"`
}

// CronTaskSpec is a user-registered periodic task description (spec.md §6).
// The target function itself is registered at runtime through
// internal/hooks; this struct only carries the scheduling metadata that is
// legitimately part of the static configuration surface.
type CronTaskSpec struct {
	Name     string        `yaml:"name"`
	Priority int           `yaml:"priority"`
	Interval time.Duration `yaml:"interval"`
	Target   string        `yaml:"target"`
}

// MinCronInterval is the minimum interval a cron task may run at; smaller
// configured values are clamped up to this value (spec.md §6).
const MinCronInterval = 180 * time.Second

// ProxySettings configures the optional upstream HTTP(S) proxy the mirror
// dials through (spec.md §4.D). SOCKS is an explicit Non-goal.
type ProxySettings struct {
	HTTPProxyURL  string `yaml:"http_proxy_url"`
	HTTPSProxyURL string `yaml:"https_proxy_url"`
}

// Config is the process-wide, read-mostly configuration record of
// spec.md §3.
type Config struct {
	// Identity
	MyHostName string `yaml:"my_host_name"`
	MyPort     int    `yaml:"my_port"`
	MyScheme   string `yaml:"my_scheme"` // "http://" or "https://"
	IsDev      bool   `yaml:"is_dev"`

	// Upstream set
	TargetDomain      string   `yaml:"target_domain"`
	TargetScheme      string   `yaml:"target_scheme"` // "http://" or "https://"
	TargetDomainAlias []string `yaml:"target_domain_alias"`
	ExternalDomains   []string `yaml:"external_domains"`
	ForceHTTPSPolicy  ForceHTTPSPolicy `yaml:"force_https_domains_policy"`
	ForceHTTPSDomains []string         `yaml:"force_https_domains"`

	// Transport
	IsUseProxy                 bool          `yaml:"is_use_proxy"`
	ProxySettings              ProxySettings `yaml:"proxy_settings"`
	ConnectionKeepAliveEnable  bool          `yaml:"connection_keep_alive_enable"`
	StreamTransferEnable       bool          `yaml:"stream_transfer_enable"`
	StreamBufferSize           int           `yaml:"stream_buffer_size"`
	StreamAsyncPreloadMax      int           `yaml:"stream_async_preload_max"`
	DeveloperDisableSSLVerify  bool          `yaml:"developer_disable_ssl_verify"`
	DeveloperDisableSSRFCheck  bool          `yaml:"developer_disable_ssrf_check"`
	DeveloperDumpAllFiles      bool          `yaml:"developer_dump_all_files"`

	// Content
	PossibleCharsets         []string              `yaml:"possible_charsets"`
	ForceDecodeWithCharsets  []string              `yaml:"force_decode_with_charsets"`
	TextLikeMimeTypes        []string              `yaml:"text_like_mime_types"`
	CustomInjectContent      map[InjectPosition][]InjectRule `yaml:"custom_inject_content"`
	CustomTextRewriterEnable bool                  `yaml:"custom_text_rewriter_enable"`
	AllowedRemoteRespHeaders []string              `yaml:"allowed_remote_response_headers"`

	// Caching
	LocalCacheEnable bool `yaml:"local_cache_enable"`

	// Cron tasks (scheduling metadata only; targets registered via internal/hooks)
	CronTasks []CronTaskSpec `yaml:"cron_tasks"`

	// --- derived, computed once at load time, never (re)computed per request ---

	allowedDomains    map[string]struct{}
	aliasSet          map[string]struct{}
	externalDomainSet map[string]struct{}
	forceHTTPSSet     map[string]struct{}
}

// MyHost returns "host[:port]" the way mirror-space URLs spell it.
func (c *Config) MyHost() string {
	if c.MyPort == 0 || (c.MyScheme == "http://" && c.MyPort == 80) || (c.MyScheme == "https://" && c.MyPort == 443) {
		return c.MyHostName
	}
	return c.MyHostName + ":" + itoa(c.MyPort)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// IsAllowedDomain reports whether d (a bare hostname, no port) is in
// allowed_domains = {target_domain} ∪ target_domain_alias ∪ external_domains
// ∪ hostname(external_domains), per the invariant in spec.md §3.
func (c *Config) IsAllowedDomain(d string) bool {
	_, ok := c.allowedDomains[normalizeHost(d)]
	return ok
}

// IsExternalDomain reports whether d is an "allied" domain rather than the
// main target or one of its aliases: is_external_domain(d) ≡ d ∉
// target_domain_alias (spec.md §3).
func (c *Config) IsExternalDomain(d string) bool {
	nd := normalizeHost(d)
	if nd == normalizeHost(c.TargetDomain) {
		return false
	}
	_, isAlias := c.aliasSet[nd]
	return !isAlias
}

// ShouldForceHTTPS reports whether origin requests to domain d must use
// https regardless of the scheme implied by the mirror-space URL.
func (c *Config) ShouldForceHTTPS(d string) bool {
	switch c.ForceHTTPSPolicy {
	case ForceHTTPSAll:
		return true
	case ForceHTTPSNone:
		return false
	default:
		_, ok := c.forceHTTPSSet[normalizeHost(d)]
		return ok
	}
}

// HTTPProxyURL returns the configured proxy URL for the given origin
// scheme, or nil if no proxy is configured/enabled for it.
func (c *Config) HTTPProxyURL(originScheme string) *url.URL {
	if !c.IsUseProxy {
		return nil
	}
	raw := c.ProxySettings.HTTPProxyURL
	if originScheme == "https://" && c.ProxySettings.HTTPSProxyURL != "" {
		raw = c.ProxySettings.HTTPSProxyURL
	}
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}
