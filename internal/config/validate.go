package config

import (
	"fmt"
	"time"
)

// ValidationResult reports the outcome of validating a Config.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []string
}

// ValidationError is a single field-level validation failure.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error in %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// Validate performs structural validation of a loaded Config. It never
// mutates cfg — validation failures are reported, not auto-corrected, so the
// caller (Load, or the reload watcher) can decide whether to accept it.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{Valid: true}

	fail := func(field string, value interface{}, message string) {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Field: field, Value: value, Message: message})
	}
	warn := func(format string, args ...interface{}) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	if cfg.MyHostName == "" {
		fail("my_host_name", cfg.MyHostName, "must not be empty")
	}
	if cfg.MyScheme != "http://" && cfg.MyScheme != "https://" {
		fail("my_scheme", cfg.MyScheme, `must be "http://" or "https://"`)
	}
	if cfg.TargetDomain == "" {
		fail("target_domain", cfg.TargetDomain, "must not be empty")
	}
	if cfg.TargetScheme != "http://" && cfg.TargetScheme != "https://" {
		fail("target_scheme", cfg.TargetScheme, `must be "http://" or "https://"`)
	}

	switch cfg.ForceHTTPSPolicy {
	case ForceHTTPSNone, ForceHTTPSAll, ForceHTTPSSet:
	default:
		fail("force_https_domains_policy", cfg.ForceHTTPSPolicy, "must be none, all, or set")
	}
	if cfg.ForceHTTPSPolicy == ForceHTTPSSet && len(cfg.ForceHTTPSDomains) == 0 {
		warn("force_https_domains_policy is 'set' but force_https_domains is empty")
	}

	if cfg.StreamTransferEnable {
		if cfg.StreamBufferSize <= 0 {
			fail("stream_buffer_size", cfg.StreamBufferSize, "must be positive when streaming is enabled")
		}
		if cfg.StreamAsyncPreloadMax <= 0 {
			fail("stream_async_preload_max", cfg.StreamAsyncPreloadMax, "must be positive when streaming is enabled")
		}
	}

	if len(cfg.PossibleCharsets) == 0 {
		warn("possible_charsets is empty; decoding will fall back to utf-8 for every response")
	}

	for i, rule := range cfg.CronTasks {
		if rule.Interval < MinCronInterval {
			warn("cron_tasks[%d] (%s) interval %s is below the %s minimum and will be clamped", i, rule.Name, rule.Interval, MinCronInterval)
		}
	}

	if cfg.IsUseProxy && cfg.ProxySettings.HTTPProxyURL == "" && cfg.ProxySettings.HTTPSProxyURL == "" {
		fail("proxy_settings", cfg.ProxySettings, "is_use_proxy is set but no proxy URL is configured")
	}

	return result
}

// ClampedInterval returns spec's interval with the 180s minimum enforced
// (spec.md §6: "minimum interval 180 s; smaller values clamped").
func (t CronTaskSpec) ClampedInterval() time.Duration {
	if t.Interval < MinCronInterval {
		return MinCronInterval
	}
	return t.Interval
}
