package mvr

import "time"

const (
	DefaultBaseUrl     = "https://www.mvr.bg"
	DefaultServicePath = "/електронизирани-услуги/справка-за-издадени-и-неполучени-български-лични-документи"

	// document type code for "issued and not yet collected bulgarian personal documents"
	DefaultDocumentType = "6729"
	DefaultMaxRetries   = 15
)

// Config is everything a Client needs to talk to the site, there is no package
// level state so several differently configured clients can coexist.
type Config struct {
	BaseUrl      string            `json:"base_url"`
	ServicePath  string            `json:"service_path"`
	DocumentType string            `json:"document_type"`
	Headers      map[string]string `json:"headers"`

	// retries after the first attempt, 0 means exactly one attempt
	MaxRetries        int     `json:"max_retries"`
	RetryDelayMillis  int     `json:"retry_delay_ms"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`

	DisableCloudflareBypass bool `json:"disable_cloudflare_bypass"`
}

func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "bg,en-US;q=0.7,en;q=0.3",
		"Accept-Encoding":           "gzip",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
	}
}

func DefaultConfig() Config {
	return Config{
		BaseUrl:           DefaultBaseUrl,
		ServicePath:       DefaultServicePath,
		DocumentType:      DefaultDocumentType,
		Headers:           DefaultHeaders(),
		MaxRetries:        DefaultMaxRetries,
		TimeoutSeconds:    30,
		RequestsPerSecond: 2,
	}
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) retryDelay() time.Duration {
	return time.Duration(c.RetryDelayMillis) * time.Millisecond
}
