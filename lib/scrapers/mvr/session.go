package mvr

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"mvr-docstatus/lib/restyutil"
	"mvr-docstatus/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Session is one browser-like HTTP identity: a cookie jar plus fixed headers.
// it must not be shared between concurrent queries, the CAPTCHA the site
// issues is bound to the session cookie.
type Session struct {
	http *resty.Client
	base *url.URL
}

func newSession(base *url.URL, config Config, dump restyutil.InstrumentOutput) (*Session, error) {
	httpClient := resty.New()
	httpClient.SetBaseURL(base.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if !config.DisableCloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeaders(config.Headers)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))
	httpClient.SetTimeout(config.timeout())

	// max burst >= 1 just means that no requests will be dropped
	rps := config.RequestsPerSecond
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(rps), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, "scrapers/mvr/http")
	restyutil.InstrumentClient(httpClient, dump)

	return &Session{
		http: httpClient,
		base: base,
	}, nil
}

// ClearCookies swaps in an empty cookie jar, the next form fetch then starts
// a fresh server side session.
func (s *Session) ClearCookies() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	s.http.SetCookieJar(jar)
	return nil
}

// Cookies returns the cookies the session would send to the site.
func (s *Session) Cookies() []*http.Cookie {
	jar := s.http.GetClient().Jar
	if jar == nil {
		return nil
	}
	return jar.Cookies(s.base)
}
