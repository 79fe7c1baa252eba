// client.go contains the individual steps of a query: fetching the form page
// and its CAPTCHA, solving it and submitting the query. query.go strings
// them together.

package mvr

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"mvr-docstatus/internal/assert"
	"mvr-docstatus/lib/captcha"
	"mvr-docstatus/lib/restyutil"
	"mvr-docstatus/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

type Client struct {
	base   *url.URL
	config Config
	dump   restyutil.InstrumentOutput

	tel telemetry.API
}

type ClientOptions struct {
	Config Config
	// Tel is required
	Tel telemetry.API
	// HttpDump receives every HTTP exchange when set
	HttpDump restyutil.InstrumentOutput
}

func NewClient(opts ClientOptions) (*Client, error) {
	assert.NotNil(opts.Tel)

	config := opts.Config
	if config.BaseUrl == "" {
		config.BaseUrl = DefaultBaseUrl
	}
	if config.ServicePath == "" {
		config.ServicePath = DefaultServicePath
	}
	if config.DocumentType == "" {
		config.DocumentType = DefaultDocumentType
	}
	if config.MaxRetries < 0 {
		return nil, fmt.Errorf("mvr: max retries must not be negative")
	}

	base, err := url.Parse(config.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("mvr: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("mvr: base url must be absolute: %q", config.BaseUrl)
	}

	return &Client{
		base:   base,
		config: config,
		dump:   opts.HttpDump,
		tel:    telemetry.NewScopedAPI("mvr_scraper", opts.Tel),
	}, nil
}

func (c *Client) Config() Config {
	return c.config
}

// NewSession creates a fresh HTTP session, see Session.
func (c *Client) NewSession() (*Session, error) {
	return newSession(c.base, c.config, c.dump)
}

// Challenge is a CAPTCHA image together with the session it was issued to.
type Challenge struct {
	Image   captcha.Image
	Session *Session
}

var (
	captchaAttrPattern = regexp.MustCompile(`(?i)captcha`)
	captchaAltPattern  = regexp.MustCompile(`(?i)captcha|защитен код`)
)

func findCaptchaImage(doc *goquery.Document) *goquery.Selection {
	imgs := doc.Find("img[src]")
	lookups := []struct {
		attr    string
		pattern *regexp.Regexp
	}{
		{attr: "class", pattern: captchaAttrPattern},
		{attr: "alt", pattern: captchaAltPattern},
		{attr: "id", pattern: captchaAttrPattern},
	}
	for _, l := range lookups {
		found := imgs.FilterFunction(func(_ int, s *goquery.Selection) bool {
			value, ok := s.Attr(l.attr)
			return ok && l.pattern.MatchString(value)
		}).First()
		if found.Length() > 0 && strings.TrimSpace(found.AttrOr("src", "")) != "" {
			return found
		}
	}
	return nil
}

// FetchChallenge loads the form page and the CAPTCHA image embedded in it.
func (c *Client) FetchChallenge(ctx context.Context, s *Session) (Challenge, error) {
	ctx, span := tracer.Start(ctx, "client:FetchChallenge")
	defer span.End()

	res, err := s.http.R().
		SetContext(ctx).
		Get(c.config.ServicePath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch form page")
		c.tel.ReportBroken(report_client_fetch_challenge, fmt.Errorf("fetch form page: %w", err))
		return Challenge{}, &NetworkError{Op: "fetch form page", URL: c.config.ServicePath, Err: err}
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "form page returned an error status")
		c.tel.ReportBroken(report_client_fetch_challenge, fmt.Errorf("form page status %d", res.StatusCode()))
		return Challenge{}, &NetworkError{Op: "fetch form page", URL: c.config.ServicePath, StatusCode: res.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse form page")
		c.tel.ReportBroken(report_client_fetch_challenge, fmt.Errorf("parse form page: %w", err))
		return Challenge{}, &ParseError{What: "form page markup"}
	}

	img := findCaptchaImage(doc)
	if img == nil {
		span.SetStatus(codes.Error, "no captcha image on form page")
		c.tel.ReportBroken(report_client_fetch_challenge, fmt.Errorf("no captcha <img> on form page"))
		return Challenge{}, &ParseError{What: "captcha image"}
	}
	src := strings.TrimSpace(img.AttrOr("src", ""))

	if strings.HasPrefix(src, "data:") {
		image, err := captcha.ParseDataURI(src)
		if err != nil {
			span.SetStatus(codes.Error, "failed to decode inline captcha")
			c.tel.ReportBroken(report_client_fetch_image, err)
			return Challenge{}, &ParseError{What: "decodable inline captcha image"}
		}
		return Challenge{Image: image, Session: s}, nil
	}

	pageUrl := c.base.JoinPath()
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		pageUrl = res.RawResponse.Request.URL
	}
	imageUrl, err := pageUrl.Parse(src)
	if err != nil {
		span.SetStatus(codes.Error, "invalid captcha src")
		c.tel.ReportBroken(report_client_fetch_image, fmt.Errorf("parse captcha src %q: %w", src, err))
		return Challenge{}, &ParseError{What: "valid captcha image url"}
	}

	image, err := c.fetchImage(ctx, s, imageUrl.String())
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch captcha image")
		return Challenge{}, err
	}
	return Challenge{Image: image, Session: s}, nil
}

func (c *Client) fetchImage(ctx context.Context, s *Session, link string) (captcha.Image, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Accept", "image/avif,image/webp,image/png,image/*;q=0.8,*/*;q=0.5").
		SetHeader("Sec-Fetch-Dest", "image").
		SetHeader("Sec-Fetch-Mode", "no-cors").
		SetHeader("Sec-Fetch-Site", "same-origin").
		Get(link)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_image, fmt.Errorf("fetch: %w", err), redactedUrl(link))
		return captcha.Image{}, &NetworkError{Op: "fetch captcha image", URL: redactedUrl(link), Err: err}
	}
	if res.IsError() {
		c.tel.ReportBroken(report_client_fetch_image, fmt.Errorf("status %d", res.StatusCode()), redactedUrl(link))
		return captcha.Image{}, &NetworkError{Op: "fetch captcha image", URL: redactedUrl(link), StatusCode: res.StatusCode()}
	}
	if len(res.Body()) == 0 {
		c.tel.ReportBroken(report_client_fetch_image, fmt.Errorf("empty body"), redactedUrl(link))
		return captcha.Image{}, &ParseError{What: "captcha image data"}
	}
	return captcha.NewImage(res.Body(), res.Header().Get("Content-Type")), nil
}

// SolveChallenge hands the challenge image to `solver`, it does not judge
// whether the answer is right, only submitting it tells.
func (c *Client) SolveChallenge(ctx context.Context, ch Challenge, solver captcha.Solver) (string, error) {
	ctx, span := tracer.Start(ctx, "client:SolveChallenge")
	defer span.End()

	answer, err := solver.Solve(ctx, ch.Image)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "solver failed")
		c.tel.ReportWarning(report_client_solve_challenge, err)
		return "", err
	}
	return answer, nil
}

// SubmitQuery sends the query on `s` and parses the answer out of the response.
// when the response can't be parsed the raw HTML is still returned.
func (c *Client) SubmitQuery(ctx context.Context, s *Session, req QueryRequest) (QueryResult, error) {
	ctx, span := tracer.Start(ctx, "client:SubmitQuery")
	defer span.End()

	err := req.Validate()
	if err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return QueryResult{}, err
	}

	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Sec-Fetch-Site", "same-origin").
		SetHeader("Referer", c.base.JoinPath(c.config.ServicePath).String()).
		Get(c.config.ServicePath + "?" + req.Encode())
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit query")
		c.tel.ReportBroken(report_client_submit_query, fmt.Errorf("fetch: %w", err))
		return QueryResult{}, &NetworkError{Op: "submit query", URL: c.config.ServicePath, Err: err}
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "query returned an error status")
		c.tel.ReportBroken(report_client_submit_query, fmt.Errorf("status %d", res.StatusCode()))
		return QueryResult{}, &NetworkError{Op: "submit query", URL: c.config.ServicePath, StatusCode: res.StatusCode()}
	}

	result := QueryResult{RawHTML: string(res.Body())}
	status, err := ExtractResult(result.RawHTML)
	if err != nil {
		span.SetStatus(codes.Error, "failed to extract result")
		c.tel.ReportBroken(report_client_submit_query, err)
		return result, err
	}
	result.StatusText = status
	result.AsOf = parseAsOf(status)
	return result, nil
}
