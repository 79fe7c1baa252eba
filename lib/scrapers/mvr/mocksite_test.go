package mvr

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"mvr-docstatus/lib/telemetry"

	"github.com/stretchr/testify/require"
)

//go:embed form_page_test.html
var formPage string

//go:embed form_page_inline_test.html
var formPageInline string

type submission struct {
	rawQuery string
	values   url.Values
	session  string
}

// mockSite imitates the form page, the captcha image endpoint and the
// query endpoint. every form fetch starts a new numbered session.
type mockSite struct {
	t *testing.T

	formHTML string
	// answer renders the response to the n-th submission (starting at 1)
	answer     func(n int, values url.Values) string
	formStatus int

	mu           sync.Mutex
	formFetches  int
	imageFetches int
	submissions  []submission
}

func testCaptchaPNG(t testing.TB) []byte {
	img := image.NewGray(image.Rect(0, 0, 6, 4))
	for i := range img.Pix {
		img.Pix[i] = 40
	}
	img.Set(2, 2, color.Gray{Y: 240})
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func (m *mockSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/captcha/image.php"):
		m.imageFetches++
		w.Header().Set("Content-Type", "image/png")
		w.Write(testCaptchaPNG(m.t))
	case r.URL.Path == DefaultServicePath && r.URL.Query().Get("submitted") == "":
		m.formFetches++
		if m.formStatus != 0 {
			w.WriteHeader(m.formStatus)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:  "PHPSESSID",
			Value: fmt.Sprintf("sess-%d", m.formFetches),
			Path:  "/",
		})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(m.formHTML))
	case r.URL.Path == DefaultServicePath:
		session := ""
		cookie, err := r.Cookie("PHPSESSID")
		if err == nil {
			session = cookie.Value
		}
		values := r.URL.Query()
		m.submissions = append(m.submissions, submission{
			rawQuery: r.URL.RawQuery,
			values:   values,
			session:  session,
		})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(m.answer(len(m.submissions), values)))
	default:
		http.NotFound(w, r)
	}
}

func (m *mockSite) counts() (forms, images, submissions int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.formFetches, m.imageFetches, len(m.submissions)
}

func newMockSite(t *testing.T, answer func(n int, values url.Values) string) (*mockSite, *httptest.Server) {
	site := &mockSite{t: t, formHTML: formPage, answer: answer}
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)
	return site, srv
}

func newTestClient(t *testing.T, baseUrl string) *Client {
	config := DefaultConfig()
	config.BaseUrl = baseUrl
	config.DisableCloudflareBypass = true
	config.RequestsPerSecond = 0
	config.TimeoutSeconds = 5

	client, err := NewClient(ClientOptions{
		Config: config,
		Tel:    telemetry.SlogAPI{},
	})
	require.NoError(t, err)
	return client
}

func alwaysAnswer(html string) func(int, url.Values) string {
	return func(int, url.Values) string {
		return html
	}
}
