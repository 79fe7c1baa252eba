package mvr

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"mvr-docstatus/lib/captcha"

	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(ClientOptions{
		Config: Config{MaxRetries: 3},
		Tel:    nopAPI{},
	})
	require.NoError(t, err)
	require.Equal(t, DefaultBaseUrl, client.Config().BaseUrl)
	require.Equal(t, DefaultServicePath, client.Config().ServicePath)
	require.Equal(t, DefaultDocumentType, client.Config().DocumentType)

	_, err = NewClient(ClientOptions{Config: Config{BaseUrl: "www.mvr.bg"}, Tel: nopAPI{}})
	require.Error(t, err)
	_, err = NewClient(ClientOptions{Config: Config{MaxRetries: -1}, Tel: nopAPI{}})
	require.Error(t, err)
}

func TestFetchChallenge(t *testing.T) {
	site, srv := newMockSite(t, alwaysAnswer(resultPage))
	client := newTestClient(t, srv.URL)

	session, err := client.NewSession()
	require.NoError(t, err)

	challenge, err := client.FetchChallenge(context.Background(), session)
	require.NoError(t, err)
	require.Equal(t, "image/png", challenge.Image.ContentType)
	require.Equal(t, testCaptchaPNG(t), challenge.Image.Data)
	require.Same(t, session, challenge.Session)

	forms, images, _ := site.counts()
	require.Equal(t, 1, forms)
	require.Equal(t, 1, images)

	cookies := session.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "sess-1", cookies[0].Value)

	require.NoError(t, session.ClearCookies())
	require.Empty(t, session.Cookies())
}

func TestFetchChallengeInlineImage(t *testing.T) {
	site, srv := newMockSite(t, alwaysAnswer(resultPage))
	site.formHTML = formPageInline
	client := newTestClient(t, srv.URL)

	session, err := client.NewSession()
	require.NoError(t, err)
	challenge, err := client.FetchChallenge(context.Background(), session)
	require.NoError(t, err)
	require.Equal(t, "image/png", challenge.Image.ContentType)
	require.NotEmpty(t, challenge.Image.Data)

	_, images, _ := site.counts()
	require.Equal(t, 0, images)
}

func TestFetchChallengeErrors(t *testing.T) {
	t.Run("no captcha image", func(t *testing.T) {
		site, srv := newMockSite(t, alwaysAnswer(resultPage))
		site.formHTML = noContainerPage
		client := newTestClient(t, srv.URL)
		session, err := client.NewSession()
		require.NoError(t, err)

		_, err = client.FetchChallenge(context.Background(), session)
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr), "got %v", err)
	})

	t.Run("server error", func(t *testing.T) {
		site, srv := newMockSite(t, alwaysAnswer(resultPage))
		site.formStatus = http.StatusInternalServerError
		client := newTestClient(t, srv.URL)
		session, err := client.NewSession()
		require.NoError(t, err)

		_, err = client.FetchChallenge(context.Background(), session)
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr), "got %v", err)
		require.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, srv := newMockSite(t, alwaysAnswer(resultPage))
		client := newTestClient(t, srv.URL)
		srv.Close()
		session, err := client.NewSession()
		require.NoError(t, err)

		_, err = client.FetchChallenge(context.Background(), session)
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr), "got %v", err)
		require.Error(t, netErr.Unwrap())
	})
}

func TestSubmitQuery(t *testing.T) {
	site, srv := newMockSite(t, alwaysAnswer(resultPage))
	client := newTestClient(t, srv.URL)
	session, err := client.NewSession()
	require.NoError(t, err)

	req := QueryRequest{
		DocumentType: "6729",
		SubjectID:    "7501010010",
		LastName:     "Иванова",
		Captcha:      "a7K2",
		Submitted:    "1",
	}
	res, err := client.SubmitQuery(context.Background(), session, req)
	require.NoError(t, err)
	require.Equal(t, resultPage, res.RawHTML)
	require.Contains(t, res.StatusText, "няма издаден документ")
	require.Equal(t, 2026, res.AsOf.Year())

	require.Len(t, site.submissions, 1)
	got := site.submissions[0]
	require.Equal(t, req.Encode(), got.rawQuery)
	require.Equal(t, url.Values{
		"type":      {"6729"},
		"egn":       {"7501010010"},
		"name":      {"Иванова"},
		"captcha":   {"a7K2"},
		"submitted": {"1"},
	}, got.values)

	req.Captcha = ""
	_, err = client.SubmitQuery(context.Background(), session, req)
	require.True(t, errors.Is(err, ErrInvalidRequest))
	require.Len(t, site.submissions, 1)
}

func TestSubmitQueryUnparseable(t *testing.T) {
	_, srv := newMockSite(t, alwaysAnswer(noContainerPage))
	client := newTestClient(t, srv.URL)
	session, err := client.NewSession()
	require.NoError(t, err)

	res, err := client.SubmitQuery(context.Background(), session, QueryRequest{
		DocumentType: "6729",
		SubjectID:    "7501010010",
		LastName:     "Иванова",
		Captcha:      "a7K2",
		Submitted:    "1",
	})
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), "got %v", err)
	require.Equal(t, noContainerPage, res.RawHTML)
}

func TestSolveChallenge(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	ch := Challenge{Image: captcha.NewImage(testCaptchaPNG(t), "")}

	answer, err := client.SolveChallenge(context.Background(), ch, captcha.Preset("q9Z"))
	require.NoError(t, err)
	require.Equal(t, "q9Z", answer)

	boom := errors.New("boom")
	_, err = client.SolveChallenge(context.Background(), ch, captcha.SolverFunc(func(context.Context, captcha.Image) (string, error) {
		return "", boom
	}))
	require.ErrorIs(t, err, boom)
}
