package restyutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	lock     sync.Mutex
	messages map[string]string
}

func (m *memoryOutput) Write(id, contents string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.messages == nil {
		m.messages = map[string]string{}
	}
	m.messages[id] = contents
}

func TestInstrumentClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<p>здравей</p>"))
	}))
	defer srv.Close()

	out := &memoryOutput{}
	client := resty.New()
	InstrumentClient(client, out)

	_, err := client.R().
		SetContext(context.Background()).
		SetHeader("X-Test", "1").
		Get(srv.URL + "/page")
	require.NoError(t, err)

	require.Len(t, out.messages, 1)
	message := out.messages["1"]
	require.Contains(t, message, "---- REQUEST ----")
	require.Contains(t, message, "GET "+srv.URL+"/page")
	require.Contains(t, message, "X-Test: 1")
	require.Contains(t, message, "---- RESPONSE ----")
	require.Contains(t, message, "<p>здравей</p>")
}

func TestInstrumentClientRequestBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out := &memoryOutput{}
	client := resty.New()
	InstrumentClient(client, out)

	_, err := client.R().Get(srv.URL)
	require.NoError(t, err)
	_, err = client.R().SetBody("egn=7501010010").Post(srv.URL)
	require.NoError(t, err)

	require.Len(t, out.messages, 2)
	require.Contains(t, out.messages["1"], "<NO BODY>")
	require.Contains(t, out.messages["2"], "egn=7501010010")
	require.NotContains(t, out.messages["2"], "<NO BODY>")
}

func TestInstrumentClientNilOutput(t *testing.T) {
	client := resty.New()
	InstrumentClient(client, nil)
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	out.Write("7", "contents")
	written, err := os.ReadFile(filepath.Join(dir, "7.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(written))
}
