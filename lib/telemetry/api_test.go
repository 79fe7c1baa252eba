package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type report struct {
	kind   string
	id     string
	params []any
}

type recordingAPI struct {
	reports []report
}

func (r *recordingAPI) ReportBroken(id string, params ...any) {
	r.reports = append(r.reports, report{kind: "broken", id: id, params: params})
}

func (r *recordingAPI) ReportWarning(id string, params ...any) {
	r.reports = append(r.reports, report{kind: "warning", id: id, params: params})
}

func (r *recordingAPI) ReportDebug(msg string, params ...any) {
	r.reports = append(r.reports, report{kind: "debug", id: msg, params: params})
}

func (r *recordingAPI) ReportCount(id string, count int64) {
	r.reports = append(r.reports, report{kind: "count", id: id, params: []any{count}})
}

func TestScopedAPI(t *testing.T) {
	inner := &recordingAPI{}
	outer := NewScopedAPI("cli", NewScopedAPI("mvr_scraper", inner))

	outer.ReportBroken("client.fetch-challenge", "status 500")
	outer.ReportWarning("client.query", 1, 2)
	outer.ReportDebug("captcha rejected")
	outer.ReportCount("client.query-attempts", 3)

	require.Equal(t, []report{
		{kind: "broken", id: "mvr_scraper: cli: client.fetch-challenge", params: []any{"status 500"}},
		{kind: "warning", id: "mvr_scraper: cli: client.query", params: []any{1, 2}},
		{kind: "debug", id: "mvr_scraper: cli: captcha rejected"},
		{kind: "count", id: "mvr_scraper: cli: client.query-attempts", params: []any{int64(3)}},
	}, inner.reports)
}

func TestSlogAPIFormatParams(t *testing.T) {
	var out []any
	SlogAPI{}.formatParams(&out, []any{"a", 2})
	require.Equal(t, []any{"params.0", "a", "params.1", 2}, out)
}

func TestOtlpConnConfigEnabled(t *testing.T) {
	require.False(t, OtlpConnConfig{}.enabled())
	require.True(t, OtlpConnConfig{GrpcEndpoint: "localhost:4317"}.enabled())
	require.True(t, OtlpConnConfig{HttpEndpoint: "localhost:4318"}.enabled())
}
