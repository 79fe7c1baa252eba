package mvr

import (
	"mvr-docstatus/lib/telemetry"

	"go.opentelemetry.io/otel/metric"
)

var tracer = telemetry.Tracer("mvr-docstatus/lib/scrapers/mvr")

var meter = telemetry.Meter("mvr-docstatus/lib/scrapers/mvr")

var attemptCounter, _ = meter.Int64Counter(
	"mvr.query.attempts",
	metric.WithDescription("query attempts by outcome"),
)

const (
	report_client_fetch_challenge = "client.fetch-challenge"
	report_client_fetch_image     = "client.fetch-captcha-image"
	report_client_solve_challenge = "client.solve-challenge"
	report_client_submit_query    = "client.submit-query"
	report_client_query           = "client.query"
	report_client_query_attempts  = "client.query-attempts"
)
