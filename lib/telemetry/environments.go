package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"mvr-docstatus/lib/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is a shorthand for otel.Tracer so packages don't need to import otel directly.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter is a shorthand for otel.Meter.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

var (
	setupTestEnvironments = map[string]bool{}
	setupTestLock         sync.Mutex
)

// sets up telemetry in a testing environment, ensuring that it isn't
// set up more than once
func SetupForTesting(t testing.TB, serviceName string) func() {
	setupTestLock.Lock()
	defer setupTestLock.Unlock()

	if setupTestEnvironments[serviceName] {
		return func() {}
	}
	setupTestEnvironments[serviceName] = true

	InitSlog(true)
	tel, err := SetupFromEnv(context.Background(), serviceName)
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}

// searches up the filesystem from the cwd to find a file
// called telemetry.json5, once found it will then use it
// as a config to setup telemetry.
//
// a missing file is not an error, the global no-op providers are left in place.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("telemetry.json5 not found, telemetry export disabled", "service", serviceName)
		return Telemetry{}, nil
	}
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}
