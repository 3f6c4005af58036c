package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), Config{ServiceName: "lootbound-test"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.Equal(t, before, otel.GetTracerProvider(), "no provider should be registered")
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_RegistersProvider(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), Config{
		Endpoint:    "http://127.0.0.1:4318",
		ServiceName: "lootbound-test",
	})
	require.NoError(t, err)

	assert.NotEqual(t, before, otel.GetTracerProvider())

	// Nothing was recorded, so the flush does not reach the collector
	assert.NoError(t, shutdown(context.Background()))
}
