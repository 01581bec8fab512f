package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Noop(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	_, span := p.Tracer().Start(context.Background(), "x")
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Stdout(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(Config{Exporter: "stdout", Writer: &buf})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "fetch.component")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "fetch.component")
}

func TestNewProvider_Unsupported(t *testing.T) {
	_, err := NewProvider(Config{Exporter: "otlp"})
	assert.Error(t, err)
}
