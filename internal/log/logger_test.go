package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFromCtxWithoutLoggerIsSafe(t *testing.T) {
	l := FromCtx(context.Background())
	// A disabled logger must accept events without panicking.
	l.Info().Str("k", "v").Msg("dropped")
}

func TestWithWriter(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithWriter(context.Background(), &buf)

	FromCtx(ctx).Info().Str("user", "u1").Msg("plan built")

	assert.Contains(t, buf.String(), `"message":"plan built"`)
	assert.Contains(t, buf.String(), `"user":"u1"`)
}

func TestGooseLoggerPrintf(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithWriter(context.Background(), &buf)

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	NewGooseLoggerFromCtx(ctx).Printf("OK %s", "00001_init.sql")

	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), "OK 00001_init.sql")
}
