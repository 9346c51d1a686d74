package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf}).With(FieldUserID, "u1").WithComponent(ComponentBudget)

	l.Info("created")

	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, "component="))
	assert.Contains(t, line, "component=budget")
	assert.Contains(t, line, "user_id=u1")
	assert.Equal(t, ComponentBudget, l.Component())
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, JSON: true})

	l.WithError(errors.New("boom")).Error("failed")
	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Same(t, l, l.WithError(nil))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Level: ParseLevel("warn")})

	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestContextRoundTrip(t *testing.T) {
	l := Discard().WithComponent(ComponentHTTP)
	ctx := IntoContext(context.Background(), l)

	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}
