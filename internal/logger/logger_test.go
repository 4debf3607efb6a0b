package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("copy submitted", "strategy", "strided-2d")

	out := buf.String()
	assert.Contains(t, out, `"msg":"copy submitted"`)
	assert.Contains(t, out, `"strategy":"strided-2d"`)
	assert.Contains(t, out, `"level":"INFO"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("hidden")
	log.Debug("hidden")
	assert.Zero(t, buf.Len())
	assert.False(t, log.Enabled(slog.LevelInfo))
	assert.True(t, log.Enabled(slog.LevelError))

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestPretty(t *testing.T) {
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelDebug).With("queue", "q0")
	log.Debug("task done", "label", "copy cast", "elements", 12)

	out := buf.String()
	assert.Contains(t, out, "task done")
	assert.Contains(t, out, "queue=q0")
	assert.Contains(t, out, `label="copy cast"`)
	assert.Contains(t, out, "elements=12")
}

func TestPrettyGroups(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil).WithGroup("plan")
	slog.New(h).Info("built", "rank", 2, slog.Group("src", "offset", 3))

	out := buf.String()
	assert.Contains(t, out, "plan.rank=2")
	assert.Contains(t, out, "plan.src.offset=3")
}

func TestSetup(t *testing.T) {
	for _, format := range []string{"", FormatText, FormatJSON, FormatPretty} {
		var buf bytes.Buffer
		log, err := Setup(format, "info", &buf)
		require.NoError(t, err, format)
		log.Info("hello")
		assert.Contains(t, buf.String(), "hello", format)
	}

	_, err := Setup("xml", "info", &bytes.Buffer{})
	assert.Error(t, err)
	_, err = Setup(FormatText, "loud", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info("from context")
	assert.Contains(t, buf.String(), "from context")

	assert.NotNil(t, FromContext(context.Background()))
	Discard().Error("dropped")
}
