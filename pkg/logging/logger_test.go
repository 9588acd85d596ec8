package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, Field{Key: "k", Value: 1}, LogField("k", 1))
	assert.Equal(t, Field{Key: "s", Value: "v"}, StringField("s", "v"))
	assert.Equal(t, Field{Key: "n", Value: 3}, IntField("n", 3))
	assert.Equal(t, Field{Key: "b", Value: true}, BoolField("b", true))
	assert.Equal(t,
		Field{Key: "d", Value: time.Second},
		DurationField("d", time.Second),
	)
	assert.Equal(t, "boom", ErrorField(errors.New("boom")).Value)
	assert.Equal(t, "<nil>", ErrorField(nil).Value)
}

func TestMergeFields_OverridesInPlace(t *testing.T) {
	base := []Field{{"pass", "p1"}, {"task", "a"}}
	got := mergeFields(base, []Field{{"task", "b"}, {"seq", 2}})
	assert.Equal(t,
		[]Field{{"pass", "p1"}, {"task", "b"}, {"seq", 2}},
		got,
	)
	assert.Equal(t, "a", base[1].Value, "base is not modified")
}

func TestDiscard(t *testing.T) {
	var l Logger = Discard()
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	l.Debug("x")
	assert.IsType(t, &ZapLogger{}, l.WithFields(StringField("a", "b")))
	assert.NoError(t, l.Close())
}
