package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactingLogger_RedactsMessageAndFields(t *testing.T) {
	var buf bytes.Buffer
	inner := NewConsoleLoggerTo(&buf, true, false)
	r := NewRedactingLogger(inner, "s3cr3t-token")

	r.Info("using s3cr3t-token",
		StringField("auth", "Bearer s3cr3t-token"),
		IntField("n", 1),
		ErrorField(errors.New("mount //nas/share:s3cr3t-token refused")),
	)

	out := buf.String()
	assert.NotContains(t, out, "s3cr3t-token")
	assert.Contains(t, out, "using [REDACTED]")
	assert.Contains(t, out, "auth=Bearer [REDACTED]")
	assert.Contains(t, out, "n=1")
}

func TestRedactingLogger_SecretKeyMaskedWhole(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedactingLogger(NewConsoleLoggerTo(&buf, false, false))

	r.Info("share", StringField("share_password", "abc"), StringField("user", "bob"))

	out := buf.String()
	assert.Contains(t, out, "share_password=[REDACTED]")
	assert.Contains(t, out, "user=bob")
}

func TestRedactingLogger_ShortSecretIgnored(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedactingLogger(NewConsoleLoggerTo(&buf, false, false), "abc")

	r.Warn("abc stays")
	assert.Contains(t, buf.String(), "abc stays")
}

func TestRedactingLogger_RelaunchArgs(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedactingLogger(NewConsoleLoggerTo(&buf, false, false), "hunter2hunter2")

	r.Info("requesting_elevation",
		LogField("args", []string{"apply", "--password=hunter2hunter2"}),
	)
	assert.Contains(t, buf.String(), "args=[apply --password=[REDACTED]]")
}

func TestRedactingLogger_WithFieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedactingLogger(
		NewConsoleLoggerTo(&buf, true, false), "password1",
	)
	child := r.WithFields(StringField("pw", "password1"))
	child.Error("e")
	child.Debug("d password1")

	out := buf.String()
	assert.NotContains(t, out, "password1")
	assert.NoError(t, child.Close())
}
