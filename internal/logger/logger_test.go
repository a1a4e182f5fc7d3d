package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogPrefixes(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	l := NewLoggerService(map[string]interface{}{})
	l.LogError("connection refused")
	l.LogAudit("batch promoted")

	out := buf.String()
	assert.Contains(t, out, "[ERROR] connection refused")
	assert.Contains(t, out, "[AUDIT] batch promoted")
}
