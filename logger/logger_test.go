package logger_test

import (
	"testing"

	"okrproject/logger/loggertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactsSecretKeys(t *testing.T) {
	log, logs := loggertest.New()
	log.Info("login", "jwt_token", "abc.def.ghi", "user", "ana")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["jwt_token"])
	assert.Equal(t, "ana", fields["user"])
}

func TestWithKeepsFields(t *testing.T) {
	log, logs := loggertest.New()
	log.With("request_id", "r-1").Warn("slow")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "r-1", logs.All()[0].ContextMap()["request_id"])
}
