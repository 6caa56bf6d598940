package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvSubstitutesBracedVariable(t *testing.T) {
	t.Setenv("API_KEY", "secret123")
	result := ExpandEnv([]byte("api_key: ${API_KEY}"))
	assert.Equal(t, "api_key: secret123", string(result))
}

func TestExpandEnvSubstitutesBareVariable(t *testing.T) {
	t.Setenv("HOST", "localhost")
	result := ExpandEnv([]byte("host: $HOST"))
	assert.Equal(t, "host: localhost", string(result))
}

func TestExpandEnvMissingVariableExpandsEmpty(t *testing.T) {
	result := ExpandEnv([]byte("endpoint: ${DOES_NOT_EXIST}"))
	assert.Equal(t, "endpoint: ", string(result))
}

func TestExpandEnvMultipleSubstitutions(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	result := ExpandEnv([]byte("dsn: postgres://${DB_HOST}:${DB_PORT}/events"))
	assert.Equal(t, "dsn: postgres://db:5432/events", string(result))
}

func TestExpandEnvPreservesContentWithoutVariables(t *testing.T) {
	input := "adapter:\n  kind: memory\n"
	assert.Equal(t, input, string(ExpandEnv([]byte(input))))
}
