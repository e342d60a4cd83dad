package server_test

import (
	"testing"
	"time"

	"schema-sync/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Address(t *testing.T) {
	assert.Equal(t, ":8080", server.Config{Port: "8080"}.Address())
}

func TestConfig_IsProtected(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		want   bool
	}{
		{"WithKey", "secret", true},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := server.Config{ApiKey: tt.apiKey}
			assert.Equal(t, tt.want, c.IsProtected())
		})
	}
}

func TestConfig_Limits(t *testing.T) {
	c := server.Config{ReadTimeoutSeconds: 5, BodyLimitKB: 2}
	assert.Equal(t, 5*time.Second, c.ReadTimeout())
	assert.Equal(t, 2048, c.BodyLimit())

	var zero server.Config
	assert.Equal(t, time.Duration(0), zero.ReadTimeout())
	assert.Equal(t, 1024*1024, zero.BodyLimit())
}
