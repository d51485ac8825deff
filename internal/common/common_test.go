package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("EXTRACTION_MODE", "")
	t.Setenv("AI_TIMEOUT", "5s")
	t.Setenv("MAX_UPLOAD_MB", "2")

	cfg := LoadConfig()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "auto", cfg.Extraction.Mode)
	assert.Equal(t, "5s", cfg.Extraction.AITimeout.String())
	assert.Equal(t, int64(2<<20), cfg.Server.MaxUploadBytes)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "bad mode", mutate: func(c *Config) { c.Extraction.Mode = "magic" }, wantErr: true},
		{name: "vat rate as percent", mutate: func(c *Config) { c.Extraction.DefaultVATRate = 20 }, wantErr: true},
		{name: "no database", mutate: func(c *Config) { c.Database.Driver = "none" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("run: %w", ErrNotFound)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewAppError("X", "bad", ErrValidation)))
	assert.Equal(t, http.StatusUnsupportedMediaType, HTTPStatus(ErrUnsupported))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, "X", ErrorCode(NewAppError("X", "bad", ErrValidation)))
	assert.Equal(t, "NOT_FOUND", ErrorCode(ErrNotFound))
}

func TestGRPCStatus(t *testing.T) {
	assert.NoError(t, GRPCStatus(nil))
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("run: %w", ErrNotFound), codes.NotFound},
		{NewAppError("X", "bad", ErrValidation), codes.InvalidArgument},
		{ErrUnsupported, codes.InvalidArgument},
		{ErrNotReady, codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(GRPCStatus(tt.err)), tt.err.Error())
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("text", "", Required).
		Field("mode", "fast", OneOf("auto", "ai", "regex")).
		Field("anchor", "2025-13-01", DateYMD).
		Field("postcode", "SE20 7QX", Postcode).
		Field("bedrooms", 4, IntRange(0, 20))

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 3)
	err := v.Err()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "mode")

	assert.Nil(t, Postcode("p", "SE20"))
	assert.NotNil(t, Postcode("p", "not a postcode"))
	assert.NoError(t, NewValidator().Field("text", "hello", Required, MaxLength(10)).Err())
}
