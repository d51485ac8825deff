package valuation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/household-extractor/internal/common"
)

func newReady(t *testing.T) *Service {
	t.Helper()
	s := NewService(Config{}, nil)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func ptr(f float64) *float64 { return &f }

func TestParseOutcode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"se20 7qx", "SE20", true},
		{"SW1A 1AA", "SW1A", true},
		{"SW1A1AA", "SW1A", true},
		{"M1", "M1", true},
		{" ec1v  9hx ", "EC1V", true},
		{"not a postcode", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseOutcode(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestEstimateExact(t *testing.T) {
	s := newReady(t)
	v, err := s.Estimate(context.Background(), Request{
		Postcode:     "SE20 7QX",
		PropertyType: "Detached",
		Bedrooms:     4,
		Bathrooms:    2,
		FloorAreaSqm: 120,
		YearBuilt:    1930,
	})
	require.NoError(t, err)
	assert.Equal(t, MatchExact, v.Match)
	assert.Equal(t, "SE20", v.Outcode)
	assert.Equal(t, "618000.00", v.Estimate.String())
	assert.Equal(t, "569000.00", v.Low.String())
	assert.Equal(t, "667000.00", v.High.String())
	assert.Equal(t, 0.85, v.Confidence)
	assert.Empty(t, v.Warnings)
	assert.Equal(t, "uk-2025.1", v.ModelVersion)
}

func TestEstimateTypicalInputs(t *testing.T) {
	s := newReady(t)
	v, err := s.Estimate(context.Background(), Request{Postcode: "SE20"})
	require.NoError(t, err)
	assert.Equal(t, "362000.00", v.Estimate.String())
	assert.Len(t, v.Warnings, 4)
	assert.Equal(t, 0.65, v.Confidence)

	flat, err := s.Estimate(context.Background(), Request{Postcode: "M1 1AE", PropertyType: "flat"})
	require.NoError(t, err)
	assert.Equal(t, "189000.00", flat.Estimate.String())
	assert.Equal(t, "174000.00", flat.Low.String())
	assert.Equal(t, "204000.00", flat.High.String())
}

func TestEstimateFallbacks(t *testing.T) {
	s := newReady(t)
	tests := []struct {
		name    string
		req     Request
		match   Match
		outcode string
		conf    float64
	}{
		{"nearest by coordinates", Request{Postcode: "WC2N 5DU", Lat: ptr(51.5074), Lon: ptr(-0.1278)}, MatchNearest, "N1", 0.5},
		{"same area", Request{Postcode: "SE22 8AA"}, MatchArea, "SE20", 0.4},
		{"national baseline", Request{Postcode: "ZE2 9AA"}, MatchNational, "", 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := s.Estimate(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.match, v.Match)
			assert.Equal(t, tt.outcode, v.Outcode)
			assert.Equal(t, tt.conf, v.Confidence)
			assert.Contains(t, v.Warnings[0], "not")
		})
	}

	v, err := s.Estimate(context.Background(), Request{Postcode: "ZE2 9AA"})
	require.NoError(t, err)
	assert.Equal(t, "345000.00", v.Estimate.String())
}

func TestEstimateValidation(t *testing.T) {
	s := newReady(t)
	for _, req := range []Request{
		{Postcode: ""},
		{Postcode: "nowhere"},
		{Postcode: "SE20", Bedrooms: 40},
		{Postcode: "SE20", YearBuilt: 1200},
		{Postcode: "SE20", FloorAreaSqm: -3},
		{Postcode: "SE20", Lat: ptr(51.4)},
	} {
		_, err := s.Estimate(context.Background(), req)
		assert.ErrorIs(t, err, common.ErrValidation, "%+v", req)
	}
}

func TestEstimateUnknownPropertyType(t *testing.T) {
	s := newReady(t)
	v, err := s.Estimate(context.Background(), Request{Postcode: "SE20", PropertyType: "castle"})
	require.NoError(t, err)
	assert.Equal(t, "362000.00", v.Estimate.String())
	assert.Contains(t, v.Warnings, `unknown property type "castle" ignored`)
}

func TestServiceLifecycle(t *testing.T) {
	s := NewService(Config{}, nil)
	_, err := s.Estimate(context.Background(), Request{Postcode: "SE20"})
	assert.ErrorIs(t, err, common.ErrNotReady)
	assert.False(t, s.Ready())

	require.NoError(t, s.Init(context.Background()))
	first, err := s.Estimate(context.Background(), Request{Postcode: "se20"})
	require.NoError(t, err)
	again, err := s.Estimate(context.Background(), Request{Postcode: "SE20 7QX"})
	require.NoError(t, err)
	assert.Equal(t, first, again, "same district and inputs share a cache entry")

	require.NoError(t, s.Shutdown(context.Background()))
	_, err = s.Estimate(context.Background(), Request{Postcode: "SE20"})
	assert.ErrorIs(t, err, common.ErrNotReady)

	require.NoError(t, s.Init(context.Background()))
	assert.True(t, s.Ready())
}

func TestModelFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"version": "test",
		"intercept": 12,
		"features": [{"name": "bedrooms", "mean": 3, "scale": 1, "coef": 0.1}],
		"outcodes": [{"outcode": "AB1", "lat": 57.1, "lon": -2.1, "adjustment": 0}]
	}`), 0o644))

	s := NewService(Config{ModelFile: good}, nil)
	require.NoError(t, s.Init(context.Background()))
	v, err := s.Estimate(context.Background(), Request{Postcode: "AB1 2CD", Bedrooms: 3})
	require.NoError(t, err)
	assert.Equal(t, "test", v.ModelVersion)
	assert.Equal(t, "163000.00", v.Estimate.String())

	for name, body := range map[string]string{
		"zero scale":  `{"features": [{"name": "bedrooms", "mean": 3, "scale": 0, "coef": 0.1}]}`,
		"duplicate":   `{"features": [{"name": "bedrooms", "scale": 1}], "outcodes": [{"outcode": "AB1"}, {"outcode": "ab1"}]}`,
		"no features": `{"intercept": 12}`,
		"not json":    `intercept=12`,
	} {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		err := NewService(Config{ModelFile: path}, nil).Init(context.Background())
		assert.Error(t, err, name)
	}

	assert.Error(t, NewService(Config{ModelFile: filepath.Join(dir, "missing.json")}, nil).Init(context.Background()))
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, haversineKm(51.5, -0.1, 51.5, -0.1), 1e-9)
	assert.InDelta(t, 343, haversineKm(51.5074, -0.1278, 48.8566, 2.3522), 2)
}
