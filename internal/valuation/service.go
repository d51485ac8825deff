// Package valuation estimates a UK property price from a small log-linear model
// keyed by postcode district.
package valuation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/household-extractor/internal/common"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

const (
	bandFraction    = 0.08
	roundTo         = 1000.0
	nearbyKm        = 5.0
	defaultCacheTTL = time.Hour
)

// Match says how the outcode adjustment was chosen.
type Match string

const (
	MatchExact    Match = "exact"
	MatchNearest  Match = "nearest"
	MatchArea     Match = "area"
	MatchNational Match = "national"
)

type Config struct {
	ModelFile string // "" uses the embedded artifact
	CacheTTL  time.Duration
}

// Request describes the property. Zero numeric fields are treated as unknown and
// take the model's typical value.
type Request struct {
	Postcode     string   `json:"postcode"`
	PropertyType string   `json:"propertyType,omitempty"`
	Bedrooms     int      `json:"bedrooms,omitempty"`
	Bathrooms    int      `json:"bathrooms,omitempty"`
	FloorAreaSqm float64  `json:"floorAreaSqm,omitempty"`
	YearBuilt    int      `json:"yearBuilt,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
}

type Valuation struct {
	Estimate     utils.Money `json:"estimate"`
	Low          utils.Money `json:"low"`
	High         utils.Money `json:"high"`
	Outcode      string      `json:"outcode,omitempty"`
	Requested    string      `json:"requestedOutcode"`
	Match        Match       `json:"match"`
	Confidence   float64     `json:"confidence"`
	ModelVersion string      `json:"modelVersion,omitempty"`
	Warnings     []string    `json:"warnings"`
}

// Service owns the loaded model between Init and Shutdown.
type Service struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.RWMutex
	model *Model
	memo  *cache.Cache
}

func NewService(cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return &Service{cfg: cfg, logger: logger}
}

// Init loads the model from ModelFile, or the embedded artifact when unset.
func (s *Service) Init(ctx context.Context) error {
	data := embeddedModel
	if s.cfg.ModelFile != "" {
		b, err := os.ReadFile(s.cfg.ModelFile)
		if err != nil {
			return common.WrapError(err, "read valuation model")
		}
		data = b
	}
	m, err := ParseModel(data)
	if err != nil {
		return common.NewAppError("MODEL_INVALID", "valuation model rejected", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
	s.memo = cache.New(s.cfg.CacheTTL, 2*s.cfg.CacheTTL)
	s.logger.Info("valuation.init.ok", "version", m.Version, "outcodes", len(m.Outcodes), "file", s.cfg.ModelFile)
	return nil
}

// Shutdown drops the model; Estimate fails with ErrNotReady until the next Init.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memo != nil {
		s.memo.Flush()
	}
	s.model, s.memo = nil, nil
	s.logger.Info("valuation.shutdown")
	return nil
}

func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Validate checks a request before estimating.
func Validate(req Request) error {
	v := common.NewValidator().
		Field("postcode", req.Postcode, common.Required, common.Postcode).
		Field("bedrooms", req.Bedrooms, common.IntRange(0, 20)).
		Field("bathrooms", req.Bathrooms, common.IntRange(0, 15)).
		Field("yearBuilt", req.YearBuilt, yearBuilt).
		Field("floorAreaSqm", req.FloorAreaSqm, floorArea)
	if (req.Lat == nil) != (req.Lon == nil) {
		v.Field("lat", nil, common.Required)
	}
	return v.Err()
}

func floorArea(field string, value interface{}) *common.ValidationError {
	if a, ok := value.(float64); ok && (a < 0 || a > 5000) {
		return &common.ValidationError{Field: field, Value: value, Message: "must be between 0 and 5000"}
	}
	return nil
}

func yearBuilt(field string, value interface{}) *common.ValidationError {
	if n, ok := value.(int); ok && n == 0 {
		return nil
	}
	return common.IntRange(1500, 2100)(field, value)
}

// Estimate prices the property. Unknown districts fall back to the nearest known
// one by coordinates, then to the closest district in the same postcode area,
// then to the national baseline; each fallback lowers the confidence.
func (s *Service) Estimate(ctx context.Context, req Request) (Valuation, error) {
	s.mu.RLock()
	m, memo := s.model, s.memo
	s.mu.RUnlock()
	if m == nil {
		return Valuation{}, common.NewAppError("NOT_READY", "valuation model not loaded", common.ErrNotReady)
	}
	if err := Validate(req); err != nil {
		return Valuation{}, err
	}

	key := cacheKey(req)
	if v, ok := memo.Get(key); ok {
		s.logger.Debug("valuation.cache.hit", "key", key)
		return v.(Valuation), nil
	}

	val := m.estimate(req)
	memo.SetDefault(key, val)
	s.logger.Info("valuation.estimate", "outcode", val.Outcode, "match", val.Match,
		"estimate", val.Estimate.String(), "confidence", val.Confidence)
	return val, nil
}

func (m *Model) estimate(req Request) Valuation {
	requested, _ := ParseOutcode(req.Postcode)
	out := Valuation{Requested: requested, ModelVersion: m.Version, Warnings: []string{}}
	conf := 0.85

	oc, ok := m.lookup(requested)
	switch {
	case ok:
		out.Match = MatchExact
	case req.Lat != nil && req.Lon != nil:
		var km float64
		oc, km = m.nearestByDistance(*req.Lat, *req.Lon)
		out.Match = MatchNearest
		conf = 0.7
		if km > nearbyKm {
			conf = 0.55
		}
		out.Warnings = append(out.Warnings, fmt.Sprintf("district %s not in model; used %s (%.1f km away)", requested, oc.Outcode, km))
	default:
		if oc, ok = m.nearestInArea(requested); ok {
			out.Match = MatchArea
			conf = 0.6
			out.Warnings = append(out.Warnings, fmt.Sprintf("district %s not in model; used %s in the same area", requested, oc.Outcode))
		} else {
			out.Match = MatchNational
			conf = 0.4
			out.Warnings = append(out.Warnings, fmt.Sprintf("postcode area of %s not covered; using national baseline", requested))
		}
	}
	out.Outcode = oc.Outcode

	logPrice := m.Intercept + oc.Adjustment
	inputs := map[string]float64{
		"floor_area_sqm": req.FloorAreaSqm,
		"bedrooms":       float64(req.Bedrooms),
		"bathrooms":      float64(req.Bathrooms),
		"year_built":     float64(req.YearBuilt),
	}
	for _, f := range m.Features {
		x, known := inputs[f.Name]
		if !known || x == 0 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s not given; assumed typical", strings.ReplaceAll(f.Name, "_", " ")))
			conf -= 0.05
			continue
		}
		logPrice += f.Coef * (x - f.Mean) / f.Scale
	}

	if t := strings.ToLower(strings.TrimSpace(req.PropertyType)); t != "" {
		if adj, ok := m.PropertyTypes[t]; ok {
			logPrice += adj
		} else {
			out.Warnings = append(out.Warnings, fmt.Sprintf("unknown property type %q ignored", req.PropertyType))
		}
	}

	price := math.Exp(logPrice)
	out.Estimate = utils.MoneyFromFloat(roundPounds(price))
	out.Low = utils.MoneyFromFloat(roundPounds(price * (1 - bandFraction)))
	out.High = utils.MoneyFromFloat(roundPounds(price * (1 + bandFraction)))
	out.Confidence = math.Round(math.Max(conf, 0.1)*100) / 100
	return out
}

func roundPounds(v float64) float64 {
	return math.Round(v/roundTo) * roundTo
}

func cacheKey(r Request) string {
	oc, _ := ParseOutcode(r.Postcode)
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%d|%.1f|%d", oc, strings.ToLower(strings.TrimSpace(r.PropertyType)),
		r.Bedrooms, r.Bathrooms, r.FloorAreaSqm, r.YearBuilt)
	if r.Lat != nil && r.Lon != nil {
		fmt.Fprintf(&b, "|%.4f,%.4f", *r.Lat, *r.Lon)
	}
	return b.String()
}
