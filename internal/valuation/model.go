package valuation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

//go:embed model.json
var embeddedModel []byte

// Feature is one standardised input of the log-price regression.
type Feature struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
	Coef  float64 `json:"coef"`
}

// Outcode carries the location effect for a postcode district.
type Outcode struct {
	Outcode    string  `json:"outcode"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Adjustment float64 `json:"adjustment"`
}

// Model is the artifact loaded at Init.
type Model struct {
	Version       string             `json:"version"`
	Intercept     float64            `json:"intercept"`
	Features      []Feature          `json:"features"`
	Outcodes      []Outcode          `json:"outcodes"`
	PropertyTypes map[string]float64 `json:"propertyTypes,omitempty"`

	byOutcode map[string]Outcode
}

// ParseModel decodes and checks an artifact: every scale must be positive and
// outcodes must be unique.
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(m.Features) == 0 {
		return nil, errors.New("model has no features")
	}
	for _, f := range m.Features {
		if f.Scale <= 0 {
			return nil, fmt.Errorf("feature %q: scale must be positive", f.Name)
		}
	}
	m.byOutcode = make(map[string]Outcode, len(m.Outcodes))
	for _, o := range m.Outcodes {
		key := strings.ToUpper(o.Outcode)
		if _, dup := m.byOutcode[key]; dup {
			return nil, fmt.Errorf("duplicate outcode %q", o.Outcode)
		}
		m.byOutcode[key] = o
	}
	return &m, nil
}

var (
	fullPostcodeRe = regexp.MustCompile(`^([A-Z]{1,2}\d[A-Z\d]?)(\d[A-Z]{2})$`)
	outcodeRe      = regexp.MustCompile(`^([A-Z]{1,2})(\d[A-Z\d]?)$`)
)

// ParseOutcode returns the district part of a full postcode or bare outcode.
func ParseOutcode(postcode string) (string, bool) {
	s := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	if m := fullPostcodeRe.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if outcodeRe.MatchString(s) {
		return s, true
	}
	return "", false
}

// splitOutcode splits "SE20" into ("SE", 20).
func splitOutcode(oc string) (string, int) {
	m := outcodeRe.FindStringSubmatch(oc)
	if m == nil {
		return oc, -1
	}
	digits := strings.TrimRightFunc(m[2], func(r rune) bool { return r < '0' || r > '9' })
	n, err := strconv.Atoi(digits)
	if err != nil {
		return m[1], -1
	}
	return m[1], n
}

func (m *Model) lookup(oc string) (Outcode, bool) {
	o, ok := m.byOutcode[oc]
	return o, ok
}

func (m *Model) nearestByDistance(lat, lon float64) (Outcode, float64) {
	best, bestKm := Outcode{}, math.Inf(1)
	for _, o := range m.Outcodes {
		if km := haversineKm(lat, lon, o.Lat, o.Lon); km < bestKm {
			best, bestKm = o, km
		}
	}
	return best, bestKm
}

// nearestInArea picks the district in the same postcode area with the closest
// district number; ties go to the lower number.
func (m *Model) nearestInArea(oc string) (Outcode, bool) {
	area, num := splitOutcode(oc)
	best, bestGap, found := Outcode{}, math.MaxInt, false
	for _, o := range m.Outcodes {
		a, n := splitOutcode(strings.ToUpper(o.Outcode))
		if a != area {
			continue
		}
		gap := n - num
		if gap < 0 {
			gap = -gap
		}
		if gap < bestGap || (gap == bestGap && n < mustNum(best.Outcode)) {
			best, bestGap, found = o, gap, true
		}
	}
	return best, found
}

func mustNum(oc string) int {
	_, n := splitOutcode(strings.ToUpper(oc))
	return n
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
