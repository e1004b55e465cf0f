package explore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/placequest/internal/core/domain"
)

const (
	unnamedPlace    = "Unnamed Place"
	unknownCategory = "Unknown"
)

var errNoFeatures = errors.New("payload is neither a feature array nor an object with features")

// DecodeFeatures extracts features from a backend payload. It accepts a bare
// array or a {"features": [...]} wrapper, and each element either in GeoJSON
// shape ({geometry:{coordinates:[lng,lat]}, properties:{...}}) or as a flat
// {id, lat, lng|lon, name, category} record. Elements without coordinates or
// a stable id are skipped. Only an undecodable body is an error.
func DecodeFeatures(body []byte) ([]domain.Feature, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}

	var items []any
	switch v := payload.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v["features"].([]any)
		if !ok {
			return nil, errNoFeatures
		}
		items = list
	default:
		return nil, errNoFeatures
	}

	features := make([]domain.Feature, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if f, ok := featureFrom(obj); ok {
			features = append(features, f)
		}
	}
	return features, nil
}

func featureFrom(obj map[string]any) (domain.Feature, bool) {
	var (
		lat, lng float64
		props    map[string]any
	)

	if geom, isGeo := obj["geometry"]; isGeo {
		g, _ := geom.(map[string]any)
		coords, _ := g["coordinates"].([]any)
		if len(coords) < 2 {
			return domain.Feature{}, false
		}
		var okLng, okLat bool
		lng, okLng = number(coords[0])
		lat, okLat = number(coords[1])
		if !okLng || !okLat {
			return domain.Feature{}, false
		}
		props, _ = obj["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
		}
	} else {
		var okLat, okLng bool
		lat, okLat = number(obj["lat"])
		lng, okLng = number(obj["lng"])
		if !okLng {
			lng, okLng = number(obj["lon"])
		}
		if !okLat || !okLng {
			return domain.Feature{}, false
		}
		props = obj
	}

	id := identity(obj["id"])
	if id == "" {
		id = identity(props["id"])
	}
	if id == "" {
		return domain.Feature{}, false
	}

	category := firstString(props["category"], nested(props, "categories", "primary"))
	subcategory := firstString(props["subcategory"])
	name := firstString(props["name"], nested(props, "names", "primary"), props["ext_name"], subcategory, category)
	if name == "" {
		name = unnamedPlace
	}
	if category == "" {
		category = unknownCategory
	}

	return domain.Feature{
		ID:         id,
		Name:       name,
		Category:   category,
		Lat:        lat,
		Lng:        lng,
		Properties: props,
	}, true
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func identity(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func nested(m map[string]any, key, field string) any {
	inner, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	return inner[field]
}

func firstString(values ...any) string {
	for _, v := range values {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
