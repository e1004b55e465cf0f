package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/placequest/internal/core/domain"
)

const contentTypeGeoJSON = "application/geo+json"

// placeFeature renders a place as a GeoJSON point feature. The id is repeated
// in the properties so clients that drop the top-level id still see it.
func placeFeature(p domain.Place) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{p.Location.Lon, p.Location.Lat})
	f.ID = p.ID
	f.Properties["id"] = p.ID
	f.Properties["name"] = p.Name
	f.Properties["category"] = p.Category
	if p.Subcategory != "" {
		f.Properties["subcategory"] = p.Subcategory
	}
	if p.Address != "" {
		f.Properties["address"] = p.Address
	}
	if p.Source != "" {
		f.Properties["source"] = p.Source
	}
	if p.Distance != nil {
		f.Properties["distance"] = *p.Distance
	}
	return f
}

func placeCollection(places []domain.Place) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range places {
		fc.Append(placeFeature(p))
	}
	return fc
}

func sendCollection(c *fiber.Ctx, places []domain.Place) error {
	data, err := placeCollection(places).MarshalJSON()
	if err != nil {
		return errInternal(c, "encode geojson")
	}
	c.Set(fiber.HeaderContentType, contentTypeGeoJSON)
	return c.Send(data)
}

func sendFeature(c *fiber.Ctx, p domain.Place) error {
	data, err := placeFeature(p).MarshalJSON()
	if err != nil {
		return errInternal(c, "encode geojson")
	}
	c.Set(fiber.HeaderContentType, contentTypeGeoJSON)
	return c.Send(data)
}
