package http

import (
	"crypto/subtle"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// queryFloat parses a required float query parameter.
func queryFloat(c *fiber.Ctx, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PlacesInBoundsHandler returns places inside a bounding box as GeoJSON,
// optionally restricted to one category.
func PlacesInBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("bbox")
		if raw == "" {
			return errBadRequest(c, "bbox query parameter is required (minLon,minLat,maxLon,maxLat)")
		}
		b, err := domain.ParseBounds(raw)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		places, err := deps.Places.InBounds(c.UserContext(), b, c.Query("category"), c.QueryInt("limit", 0))
		if err != nil {
			return fromError(c, err)
		}
		return sendCollection(c, places)
	}
}

// NearbyPlacesHandler returns places within a radius of a point as GeoJSON.
func NearbyPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, okLat := queryFloat(c, "lat")
		lng, okLng := queryFloat(c, "lng")
		if !okLat || !okLng {
			return errBadRequest(c, "lat and lng are required")
		}
		radius := c.QueryFloat("radius", 500)

		places, err := deps.Places.Nearby(c.UserContext(), lat, lng, radius, c.Query("category"), c.QueryInt("limit", 0))
		if err != nil {
			return fromError(c, err)
		}
		return sendCollection(c, places)
	}
}

// GetPlaceHandler returns a single place as a GeoJSON feature.
func GetPlaceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Places.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return fromError(c, err)
		}
		return sendFeature(c, *p)
	}
}

// RecordVisitHandler stores a discovery. A first visit answers 201, a repeat
// of an already collected place answers 200.
func RecordVisitHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, created, err := deps.Visits.RecordJSON(c.UserContext(), c.Body())
		if err != nil {
			return fromError(c, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(v)
	}
}

// PlayerVisitsHandler lists a player's visits, newest first.
func PlayerVisitsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := ParsePage(c, 20, 100)
		visits, total, err := deps.Visits.ListByPlayer(c.UserContext(), c.Params("id"), pg.Offset, pg.Limit)
		if err != nil {
			return fromError(c, err)
		}
		if visits == nil {
			visits = []domain.Visit{}
		}
		pg.Total = total
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: visits, Pagination: pg})
	}
}

// PlayerScoreHandler returns a player's totals.
func PlayerScoreHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		score, err := deps.Visits.Score(c.UserContext(), c.Params("id"))
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(score)
	}
}

// SearchCitiesHandler geocodes a city name.
func SearchCitiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(q) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		cities, err := deps.Cities.Search(c.UserContext(), q, c.QueryInt("limit", 5))
		if err != nil {
			return fromError(c, err)
		}
		if cities == nil {
			cities = []domain.City{}
		}
		return c.JSON(cities)
	}
}

// CountriesHandler lists the countries places can be browsed in.
func CountriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		countries, err := deps.Cities.Countries(c.UserContext())
		if err != nil {
			return fromError(c, err)
		}
		if countries == nil {
			countries = []domain.Country{}
		}
		return c.JSON(countries)
	}
}

// CitiesInCountryHandler lists the cities of ?country=XX.
func CitiesInCountryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		country := c.Query("country")
		if country == "" {
			return errBadRequest(c, "country query parameter is required")
		}
		cities, err := deps.Cities.InCountry(c.UserContext(), country)
		if err != nil {
			return fromError(c, err)
		}
		if cities == nil {
			cities = []domain.City{}
		}
		return c.JSON(cities)
	}
}

// FetchLogsHandler shows the newest upstream fetch log rows to operators.
func FetchLogsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := deps.Audit.Recent(c.UserContext(), c.QueryInt("limit", 0))
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(rows)
	}
}

// AdminMiddleware admits requests carrying the configured X-Admin-Token. With
// no token configured every request is refused.
func AdminMiddleware(token string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup: "header:X-Admin-Token",
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if token == "" || subtle.ConstantTimeCompare([]byte(key), []byte(token)) != 1 {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return newError(c, fiber.StatusForbidden, "forbidden", "admin token required")
		},
	})
}

// StartSessionHandler starts exploring a city.
func StartSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Cities.StartSession(c.UserContext(), c.Body())
		if err != nil {
			return fromError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	}
}
