package http

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cacheRule maps a path prefix to a Cache-Control value. The first match wins.
type cacheRule struct {
	prefix string
	exact  bool
	value  string
}

var cacheRules = []cacheRule{
	{prefix: "/v1/health", exact: true, value: "no-store"},
	{prefix: "/v1/ready", exact: true, value: "no-store"},
	{prefix: "/metrics", exact: true, value: "no-cache"},
	{prefix: "/graphql", exact: true, value: "private, max-age=0"},
	// Visits and scores change with every discovery.
	{prefix: "/v1/players/", value: "private, no-cache"},
	{prefix: "/v1/places/nearby", exact: true, value: "public, max-age=60"},
	{prefix: "/v1/places/", value: "public, max-age=600"},
	{prefix: "/v1/places", exact: true, value: "public, max-age=300"},
	{prefix: "/v1/cities/search", exact: true, value: "public, max-age=3600"},
	{prefix: "/v1/cities", exact: true, value: "public, max-age=86400"},
	{prefix: "/v1/countries", exact: true, value: "public, max-age=86400"},
	{prefix: "/v1/admin/", value: "private, no-store"},
	{prefix: "/v1/", value: "public, max-age=60"},
}

func cacheControlFor(path string) string {
	for _, r := range cacheRules {
		if r.exact && path == r.prefix || !r.exact && strings.HasPrefix(path, r.prefix) {
			return r.value
		}
	}
	return ""
}

// CachingMiddleware sets Cache-Control on GET responses unless the handler
// already did.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet || c.Get(fiber.HeaderCacheControl) != "" {
			return err
		}
		if v := cacheControlFor(c.Path()); v != "" {
			c.Set(fiber.HeaderCacheControl, v)
		}
		return err
	}
}

// ETagMiddleware tags successful GET bodies with a weak ETag and answers 304
// when the client already holds it.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		h := sha256.Sum256(body)
		etag := `W/"` + hex.EncodeToString(h[:8]) + `"`
		c.Set(fiber.HeaderETag, etag)

		if etagMatches(c.Get(fiber.HeaderIfNoneMatch), etag) {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}

// etagMatches reports whether an If-None-Match header names etag. Weak
// comparison is used, so W/"x" and "x" match.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(tag), "W/") == want {
			return true
		}
	}
	return false
}
