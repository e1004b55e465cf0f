package schema_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/samirrijal/placequest/internal/pkg/schema"
)

func TestVisitSchema(t *testing.T) {
	v := schema.MustLoad("visit")

	valid := `{"player_id":"p1","place_id":"cafe","name":"Café","lat":25.2,"lng":55.27,"rare":true}`
	if err := v.ValidateBytes([]byte(valid)); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing place", `{"player_id":"p1","lat":1,"lng":1}`, "place_id"},
		{"lat out of range", `{"player_id":"p1","place_id":"x","lat":91,"lng":1}`, "lat"},
		{"unknown field", `{"player_id":"p1","place_id":"x","lat":1,"lng":1,"points":1000}`, "points"},
		{"not json", `{`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBytes([]byte(tt.body))
			if !errors.Is(err, schema.ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_Unknown(t *testing.T) {
	if _, err := schema.Load("nope"); err == nil {
		t.Error("expected error for unknown schema")
	}
}
