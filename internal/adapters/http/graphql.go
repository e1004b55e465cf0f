package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"category":    &graphql.Field{Type: graphql.String},
			"subcategory": &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: graphql.String},
			"source":      &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"distance":    &graphql.Field{Type: graphql.Float},
		},
	})

	visitType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Visit",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"player_id":  &graphql.Field{Type: graphql.String},
			"place_id":   &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"category":   &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"rare":       &graphql.Field{Type: graphql.Boolean},
			"points":     &graphql.Field{Type: graphql.Int},
			"story":      &graphql.Field{Type: graphql.String},
			"visited_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	scoreType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PlayerScore",
		Fields: graphql.Fields{
			"player_id": &graphql.Field{Type: graphql.String},
			"score":     &graphql.Field{Type: graphql.Int},
			"visits":    &graphql.Field{Type: graphql.Int},
			"rare":      &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"placesInBounds": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Places inside a bbox given as minLon,minLat,maxLon,maxLat",
				Args: graphql.FieldConfigArgument{
					"bbox":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					b, err := domain.ParseBounds(p.Args["bbox"].(string))
					if err != nil {
						return nil, err
					}
					category, _ := p.Args["category"].(string)
					return deps.Places.InBounds(p.Context, b, category, p.Args["limit"].(int))
				},
			},
			"placesNearby": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Places near a location, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius":   &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					category, _ := p.Args["category"].(string)
					return deps.Places.Nearby(p.Context,
						p.Args["lat"].(float64), p.Args["lng"].(float64),
						p.Args["radius"].(float64), category, p.Args["limit"].(int))
				},
			},
			"place": &graphql.Field{
				Type:        placeType,
				Description: "Get a place by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Places.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"score": &graphql.Field{
				Type:        scoreType,
				Description: "A player's totals",
				Args: graphql.FieldConfigArgument{
					"player_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Visits.Score(p.Context, p.Args["player_id"].(string))
				},
			},
			"visits": &graphql.Field{
				Type:        graphql.NewList(visitType),
				Description: "A player's visits, newest first",
				Args: graphql.FieldConfigArgument{
					"player_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"offset":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					visits, _, err := deps.Visits.ListByPlayer(p.Context,
						p.Args["player_id"].(string), p.Args["offset"].(int), p.Args["limit"].(int))
					return visits, err
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"recordVisit": &graphql.Field{
				Type:        visitType,
				Description: "Collect a place for a player",
				Args: graphql.FieldConfigArgument{
					"player_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"place_id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"name":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"category":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"lat":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"rare":      &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v, _, err := deps.Visits.Record(p.Context, usecases.VisitRequest{
						PlayerID: p.Args["player_id"].(string),
						PlaceID:  p.Args["place_id"].(string),
						Name:     p.Args["name"].(string),
						Category: p.Args["category"].(string),
						Lat:      p.Args["lat"].(float64),
						Lng:      p.Args["lng"].(float64),
						Rare:     p.Args["rare"].(bool),
					})
					return v, err
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
