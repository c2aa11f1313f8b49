// Package adobjects declares a representative set of graph resources on top
// of the generic graph harness.
//
// Each resource is data (field names, field types, enum tables) plus thin
// methods that return a *graph.Request. Requests are executed by the caller:
//
//	page := adobjects.NewPage("123", c)
//	if _, err := page.Read([]string{adobjects.PageFieldName}, nil).Execute(ctx); err != nil {
//		return err
//	}
//	feed, err := page.Feed(nil, client.Params{"limit": 25}).Cursor(ctx)
//
// Node reads and updates load the response into the receiving object. Edge
// reads are iterated with a graph.Cursor.
package adobjects

import (
	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/graph"
)

// call declares one endpoint of a resource.
type call struct {
	method   string
	endpoint string
	target   *graph.Schema
	types    map[string]string
	enums    map[string][]string
	edge     bool
	upload   bool
	reuse    bool
}

// build turns the declaration into a request on obj's node.
func (c call) build(obj *graph.Object, fields []string, params client.Params) *graph.Request {
	opts := []graph.Option{
		graph.WithParamTypes(c.types, c.enums),
		graph.WithParams(params),
		graph.WithFields(fields),
	}
	if c.target != nil {
		opts = append(opts, graph.WithTarget(c.target))
	}
	if c.edge {
		opts = append(opts, graph.AsEdge())
	}
	if c.upload {
		opts = append(opts, graph.WithFileUpload())
	}
	if c.reuse {
		opts = append(opts, graph.WithParser(graph.ReuseParser(obj)))
	}
	return obj.Request(c.method, c.endpoint, opts...)
}

// edgeTarget registers a schema for objects only reached through edges.
// Their fields are not declared, so any field may be requested.
func edgeTarget(name, endpoint string) *graph.Schema {
	return graph.Register(&graph.Schema{Name: name, Endpoint: endpoint, Node: true})
}

// valueType registers a schema for nested values without an ID.
func valueType(name string, fields map[string]string) *graph.Schema {
	return graph.Register(&graph.Schema{Name: name, FieldTypes: fields})
}

// Edge targets.
var (
	PagePostSchema        = edgeTarget("PagePost", "posts")
	PhotoSchema           = edgeTarget("Photo", "photos")
	InsightsResultSchema  = edgeTarget("InsightsResult", "insights")
	UserSchema            = edgeTarget("User", "users")
	ProfileSchema         = edgeTarget("Profile", "")
	RecommendationSchema  = edgeTarget("Recommendation", "ratings")
	ApplicationSchema     = edgeTarget("Application", "applications")
	ProductItemSchema     = edgeTarget("ProductItem", "products")
	AutomotiveModelSchema = edgeTarget("AutomotiveModel", "automotive_models")
	DACheckSchema         = edgeTarget("DACheck", "da_checks")
	DestinationSchema     = edgeTarget("Destination", "destinations")
	FlightSchema          = edgeTarget("Flight", "flights")
	HomeListingSchema     = edgeTarget("HomeListing", "home_listings")
	HotelSchema           = edgeTarget("Hotel", "hotels")
	VehicleSchema         = edgeTarget("Vehicle", "vehicles")
	VehicleOfferSchema    = edgeTarget("VehicleOffer", "vehicle_offers")
	IGUserSchema          = edgeTarget("IGUser", "")
)

// Nested value types.
var (
	PageCategorySchema = valueType("PageCategory", map[string]string{
		"api_enum":           "string",
		"fb_page_categories": "list<PageCategory>",
		"id":                 "string",
		"name":               "string",
	})
	CoverPhotoSchema = valueType("CoverPhoto", map[string]string{
		"cover_id": "string",
		"id":       "string",
		"offset_x": "float",
		"offset_y": "float",
		"source":   "string",
	})
	EngagementSchema = valueType("Engagement", map[string]string{
		"count":                        "int",
		"count_string":                 "string",
		"count_string_with_like":       "string",
		"count_string_without_like":    "string",
		"social_sentence":              "string",
		"social_sentence_with_like":    "string",
		"social_sentence_without_like": "string",
	})
	LocationSchema = valueType("Location", map[string]string{
		"city":         "string",
		"city_id":      "unsigned int",
		"country":      "string",
		"country_code": "string",
		"latitude":     "float",
		"longitude":    "float",
		"located_in":   "string",
		"name":         "string",
		"region":       "string",
		"region_id":    "unsigned int",
		"state":        "string",
		"street":       "string",
		"zip":          "string",
	})
	PageParkingSchema = valueType("PageParking", map[string]string{
		"lot":    "unsigned int",
		"street": "unsigned int",
		"valet":  "unsigned int",
	})
	DeliveryCheckExtraInfoSchema = valueType("DeliveryCheckExtraInfo", map[string]string{
		"adgroup_ids":  "list<string>",
		"campaign_ids": "list<string>",
		"countries":    "list<string>",
	})
)

// bulkFilter are the params shared by the catalog item edges.
var bulkFilter = map[string]string{
	"bulk_pagination": "bool",
	"filter":          "Object",
}
