package adobjects

import (
	"net/http"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/graph"
)

// ProductSet fields.
const (
	ProductSetFieldAutoCreationURL = "auto_creation_url"
	ProductSetFieldFilter          = "filter"
	ProductSetFieldID              = "id"
	ProductSetFieldName            = "name"
	ProductSetFieldProductCatalog  = "product_catalog"
	ProductSetFieldProductCount    = "product_count"
)

// ProductSetSchema describes a product set, a filtered view of a catalog.
var ProductSetSchema = graph.Register(&graph.Schema{
	Name:     "ProductSet",
	Endpoint: "product_sets",
	FieldTypes: map[string]string{
		ProductSetFieldAutoCreationURL: "string",
		ProductSetFieldFilter:          "string",
		ProductSetFieldID:              "string",
		ProductSetFieldName:            "string",
		ProductSetFieldProductCatalog:  "ProductCatalog",
		ProductSetFieldProductCount:    "unsigned int",
	},
	DefaultReadFields: []string{ProductSetFieldID, ProductSetFieldName, ProductSetFieldFilter},
	Node:              true,
})

// catalogEdge declares a GET edge listing catalog items of one vertical.
func catalogEdge(endpoint string, target *graph.Schema) call {
	return call{
		method:   http.MethodGet,
		endpoint: endpoint,
		target:   target,
		types:    bulkFilter,
		edge:     true,
	}
}

var productSetCalls = struct {
	read, update, delete call
	edges                map[string]call
}{
	read: call{method: http.MethodGet, reuse: true},
	update: call{
		method: http.MethodPost,
		types: map[string]string{
			"filter": "Object",
			"name":   "string",
		},
		reuse: true,
	},
	delete: call{method: http.MethodDelete, reuse: true},
	edges: map[string]call{
		"automotive_models": catalogEdge("automotive_models", AutomotiveModelSchema),
		"da_checks": {
			method:   http.MethodGet,
			endpoint: "da_checks",
			target:   DACheckSchema,
			types:    map[string]string{"checks": "list<string>"},
			edge:     true,
		},
		"destinations":   catalogEdge("destinations", DestinationSchema),
		"flights":        catalogEdge("flights", FlightSchema),
		"home_listings":  catalogEdge("home_listings", HomeListingSchema),
		"hotels":         catalogEdge("hotels", HotelSchema),
		"products":       catalogEdge("products", ProductItemSchema),
		"vehicle_offers": catalogEdge("vehicle_offers", VehicleOfferSchema),
		"vehicles":       catalogEdge("vehicles", VehicleSchema),
	},
}

// ProductSet is a filtered set of items in a product catalog.
type ProductSet struct {
	*graph.Object
}

// NewProductSet creates a product set bound to api. parentID is the owning
// catalog and may be empty.
func NewProductSet(id, parentID string, api graph.API) *ProductSet {
	return &ProductSet{Object: graph.NewObject(ProductSetSchema, id, parentID, api)}
}

func (s *ProductSet) Read(fields []string, params client.Params) *graph.Request {
	return productSetCalls.read.build(s.Object, fields, params)
}

// Update changes the set's name or filter.
func (s *ProductSet) Update(params client.Params) *graph.Request {
	return productSetCalls.update.build(s.Object, nil, params)
}

// Delete removes the set. The response is loaded into s.
func (s *ProductSet) Delete(params client.Params) *graph.Request {
	return productSetCalls.delete.build(s.Object, nil, params)
}

func (s *ProductSet) edge(name string, fields []string, params client.Params) *graph.Request {
	return productSetCalls.edges[name].build(s.Object, fields, params)
}

func (s *ProductSet) AutomotiveModels(fields []string, params client.Params) *graph.Request {
	return s.edge("automotive_models", fields, params)
}

// DAChecks runs dynamic ads checks on the set. The "checks" param limits
// which checks run.
func (s *ProductSet) DAChecks(fields []string, params client.Params) *graph.Request {
	return s.edge("da_checks", fields, params)
}

func (s *ProductSet) Destinations(fields []string, params client.Params) *graph.Request {
	return s.edge("destinations", fields, params)
}

func (s *ProductSet) Flights(fields []string, params client.Params) *graph.Request {
	return s.edge("flights", fields, params)
}

func (s *ProductSet) HomeListings(fields []string, params client.Params) *graph.Request {
	return s.edge("home_listings", fields, params)
}

func (s *ProductSet) Hotels(fields []string, params client.Params) *graph.Request {
	return s.edge("hotels", fields, params)
}

// Products lists the product items matching the set's filter.
func (s *ProductSet) Products(fields []string, params client.Params) *graph.Request {
	return s.edge("products", fields, params)
}

func (s *ProductSet) VehicleOffers(fields []string, params client.Params) *graph.Request {
	return s.edge("vehicle_offers", fields, params)
}

func (s *ProductSet) Vehicles(fields []string, params client.Params) *graph.Request {
	return s.edge("vehicles", fields, params)
}
