package adobjects

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/graph"
)

// ProductCatalog fields.
const (
	ProductCatalogFieldBusiness     = "business"
	ProductCatalogFieldFeedCount    = "feed_count"
	ProductCatalogFieldID           = "id"
	ProductCatalogFieldName         = "name"
	ProductCatalogFieldProductCount = "product_count"
	ProductCatalogFieldVertical     = "vertical"
)

// ProductCatalogVertical lists the catalog verticals.
var ProductCatalogVertical = []string{
	"adoptable_pets", "commerce", "destinations", "flights", "home_listings",
	"hotels", "jobs", "local_service_businesses", "offline_commerce",
	"transactable_items", "vehicles",
}

// ProductCatalogSchema describes a product catalog.
var ProductCatalogSchema = graph.Register(&graph.Schema{
	Name:     "ProductCatalog",
	Endpoint: "owned_product_catalogs",
	FieldTypes: map[string]string{
		ProductCatalogFieldBusiness:     "Object",
		ProductCatalogFieldFeedCount:    "int",
		ProductCatalogFieldID:           "string",
		ProductCatalogFieldName:         "string",
		ProductCatalogFieldProductCount: "int",
		ProductCatalogFieldVertical:     "vertical_enum",
	},
	Enums:             map[string][]string{"vertical_enum": ProductCatalogVertical},
	DefaultReadFields: []string{ProductCatalogFieldID, ProductCatalogFieldName},
	Node:              true,
})

var productCatalogCalls = struct {
	read, productSets, createProductSet, products call
}{
	read: call{method: http.MethodGet, reuse: true},
	productSets: call{
		method:   http.MethodGet,
		endpoint: "product_sets",
		target:   ProductSetSchema,
		types:    map[string]string{"ancestor_id": "string", "has_children": "bool", "parent_id": "string", "retailer_id": "string"},
		edge:     true,
	},
	createProductSet: call{
		method:   http.MethodPost,
		endpoint: "product_sets",
		target:   ProductSetSchema,
		types: map[string]string{
			"filter":        "Object",
			"metadata":      "map",
			"name":          "string",
			"ordering_info": "list<unsigned int>",
			"retailer_id":   "string",
		},
		edge: true,
	},
	products: catalogEdge("products", ProductItemSchema),
}

// ProductCatalog is a catalog of items for dynamic ads.
type ProductCatalog struct {
	*graph.Object
}

// NewProductCatalog creates a catalog bound to api.
func NewProductCatalog(id string, api graph.API) *ProductCatalog {
	return &ProductCatalog{Object: graph.NewObject(ProductCatalogSchema, id, "", api)}
}

func (c *ProductCatalog) Read(fields []string, params client.Params) *graph.Request {
	return productCatalogCalls.read.build(c.Object, fields, params)
}

// ProductSets lists the catalog's product sets.
func (c *ProductCatalog) ProductSets(fields []string, params client.Params) *graph.Request {
	return productCatalogCalls.productSets.build(c.Object, fields, params)
}

// CreateProductSet creates a product set. The returned object carries the
// new set's ID.
func (c *ProductCatalog) CreateProductSet(params client.Params) *graph.Request {
	return productCatalogCalls.createProductSet.build(c.Object, nil, params)
}

func (c *ProductCatalog) Products(fields []string, params client.Params) *graph.Request {
	return productCatalogCalls.products.build(c.Object, fields, params)
}

// B64EncodedID encodes a retailer ID for use in catalog item paths.
func (c *ProductCatalog) B64EncodedID(retailerID string) string {
	return base64.URLEncoding.EncodeToString([]byte(retailerID))
}

// RetailerProductID returns the node ID addressing an item of this catalog
// by its retailer ID.
func (c *ProductCatalog) RetailerProductID(retailerID string) (string, error) {
	if err := c.AssureID(); err != nil {
		return "", err
	}
	return fmt.Sprintf("catalog:%s:%s", c.ID(), c.B64EncodedID(retailerID)), nil
}
