package adobjects

import (
	"net/http"

	"github.com/Sternrassler/graph-business-client/pkg/audience"
	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/graph"
)

// CustomAudience fields.
const (
	CustomAudienceFieldAccountID          = "account_id"
	CustomAudienceFieldApproximateCount   = "approximate_count_lower_bound"
	CustomAudienceFieldCustomerFileSource = "customer_file_source"
	CustomAudienceFieldDescription        = "description"
	CustomAudienceFieldID                 = "id"
	CustomAudienceFieldName               = "name"
	CustomAudienceFieldRetentionDays      = "retention_days"
	CustomAudienceFieldRule               = "rule"
	CustomAudienceFieldSubtype            = "subtype"
)

// CustomAudienceSubtype lists audience subtypes.
var CustomAudienceSubtype = []string{
	"APP", "CLAIM", "CUSTOM", "ENGAGEMENT", "LOOKALIKE", "OFFLINE_CONVERSION",
	"PARTNER", "VIDEO", "WEBSITE",
}

var CustomAudienceSchema = graph.Register(&graph.Schema{
	Name:     "CustomAudience",
	Endpoint: "customaudiences",
	FieldTypes: map[string]string{
		CustomAudienceFieldAccountID:          "string",
		CustomAudienceFieldApproximateCount:   "int",
		CustomAudienceFieldCustomerFileSource: "string",
		CustomAudienceFieldDescription:        "string",
		CustomAudienceFieldID:                 "string",
		CustomAudienceFieldName:               "string",
		CustomAudienceFieldRetentionDays:      "unsigned int",
		CustomAudienceFieldRule:               "string",
		CustomAudienceFieldSubtype:            "subtype_enum",
	},
	Enums:             map[string][]string{"subtype_enum": CustomAudienceSubtype},
	DefaultReadFields: []string{CustomAudienceFieldID, CustomAudienceFieldName},
	Node:              true,
})

var usersParams = map[string]string{
	"payload": "Object",
	"session": "Object",
}

var customAudienceCalls = struct {
	read, update, delete, addUsers, removeUsers call
}{
	read: call{method: http.MethodGet, reuse: true},
	update: call{
		method: http.MethodPost,
		types: map[string]string{
			"customer_file_source": "string",
			"description":          "string",
			"name":                 "string",
			"retention_days":       "unsigned int",
			"rule":                 "string",
		},
		reuse: true,
	},
	delete:      call{method: http.MethodDelete, reuse: true},
	addUsers:    call{method: http.MethodPost, endpoint: "users", types: usersParams, edge: true},
	removeUsers: call{method: http.MethodDelete, endpoint: "users", types: usersParams, edge: true},
}

// CustomAudience is a list of users targeted by ads.
type CustomAudience struct {
	*graph.Object
}

func NewCustomAudience(id string, api graph.API) *CustomAudience {
	return &CustomAudience{Object: graph.NewObject(CustomAudienceSchema, id, "", api)}
}

func (a *CustomAudience) Read(fields []string, params client.Params) *graph.Request {
	return customAudienceCalls.read.build(a.Object, fields, params)
}

func (a *CustomAudience) Update(params client.Params) *graph.Request {
	return customAudienceCalls.update.build(a.Object, nil, params)
}

func (a *CustomAudience) Delete(params client.Params) *graph.Request {
	return customAudienceCalls.delete.build(a.Object, nil, params)
}

// AddUsers uploads a single-key user list. Values are hashed as the schema
// requires unless opts marks them pre-hashed.
func (a *CustomAudience) AddUsers(schema audience.Schema, users []string, opts audience.Options) (*graph.Request, error) {
	params, err := audience.FormatParams(schema, users, opts)
	if err != nil {
		return nil, err
	}
	return customAudienceCalls.addUsers.build(a.Object, nil, params), nil
}

// AddMultiKeyUsers uploads rows of several keys per user.
func (a *CustomAudience) AddMultiKeyUsers(keys []audience.Key, rows [][]string, opts audience.Options) (*graph.Request, error) {
	params, err := audience.FormatMultiKeyParams(keys, rows, opts)
	if err != nil {
		return nil, err
	}
	return customAudienceCalls.addUsers.build(a.Object, nil, params), nil
}

// RemoveUsers removes a single-key user list from the audience.
func (a *CustomAudience) RemoveUsers(schema audience.Schema, users []string, opts audience.Options) (*graph.Request, error) {
	params, err := audience.FormatParams(schema, users, opts)
	if err != nil {
		return nil, err
	}
	return customAudienceCalls.removeUsers.build(a.Object, nil, params), nil
}
