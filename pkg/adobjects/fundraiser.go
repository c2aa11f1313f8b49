package adobjects

import (
	"net/http"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/graph"
)

// FundraiserPersonToCharity fields.
const (
	FundraiserFieldAmountRaised           = "amount_raised"
	FundraiserFieldCharityID              = "charity_id"
	FundraiserFieldCurrency               = "currency"
	FundraiserFieldDescription            = "description"
	FundraiserFieldDonationsCount         = "donations_count"
	FundraiserFieldDonorsCount            = "donors_count"
	FundraiserFieldEndTime                = "end_time"
	FundraiserFieldExternalAmountRaised   = "external_amount_raised"
	FundraiserFieldExternalDonationsCount = "external_donations_count"
	FundraiserFieldExternalDonorsCount    = "external_donors_count"
	FundraiserFieldExternalEventName      = "external_event_name"
	FundraiserFieldExternalEventStartTime = "external_event_start_time"
	FundraiserFieldExternalEventURI       = "external_event_uri"
	FundraiserFieldExternalFundraiserURI  = "external_fundraiser_uri"
	FundraiserFieldExternalID             = "external_id"
	FundraiserFieldGoalAmount             = "goal_amount"
	FundraiserFieldID                     = "id"
	FundraiserFieldInternalAmountRaised   = "internal_amount_raised"
	FundraiserFieldInternalDonationsCount = "internal_donations_count"
	FundraiserFieldInternalDonorsCount    = "internal_donors_count"
	FundraiserFieldName                   = "name"
	FundraiserFieldURI                    = "uri"
)

// FundraiserPersonToCharitySchema describes a personal fundraiser for a
// charity. Amounts are in the currency's smallest unit.
var FundraiserPersonToCharitySchema = graph.Register(&graph.Schema{
	Name: "FundraiserPersonToCharity",
	FieldTypes: map[string]string{
		FundraiserFieldAmountRaised:           "int",
		FundraiserFieldCharityID:              "string",
		FundraiserFieldCurrency:               "string",
		FundraiserFieldDescription:            "string",
		FundraiserFieldDonationsCount:         "int",
		FundraiserFieldDonorsCount:            "int",
		FundraiserFieldEndTime:                "datetime",
		FundraiserFieldExternalAmountRaised:   "int",
		FundraiserFieldExternalDonationsCount: "int",
		FundraiserFieldExternalDonorsCount:    "int",
		FundraiserFieldExternalEventName:      "string",
		FundraiserFieldExternalEventStartTime: "datetime",
		FundraiserFieldExternalEventURI:       "string",
		FundraiserFieldExternalFundraiserURI:  "string",
		FundraiserFieldExternalID:             "string",
		FundraiserFieldGoalAmount:             "int",
		FundraiserFieldID:                     "string",
		FundraiserFieldInternalAmountRaised:   "int",
		FundraiserFieldInternalDonationsCount: "int",
		FundraiserFieldInternalDonorsCount:    "int",
		FundraiserFieldName:                   "string",
		FundraiserFieldURI:                    "string",
	},
	Node: true,
})

var fundraiserRead = call{method: http.MethodGet, reuse: true}

type FundraiserPersonToCharity struct {
	*graph.Object
}

func NewFundraiserPersonToCharity(id string, api graph.API) *FundraiserPersonToCharity {
	return &FundraiserPersonToCharity{Object: graph.NewObject(FundraiserPersonToCharitySchema, id, "", api)}
}

func (f *FundraiserPersonToCharity) Read(fields []string, params client.Params) *graph.Request {
	return fundraiserRead.build(f.Object, fields, params)
}
