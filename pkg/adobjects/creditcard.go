package adobjects

import (
	"net/http"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/graph"
)

// CreditCard fields.
const (
	CreditCardFieldBillingAddress                 = "billing_address"
	CreditCardFieldCardCobadging                  = "card_cobadging"
	CreditCardFieldCardHolderName                 = "card_holder_name"
	CreditCardFieldCardType                       = "card_type"
	CreditCardFieldDefaultReceivingMethodProducts = "default_receiving_method_products"
	CreditCardFieldExpiryMonth                    = "expiry_month"
	CreditCardFieldExpiryYear                     = "expiry_year"
	CreditCardFieldID                             = "id"
	CreditCardFieldIsCVVTrickyBin                 = "is_cvv_tricky_bin"
	CreditCardFieldIsEnabled                      = "is_enabled"
	CreditCardFieldIsLastUsed                     = "is_last_used"
	CreditCardFieldIsZipVerified                  = "is_zip_verified"
	CreditCardFieldLast4                          = "last4"
	CreditCardFieldReadableCardType               = "readable_card_type"
	CreditCardFieldTimeCreated                    = "time_created"
	CreditCardFieldType                           = "type"
)

var CreditCardSchema = graph.Register(&graph.Schema{
	Name: "CreditCard",
	FieldTypes: map[string]string{
		CreditCardFieldBillingAddress:                 "Object",
		CreditCardFieldCardCobadging:                  "string",
		CreditCardFieldCardHolderName:                 "string",
		CreditCardFieldCardType:                       "string",
		CreditCardFieldDefaultReceivingMethodProducts: "list<string>",
		CreditCardFieldExpiryMonth:                    "string",
		CreditCardFieldExpiryYear:                     "string",
		CreditCardFieldID:                             "string",
		CreditCardFieldIsCVVTrickyBin:                 "bool",
		CreditCardFieldIsEnabled:                      "bool",
		CreditCardFieldIsLastUsed:                     "bool",
		CreditCardFieldIsZipVerified:                  "bool",
		CreditCardFieldLast4:                          "string",
		CreditCardFieldReadableCardType:               "string",
		CreditCardFieldTimeCreated:                    "datetime",
		CreditCardFieldType:                           "string",
	},
	Node: true,
})

var (
	creditCardRead   = call{method: http.MethodGet, reuse: true}
	creditCardDelete = call{method: http.MethodDelete, reuse: true}
)

// CreditCard is a payment method stored for a business.
type CreditCard struct {
	*graph.Object
}

func NewCreditCard(id string, api graph.API) *CreditCard {
	return &CreditCard{Object: graph.NewObject(CreditCardSchema, id, "", api)}
}

func (c *CreditCard) Read(fields []string, params client.Params) *graph.Request {
	return creditCardRead.build(c.Object, fields, params)
}

func (c *CreditCard) Delete(params client.Params) *graph.Request {
	return creditCardDelete.build(c.Object, nil, params)
}
