package adobjects

import "github.com/Sternrassler/graph-business-client/pkg/graph"

// DeliveryCheck fields.
const (
	DeliveryCheckFieldCheckName   = "check_name"
	DeliveryCheckFieldDescription = "description"
	DeliveryCheckFieldExtraInfo   = "extra_info"
	DeliveryCheckFieldSummary     = "summary"
)

// DeliveryCheckSchema describes the result of one delivery check. Delivery
// checks are returned inside other objects and have no node of their own.
var DeliveryCheckSchema = graph.Register(&graph.Schema{
	Name: "DeliveryCheck",
	FieldTypes: map[string]string{
		DeliveryCheckFieldCheckName:   "string",
		DeliveryCheckFieldDescription: "string",
		DeliveryCheckFieldExtraInfo:   "DeliveryCheckExtraInfo",
		DeliveryCheckFieldSummary:     "string",
	},
})

type DeliveryCheck struct {
	*graph.Object
}

// NewDeliveryCheck wraps data received from the API.
func NewDeliveryCheck(data map[string]any) *DeliveryCheck {
	return &DeliveryCheck{Object: graph.NewObject(DeliveryCheckSchema, "", "", nil).SetData(data)}
}

func (d *DeliveryCheck) CheckName() string { return d.GetString(DeliveryCheckFieldCheckName) }

func (d *DeliveryCheck) Summary() string { return d.GetString(DeliveryCheckFieldSummary) }

// ExtraInfo returns the IDs and countries the check applies to, if any.
func (d *DeliveryCheck) ExtraInfo() (*graph.Object, bool) {
	return d.GetObject(DeliveryCheckFieldExtraInfo)
}
