// Package invoice models the invoice draft, the service catalog and the totals
// derived from them. Everything here is pure and safe to call from any goroutine
// as long as callers do not share a mutable Draft.
package invoice

import (
	"encoding/json"
	"fmt"
	"time"
)

// InitialLineItems is the number of line items a fresh draft starts with.
const InitialLineItems = 4

// Line item field names accepted by ServiceLineItem.Set.
const (
	LineFieldQty        = "qty"
	LineFieldUnitValue  = "unitValue"
	LineFieldItemBilled = "itemBilled"
)

// FieldKind classifies draft fields for the generic field setter.
type FieldKind int

const (
	// FieldUnknown marks names that are not settable draft fields.
	FieldUnknown FieldKind = iota
	// FieldText holds free text.
	FieldText
	// FieldNumber holds a numeric surcharge input.
	FieldNumber
)

// ServiceLineItem is one billable row. Its amount is always derived.
type ServiceLineItem struct {
	ID         string  `json:"id"`
	Qty        float64 `json:"qty"`
	UnitValue  float64 `json:"unitValue"`
	ItemBilled string  `json:"itemBilled"`
}

// Amount returns qty * unitValue.
func (it ServiceLineItem) Amount() float64 {
	return lineAmount(it).InexactFloat64()
}

// SelectService sets the billed label. A catalog label also forces the unit
// price; empty or unknown labels leave the current price alone.
func (it *ServiceLineItem) SelectService(label string) {
	it.ItemBilled = label
	if st, ok := LookupServiceType(label); ok {
		it.UnitValue = st.Value
	}
}

// Set applies a raw string value to the named field. Numeric fields use
// parse-or-zero coercion.
func (it *ServiceLineItem) Set(field, value string) error {
	switch field {
	case LineFieldQty:
		it.Qty = ParseNumber(value)
	case LineFieldUnitValue:
		it.UnitValue = ParseNumber(value)
	case LineFieldItemBilled:
		it.SelectService(value)
	default:
		return fmt.Errorf("invoice: unknown line item field %q", field)
	}
	return nil
}

// Draft is the single mutable invoice document an operator edits.
type Draft struct {
	CompanyName     string `json:"companyName"`
	FullName        string `json:"fullName"`
	CompanyAddress  string `json:"companyAddress"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Date            string `json:"date"`
	ServiceSite     string `json:"serviceSite"`
	InvoiceTitle    string `json:"invoiceTitle"`
	PertainsTo      string `json:"pertainsTo"`
	MenuOption      string `json:"menuOption"`
	DirectInquiries string `json:"directInquiries"`

	EmployerName     string `json:"employerName"`
	EmployerPosition string `json:"employerPosition"`
	TotalHours       string `json:"totalHours"`
	TimeIn           string `json:"timeIn"`
	TimeOut          string `json:"timeOut"`

	Activity1 string `json:"activity1"`
	Activity2 string `json:"activity2"`
	Activity3 string `json:"activity3"`
	Notes     string `json:"notes"`

	ServiceItems    []ServiceLineItem `json:"serviceItems"`
	GSTInput        float64           `json:"gstInput"`
	EnmaxInput      float64           `json:"enmaxInput"`
	PermitCostInput float64           `json:"permitCostInput"`

	WebhookURL string `json:"webhookUrl"`
}

// DefaultLineItems returns the initial, empty line items.
func DefaultLineItems() []ServiceLineItem {
	items := make([]ServiceLineItem, InitialLineItems)
	for i := range items {
		items[i] = ServiceLineItem{ID: fmt.Sprintf("item-%d", i)}
	}
	return items
}

// DefaultDraft returns an empty draft dated on the UTC day of now.
func DefaultDraft(now time.Time) Draft {
	return Draft{
		Date:         now.UTC().Format(time.DateOnly),
		ServiceItems: DefaultLineItems(),
	}
}

// DecodeDraft decodes stored JSON over base so absent keys keep base values.
// Stored line items replace the base items instead of being decoded into them.
func DecodeDraft(data []byte, base Draft) (Draft, error) {
	d := base.Clone()
	d.ServiceItems = nil
	if err := json.Unmarshal(data, &d); err != nil {
		return base.Clone(), err
	}
	if d.ServiceItems == nil {
		d.ServiceItems = base.Clone().ServiceItems
	}
	return d, nil
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	out := d
	if d.ServiceItems != nil {
		out.ServiceItems = make([]ServiceLineItem, len(d.ServiceItems))
		copy(out.ServiceItems, d.ServiceItems)
	}
	return out
}

// IsLogMode reports whether the conditional activity/time fields apply.
func (d Draft) IsLogMode() bool {
	return IsLogMode(d.MenuOption)
}

// LookupField reports the kind of a settable top-level field.
func LookupField(name string) FieldKind {
	var zero Draft
	if zero.textField(name) != nil {
		return FieldText
	}
	if zero.numberField(name) != nil {
		return FieldNumber
	}
	return FieldUnknown
}

// SetText assigns a text field. It reports false for names that are not text fields.
func (d *Draft) SetText(name, value string) bool {
	p := d.textField(name)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// SetNumber assigns a numeric field. It reports false for names that are not numeric.
func (d *Draft) SetNumber(name string, value float64) bool {
	p := d.numberField(name)
	if p == nil {
		return false
	}
	*p = finite(value)
	return true
}

func (d *Draft) textField(name string) *string {
	switch name {
	case "companyName":
		return &d.CompanyName
	case "fullName":
		return &d.FullName
	case "companyAddress":
		return &d.CompanyAddress
	case "email":
		return &d.Email
	case "phone":
		return &d.Phone
	case "date":
		return &d.Date
	case "serviceSite":
		return &d.ServiceSite
	case "invoiceTitle":
		return &d.InvoiceTitle
	case "pertainsTo":
		return &d.PertainsTo
	case "menuOption":
		return &d.MenuOption
	case "directInquiries":
		return &d.DirectInquiries
	case "employerName":
		return &d.EmployerName
	case "employerPosition":
		return &d.EmployerPosition
	case "totalHours":
		return &d.TotalHours
	case "timeIn":
		return &d.TimeIn
	case "timeOut":
		return &d.TimeOut
	case "activity1":
		return &d.Activity1
	case "activity2":
		return &d.Activity2
	case "activity3":
		return &d.Activity3
	case "notes":
		return &d.Notes
	}
	return nil
}

func (d *Draft) numberField(name string) *float64 {
	switch name {
	case "gstInput":
		return &d.GSTInput
	case "enmaxInput":
		return &d.EnmaxInput
	case "permitCostInput":
		return &d.PermitCostInput
	}
	return nil
}
