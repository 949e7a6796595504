package invoice

// ServiceType is a catalog entry that fixes the unit price of a line item.
type ServiceType struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

const (
	// MenuActivityLog switches the form into activity log mode.
	MenuActivityLog = "ACTIVITY LOG"
	// MenuTimeSummary switches the form into time summary mode.
	MenuTimeSummary = "TIME SUMMARY"
)

var serviceTypes = []ServiceType{
	{Label: "Regular Service Fee - covers dispatch and includes 2 man-hours", Value: 295},
	{Label: "Master Elec. Rate - for Master Field Rate, Calculations, Consulting and Compliance", Value: 125},
	{Label: "Skilled Elec. Rate- Service Calls, and where extra time is required beyond scope", Value: 97},
	{Label: "Helper Elec. Rate - Service Calls, and where extra time is required beyond scope", Value: 59},
}

var menuOptions = []string{MenuActivityLog, MenuTimeSummary}

// Catalog returns the service types in display order.
func Catalog() []ServiceType {
	out := make([]ServiceType, len(serviceTypes))
	copy(out, serviceTypes)
	return out
}

// LookupServiceType finds the catalog entry with exactly the given label.
func LookupServiceType(label string) (ServiceType, bool) {
	if label == "" {
		return ServiceType{}, false
	}
	for _, st := range serviceTypes {
		if st.Label == label {
			return st, true
		}
	}
	return ServiceType{}, false
}

// MenuOptions returns the selectable menu modes.
func MenuOptions() []string {
	return append([]string(nil), menuOptions...)
}

// IsLogMode reports whether the menu option enables the activity/time fields.
func IsLogMode(option string) bool {
	return option == MenuActivityLog || option == MenuTimeSummary
}
