package invoice

import "time"

// TimestampLayout is the ISO-8601 layout used for payload timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Payload is the JSON body posted to the webhook. Draft fields are flattened
// into the top level.
type Payload struct {
	Draft
	Calculated  Calculated `json:"calculated"`
	Timestamp   string     `json:"timestamp"`
	SubmittedBy string     `json:"submittedBy,omitempty"`
}

// NewPayload snapshots the draft with its totals at the given instant.
func NewPayload(d Draft, at time.Time, submittedBy string) Payload {
	snapshot := d.Clone()
	return Payload{
		Draft:       snapshot,
		Calculated:  Calculate(snapshot),
		Timestamp:   at.UTC().Format(TimestampLayout),
		SubmittedBy: submittedBy,
	}
}
