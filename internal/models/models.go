package models

import "strings"

// ScriptRequest asks for a short video script about Topic in the given Style.
type ScriptRequest struct {
	Topic string `json:"topic"`
	Style string `json:"style"`
}

// ScriptText is the normalized script contract served by /api/scripts.
type ScriptText struct {
	Script string `json:"script"`
}

// GeocodeRequest is a structured postal address. PostalCode is optional.
type GeocodeRequest struct {
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	StateProvince string `json:"stateProvince"`
	PostalCode    string `json:"postalCode,omitempty"`
	Country       string `json:"country"`
}

// MissingFields lists the required address fields that are blank.
func (r GeocodeRequest) MissingFields() []string {
	return missing(
		field{"streetAddress", r.StreetAddress},
		field{"city", r.City},
		field{"stateProvince", r.StateProvince},
		field{"country", r.Country},
	)
}

// Query joins the non-empty address parts into a single search string.
func (r GeocodeRequest) Query() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{r.StreetAddress, r.City, r.StateProvince, r.PostalCode, r.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// GeocodeResponse is the resolved position of an address.
type GeocodeResponse struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DisplayAddress string  `json:"displayAddress"`
}

// AdvertiserApplication is the notice sent when a business applies to advertise.
type AdvertiserApplication struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	BusinessName  string `json:"businessName"`
	Email         string `json:"email"`
	ApplicationID string `json:"applicationId"`
	Timestamp     string `json:"timestamp,omitempty"`
}

func (a AdvertiserApplication) MissingFields() []string {
	return missing(
		field{"firstName", a.FirstName},
		field{"lastName", a.LastName},
		field{"businessName", a.BusinessName},
		field{"email", a.Email},
		field{"applicationId", a.ApplicationID},
	)
}

// BugReport is a user-submitted problem report. Recipient is optional.
type BugReport struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Recipient string `json:"recipient,omitempty"`
}

func (b BugReport) MissingFields() []string {
	return missing(field{"subject", b.Subject}, field{"body", b.Body})
}

// Confirmation acknowledges a sent notification.
type Confirmation struct {
	Message   string `json:"message"`
	Recipient string `json:"recipient,omitempty"`
}

type field struct {
	name  string
	value string
}

func missing(fields ...field) []string {
	var out []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	return out
}
