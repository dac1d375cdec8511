package credit

import (
	"time"

	"github.com/iwvelando/credit-simulator/pkg/currency"
	"github.com/iwvelando/credit-simulator/pkg/loans"
)

// Offer is a qualifying result together with its payment plan. Schedule is
// filled for mortgage results; Projection and ProjectionSummary for
// UVA-indexed results when an inflation expectation was given. Converted
// quotes the monthly payment in the reporting currency when it differs from
// pesos.
type Offer struct {
	Result
	Schedule          []loans.Row           `json:"schedule,omitempty"`
	Projection        []loans.UVAProjection `json:"projection,omitempty"`
	ProjectionSummary *loans.UVASummary     `json:"projectionSummary,omitempty"`
	Converted         *currency.Conversion  `json:"converted,omitempty"`
}

// Analysis is a complete simulation: the profile, what was offered, what was
// skipped and any advisory messages.
type Analysis struct {
	ReferenceCode string    `json:"referenceCode,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Profile       FormData  `json:"profile"`
	Offers        []Offer   `json:"offers"`
	Skipped       []Skip    `json:"skipped,omitempty"`
	Warnings      []string  `json:"warnings,omitempty"`
}

// FindOffer returns the offer with the given result ID.
func (a *Analysis) FindOffer(id string) (*Offer, bool) {
	for i := range a.Offers {
		if a.Offers[i].ID == id {
			return &a.Offers[i], true
		}
	}
	return nil, false
}
