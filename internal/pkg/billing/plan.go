package billing

// PlanKey is the internal normalized identifier for a subscription tier,
// decoupled from the provider's raw price identifiers.
type PlanKey string

const (
	PlanGrowth     PlanKey = "sub::growth"
	PlanRidiculous PlanKey = "sub::ridiculous"
	PlanFree       PlanKey = "sub::free"
	PlanUnknown    PlanKey = "sub::unknown"
)

// ResolvePlanKey maps a Stripe price id to an internal plan key by exact
// match, first match wins in the order growth, cheap, free. A price id that
// matches none of the configured ids resolves to PlanUnknown; that signals
// configuration drift, not an error.
func ResolvePlanKey(priceID string, ids PriceIDs) PlanKey {
	if priceID == "" {
		return PlanUnknown
	}
	switch priceID {
	case ids.Growth:
		return PlanGrowth
	case ids.Cheap:
		return PlanRidiculous
	case ids.Free:
		return PlanFree
	default:
		return PlanUnknown
	}
}
