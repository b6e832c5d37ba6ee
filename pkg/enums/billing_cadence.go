package enums

import "fmt"

// BillingCadence is the recurring interval of a subscription plan.
type BillingCadence string

const (
	BillingCadenceMonthly   BillingCadence = "monthly"
	BillingCadenceBimonthly BillingCadence = "bimonthly"
	BillingCadenceQuarterly BillingCadence = "quarterly"
)

var validBillingCadences = []BillingCadence{
	BillingCadenceMonthly,
	BillingCadenceBimonthly,
	BillingCadenceQuarterly,
}

// String implements fmt.Stringer.
func (b BillingCadence) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingCadence.
func (b BillingCadence) IsValid() bool {
	for _, candidate := range validBillingCadences {
		if candidate == b {
			return true
		}
	}
	return false
}

// Months returns the cadence length in calendar months.
func (b BillingCadence) Months() int {
	switch b {
	case BillingCadenceBimonthly:
		return 2
	case BillingCadenceQuarterly:
		return 3
	default:
		return 1
	}
}

// ParseBillingCadence converts raw input into a BillingCadence.
func ParseBillingCadence(value string) (BillingCadence, error) {
	for _, candidate := range validBillingCadences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing cadence %q", value)
}
