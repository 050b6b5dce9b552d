package booking

import (
	"time"

	"appispot/models"
)

// PricingPolicy turns a spot's hourly rate and an interval into a quote.
// All amounts are integer cents; percentage lines round half up.
type PricingPolicy struct {
	ServiceFeePct int64
	TaxPct        int64
}

// pctOf computes amount*pct/100 rounded half up, in cents.
func pctOf(amount, pct int64) int64 {
	return (amount*pct + 50) / 100
}

// BaseAmount is the hourly rate applied to the interval's duration, billed
// by fractional hours.
func (p PricingPolicy) BaseAmount(pricePerHour int64, start, end time.Time) int64 {
	minutes := int64(end.Sub(start) / time.Minute)
	return pricePerHour * minutes / 60
}

// Quote prices the interval: subtotal, service fee and tax lines, and total.
func (p PricingPolicy) Quote(pricePerHour int64, start, end time.Time) models.Quote {
	subtotal := p.BaseAmount(pricePerHour, start, end)
	fee := pctOf(subtotal, p.ServiceFeePct)
	tax := pctOf(subtotal, p.TaxPct)
	return models.Quote{
		Subtotal:   subtotal,
		ServiceFee: fee,
		Tax:        tax,
		Total:      subtotal + fee + tax,
	}
}
