// Package funding surfaces perpetual-futures funding rates, the data source
// behind the funding-rate capture strategy and the dashboard.
package funding

import (
	"context"

	"github.com/shopspring/decimal"
)

// Rate is one market's current funding state. FundingRate is the per-hour
// fraction paid between sides; LongPayShort reports the direction.
type Rate struct {
	Market         string          `json:"market"`
	FundingRate    decimal.Decimal `json:"fundingRate"`
	FundingRateApy decimal.Decimal `json:"fundingRateApy"`
	LongPayShort   bool            `json:"longPayShort"`
}

// Market describes one listed perp market.
type Market struct {
	Name         string          `json:"name"`
	OraclePrice  decimal.Decimal `json:"oraclePrice"`
	OpenInterest decimal.Decimal `json:"openInterest"`
}

// Provider is the funding data capability the dashboard and the funding
// strategy consume.
type Provider interface {
	Rates(ctx context.Context) ([]Rate, error)
	Markets(ctx context.Context) ([]Market, error)
}
