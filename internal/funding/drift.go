package funding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	hoursPerYear = decimal.NewFromInt(24 * 365)
	hundred      = decimal.NewFromInt(100)
)

// DriftOptions parameterise the Drift data API client.
type DriftOptions struct {
	BaseURL string
	Markets []string
	Timeout time.Duration
}

// Drift fetches funding rates from the Drift protocol data API.
type Drift struct {
	opts    DriftOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewDrift constructs a Drift client.
func NewDrift(opts DriftOptions, logger zerolog.Logger) *Drift {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://data.api.drift.trade"
	}
	return &Drift{
		opts:    opts,
		logger:  logger.With().Str("component", "funding_drift").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type driftFundingResponse struct {
	FundingRates []struct {
		FundingRate string `json:"fundingRate"`
	} `json:"fundingRates"`
}

// Rates fetches the latest funding rate for every configured market, ordered
// as configured. A market that fails to fetch is skipped.
func (d *Drift) Rates(ctx context.Context) ([]Rate, error) {
	rates := make([]Rate, 0, len(d.opts.Markets))
	for _, market := range d.opts.Markets {
		rate, err := d.fetchRate(ctx, market)
		if err != nil {
			d.logger.Debug().Err(err).Str("market", market).Msg("funding rate unavailable")
			continue
		}
		rates = append(rates, *rate)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("no funding rates available")
	}
	return rates, nil
}

func (d *Drift) fetchRate(ctx context.Context, market string) (*Rate, error) {
	params := url.Values{}
	params.Set("marketName", market)

	var res driftFundingResponse
	if err := d.getJSON(ctx, d.baseURL+"/fundingRates?"+params.Encode(), &res); err != nil {
		return nil, err
	}
	if len(res.FundingRates) == 0 {
		return nil, fmt.Errorf("empty funding history for %s", market)
	}

	// Most recent entry first.
	hourly, err := decimal.NewFromString(res.FundingRates[0].FundingRate)
	if err != nil {
		return nil, fmt.Errorf("parse funding rate: %w", err)
	}

	return &Rate{
		Market:         market,
		FundingRate:    hourly,
		FundingRateApy: hourly.Mul(hoursPerYear).Mul(hundred),
		LongPayShort:   hourly.Sign() > 0,
	}, nil
}

type driftMarketsResponse struct {
	Markets []struct {
		Name         string `json:"marketName"`
		OraclePrice  string `json:"oraclePrice"`
		OpenInterest string `json:"openInterest"`
	} `json:"markets"`
}

// Markets lists the perp markets known to the data API.
func (d *Drift) Markets(ctx context.Context) ([]Market, error) {
	var res driftMarketsResponse
	if err := d.getJSON(ctx, d.baseURL+"/markets", &res); err != nil {
		return nil, err
	}

	markets := make([]Market, 0, len(res.Markets))
	for _, m := range res.Markets {
		price, err := decimal.NewFromString(m.OraclePrice)
		if err != nil {
			continue
		}
		oi, err := decimal.NewFromString(m.OpenInterest)
		if err != nil {
			oi = decimal.Decimal{}
		}
		markets = append(markets, Market{Name: m.Name, OraclePrice: price, OpenInterest: oi})
	}
	return markets, nil
}

func (d *Drift) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("drift api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return json.Unmarshal(payload, out)
}

var _ Provider = (*Drift)(nil)
