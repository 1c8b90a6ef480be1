package venue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MeteoraOptions parameterise the Meteora client.
type MeteoraOptions struct {
	BaseURL string
	Timeout time.Duration
}

// Meteora quotes against Meteora dynamic AMM pools.
type Meteora struct {
	opts    MeteoraOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewMeteora constructs a Meteora client.
func NewMeteora(opts MeteoraOptions, logger zerolog.Logger) *Meteora {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://amm-v2.meteora.ag"
	}
	return &Meteora{
		opts:    opts,
		logger:  logger.With().Str("component", "venue_meteora").Logger(),
		client:  newHTTPClient(opts.Timeout),
		baseURL: baseURL,
	}
}

func (m *Meteora) Name() string { return "meteora" }

type meteoraPool struct {
	PoolAddress string          `json:"pool_address"`
	SpotPrice   decimal.Decimal `json:"spot_price"`
	PoolTVL     decimal.Decimal `json:"pool_tvl"`
	TradeFeePct decimal.Decimal `json:"trade_fee_pct"`
}

// Quote reads the deepest dynamic pool for the pair.
func (m *Meteora) Quote(ctx context.Context, base, quote string, notionalUsd decimal.Decimal) (*PriceQuote, error) {
	baseMint, _, err := Mint(base)
	if err != nil {
		return nil, err
	}
	quoteMint, _, err := Mint(quote)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("include_token_mints", baseMint+","+quoteMint)
	params.Set("sort_key", "tvl")
	params.Set("order_by", "desc")
	params.Set("size", "1")

	var pools []meteoraPool
	if err := getJSON(ctx, m.client, m.baseURL+"/pools/search?"+params.Encode(), &pools); err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		return nil, fmt.Errorf("no meteora pool for %s/%s", base, quote)
	}

	pool := pools[0]
	if pool.SpotPrice.Sign() <= 0 {
		return nil, errors.New("pool returned non-positive price")
	}

	// trade_fee_pct comes back as a percentage, not a fraction.
	fee := pool.TradeFeePct.Div(decimal.NewFromInt(100))
	one := decimal.NewFromInt(1)

	return &PriceQuote{
		Venue:     m.Name(),
		Pair:      base + "/" + quote,
		BuyPrice:  pool.SpotPrice.Mul(one.Add(fee)),
		SellPrice: pool.SpotPrice.Mul(one.Sub(fee)),
		DepthUsd:  pool.PoolTVL,
		FetchedAt: time.Now().UTC(),
	}, nil
}

type meteoraSwapResponse struct {
	TxSignature   string          `json:"tx_signature"`
	ExecutedPrice decimal.Decimal `json:"executed_price"`
	AmountUsd     decimal.Decimal `json:"amount_usd"`
	FeeUsd        decimal.Decimal `json:"fee_usd"`
}

// Swap submits one leg through the Meteora swap API.
func (m *Meteora) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	base, quote, err := SplitPair(req.Pair)
	if err != nil {
		return nil, err
	}
	baseMint, _, err := Mint(base)
	if err != nil {
		return nil, err
	}
	quoteMint, _, err := Mint(quote)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"user":        req.Wallet,
		"in_mint":     quoteMint,
		"out_mint":    baseMint,
		"amount_usd":  req.AmountUsd.String(),
		"limit_price": req.LimitPrice.String(),
	}
	if req.Side == SideSell {
		payload["in_mint"], payload["out_mint"] = baseMint, quoteMint
	}

	var res meteoraSwapResponse
	if err := postJSON(ctx, m.client, m.baseURL+"/swap", payload, &res); err != nil {
		return nil, err
	}
	if res.TxSignature == "" {
		return nil, errors.New("swap response missing signature")
	}

	return &SwapResult{
		Signature: res.TxSignature,
		FillPrice: res.ExecutedPrice,
		FilledUsd: res.AmountUsd,
		FeeUsd:    res.FeeUsd,
	}, nil
}

var _ Client = (*Meteora)(nil)
