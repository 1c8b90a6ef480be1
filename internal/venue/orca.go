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

// OrcaOptions parameterise the Orca client.
type OrcaOptions struct {
	BaseURL string
	Timeout time.Duration
}

// Orca quotes against Orca whirlpools.
type Orca struct {
	opts    OrcaOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewOrca constructs an Orca client.
func NewOrca(opts OrcaOptions, logger zerolog.Logger) *Orca {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.orca.so/v2/solana"
	}
	return &Orca{
		opts:    opts,
		logger:  logger.With().Str("component", "venue_orca").Logger(),
		client:  newHTTPClient(opts.Timeout),
		baseURL: baseURL,
	}
}

func (o *Orca) Name() string { return "orca" }

type orcaPoolsResponse struct {
	Data []struct {
		Price   decimal.Decimal `json:"price"`
		TVLUsdc decimal.Decimal `json:"tvlUsdc"`
		FeeRate decimal.Decimal `json:"feeRate"`
	} `json:"data"`
}

// Quote reads the first whirlpool matching both mints. Pools come back sorted
// by TVL, so the first entry is the deepest.
func (o *Orca) Quote(ctx context.Context, base, quote string, notionalUsd decimal.Decimal) (*PriceQuote, error) {
	baseMint, _, err := Mint(base)
	if err != nil {
		return nil, err
	}
	quoteMint, _, err := Mint(quote)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("tokensBothOf", baseMint+","+quoteMint)
	params.Set("sortBy", "tvl")
	params.Set("size", "1")

	var res orcaPoolsResponse
	if err := getJSON(ctx, o.client, o.baseURL+"/pools?"+params.Encode(), &res); err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("no orca pool for %s/%s", base, quote)
	}

	pool := res.Data[0]
	if pool.Price.Sign() <= 0 {
		return nil, errors.New("pool returned non-positive price")
	}

	one := decimal.NewFromInt(1)
	return &PriceQuote{
		Venue:     o.Name(),
		Pair:      base + "/" + quote,
		BuyPrice:  pool.Price.Mul(one.Add(pool.FeeRate)),
		SellPrice: pool.Price.Mul(one.Sub(pool.FeeRate)),
		DepthUsd:  pool.TVLUsdc,
		FetchedAt: time.Now().UTC(),
	}, nil
}

type orcaSwapResponse struct {
	Signature string          `json:"signature"`
	Price     decimal.Decimal `json:"price"`
	AmountUsd decimal.Decimal `json:"amountUsd"`
	FeeUsd    decimal.Decimal `json:"feeUsd"`
}

// Swap submits one leg through the Orca swap API.
func (o *Orca) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
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
		"wallet":     req.Wallet,
		"inputMint":  quoteMint,
		"outputMint": baseMint,
		"amountUsd":  req.AmountUsd.String(),
		"limitPrice": req.LimitPrice.String(),
	}
	if req.Side == SideSell {
		payload["inputMint"], payload["outputMint"] = baseMint, quoteMint
	}

	var res orcaSwapResponse
	if err := postJSON(ctx, o.client, o.baseURL+"/swap", payload, &res); err != nil {
		return nil, err
	}
	if res.Signature == "" {
		return nil, errors.New("swap response missing signature")
	}

	return &SwapResult{
		Signature: res.Signature,
		FillPrice: res.Price,
		FilledUsd: res.AmountUsd,
		FeeUsd:    res.FeeUsd,
	}, nil
}

var _ Client = (*Orca)(nil)
