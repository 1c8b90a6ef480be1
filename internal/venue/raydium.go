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

// RaydiumOptions parameterise the Raydium client.
type RaydiumOptions struct {
	BaseURL string
	Timeout time.Duration
}

// Raydium quotes against the deepest Raydium pool for the pair.
type Raydium struct {
	opts    RaydiumOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewRaydium constructs a Raydium client.
func NewRaydium(opts RaydiumOptions, logger zerolog.Logger) *Raydium {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api-v3.raydium.io"
	}
	return &Raydium{
		opts:    opts,
		logger:  logger.With().Str("component", "venue_raydium").Logger(),
		client:  newHTTPClient(opts.Timeout),
		baseURL: baseURL,
	}
}

func (r *Raydium) Name() string { return "raydium" }

type raydiumPoolResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Data []struct {
			Price   decimal.Decimal `json:"price"`
			TVL     decimal.Decimal `json:"tvl"`
			FeeRate decimal.Decimal `json:"feeRate"`
		} `json:"data"`
	} `json:"data"`
}

// Quote reads the deepest pool's mid price and spreads it by the pool fee.
func (r *Raydium) Quote(ctx context.Context, base, quote string, notionalUsd decimal.Decimal) (*PriceQuote, error) {
	baseMint, _, err := Mint(base)
	if err != nil {
		return nil, err
	}
	quoteMint, _, err := Mint(quote)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("mint1", baseMint)
	params.Set("mint2", quoteMint)
	params.Set("poolType", "all")
	params.Set("poolSortField", "liquidity")
	params.Set("sortType", "desc")
	params.Set("pageSize", "1")
	params.Set("page", "1")

	var res raydiumPoolResponse
	if err := getJSON(ctx, r.client, r.baseURL+"/pools/info/mint?"+params.Encode(), &res); err != nil {
		return nil, err
	}
	if !res.Success || len(res.Data.Data) == 0 {
		return nil, fmt.Errorf("no raydium pool for %s/%s", base, quote)
	}

	pool := res.Data.Data[0]
	if pool.Price.Sign() <= 0 {
		return nil, errors.New("pool returned non-positive price")
	}

	one := decimal.NewFromInt(1)
	return &PriceQuote{
		Venue:     r.Name(),
		Pair:      base + "/" + quote,
		BuyPrice:  pool.Price.Mul(one.Add(pool.FeeRate)),
		SellPrice: pool.Price.Mul(one.Sub(pool.FeeRate)),
		DepthUsd:  pool.TVL,
		FetchedAt: time.Now().UTC(),
	}, nil
}

type raydiumSwapResponse struct {
	Success bool `json:"success"`
	Data    struct {
		TxID          string          `json:"txId"`
		ExecutedPrice decimal.Decimal `json:"executedPrice"`
		AmountUsd     decimal.Decimal `json:"amountUsd"`
		FeeUsd        decimal.Decimal `json:"feeUsd"`
	} `json:"data"`
}

// Swap submits one leg through the Raydium trade API.
func (r *Raydium) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
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
		"owner":      req.Wallet,
		"inputMint":  quoteMint,
		"outputMint": baseMint,
		"amountUsd":  req.AmountUsd.String(),
		"limitPrice": req.LimitPrice.String(),
	}
	if req.Side == SideSell {
		payload["inputMint"], payload["outputMint"] = baseMint, quoteMint
	}

	var res raydiumSwapResponse
	if err := postJSON(ctx, r.client, r.baseURL+"/transaction/swap-base-in", payload, &res); err != nil {
		return nil, err
	}
	if !res.Success || res.Data.TxID == "" {
		return nil, errors.New("swap rejected by raydium")
	}

	return &SwapResult{
		Signature: res.Data.TxID,
		FillPrice: res.Data.ExecutedPrice,
		FilledUsd: res.Data.AmountUsd,
		FeeUsd:    res.Data.FeeUsd,
	}, nil
}

var _ Client = (*Raydium)(nil)
