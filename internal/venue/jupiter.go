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

// JupiterOptions parameterise the Jupiter aggregator client.
type JupiterOptions struct {
	BaseURL string
	Timeout time.Duration
}

// Jupiter quotes and routes swaps through the Jupiter aggregator API.
type Jupiter struct {
	opts    JupiterOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewJupiter constructs a Jupiter client.
func NewJupiter(opts JupiterOptions, logger zerolog.Logger) *Jupiter {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://quote-api.jup.ag/v6"
	}
	return &Jupiter{
		opts:    opts,
		logger:  logger.With().Str("component", "venue_jupiter").Logger(),
		client:  newHTTPClient(opts.Timeout),
		baseURL: baseURL,
	}
}

func (j *Jupiter) Name() string { return "jupiter" }

type jupiterQuoteResponse struct {
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
}

// Quote derives both sides of the pair from two routed quotes: quote→base for
// the buy price, then base→quote at the bought size for the sell price.
func (j *Jupiter) Quote(ctx context.Context, base, quote string, notionalUsd decimal.Decimal) (*PriceQuote, error) {
	baseMint, baseDec, err := Mint(base)
	if err != nil {
		return nil, err
	}
	quoteMint, quoteDec, err := Mint(quote)
	if err != nil {
		return nil, err
	}

	inAtoms := atomsFromUsd(notionalUsd, quoteDec)
	buyRes, err := j.fetchQuote(ctx, quoteMint, baseMint, inAtoms)
	if err != nil {
		return nil, fmt.Errorf("buy quote: %w", err)
	}

	baseAtoms, err := decimal.NewFromString(buyRes.OutAmount)
	if err != nil {
		return nil, fmt.Errorf("parse out amount: %w", err)
	}
	if baseAtoms.IsZero() {
		return nil, errors.New("buy quote returned zero out amount")
	}
	baseOut := baseAtoms.Shift(-baseDec)
	buyPrice := notionalUsd.Div(baseOut)

	sellRes, err := j.fetchQuote(ctx, baseMint, quoteMint, baseAtoms)
	if err != nil {
		return nil, fmt.Errorf("sell quote: %w", err)
	}
	quoteAtoms, err := decimal.NewFromString(sellRes.OutAmount)
	if err != nil {
		return nil, fmt.Errorf("parse out amount: %w", err)
	}
	sellPrice := quoteAtoms.Shift(-quoteDec).Div(baseOut)

	return &PriceQuote{
		Venue:     j.Name(),
		Pair:      base + "/" + quote,
		BuyPrice:  buyPrice,
		SellPrice: sellPrice,
		DepthUsd:  depthFromImpact(notionalUsd, buyRes.PriceImpactPct),
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (j *Jupiter) fetchQuote(ctx context.Context, inputMint, outputMint string, amount decimal.Decimal) (*jupiterQuoteResponse, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", amount.StringFixed(0))
	params.Set("swapMode", "ExactIn")

	var res jupiterQuoteResponse
	if err := getJSON(ctx, j.client, j.baseURL+"/quote?"+params.Encode(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type jupiterSwapRequest struct {
	UserPublicKey string `json:"userPublicKey"`
	InputMint     string `json:"inputMint"`
	OutputMint    string `json:"outputMint"`
	Amount        string `json:"amount"`
	SlippageBps   int64  `json:"slippageBps"`
}

type jupiterSwapResponse struct {
	Signature string `json:"signature"`
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`
	FeeBps    int64  `json:"feeBps"`
}

// Swap submits one leg through the aggregator's swap endpoint. Transaction
// encoding and broadcast happen venue-side; only fill economics come back.
func (j *Jupiter) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	base, quote, err := SplitPair(req.Pair)
	if err != nil {
		return nil, err
	}
	baseMint, baseDec, err := Mint(base)
	if err != nil {
		return nil, err
	}
	quoteMint, quoteDec, err := Mint(quote)
	if err != nil {
		return nil, err
	}

	inputMint, outputMint := quoteMint, baseMint
	amount := atomsFromUsd(req.AmountUsd, quoteDec)
	if req.Side == SideSell {
		inputMint, outputMint = baseMint, quoteMint
		amount = req.AmountUsd.Div(req.LimitPrice).Shift(baseDec).Round(0)
	}

	payload := jupiterSwapRequest{
		UserPublicKey: req.Wallet,
		InputMint:     inputMint,
		OutputMint:    outputMint,
		Amount:        amount.StringFixed(0),
		SlippageBps:   50,
	}

	var res jupiterSwapResponse
	if err := postJSON(ctx, j.client, j.baseURL+"/swap", payload, &res); err != nil {
		return nil, err
	}
	if res.Signature == "" {
		return nil, errors.New("swap response missing signature")
	}

	inAtoms, err := decimal.NewFromString(res.InAmount)
	if err != nil {
		return nil, fmt.Errorf("parse in amount: %w", err)
	}
	outAtoms, err := decimal.NewFromString(res.OutAmount)
	if err != nil {
		return nil, fmt.Errorf("parse out amount: %w", err)
	}
	if outAtoms.IsZero() {
		return nil, errors.New("swap filled zero")
	}

	var fillPrice, filledUsd decimal.Decimal
	if req.Side == SideBuy {
		filledUsd = inAtoms.Shift(-quoteDec)
		fillPrice = filledUsd.Div(outAtoms.Shift(-baseDec))
	} else {
		filledUsd = outAtoms.Shift(-quoteDec)
		fillPrice = filledUsd.Div(inAtoms.Shift(-baseDec))
	}

	feeUsd := filledUsd.Mul(decimal.NewFromInt(res.FeeBps)).Div(decimal.NewFromInt(10000))

	return &SwapResult{
		Signature: res.Signature,
		FillPrice: fillPrice,
		FilledUsd: filledUsd,
		FeeUsd:    feeUsd,
	}, nil
}

// depthFromImpact estimates absorbable depth from the quoted price impact
// assuming impact grows linearly with size.
func depthFromImpact(notional decimal.Decimal, impactPct string) decimal.Decimal {
	impact, err := decimal.NewFromString(impactPct)
	if err != nil || impact.Sign() <= 0 {
		return decimal.Decimal{}
	}
	return notional.Div(impact)
}

var _ Client = (*Jupiter)(nil)
