// internal/oracle/gate.go
// Package oracle validates external price observations before they may touch
// vault state: positive-price sanity, staleness, confidence width and jump
// bounds, with USD→USDC fallback in auto mode. It also maintains the smoothed
// (EMA) price estimate used as the hedge drift reference.
package oracle

import (
	"github.com/rovshanmuradov/solana-vault/internal/fp"
)

// Feed identifies which price feed an observation came from.
type Feed uint8

const (
	FeedUsd  Feed = 1
	FeedUsdc Feed = 2
)

func (f Feed) String() string {
	switch f {
	case FeedUsd:
		return "usd"
	case FeedUsdc:
		return "usdc"
	default:
		return "unknown"
	}
}

// FeedChoice selects which feed(s) the gate consults.
type FeedChoice uint8

const (
	ChoiceUsdOnly               FeedChoice = 1
	ChoiceUsdcOnly              FeedChoice = 2
	ChoiceAutoPreferUsdThenUsdc FeedChoice = 3
)

// Valid reports whether c is one of the three defined choices.
func (c FeedChoice) Valid() bool {
	switch c {
	case ChoiceUsdOnly, ChoiceUsdcOnly, ChoiceAutoPreferUsdThenUsdc:
		return true
	}
	return false
}

func (c FeedChoice) String() string {
	switch c {
	case ChoiceUsdOnly:
		return "usd_only"
	case ChoiceUsdcOnly:
		return "usdc_only"
	case ChoiceAutoPreferUsdThenUsdc:
		return "auto_usd_then_usdc"
	default:
		return "unknown"
	}
}

// Observation is one externally supplied price sample. The gate treats the
// source as an opaque read; no feed decoding happens here.
type Observation struct {
	PriceFp      int64 // fixed-point 1e6
	ConfidenceFp int64 // fixed-point 1e6
	PublishTime  int64 // unix seconds
	Feed         Feed
}

// Config carries the gating thresholds.
type Config struct {
	Choice           FeedChoice
	MaxPriceAgeSec   uint64
	MaxConfidenceBps uint16
	MaxPriceJumpBps  uint16
}

// RejectReason explains why an observation failed validation.
type RejectReason uint8

const (
	ReasonNone RejectReason = iota
	ReasonNonPositivePrice
	ReasonZeroPublishTime
	ReasonPublishedInFuture
	ReasonStale
	ReasonConfidenceTooWide
	ReasonPriceJump
	ReasonMissingObservation
)

func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNonPositivePrice:
		return "non_positive_price"
	case ReasonZeroPublishTime:
		return "zero_publish_time"
	case ReasonPublishedInFuture:
		return "published_in_future"
	case ReasonStale:
		return "stale"
	case ReasonConfidenceTooWide:
		return "confidence_too_wide"
	case ReasonPriceJump:
		return "price_jump"
	case ReasonMissingObservation:
		return "missing_observation"
	default:
		return "unknown"
	}
}

// Result is the gate's verdict for one update attempt.
type Result struct {
	Feed         Feed
	PriceFp      int64
	ConfidenceFp int64
	PublishTime  int64
	OK           bool
	Reason       RejectReason
}

// validate checks a single observation in spec order: sanity, staleness,
// confidence, jump. First failure wins.
func validate(obs *Observation, cfg Config, nowUnix int64, lastAcceptedFp int64) RejectReason {
	if obs.PriceFp <= 0 || obs.PriceFp > fp.MaxPriceFp {
		return ReasonNonPositivePrice
	}
	if obs.PublishTime <= 0 {
		return ReasonZeroPublishTime
	}
	if nowUnix < obs.PublishTime {
		return ReasonPublishedInFuture
	}
	if uint64(nowUnix-obs.PublishTime) > cfg.MaxPriceAgeSec {
		return ReasonStale
	}
	// confidence * 10000 <= price * maxConfidenceBps
	maxConfFp := fp.MulDivI64(obs.PriceFp, int64(cfg.MaxConfidenceBps), fp.BpsDenom)
	if obs.ConfidenceFp > maxConfFp {
		return ReasonConfidenceTooWide
	}
	// Jump bound is skipped until a first price has been accepted.
	if lastAcceptedFp > 0 {
		if DriftBps(obs.PriceFp, lastAcceptedFp) > cfg.MaxPriceJumpBps {
			return ReasonPriceJump
		}
	}
	return ReasonNone
}

// Evaluate resolves the configured feed choice against the supplied
// observations and validates the selected one. In auto mode the USD feed is
// tried first and USDC is the fallback; if both fail, the USD verdict is
// reported. A nil observation counts as a failed read of that feed.
func Evaluate(cfg Config, usd, usdc *Observation, nowUnix int64, lastAcceptedFp int64) Result {
	tryOne := func(obs *Observation, feed Feed) Result {
		if obs == nil {
			return Result{Feed: feed, OK: false, Reason: ReasonMissingObservation}
		}
		reason := validate(obs, cfg, nowUnix, lastAcceptedFp)
		return Result{
			Feed:         feed,
			PriceFp:      obs.PriceFp,
			ConfidenceFp: obs.ConfidenceFp,
			PublishTime:  obs.PublishTime,
			OK:           reason == ReasonNone,
			Reason:       reason,
		}
	}

	switch cfg.Choice {
	case ChoiceUsdOnly:
		return tryOne(usd, FeedUsd)
	case ChoiceUsdcOnly:
		return tryOne(usdc, FeedUsdc)
	default:
		first := tryOne(usd, FeedUsd)
		if first.OK {
			return first
		}
		second := tryOne(usdc, FeedUsdc)
		if second.OK {
			return second
		}
		return first
	}
}

// emaSmoothingBps is the fixed smoothing constant for the internal EMA
// (alpha = 0.2 per accepted observation).
const emaSmoothingBps = 2_000

// NextEma advances the smoothed price estimate with an accepted price.
// The first accepted price seeds the EMA directly.
func NextEma(emaFp, priceFp int64) int64 {
	if emaFp <= 0 {
		return priceFp
	}
	left := fp.MulDivI64(emaFp, fp.BpsDenom-emaSmoothingBps, fp.BpsDenom)
	right := fp.MulDivI64(priceFp, emaSmoothingBps, fp.BpsDenom)
	return left + right
}

// DriftBps returns the relative deviation of current vs anchor in basis
// points, capped at 10000. A non-positive current yields 0; a non-positive
// anchor yields the cap so that the first comparison always passes.
func DriftBps(currentFp, anchorFp int64) uint16 {
	if currentFp <= 0 {
		return 0
	}
	if anchorFp <= 0 {
		return fp.MaxVolBps
	}
	diff := fp.AbsI64(currentFp - anchorFp)
	bps := fp.MulDivI64(diff, fp.BpsDenom, anchorFp)
	if bps > fp.MaxVolBps {
		return fp.MaxVolBps
	}
	return uint16(bps)
}
