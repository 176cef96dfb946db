// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package features

import (
	"math"
	"strings"
)

// LayoutVersion identifies the field order and semantics below.
// Bump it together with a coordinated model retrain.
const LayoutVersion = 2

// Field indices. Arity must stay last.
const (
	IdxUserMean = iota
	IdxUserStd
	IdxUserCount
	IdxUserRange
	IdxPlaceMean
	IdxPlaceStd
	IdxPlaceCount
	IdxPlacePopularity
	IdxCategoryMean
	IdxCityMean
	IdxUserCategoryPref
	IdxUserCityPref
	IdxPlacePrice
	IdxUserAvgPrice
	IdxPriceRatio
	IdxPlaceRating
	IdxPlaceDuration
	IdxUserAge
	IdxUserPlaceDeviation
	IdxRatingPriceRatio
	IdxGlobalMean
	IdxGlobalStd
	IdxCategoryMatch
	IdxCityMatch
	IdxBudgetCompat
	IdxRatingNorm
	IdxDurationShort
	IdxDurationMedium
	IdxDurationLong
	IdxAgeCategory
	IdxPriceNorm
	IdxDurationLog

	Arity
)

var names = [Arity]string{
	"user_mean", "user_std", "user_count", "user_range",
	"place_mean", "place_std", "place_count", "place_popularity",
	"category_mean", "city_mean", "user_category_pref", "user_city_pref",
	"place_price", "user_avg_price", "price_ratio",
	"place_rating", "place_duration", "user_age",
	"user_place_deviation", "rating_price_ratio",
	"global_mean", "global_std",
	"category_match", "city_match", "budget_compat", "rating_norm",
	"duration_short", "duration_medium", "duration_long",
	"age_category", "price_norm", "duration_log",
}

// Names returns the field names in vector order.
func Names() []string {
	out := make([]string, Arity)
	copy(out, names[:])
	return out
}

// Budget band ceilings in IDR. High is open-ended; its ceiling only
// positions the band centre.
const (
	LowBudgetCeiling    = 50_000
	MediumBudgetCeiling = 200_000
	HighBudgetCeiling   = 1_000_000
)

// Scaling bounds for the standalone numeric features.
const (
	MaxAge          = 120
	MaxPrice        = 10_000_000
	MaxDurationMins = 24 * 60

	ShortVisitMinutes  = 60
	MediumVisitMinutes = 180

	neutralMatch = 0.5
)

// Builder encodes (user, place) pairs using a fixed set of priors.
type Builder struct {
	priors Priors
}

// NewBuilder creates a builder. Zero-valued priors fall back to DefaultPriors.
func NewBuilder(p Priors) *Builder {
	if p == (Priors{}) {
		p = DefaultPriors()
	}
	return &Builder{priors: p}
}

// DefaultBuilder returns a builder using DefaultPriors.
func DefaultBuilder() *Builder {
	return NewBuilder(DefaultPriors())
}

// BuildFeatureVector encodes one pair with the default priors.
//
//nolint:gocritic // value semantics keep the function pure
func BuildFeatureVector(user UserProfile, place Place) Vector {
	return DefaultBuilder().Build(user, place)
}

// Build encodes one (user, place) pair.
//
//nolint:gocritic // value semantics keep the function pure
func (b *Builder) Build(user UserProfile, place Place) Vector {
	p := b.priors
	v := make(Vector, Arity)

	price := math.Max(place.Price, 0)
	rating := place.AverageRating
	duration := float64(place.VisitDurationMinutes)

	v[IdxUserMean] = p.UserMean
	v[IdxUserStd] = p.UserStd
	v[IdxUserCount] = p.UserCount
	v[IdxUserRange] = p.UserRange
	v[IdxPlaceMean] = p.PlaceMean
	v[IdxPlaceStd] = p.PlaceStd
	v[IdxPlaceCount] = p.PlaceCount
	v[IdxPlacePopularity] = math.Log1p(p.PlaceCount)
	v[IdxCategoryMean] = p.CategoryMean
	v[IdxCityMean] = p.CityMean
	v[IdxUserCategoryPref] = p.CategoryMean
	v[IdxUserCityPref] = p.CityMean

	avgPrice := price * p.SpendingRatio
	v[IdxPlacePrice] = price
	v[IdxUserAvgPrice] = avgPrice
	v[IdxPriceRatio] = 1.0
	if avgPrice > 0 {
		v[IdxPriceRatio] = price / avgPrice
	}

	v[IdxPlaceRating] = rating
	v[IdxPlaceDuration] = duration
	v[IdxUserAge] = float64(user.Age)
	v[IdxUserPlaceDeviation] = math.Abs(p.UserMean - p.PlaceMean)
	v[IdxRatingPriceRatio] = rating
	if price > 0 {
		v[IdxRatingPriceRatio] = rating / math.Log1p(price)
	}
	v[IdxGlobalMean] = p.GlobalMean
	v[IdxGlobalStd] = p.GlobalStd

	categoryMatch := matchIndicator(user.PreferredCategory, place.Category)
	v[IdxCategoryMatch] = categoryMatch
	v[IdxCityMatch] = matchIndicator(user.PreferredCity, place.City)
	v[IdxBudgetCompat] = BudgetCompatibility(user.BudgetRange, price)
	v[IdxRatingNorm] = clamp01(rating / 5.0)

	switch DurationBucket(place.VisitDurationMinutes) {
	case BucketShort:
		v[IdxDurationShort] = 1
	case BucketMedium:
		v[IdxDurationMedium] = 1
	default:
		v[IdxDurationLong] = 1
	}

	v[IdxAgeCategory] = clamp01(float64(user.Age)/MaxAge) * categoryMatch
	v[IdxPriceNorm] = clamp01(math.Log1p(price) / math.Log1p(MaxPrice))
	v[IdxDurationLog] = clamp01(math.Log1p(math.Max(duration, 0)) / math.Log1p(MaxDurationMins))

	return v
}

// BuildBatch encodes every place for the same user, in input order.
//
//nolint:gocritic // value semantics keep the function pure
func (b *Builder) BuildBatch(user UserProfile, places []Place) []Vector {
	out := make([]Vector, len(places))
	for i := range places {
		out[i] = b.Build(user, places[i])
	}
	return out
}

// Bucket is an ordinal visit-duration class.
type Bucket int

const (
	BucketShort Bucket = iota
	BucketMedium
	BucketLong
)

// DurationBucket classifies a visit duration.
func DurationBucket(minutes int) Bucket {
	switch {
	case minutes < ShortVisitMinutes:
		return BucketShort
	case minutes < MediumVisitMinutes:
		return BucketMedium
	default:
		return BucketLong
	}
}

// BudgetCompatibility scores how close price sits to the centre of the
// user's budget band. The score is 1 at the centre and decays towards 0;
// with no budget preference it is neutral.
func BudgetCompatibility(budget string, price float64) float64 {
	var lo, hi float64
	switch strings.ToLower(strings.TrimSpace(budget)) {
	case BudgetLow:
		lo, hi = 0, LowBudgetCeiling
	case BudgetMedium:
		lo, hi = LowBudgetCeiling, MediumBudgetCeiling
	case BudgetHigh:
		lo, hi = MediumBudgetCeiling, HighBudgetCeiling
	default:
		return neutralMatch
	}
	centre := (lo + hi) / 2
	return 1 / (1 + math.Abs(price-centre)/centre)
}

func matchIndicator(preferred, actual string) float64 {
	preferred = strings.TrimSpace(preferred)
	if preferred == "" {
		return neutralMatch
	}
	if strings.EqualFold(preferred, strings.TrimSpace(actual)) {
		return 1
	}
	return 0
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
