// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package features

// Budget range values accepted on UserProfile.BudgetRange.
const (
	BudgetLow    = "low"
	BudgetMedium = "medium"
	BudgetHigh   = "high"
)

// UserProfile is the request-scoped description of the visitor.
type UserProfile struct {
	// Age in years (1-120).
	Age int `json:"age" validate:"required,min=1,max=120"`

	// PreferredCategory is matched case-insensitively against Place.Category.
	PreferredCategory string `json:"preferred_category,omitempty" validate:"omitempty,max=64"`

	// PreferredCity is matched case-insensitively against Place.City.
	PreferredCity string `json:"preferred_city,omitempty" validate:"omitempty,max=64"`

	// BudgetRange is one of low, medium or high. Empty means no preference.
	BudgetRange string `json:"budget_range,omitempty" validate:"omitempty,oneof=low medium high"`
}

// Place is a candidate destination supplied by the caller.
type Place struct {
	PlaceID              string  `json:"place_id" validate:"required,max=128"`
	Category             string  `json:"category" validate:"max=64"`
	City                 string  `json:"city" validate:"max=64"`
	Price                float64 `json:"price" validate:"gte=0"`
	AverageRating        float64 `json:"average_rating" validate:"gte=0,lte=5"`
	VisitDurationMinutes int     `json:"visit_duration_minutes" validate:"gt=0"`
	Description          string  `json:"description,omitempty" validate:"max=4096"`
}

// Vector is one encoded (user, place) pair. Its length is always Arity.
type Vector []float64

// Priors holds the rating statistics used for the prior-statistics block of
// the vector. The serving core owns no user history, so these are the
// population values the models were trained against.
type Priors struct {
	GlobalMean    float64 `koanf:"global_mean" json:"global_mean"`
	GlobalStd     float64 `koanf:"global_std" json:"global_std"`
	UserMean      float64 `koanf:"user_mean" json:"user_mean"`
	UserStd       float64 `koanf:"user_std" json:"user_std"`
	UserCount     float64 `koanf:"user_count" json:"user_count"`
	UserRange     float64 `koanf:"user_range" json:"user_range"`
	PlaceMean     float64 `koanf:"place_mean" json:"place_mean"`
	PlaceStd      float64 `koanf:"place_std" json:"place_std"`
	PlaceCount    float64 `koanf:"place_count" json:"place_count"`
	CategoryMean  float64 `koanf:"category_mean" json:"category_mean"`
	CityMean      float64 `koanf:"city_mean" json:"city_mean"`
	SpendingRatio float64 `koanf:"spending_ratio" json:"spending_ratio"`
}

// DefaultPriors returns the population statistics of the training set.
func DefaultPriors() Priors {
	return Priors{
		GlobalMean:    3.5,
		GlobalStd:     1.0,
		UserMean:      3.5,
		UserStd:       1.0,
		UserCount:     10,
		UserRange:     4,
		PlaceMean:     3.5,
		PlaceStd:      1.0,
		PlaceCount:    50,
		CategoryMean:  3.5,
		CityMean:      3.5,
		SpendingRatio: 1.1,
	}
}
