// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

package features

import (
	"math"
	"testing"
)

func culturePlace() Place {
	return Place{
		PlaceID:              "a",
		Category:             "Culture",
		City:                 "Jakarta",
		Price:                25000,
		AverageRating:        4.2,
		VisitDurationMinutes: 120,
	}
}

func TestBuildFeatureVector_Arity(t *testing.T) {
	t.Parallel()

	v := BuildFeatureVector(UserProfile{Age: 28}, culturePlace())
	if len(v) != Arity {
		t.Fatalf("len(vector) = %d, want %d", len(v), Arity)
	}
	if len(Names()) != Arity {
		t.Fatalf("len(Names()) = %d, want %d", len(Names()), Arity)
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Errorf("field %s = %v, want finite", Names()[i], x)
		}
	}
}

func TestBuildFeatureVector_Deterministic(t *testing.T) {
	t.Parallel()

	user := UserProfile{Age: 28, PreferredCategory: "Culture", BudgetRange: BudgetMedium}
	a := BuildFeatureVector(user, culturePlace())
	b := BuildFeatureVector(user, culturePlace())
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("field %s differs between calls: %v vs %v", Names()[i], a[i], b[i])
		}
	}
}

func TestBuildFeatureVector_MatchIndicators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		user         UserProfile
		wantCategory float64
		wantCity     float64
	}{
		{"no preference is neutral", UserProfile{Age: 30}, 0.5, 0.5},
		{"case-insensitive match", UserProfile{Age: 30, PreferredCategory: "culture", PreferredCity: "JAKARTA"}, 1, 1},
		{"mismatch", UserProfile{Age: 30, PreferredCategory: "Marine", PreferredCity: "Bali"}, 0, 0},
		{"whitespace only is no preference", UserProfile{Age: 30, PreferredCategory: "  "}, 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := BuildFeatureVector(tt.user, culturePlace())
			if v[IdxCategoryMatch] != tt.wantCategory {
				t.Errorf("category_match = %v, want %v", v[IdxCategoryMatch], tt.wantCategory)
			}
			if v[IdxCityMatch] != tt.wantCity {
				t.Errorf("city_match = %v, want %v", v[IdxCityMatch], tt.wantCity)
			}
		})
	}
}

func TestBuildFeatureVector_AgeCategoryInteraction(t *testing.T) {
	t.Parallel()

	match := BuildFeatureVector(UserProfile{Age: 60, PreferredCategory: "Culture"}, culturePlace())
	if want := 0.5; match[IdxAgeCategory] != want {
		t.Errorf("age_category = %v, want %v", match[IdxAgeCategory], want)
	}

	miss := BuildFeatureVector(UserProfile{Age: 60, PreferredCategory: "Marine"}, culturePlace())
	if miss[IdxAgeCategory] != 0 {
		t.Errorf("age_category on mismatch = %v, want 0", miss[IdxAgeCategory])
	}
}

func TestDurationBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		minutes int
		want    Bucket
	}{
		{1, BucketShort},
		{59, BucketShort},
		{60, BucketMedium},
		{179, BucketMedium},
		{180, BucketLong},
		{2880, BucketLong},
	}
	for _, tt := range tests {
		if got := DurationBucket(tt.minutes); got != tt.want {
			t.Errorf("DurationBucket(%d) = %v, want %v", tt.minutes, got, tt.want)
		}
	}
}

func TestBuildFeatureVector_DurationOneHot(t *testing.T) {
	t.Parallel()

	for _, minutes := range []int{30, 120, 240} {
		p := culturePlace()
		p.VisitDurationMinutes = minutes
		v := BuildFeatureVector(UserProfile{Age: 30}, p)
		sum := v[IdxDurationShort] + v[IdxDurationMedium] + v[IdxDurationLong]
		if sum != 1 {
			t.Errorf("duration one-hot for %d minutes sums to %v, want 1", minutes, sum)
		}
	}
}

func TestBudgetCompatibility(t *testing.T) {
	t.Parallel()

	if got := BudgetCompatibility("", 25000); got != 0.5 {
		t.Errorf("no budget = %v, want 0.5", got)
	}
	if got := BudgetCompatibility(BudgetLow, 25000); got != 1 {
		t.Errorf("low budget at band centre = %v, want 1", got)
	}
	if got := BudgetCompatibility("MEDIUM", 125000); got != 1 {
		t.Errorf("medium budget at band centre = %v, want 1", got)
	}

	near := BudgetCompatibility(BudgetMedium, 150000)
	far := BudgetCompatibility(BudgetMedium, 5_000_000)
	if !(near > far) {
		t.Errorf("expected closer price to score higher: near=%v far=%v", near, far)
	}
	for _, price := range []float64{0, 1, 50000, 1e9} {
		for _, budget := range []string{BudgetLow, BudgetMedium, BudgetHigh} {
			s := BudgetCompatibility(budget, price)
			if s < 0 || s > 1 {
				t.Errorf("BudgetCompatibility(%s, %v) = %v, want within [0,1]", budget, price, s)
			}
		}
	}
}

func TestBuildFeatureVector_FreePlace(t *testing.T) {
	t.Parallel()

	p := culturePlace()
	p.Price = 0
	v := BuildFeatureVector(UserProfile{Age: 30}, p)
	if v[IdxPriceRatio] != 1 {
		t.Errorf("price_ratio for free place = %v, want 1", v[IdxPriceRatio])
	}
	if v[IdxRatingPriceRatio] != p.AverageRating {
		t.Errorf("rating_price_ratio for free place = %v, want %v", v[IdxRatingPriceRatio], p.AverageRating)
	}
	if v[IdxPriceNorm] != 0 {
		t.Errorf("price_norm for free place = %v, want 0", v[IdxPriceNorm])
	}
}

func TestBuildBatch_PreservesOrder(t *testing.T) {
	t.Parallel()

	a := culturePlace()
	b := culturePlace()
	b.PlaceID = "b"
	b.AverageRating = 2.0

	vecs := DefaultBuilder().BuildBatch(UserProfile{Age: 40}, []Place{a, b})
	if len(vecs) != 2 {
		t.Fatalf("len = %d, want 2", len(vecs))
	}
	if vecs[0][IdxPlaceRating] != 4.2 || vecs[1][IdxPlaceRating] != 2.0 {
		t.Errorf("batch order not preserved: %v, %v", vecs[0][IdxPlaceRating], vecs[1][IdxPlaceRating])
	}
}

func TestNewBuilder_ZeroPriorsUseDefaults(t *testing.T) {
	t.Parallel()

	v := NewBuilder(Priors{}).Build(UserProfile{Age: 30}, culturePlace())
	if v[IdxGlobalMean] != 3.5 {
		t.Errorf("global_mean = %v, want 3.5", v[IdxGlobalMean])
	}
	if math.Abs(v[IdxPlacePopularity]-math.Log1p(50)) > 1e-12 {
		t.Errorf("place_popularity = %v, want log1p(50)", v[IdxPlacePopularity])
	}
}
