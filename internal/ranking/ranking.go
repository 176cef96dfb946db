// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

// Package ranking orders scored candidates and packages the response.
//
// Ordering is predicted_rating descending, then confidence_score descending,
// then original request position ascending, so identical input always
// produces identical output.
package ranking

import (
	"sort"
	"time"
)

// ScoredCandidate is one candidate with its scores and, once ranked, its
// 1-based position.
type ScoredCandidate struct {
	PlaceID         string  `json:"place_id"`
	Category        string  `json:"category,omitempty"`
	City            string  `json:"city,omitempty"`
	PredictedRating float64 `json:"predicted_rating"`
	ConfidenceScore float64 `json:"confidence_score"`
	Rank            int     `json:"recommendation_rank"`

	// Index is the candidate's position in the request.
	Index int `json:"-"`
}

// Summary describes a recommend call.
type Summary struct {
	TotalPlacesEvaluated   int     `json:"total_places_evaluated"`
	TopKRequested          int     `json:"top_k_requested"`
	AveragePredictedRating float64 `json:"average_predicted_rating"`
}

// Response is the payload returned by predict and recommend.
type Response struct {
	Predictions          []ScoredCandidate `json:"predictions"`
	ModelUsed            string            `json:"model_used"`
	PredictionTimestamp  time.Time         `json:"prediction_timestamp"`
	TotalPlacesEvaluated int               `json:"total_places_evaluated"`
	TopRecommendation    *ScoredCandidate  `json:"top_recommendation"`
	Summary              *Summary          `json:"recommendation_summary,omitempty"`
}

// Rank returns a sorted copy of scored with Rank assigned 1..n.
func Rank(scored []ScoredCandidate) []ScoredCandidate {
	out := make([]ScoredCandidate, len(scored))
	copy(out, scored)
	sort.SliceStable(out, func(i, j int) bool {
		return less(&out[i], &out[j])
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func less(a, b *ScoredCandidate) bool {
	if a.PredictedRating != b.PredictedRating {
		return a.PredictedRating > b.PredictedRating
	}
	if a.ConfidenceScore != b.ConfidenceScore {
		return a.ConfidenceScore > b.ConfidenceScore
	}
	return a.Index < b.Index
}

// ClampTopK bounds topK to [1, n]. With no candidates it returns 0.
func ClampTopK(topK, n int) int {
	if n <= 0 {
		return 0
	}
	if topK < 1 {
		return 1
	}
	if topK > n {
		return n
	}
	return topK
}

// Assemble ranks scored, keeps the best topK and builds the response.
// TotalPlacesEvaluated is the count before truncation.
func Assemble(scored []ScoredCandidate, topK int, modelUsed string, now time.Time) Response {
	ranked := Rank(scored)
	k := ClampTopK(topK, len(ranked))
	return build(ranked[:k], len(scored), modelUsed, now, ranked)
}

// InputOrder ranks scored but returns every candidate in request order,
// each carrying its rank. TopRecommendation is still the rank-1 entry.
func InputOrder(scored []ScoredCandidate, modelUsed string, now time.Time) Response {
	ranked := Rank(scored)
	ordered := make([]ScoredCandidate, len(ranked))
	copy(ordered, ranked)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})
	return build(ordered, len(scored), modelUsed, now, ranked)
}

// WithSummary attaches the recommend summary block. The average is over the
// returned predictions.
func (r Response) WithSummary(topKRequested int) Response {
	var sum float64
	for _, p := range r.Predictions {
		sum += p.PredictedRating
	}
	avg := 0.0
	if len(r.Predictions) > 0 {
		avg = sum / float64(len(r.Predictions))
	}
	r.Summary = &Summary{
		TotalPlacesEvaluated:   r.TotalPlacesEvaluated,
		TopKRequested:          topKRequested,
		AveragePredictedRating: avg,
	}
	return r
}

func build(predictions []ScoredCandidate, total int, modelUsed string, now time.Time, ranked []ScoredCandidate) Response {
	if predictions == nil {
		predictions = []ScoredCandidate{}
	}
	resp := Response{
		Predictions:          predictions,
		ModelUsed:            modelUsed,
		PredictionTimestamp:  now.UTC(),
		TotalPlacesEvaluated: total,
	}
	if len(ranked) > 0 {
		top := ranked[0]
		resp.TopRecommendation = &top
	}
	return resp
}
