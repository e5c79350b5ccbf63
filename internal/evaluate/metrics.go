package evaluate

import (
	"math"

	"github.com/soniclens/taste-profile-service/internal/domain"
	"github.com/soniclens/taste-profile-service/internal/feature"
)

// Evaluate measures recommendation quality against held-out ground truth. The
// caller owns the holdout split; this only computes metrics over the top K:
//
//	precision@K = |top-K ∩ truth| / K
//	recall@K    = |top-K ∩ truth| / |truth|   (0 when truth is empty)
//	f1@K        = harmonic mean, 0 when both are 0
//	diversity   = genre entropy within the top K, normalized to [0,1]
//	novelty     = 1 − mean popularity/100 within the top K
func Evaluate(recs []domain.Recommendation, groundTruth []string, k int) domain.EvaluationResult {
	if k <= 0 {
		return domain.EvaluationResult{}
	}

	topK := recs
	if len(topK) > k {
		topK = topK[:k]
	}

	truth := make(map[string]struct{}, len(groundTruth))
	for _, id := range groundTruth {
		truth[id] = struct{}{}
	}

	hits := 0
	for _, r := range topK {
		if _, ok := truth[r.Track.ID]; ok {
			hits++
		}
	}

	precision := float64(hits) / float64(k)
	recall := 0.0
	if len(truth) > 0 {
		recall = float64(hits) / float64(len(truth))
	}
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return domain.EvaluationResult{
		PrecisionAtK:   round3(precision),
		RecallAtK:      round3(recall),
		F1AtK:          round3(f1),
		DiversityScore: round3(diversity(topK)),
		NoveltyScore:   round3(novelty(topK)),
		K:              k,
	}
}

// diversity is the Shannon entropy of the genre distribution across the
// evaluated recommendations, normalized by the maximum entropy for the number
// of distinct genres observed. One genre, or none, scores 0.
func diversity(recs []domain.Recommendation) float64 {
	counts := make(map[string]int)
	total := 0
	for _, r := range recs {
		for _, g := range r.Track.Genres {
			counts[g]++
			total++
		}
	}
	if total == 0 || len(counts) < 2 {
		return 0
	}
	dist := make(map[string]float64, len(counts))
	for g, c := range counts {
		dist[g] = float64(c) / float64(total)
	}
	normalized := feature.Entropy(dist) / math.Log2(float64(len(counts)))
	return math.Min(normalized, 1)
}

func novelty(recs []domain.Recommendation) float64 {
	if len(recs) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range recs {
		sum += float64(r.Track.Popularity)
	}
	return 1 - sum/float64(len(recs))/100.0
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
