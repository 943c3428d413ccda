package llm

import "math"

// WeightedOverallScore converts per-question scores (0..10) into a 0..100
// score weighted by question difficulty. Scores pair with questions by
// position; unknown difficulties weigh 1.
func WeightedOverallScore(questions []Question, scores []ScoredAnswer, weights map[string]int) float64 {
	var earned, possible float64
	for i, q := range questions {
		w := float64(weights[NormalizeDifficulty(q.Difficulty)])
		if w <= 0 {
			w = 1
		}
		possible += 10 * w
		if i < len(scores) {
			earned += clamp(scores[i].Score, 0, 10) * w
		}
	}
	if possible == 0 {
		return 0
	}
	return math.Round(earned/possible*1000) / 10
}
