package llm

import "testing"

func sixQuestions() []Question {
	return []Question{
		{Question: "e1", Difficulty: DifficultyEasy, Time: 20},
		{Question: "e2", Difficulty: DifficultyEasy, Time: 20},
		{Question: "m1", Difficulty: DifficultyMedium, Time: 60},
		{Question: "m2", Difficulty: DifficultyMedium, Time: 60},
		{Question: "h1", Difficulty: DifficultyHard, Time: 120},
		{Question: "h2", Difficulty: DifficultyHard, Time: 120},
	}
}

func TestWeightedOverallScore(t *testing.T) {
	weights := map[string]int{DifficultyEasy: 1, DifficultyMedium: 2, DifficultyHard: 3}
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{name: "perfect", scores: []float64{10, 10, 10, 10, 10, 10}, want: 100},
		{name: "zero", scores: []float64{0, 0, 0, 0, 0, 0}, want: 0},
		// easy 20 of 20 weighted 1, nothing else: 20 / 120
		{name: "easy only", scores: []float64{10, 10, 0, 0, 0, 0}, want: 16.7},
		// hard only: 60 / 120
		{name: "hard only", scores: []float64{0, 0, 0, 0, 10, 10}, want: 50},
		{name: "missing scores", scores: []float64{10, 10}, want: 16.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scored := make([]ScoredAnswer, len(tt.scores))
			for i, s := range tt.scores {
				scored[i] = ScoredAnswer{Score: s}
			}
			if got := WeightedOverallScore(sixQuestions(), scored, weights); got != tt.want {
				t.Fatalf("WeightedOverallScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeightedOverallScoreNoQuestions(t *testing.T) {
	if got := WeightedOverallScore(nil, nil, nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
