package report

import (
	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/montanaflynn/stats"
)

// Summary aggregates the views of one job.
type Summary struct {
	Count            int                          `json:"count"`
	Completed        int                          `json:"completed"`
	MeanScore        float64                      `json:"mean_score"`
	MedianScore      float64                      `json:"median_score"`
	MaxScore         float64                      `json:"max_score"`
	ByRecommendation map[types.Recommendation]int `json:"by_recommendation"`
}

// Summarize computes score statistics and recommendation counts.
func Summarize(views []ApplicationView) Summary {
	s := Summary{
		Count: len(views),
		ByRecommendation: map[types.Recommendation]int{
			types.RecommendationRecommend: 0,
			types.RecommendationConsider:  0,
			types.RecommendationReject:    0,
		},
	}
	if len(views) == 0 {
		return s
	}

	scores := make(stats.Float64Data, 0, len(views))
	for _, v := range views {
		scores = append(scores, float64(v.Score))
		s.ByRecommendation[v.Recommendation]++
		if v.SessionStatus == types.SessionCompleted {
			s.Completed++
		}
	}

	// Errors only occur for empty input, which is handled above.
	s.MeanScore, _ = stats.Round(orZero(stats.Mean(scores)), 2)
	s.MedianScore = orZero(stats.Median(scores))
	s.MaxScore = orZero(stats.Max(scores))
	return s
}

func orZero(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	return v
}
