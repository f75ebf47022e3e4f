// Package scoring holds the fallback scoring heuristics of the analysis engine.
package scoring

import "github.com/Rauan228/HackNU2/internal/types"

const (
	// NeutralScore replaces an unusable generated score.
	NeutralScore = 50
	// DefaultCategoryScore is used for unrecognized severities.
	DefaultCategoryScore = 60

	recommendThreshold = 80
	considerThreshold  = 60

	limitedInfoPenalty = 20
	limitedInfoFloor   = 30
	fullAnswerCount    = 3
)

// CategoryScore maps a discrepancy severity to a per-category confidence score.
// Higher severity yields a lower score.
func CategoryScore(severity types.Severity) int {
	switch severity {
	case types.SeverityLow:
		return 80
	case types.SeverityMedium:
		return 60
	case types.SeverityHigh:
		return 30
	default:
		return DefaultCategoryScore
	}
}

// RecommendationFromScore buckets a 0-100 score.
func RecommendationFromScore(score int) types.Recommendation {
	switch {
	case score >= recommendThreshold:
		return types.RecommendationRecommend
	case score >= considerThreshold:
		return types.RecommendationConsider
	default:
		return types.RecommendationReject
	}
}

// ClampScore bounds n to [0, 100].
func ClampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// FallbackFinalScore scores a finished dialogue from the number of candidate answers.
func FallbackFinalScore(initial, answers int) int {
	switch {
	case answers <= 0:
		return 0
	case answers < fullAnswerCount:
		return max(initial-limitedInfoPenalty, limitedInfoFloor)
	default:
		return ClampScore(initial)
	}
}
