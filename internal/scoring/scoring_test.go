package scoring

import (
	"testing"

	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestCategoryScore(t *testing.T) {
	tests := []struct {
		severity types.Severity
		want     int
	}{
		{types.SeverityLow, 80},
		{types.SeverityMedium, 60},
		{types.SeverityHigh, 30},
		{"critical", 60},
		{"", 60},
	}
	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryScore(tt.severity))
		})
	}
}

func TestRecommendationFromScore(t *testing.T) {
	tests := []struct {
		score int
		want  types.Recommendation
	}{
		{100, types.RecommendationRecommend},
		{80, types.RecommendationRecommend},
		{79, types.RecommendationConsider},
		{60, types.RecommendationConsider},
		{59, types.RecommendationReject},
		{0, types.RecommendationReject},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecommendationFromScore(tt.score), "score %d", tt.score)
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 100, ClampScore(140))
	assert.Equal(t, 42, ClampScore(42))
}

func TestFallbackFinalScore(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		answers int
		want    int
	}{
		{"no answers", 75, 0, 0},
		{"one answer", 75, 1, 55},
		{"two answers", 75, 2, 55},
		{"limited info floor", 40, 1, 30},
		{"three answers keeps initial", 75, 3, 75},
		{"many answers keeps initial", 90, 7, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackFinalScore(tt.initial, tt.answers))
		})
	}
}
