package db

import (
	"strings"
	"testing"

	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, "0001_smartbot", migrations[0].Version)
	for i, m := range migrations {
		assert.Len(t, m.Checksum, 64, m.Version)
		assert.NotEmpty(t, strings.TrimSpace(m.SQL), m.Version)
		if i > 0 {
			assert.Less(t, migrations[i-1].Version, m.Version)
		}
	}

	again, err := Migrations()
	require.NoError(t, err)
	assert.Equal(t, migrations[0].Checksum, again[0].Checksum)
}

func TestMigrations_CreatesEngineTables(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)

	schema := migrations[0].SQL
	for _, table := range []string{
		"users", "jobs", "resumes", "applications",
		"analysis_sessions", "session_messages", "candidate_analyses", "analysis_categories",
	} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

func TestJSONList(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{name: "nil becomes empty array", input: nil, want: `[]`},
		{name: "empty", input: []string{}, want: `[]`},
		{name: "values", input: []string{"Go", "SQL"}, want: `["Go","SQL"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := jsonList(tt.input)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestDecodeList(t *testing.T) {
	t.Run("null column", func(t *testing.T) {
		got, err := decodeList[string](nil)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("json null", func(t *testing.T) {
		got, err := decodeList[string]([]byte("null"))
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("clarifications", func(t *testing.T) {
		got, err := decodeList[types.Clarification]([]byte(`[{"category":"location","reason":"Clarify","answer":"Yes"}]`))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, types.Clarification{Category: "location", Reason: "Clarify", Answer: "Yes"}, got[0])
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := decodeList[string]([]byte(`{"not":"a list"}`))
		assert.Error(t, err)
	})
}

func TestAnalysisListsRoundTrip(t *testing.T) {
	a := &types.CandidateAnalysis{
		Strengths:      []string{"Go"},
		Clarifications: []types.Clarification{{Category: "education", Answer: "BSc"}},
	}
	l, err := encodeLists(a)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(l.weaknesses))

	var out types.CandidateAnalysis
	require.NoError(t, l.decode(&out))
	assert.Equal(t, a.Strengths, out.Strengths)
	assert.Equal(t, a.Clarifications, out.Clarifications)
	assert.Equal(t, []string{}, out.KeyInsights)
}

func TestNullTime(t *testing.T) {
	var zero types.Message
	assert.Nil(t, nullTime(zero.CreatedAt))
}
