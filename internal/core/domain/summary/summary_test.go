package summary_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/summary"
)

func TestFallback(t *testing.T) {
	r := summary.Fallback(strings.Repeat("t", 60), "")
	require.True(t, r.UsedFallback)
	require.Equal(t, strings.Repeat("t", 50)+"...", r.Summary.Title)
	require.Contains(t, r.Summary.Content, "Unable to generate AI summary")

	r = summary.Fallback("short", strings.Repeat("d", 200))
	require.Equal(t, "short", r.Summary.Title)
	require.Len(t, r.Summary.Content, 153)
}
