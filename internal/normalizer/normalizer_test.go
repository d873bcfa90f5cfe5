package normalizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forge9/codeindex/internal/model"
)

func assertCoverage(t *testing.T, blocks []model.Block, n int) {
	t.Helper()
	require.NotEmpty(t, blocks)
	require.Equal(t, 1, blocks[0].StartLine)
	require.Equal(t, n, blocks[len(blocks)-1].EndLine)
	prevEnd := 0
	for i, b := range blocks {
		require.GreaterOrEqual(t, b.StartLine, 1)
		require.LessOrEqual(t, b.EndLine, n)
		require.LessOrEqual(t, b.StartLine, b.EndLine)
		if i > 0 {
			require.Equal(t, prevEnd+1, b.StartLine, "block %d must start exactly after previous end", i)
		}
		prevEnd = b.EndLine
	}
}

func TestNormalizeCleanInputIsUnchanged(t *testing.T) {
	raw := []model.Block{
		{StartLine: 1, EndLine: 10},
		{StartLine: 11, EndLine: 25},
		{StartLine: 26, EndLine: 42},
	}
	out, report := Normalize(raw, 42)
	assertCoverage(t, out, 42)
	require.Equal(t, 3, report.BlockCount)
	require.Zero(t, report.GapCount)
	require.Zero(t, report.OverlapCount)
}

func TestNormalizeRepairsGapByMidpoint(t *testing.T) {
	raw := []model.Block{
		{StartLine: 1, EndLine: 10},
		{StartLine: 20, EndLine: 42},
	}
	out, report := Normalize(raw, 42)
	assertCoverage(t, out, 42)
	require.Len(t, out, 2)
	require.Equal(t, 15, out[0].EndLine) // midpoint = (10+20)//2 = 15
	require.Equal(t, 16, out[1].StartLine)
	require.Equal(t, 1, report.GapCount)
}

func TestNormalizeRepairsOverlapByClampingStart(t *testing.T) {
	raw := []model.Block{
		{StartLine: 1, EndLine: 20},
		{StartLine: 15, EndLine: 42},
	}
	out, report := Normalize(raw, 42)
	assertCoverage(t, out, 42)
	require.Len(t, out, 2)
	require.Equal(t, 20, out[0].EndLine)
	require.Equal(t, 21, out[1].StartLine)
	require.Equal(t, 1, report.OverlapCount)
}

func TestNormalizeEmptyInputProducesFallback(t *testing.T) {
	out, _ := Normalize(nil, 42)
	require.Len(t, out, 1)
	require.Equal(t, 1, out[0].StartLine)
	require.Equal(t, 42, out[0].EndLine)
	require.Equal(t, model.KindLogicBlock, out[0].Kind)
}

func TestNormalizeOutOfRangeBlocksAreClamped(t *testing.T) {
	raw := []model.Block{
		{StartLine: -5, EndLine: 10},
		{StartLine: 11, EndLine: 1000},
	}
	out, report := Normalize(raw, 42)
	assertCoverage(t, out, 42)
	require.Positive(t, report.OutOfBoundsClamps)
}

func TestNormalizeDropsDegenerateBlockAfterClamp(t *testing.T) {
	raw := []model.Block{
		{StartLine: 1, EndLine: 10},
		{StartLine: 1000, EndLine: 2000}, // entirely out of range, clamps to start>end
		{StartLine: 11, EndLine: 42},
	}
	out, _ := Normalize(raw, 42)
	assertCoverage(t, out, 42)
	require.Len(t, out, 2)
}
