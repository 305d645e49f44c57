package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunningBalanceContinuity(t *testing.T) {
	buckets := []string{"2024-01", "2024-02", "2024-03", "2024-04"}
	totals := map[string]Totals{
		"2024-01": {Income: 100, Expense: -40, Net: 60},
		"2024-02": {Income: 0, Expense: -90, Net: -90},
		// 2024-03 intentionally absent
		"2024-04": {Income: 10, Net: 10},
	}
	got := RunningBalance(1000, buckets, totals)
	require.Len(t, got, 4)

	assert.Equal(t, 1000.0, got[0].Opening)
	for i := 0; i < len(got)-1; i++ {
		assert.Equal(t, got[i].Closing, got[i+1].Opening)
	}
	assert.Equal(t, got[2].Opening, got[2].Closing)
	assert.InDelta(t, 1000+60-90+10, got[3].Closing, 1e-9)
}

func TestRunningBalanceEmpty(t *testing.T) {
	assert.Empty(t, RunningBalance(10, nil, nil))
}

func TestInitialBalance(t *testing.T) {
	items := []Item{
		{Date: "2023-12-31", Amount: 500},
		{Date: "2024-01-01", Amount: 70},
		{Date: "garbage", Amount: 1e6},
		{Date: "2023-06-30", Amount: -20},
	}
	assert.Equal(t, 480.0, InitialBalance(items, mustDate(t, "2024-01-01")))
	assert.Equal(t, 0.0, InitialBalance(nil, mustDate(t, "2024-01-01")))
}
