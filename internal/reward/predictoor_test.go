package reward

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcPredictoorRewards(t *testing.T) {
	perf := []Performance{
		{Recipient: "0xA", Subject: "c1", Revenue: d("3")},
		{Recipient: "0xb", Subject: "c1", Revenue: d("1")},
		{Recipient: "0xc", Subject: "c1", Revenue: d("-5")},
		{Recipient: "0xa", Subject: "c2", Revenue: d("2")},
	}

	table, err := CalcPredictoorRewards(perf, d("100"))
	require.NoError(t, err)

	assert.True(t, table["c1"]["0xa"].Equal(d("37.5")))
	assert.True(t, table["c1"]["0xb"].Equal(d("12.5")))
	assert.True(t, table["c1"]["0xc"].IsZero())
	assert.True(t, table["c2"]["0xa"].Equal(d("50")))

	flat := Flatten(table)
	assert.True(t, flat["0xa"].Equal(d("87.5")))
	assert.True(t, flat.Total().Equal(d("100")))
}

func TestCalcPredictoorRewardsNeverExceedsTotal(t *testing.T) {
	perf := []Performance{
		{Recipient: "0x1", Subject: "c1", Revenue: d("1")},
		{Recipient: "0x2", Subject: "c1", Revenue: d("1")},
		{Recipient: "0x3", Subject: "c1", Revenue: d("1")},
		{Recipient: "0x1", Subject: "c2", Revenue: d("1")},
		{Recipient: "0x1", Subject: "c3", Revenue: d("1")},
	}
	total := d("10")

	table, err := CalcPredictoorRewards(perf, total)
	require.NoError(t, err)

	sum := Flatten(table).Total()
	assert.True(t, sum.LessThanOrEqual(total), "sum %s exceeds total", sum)
	assert.True(t, total.Sub(sum).LessThan(decimal.New(1, -15)), "sum %s too far from total", sum)
}

func TestCalcPredictoorRewardsNoPositiveRevenue(t *testing.T) {
	table, err := CalcPredictoorRewards([]Performance{
		{Recipient: "0x1", Subject: "c1", Revenue: d("-1")},
	}, d("10"))
	require.NoError(t, err)
	assert.True(t, table["c1"]["0x1"].IsZero())
}

func TestCalcPredictoorRewardsInvalid(t *testing.T) {
	_, err := CalcPredictoorRewards(nil, d("-1"))
	assert.Error(t, err)

	_, err = CalcPredictoorRewards([]Performance{{Recipient: "0x1"}}, d("1"))
	assert.Error(t, err)

	table, err := CalcPredictoorRewards(nil, d("1"))
	require.NoError(t, err)
	assert.Empty(t, table)
}
