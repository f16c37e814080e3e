package model

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPositionFromStakes(t *testing.T) {
	pos, ok := PositionFromStakes(1, "alice", []StakeEntry{
		{Era: 5, Staked: big.NewInt(100)},
		{Era: 3, Staked: big.NewInt(50)},
		{Era: 8, Staked: big.NewInt(150)},
	})
	require.True(t, ok)
	require.Equal(t, EraIndex(8), pos.Era)
	require.Equal(t, EraIndex(3), pos.EarliestEra)
	require.Equal(t, "150", pos.StakedAmount.String())

	_, ok = PositionFromStakes(1, "alice", nil)
	require.False(t, ok)
}

func TestPositionFromStakesCopiesAmount(t *testing.T) {
	staked := big.NewInt(10)
	pos, ok := PositionFromStakes(1, "alice", []StakeEntry{{Era: 1, Staked: staked}})
	require.True(t, ok)
	staked.SetInt64(99)
	require.Equal(t, "10", pos.StakedAmount.String())
}

func TestEqualAmount(t *testing.T) {
	require.True(t, EqualAmount(nil, nil))
	require.False(t, EqualAmount(nil, big.NewInt(0)))
	require.True(t, EqualAmount(big.NewInt(7), big.NewInt(7)))
}

func TestAccountBalance(t *testing.T) {
	b := AccountBalance{
		Free:     big.NewInt(1000),
		Reserved: big.NewInt(100),
		Frozen:   big.NewInt(300),
		Locked:   big.NewInt(1200),
	}
	require.Equal(t, "600", b.Transferable().String())
	require.Equal(t, "0", b.Available().String())
	require.Equal(t, "0", AccountBalance{}.Transferable().String())
}

func TestPlanRecordAmountsAreStrings(t *testing.T) {
	plan := ClaimBatchPlan{
		Account: "alice",
		Era:     10,
		Ops:     []Op{ClaimOp(1), RestakeOp(1, new(big.Int).Lsh(big.NewInt(1), 100))},
	}
	data, err := json.Marshal(NewPlanRecord(plan, time.Unix(0, 0)))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	ops := decoded["ops"].([]interface{})
	require.Len(t, ops, 2)
	_, hasAmount := ops[0].(map[string]interface{})["amount"]
	require.False(t, hasAmount)
	require.Equal(t, "1267650600228229401496703205376", ops[1].(map[string]interface{})["amount"])
}
