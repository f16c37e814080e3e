package chain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakingScope/internal/model"
)

func TestDecodeAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "number", raw: `42`, want: "42"},
		{name: "decimal string", raw: `"1000000000000000000000"`, want: "1000000000000000000000"},
		{name: "hex string", raw: `"0x64"`, want: "100"},
		{name: "padded hex", raw: `"0x0000000000000064"`, want: "100"},
		{name: "hex zero", raw: `"0x0"`, want: "0"},
		{name: "large number", raw: `340282366920938463463374607431768211455`, want: "340282366920938463463374607431768211455"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAmount("amount", json.RawMessage(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestDecodeAmountRejects(t *testing.T) {
	for _, raw := range []string{`null`, `1.5`, `"abc"`, `true`, `{}`, `"0xzz"`} {
		_, err := decodeAmount("total", json.RawMessage(raw))
		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr), "raw %s: %v", raw, err)
		require.Equal(t, "total", decodeErr.Field)
	}
}

func TestDecodeUint32Range(t *testing.T) {
	_, err := decodeUint32("era", json.RawMessage(`4294967296`))
	require.Error(t, err)
	_, err = decodeUint32("era", json.RawMessage(`-1`))
	require.Error(t, err)
}

func TestDecodeEraSnapshot(t *testing.T) {
	raw := json.RawMessage(`{"total":"0x3e8","numberOfStakers":3,"rewardClaimed":true,"active":true}`)
	snap, ok, err := DecodeEraSnapshot(1, 10, raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.EraIndex(10), snap.Era)
	assert.Equal(t, "1000", snap.TotalStaked.String())
	assert.Equal(t, uint32(3), snap.NumberOfStakers)
	assert.True(t, snap.RewardClaimed)

	snap, ok, err = DecodeEraSnapshot(1, 10, json.RawMessage(`{"era":12,"total":1}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.EraIndex(12), snap.Era)

	_, ok, err = DecodeEraSnapshot(1, 10, json.RawMessage(`null`))
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = DecodeEraSnapshot(1, 10, json.RawMessage(`{"total":"lots"}`))
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, "coreEraStake.total", decodeErr.Field)
}

func TestDecodeStakerInfo(t *testing.T) {
	raw := json.RawMessage(`{"stakes":[{"era":3,"staked":"100"},{"era":5,"staked":"150"}]}`)
	pos, ok, err := DecodeStakerInfo(2, "alice", raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.EraIndex(5), pos.Era)
	assert.Equal(t, model.EraIndex(3), pos.EarliestEra)
	assert.Equal(t, "150", pos.StakedAmount.String())

	_, ok, err = DecodeStakerInfo(2, "alice", json.RawMessage(`{"stakes":[]}`))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecodeIssuanceAndAccount(t *testing.T) {
	total, active, err := DecodeIssuance(json.RawMessage(`{"totalIssuance":"1000","inactiveIssuance":"0x64"}`))
	require.NoError(t, err)
	assert.Equal(t, "1000", total.String())
	assert.Equal(t, "900", active.String())

	balance, err := DecodeAccount(json.RawMessage(`{"data":{"free":"500","reserved":"20","frozen":"100"}}`))
	require.NoError(t, err)
	assert.Equal(t, "380", balance.Transferable().String())

	locked, err := DecodeLedger(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Equal(t, "0", locked.String())
}

func TestDecodeCores(t *testing.T) {
	raw := json.RawMessage(`[{"key":"0x1","account":"owner","metadata":{"name":"One","description":"d","image":"https://x/1.png"}}]`)
	cores, err := DecodeCores(raw)
	require.NoError(t, err)
	require.Equal(t, []model.StakingCore{{
		ID:       1,
		Owner:    "owner",
		Metadata: model.CoreMetadata{Name: "One", Description: "d", ImageURL: "https://x/1.png"},
	}}, cores)
}
