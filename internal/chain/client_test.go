package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stakingScope/internal/model"
)

type stakingAPI struct{}

func (stakingAPI) CurrentEra() uint32   { return 10 }
func (stakingAPI) BlocksPerEra() string { return "0x1c20" }

func (stakingAPI) ChainProperties() map[string]any {
	return map[string]any{"blocksPerEra": 7200, "maxStakersPerCore": "10000", "inflationErasPerYear": 365}
}

func (stakingAPI) NextEraStartingBlock() uint64 { return 72500 }

func (stakingAPI) RegisteredCores() []map[string]any {
	return []map[string]any{
		{"key": 0, "account": "owner0", "metadata": map[string]string{"name": "Zero"}},
		{"key": 1, "account": "owner1", "metadata": map[string]string{"name": "One"}},
	}
}

func (stakingAPI) CoreEraStake(coreID uint32, era uint32) map[string]any {
	if coreID == 9 {
		return nil
	}
	return map[string]any{"total": "0x3e8", "numberOfStakers": coreID + 1, "active": true}
}

func (stakingAPI) GeneralStakerInfo(coreID uint32, account string) map[string]any {
	if account != "alice" {
		return map[string]any{"stakes": []any{}}
	}
	return map[string]any{"stakes": []map[string]any{{"era": 4, "staked": "70"}, {"era": 8, "staked": "90"}}}
}

func (stakingAPI) GeneralEraInfo(era uint32) map[string]any {
	return map[string]any{"staked": "5000"}
}

func (stakingAPI) Ledger(address string) map[string]any {
	return map[string]any{"locked": "300"}
}

type stakingSubscriptions struct{}

func notifyAll(ctx context.Context, payloads ...any) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return nil, rpc.ErrNotificationsUnsupported
	}
	sub := notifier.CreateSubscription()
	go func() {
		for _, p := range payloads {
			if err := notifier.Notify(sub.ID, p); err != nil {
				return
			}
		}
	}()
	return sub, nil
}

func (stakingSubscriptions) NewHeads(ctx context.Context) (*rpc.Subscription, error) {
	return notifyAll(ctx, map[string]string{"number": "0x10"}, map[string]string{"number": "bad"}, map[string]string{"number": "0x11"})
}

func (stakingSubscriptions) CoreEraStake(ctx context.Context, coreID uint32) (*rpc.Subscription, error) {
	return notifyAll(ctx,
		map[string]any{"total": "1"},
		map[string]any{"era": 11, "total": "2"},
	)
}

func (stakingSubscriptions) GeneralStakerInfo(ctx context.Context, coreID uint32, account string) (*rpc.Subscription, error) {
	return notifyAll(ctx,
		map[string]any{"stakes": []any{}},
		map[string]any{"stakes": []map[string]any{{"era": 11, "staked": "5"}}},
	)
}

type chainAPI struct{}

func (chainAPI) GetHeader() map[string]string { return map[string]string{"number": "0x11b30"} }

type balancesAPI struct{}

func (balancesAPI) Issuance() map[string]string {
	return map[string]string{"totalIssuance": "10000", "inactiveIssuance": "1000"}
}

type systemAPI struct{}

func (systemAPI) Account(address string) map[string]any {
	return map[string]any{"data": map[string]string{"free": "1000", "reserved": "0", "frozen": "100"}}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("staking", stakingAPI{}))
	require.NoError(t, server.RegisterName("staking", stakingSubscriptions{}))
	require.NoError(t, server.RegisterName("chain", chainAPI{}))
	require.NoError(t, server.RegisterName("balances", balancesAPI{}))
	require.NoError(t, server.RegisterName("system", systemAPI{}))

	rpcClient := rpc.DialInProc(server)
	t.Cleanup(func() {
		rpcClient.Close()
		server.Stop()
	})
	return NewClient(rpcClient, zap.NewNop())
}

func TestClientQueries(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	era, err := c.CurrentEra(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.EraIndex(10), era)

	perEra, err := c.BlocksPerEra(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7200), perEra)

	props, err := c.ChainProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ChainProperties{BlocksPerEra: 7200, MaxStakersPerCore: 10000, InflationErasPerYear: 365}, props)

	next, err := c.NextEraStartingBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(72500), next)

	block, err := c.LatestBlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(72496), block)

	cores, err := c.RegisteredCores(ctx)
	require.NoError(t, err)
	require.Len(t, cores, 2)
	assert.Equal(t, "One", cores[1].Metadata.Name)
}

func TestClientCoreAndStaker(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	snap, ok, err := c.CoreEraStake(ctx, 1, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1000", snap.TotalStaked.String())
	assert.Equal(t, uint32(2), snap.NumberOfStakers)
	assert.Equal(t, model.EraIndex(10), snap.Era)

	_, ok, err = c.CoreEraStake(ctx, 9, 10)
	require.NoError(t, err)
	require.False(t, ok)

	pos, ok, err := c.StakerInfo(ctx, 1, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.EraIndex(4), pos.EarliestEra)
	assert.Equal(t, "90", pos.StakedAmount.String())

	_, ok, err = c.StakerInfo(ctx, 1, "bob")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClientNetworkAndBalance(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	totals, err := c.NetworkTotals(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "10000", totals.TotalIssuance.String())
	assert.Equal(t, "9000", totals.ActiveIssuance.String())
	assert.Equal(t, "5000", totals.EraStaked.String())

	balance, err := c.AccountBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "900", balance.Transferable().String())
	assert.Equal(t, "700", balance.Available().String())
}

func TestClientUnavailable(t *testing.T) {
	c := newTestClient(t)
	_, err := c.call(context.Background(), "staking_missing")
	require.True(t, errors.Is(err, ErrQueryUnavailable))
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	var zero T
	return zero
}

func TestSubscribeNewHeadsSkipsUndecodable(t *testing.T) {
	c := newTestClient(t)
	heads := make(chan uint64)
	sub, err := c.SubscribeNewHeads(context.Background(), heads)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Equal(t, uint64(0x10), receive(t, heads))
	assert.Equal(t, uint64(0x11), receive(t, heads))
}

func TestSubscribeCoreEraStakeRequiresEra(t *testing.T) {
	c := newTestClient(t)
	snaps := make(chan model.EraSnapshot)
	sub, err := c.SubscribeCoreEraStake(context.Background(), 3, snaps)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	snap := receive(t, snaps)
	assert.Equal(t, uint32(3), snap.CoreID)
	assert.Equal(t, model.EraIndex(11), snap.Era)
	assert.Equal(t, "2", snap.TotalStaked.String())
}

func TestSubscribeStakerInfoMarksEmptyRecords(t *testing.T) {
	c := newTestClient(t)
	positions := make(chan model.StakePosition)
	sub, err := c.SubscribeStakerInfo(context.Background(), 3, "alice", positions)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	removed := receive(t, positions)
	assert.True(t, removed.Removed)
	assert.Equal(t, uint32(3), removed.CoreID)
	assert.Equal(t, "alice", removed.Account)

	pos := receive(t, positions)
	assert.False(t, pos.Removed)
	assert.Equal(t, model.EraIndex(11), pos.Era)
	assert.Equal(t, "alice", pos.Account)
}

func TestUnsubscribeStopsForwarding(t *testing.T) {
	c := newTestClient(t)
	heads := make(chan uint64)
	sub, err := c.SubscribeNewHeads(context.Background(), heads)
	require.NoError(t, err)
	sub.Unsubscribe()

	select {
	case err, ok := <-sub.Err():
		require.False(t, ok, "unexpected error %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel not closed after unsubscribe")
	}
}
