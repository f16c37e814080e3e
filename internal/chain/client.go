package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"stakingScope/internal/model"
)

var ErrQueryUnavailable = errors.New("chain query unavailable")

// Client wraps a go-ethereum RPC client speaking the staking gateway API.
type Client struct {
	rpcClient *rpc.Client
	logger    *zap.Logger
}

// Dial connects to the gateway. Subscriptions need a websocket or IPC URL.
func Dial(ctx context.Context, rpcURL string, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %w", ErrQueryUnavailable, err)
	}
	return NewClient(rpcClient, logger), nil
}

// NewClient wraps an existing RPC client.
func NewClient(rpcClient *rpc.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{rpcClient: rpcClient, logger: logger}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// RPC exposes the underlying client for other gateway namespaces.
func (c *Client) RPC() *rpc.Client {
	return c.rpcClient
}

func (c *Client) call(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.rpcClient.CallContext(ctx, &raw, method, args...); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQueryUnavailable, method, err)
	}
	return raw, nil
}

// CurrentEra returns the chain's current era.
func (c *Client) CurrentEra(ctx context.Context) (model.EraIndex, error) {
	raw, err := c.call(ctx, "staking_currentEra")
	if err != nil {
		return 0, err
	}
	return DecodeEra(raw)
}

// BlocksPerEra returns the era length in blocks.
func (c *Client) BlocksPerEra(ctx context.Context) (uint64, error) {
	raw, err := c.call(ctx, "staking_blocksPerEra")
	if err != nil {
		return 0, err
	}
	return decodeUint64("blocksPerEra", raw)
}

// ChainProperties returns the staking constants.
func (c *Client) ChainProperties(ctx context.Context) (model.ChainProperties, error) {
	raw, err := c.call(ctx, "staking_chainProperties")
	if err != nil {
		return model.ChainProperties{}, err
	}
	return DecodeChainProperties(raw)
}

// NextEraStartingBlock returns the block the next era starts at.
func (c *Client) NextEraStartingBlock(ctx context.Context) (uint64, error) {
	raw, err := c.call(ctx, "staking_nextEraStartingBlock")
	if err != nil {
		return 0, err
	}
	return DecodeBlockNumber(raw)
}

// LatestBlockNumber returns the number of the best block.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	raw, err := c.call(ctx, "chain_getHeader")
	if err != nil {
		return 0, err
	}
	return DecodeHeader(raw)
}

// RegisteredCores lists every registered core.
func (c *Client) RegisteredCores(ctx context.Context) ([]model.StakingCore, error) {
	raw, err := c.call(ctx, "staking_registeredCores")
	if err != nil {
		return nil, err
	}
	return DecodeCores(raw)
}

// CoreEraStake returns a core's stake snapshot for era. It reports false when
// the core has no record for that era.
func (c *Client) CoreEraStake(ctx context.Context, coreID uint32, era model.EraIndex) (model.EraSnapshot, bool, error) {
	raw, err := c.call(ctx, "staking_coreEraStake", coreID, uint32(era))
	if err != nil {
		return model.EraSnapshot{}, false, err
	}
	return DecodeEraSnapshot(coreID, era, raw)
}

// StakerInfo returns the account's position on a core. It reports false when
// the account has never staked there.
func (c *Client) StakerInfo(ctx context.Context, coreID uint32, account string) (model.StakePosition, bool, error) {
	raw, err := c.call(ctx, "staking_generalStakerInfo", coreID, account)
	if err != nil {
		return model.StakePosition{}, false, err
	}
	return DecodeStakerInfo(coreID, account, raw)
}

// NetworkTotals returns issuance and the network-wide stake for era.
func (c *Client) NetworkTotals(ctx context.Context, era model.EraIndex) (model.NetworkTotals, error) {
	raw, err := c.call(ctx, "balances_issuance")
	if err != nil {
		return model.NetworkTotals{}, err
	}
	total, active, err := DecodeIssuance(raw)
	if err != nil {
		return model.NetworkTotals{}, err
	}

	raw, err = c.call(ctx, "staking_generalEraInfo", uint32(era))
	if err != nil {
		return model.NetworkTotals{}, err
	}
	staked, err := DecodeEraInfo(raw)
	if err != nil {
		return model.NetworkTotals{}, err
	}
	return model.NetworkTotals{Era: era, TotalIssuance: total, ActiveIssuance: active, EraStaked: eraStakedOrZero(staked)}, nil
}

// AccountBalance returns the balance breakdown including the staking lock.
func (c *Client) AccountBalance(ctx context.Context, address string) (model.AccountBalance, error) {
	raw, err := c.call(ctx, "system_account", address)
	if err != nil {
		return model.AccountBalance{}, err
	}
	balance, err := DecodeAccount(raw)
	if err != nil {
		return model.AccountBalance{}, err
	}

	raw, err = c.call(ctx, "staking_ledger", address)
	if err != nil {
		return model.AccountBalance{}, err
	}
	if balance.Locked, err = DecodeLedger(raw); err != nil {
		return model.AccountBalance{}, err
	}
	return balance, nil
}

// eraStakedOrZero treats a missing era record as nothing staked.
func eraStakedOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
