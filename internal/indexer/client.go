package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/machinebox/graphql"
	"go.uber.org/zap"

	"stakingScope/internal/model"
	"stakingScope/internal/ss58"
)

var ErrQueryUnavailable = errors.New("indexer query unavailable")

const stakerTotalsQuery = `
query totalRewardsClaimed($accountId: String) {
  stakers(where: {account_eq: $accountId}) {
    latestClaimBlock
    totalRewards
    totalUnclaimed
  }
}`

const coreTotalsQuery = `
query totalRewardsCoreClaimed($coreId: Int) {
  cores(where: {coreId_eq: $coreId}) {
    latestClaimBlock
    totalRewards
    totalUnclaimed
    totalStaked
    coreId
    numberOfStakers
  }
}`

const allCoreTotalsQuery = `
query totalRewardsCoresClaimed {
  cores {
    latestClaimBlock
    totalRewards
    totalUnclaimed
    totalStaked
    coreId
    numberOfStakers
  }
}`

// Client queries the reward indexer over GraphQL.
type Client struct {
	gql    *graphql.Client
	prefix uint16
	logger *zap.Logger
}

// NewClient builds a client for endpoint. Accounts are re-encoded with the
// network prefix before querying.
func NewClient(endpoint string, prefix uint16, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	gql := graphql.NewClient(endpoint)
	gql.Log = func(s string) { logger.Debug(s) }
	return &Client{gql: gql, prefix: prefix, logger: logger}
}

func (c *Client) run(ctx context.Context, req *graphql.Request, resp any) error {
	if err := c.gql.Run(ctx, req, resp); err != nil {
		return fmt.Errorf("%w: %w", ErrQueryUnavailable, err)
	}
	return nil
}

// StakerTotals returns the account's reward totals. It reports false when the
// indexer has no row for the account.
func (c *Client) StakerTotals(ctx context.Context, account string) (model.StakerTotals, bool, error) {
	address, err := ss58.Reencode(account, c.prefix)
	if err != nil {
		return model.StakerTotals{}, false, fmt.Errorf("encode account: %w", err)
	}

	req := graphql.NewRequest(stakerTotalsQuery)
	req.Var("accountId", address)
	var resp stakersResponse
	if err := c.run(ctx, req, &resp); err != nil {
		return model.StakerTotals{}, false, err
	}
	if len(resp.Stakers) == 0 {
		return model.StakerTotals{}, false, nil
	}
	totals, err := resp.Stakers[0].toModel(account)
	if err != nil {
		return model.StakerTotals{}, false, err
	}
	return totals, true, nil
}

// CoreTotals returns one core's totals. It reports false when the indexer has
// no row for the core.
func (c *Client) CoreTotals(ctx context.Context, coreID uint32) (model.CoreTotals, bool, error) {
	req := graphql.NewRequest(coreTotalsQuery)
	req.Var("coreId", coreID)
	var resp coresResponse
	if err := c.run(ctx, req, &resp); err != nil {
		return model.CoreTotals{}, false, err
	}
	if len(resp.Cores) == 0 {
		return model.CoreTotals{}, false, nil
	}
	totals, err := resp.Cores[0].toModel()
	if err != nil {
		return model.CoreTotals{}, false, err
	}
	return totals, true, nil
}

// AllCoreTotals returns the totals of every core the indexer knows.
func (c *Client) AllCoreTotals(ctx context.Context) ([]model.CoreTotals, error) {
	var resp coresResponse
	if err := c.run(ctx, graphql.NewRequest(allCoreTotalsQuery), &resp); err != nil {
		return nil, err
	}
	out := make([]model.CoreTotals, 0, len(resp.Cores))
	for _, row := range resp.Cores {
		totals, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, totals)
	}
	return out, nil
}
