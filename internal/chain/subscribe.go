package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"stakingScope/internal/model"
)

const subscribeNamespace = "staking"

// subscribe opens a gateway subscription and forwards decoded payloads to
// sink. Payloads that fail to decode are logged and skipped; the returned
// subscription fails only when the underlying one does.
func subscribe[T any](
	ctx context.Context,
	c *Client,
	sink chan<- T,
	decode func(json.RawMessage) (T, bool, error),
	topic string,
	args ...any,
) (event.Subscription, error) {
	raw := make(chan json.RawMessage, 16)
	sub, err := c.rpcClient.Subscribe(ctx, subscribeNamespace, raw, append([]any{topic}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %w", ErrQueryUnavailable, topic, err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case msg := <-raw:
				v, ok, err := decode(msg)
				if err != nil {
					c.logger.Warn("decode subscription payload", zap.String("topic", topic), zap.Error(err))
					continue
				}
				if !ok {
					continue
				}
				select {
				case sink <- v:
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				if err != nil {
					return fmt.Errorf("%w: %s: %w", ErrQueryUnavailable, topic, err)
				}
				return nil
			case <-quit:
				return nil
			}
		}
	}), nil
}

func always[T any](decode func(json.RawMessage) (T, error)) func(json.RawMessage) (T, bool, error) {
	return func(raw json.RawMessage) (T, bool, error) {
		v, err := decode(raw)
		return v, err == nil, err
	}
}

// SubscribeNewHeads streams best block numbers.
func (c *Client) SubscribeNewHeads(ctx context.Context, sink chan<- uint64) (event.Subscription, error) {
	return subscribe(ctx, c, sink, always(DecodeHeader), "newHeads")
}

// SubscribeCurrentEra streams the current era on every change.
func (c *Client) SubscribeCurrentEra(ctx context.Context, sink chan<- model.EraIndex) (event.Subscription, error) {
	return subscribe(ctx, c, sink, always(DecodeEra), "currentEra")
}

// SubscribeNextEraStartingBlock streams the block the next era starts at.
func (c *Client) SubscribeNextEraStartingBlock(ctx context.Context, sink chan<- uint64) (event.Subscription, error) {
	return subscribe(ctx, c, sink, always(DecodeBlockNumber), "nextEraStartingBlock")
}

// SubscribeCoreEraStake streams a core's snapshot. Pushed payloads must carry
// their era.
func (c *Client) SubscribeCoreEraStake(ctx context.Context, coreID uint32, sink chan<- model.EraSnapshot) (event.Subscription, error) {
	decode := func(raw json.RawMessage) (model.EraSnapshot, bool, error) {
		var header struct {
			Era json.RawMessage `json:"era"`
		}
		if err := decodeObject("coreEraStake", raw, &header); err != nil {
			return model.EraSnapshot{}, false, err
		}
		if isNull(header.Era) && !isNull(raw) {
			return model.EraSnapshot{}, false, decodeErr("coreEraStake.era", raw, fmt.Errorf("missing value"))
		}
		return DecodeEraSnapshot(coreID, 0, raw)
	}
	return subscribe(ctx, c, sink, decode, "coreEraStake", coreID)
}

// SubscribeStakerInfo streams the account's position on a core. An empty
// record is delivered as a removed position.
func (c *Client) SubscribeStakerInfo(ctx context.Context, coreID uint32, account string, sink chan<- model.StakePosition) (event.Subscription, error) {
	decode := func(raw json.RawMessage) (model.StakePosition, bool, error) {
		pos, ok, err := DecodeStakerInfo(coreID, account, raw)
		if err != nil {
			return model.StakePosition{}, false, err
		}
		if !ok {
			pos = model.RemovedPosition(coreID, account)
		}
		return pos, true, nil
	}
	return subscribe(ctx, c, sink, decode, "generalStakerInfo", coreID, account)
}
