package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"stakingScope/internal/metrics"
	"stakingScope/internal/model"
)

// Status is the lifecycle state of a submitted batch.
type Status string

const (
	StatusInvalid   Status = "invalid"
	StatusExecuted  Status = "executed"
	StatusFinalized Status = "finalized"
	StatusDropped   Status = "dropped"
)

// Terminal reports whether no further status follows.
func (s Status) Terminal() bool {
	return s == StatusInvalid || s == StatusFinalized || s == StatusDropped
}

func parseStatus(v string) (Status, error) {
	switch s := Status(v); s {
	case StatusInvalid, StatusExecuted, StatusFinalized, StatusDropped:
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", v)
}

var ErrNoTerminalStatus = errors.New("submission ended without a terminal status")

// Submitter signs and submits a plan on behalf of account.
type Submitter interface {
	Submit(ctx context.Context, plan model.ClaimBatchPlan, account string) (<-chan Status, error)
}

// Call is one runtime call of a batch as the signing gateway expects it.
type Call struct {
	Pallet string   `json:"pallet"`
	Method string   `json:"method"`
	Args   []string `json:"args"`
}

const stakingPallet = "ocifStaking"

// Calls converts a plan into gateway calls, preserving op order.
func Calls(plan model.ClaimBatchPlan) []Call {
	calls := make([]Call, 0, len(plan.Ops))
	for _, op := range plan.Ops {
		core := strconv.FormatUint(uint64(op.CoreID), 10)
		switch op.Kind {
		case model.OpClaim:
			calls = append(calls, Call{Pallet: stakingPallet, Method: "stakerClaimRewards", Args: []string{core}})
		case model.OpRestake:
			calls = append(calls, Call{Pallet: stakingPallet, Method: "stake", Args: []string{core, model.FormatAmount(op.Amount)}})
		}
	}
	return calls
}

// RPCSubmitter submits batches through a signing gateway's author namespace.
type RPCSubmitter struct {
	rpcClient *rpc.Client
	logger    *zap.Logger
}

func NewRPCSubmitter(rpcClient *rpc.Client, logger *zap.Logger) *RPCSubmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCSubmitter{rpcClient: rpcClient, logger: logger}
}

// Submit sends the batch and streams its statuses. The channel is closed
// after the first terminal status, on subscription failure, or when ctx ends.
func (s *RPCSubmitter) Submit(ctx context.Context, plan model.ClaimBatchPlan, account string) (<-chan Status, error) {
	if len(plan.Ops) == 0 {
		return nil, fmt.Errorf("submit: empty plan")
	}

	raw := make(chan json.RawMessage, 4)
	sub, err := s.rpcClient.Subscribe(ctx, "author", raw, "submitAndWatchBatch", Calls(plan), account)
	if err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}

	out := make(chan Status, 4)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case msg := <-raw:
				st, err := decodeStatus(msg)
				if err != nil {
					s.logger.Warn("decode submission status", zap.Error(err))
					continue
				}
				select {
				case out <- st:
				case <-ctx.Done():
					return
				}
				if st.Terminal() {
					return
				}
			case err := <-sub.Err():
				if err != nil {
					s.logger.Warn("submission subscription failed", zap.Error(err))
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// decodeStatus accepts a bare status string or an object with a status field.
func decodeStatus(raw json.RawMessage) (Status, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseStatus(s)
	}
	var obj struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	return parseStatus(obj.Status)
}

// Track consumes statuses until the first terminal one and returns it.
// onProgress, if set, sees executed once and the terminal status once.
func Track(ctx context.Context, statuses <-chan Status, onProgress func(Status)) (Status, error) {
	executed := false
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case st, ok := <-statuses:
			if !ok {
				return "", ErrNoTerminalStatus
			}
			if st == StatusExecuted {
				if executed {
					continue
				}
				executed = true
			}
			metrics.SubmissionStatus.WithLabelValues(string(st)).Inc()
			if onProgress != nil {
				onProgress(st)
			}
			if st.Terminal() {
				return st, nil
			}
		}
	}
}
