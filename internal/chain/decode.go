package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"stakingScope/internal/model"
)

// DecodeError reports a payload field that could not be decoded.
type DecodeError struct {
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("decode %s %q", e.Field, e.Value)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(field string, raw json.RawMessage, err error) error {
	value := string(raw)
	if len(value) > 64 {
		value = value[:64] + "..."
	}
	return &DecodeError{Field: field, Value: value, Err: err}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeAmount accepts a JSON number, a decimal string or a 0x hex string.
func decodeAmount(field string, raw json.RawMessage) (*big.Int, error) {
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		return nil, decodeErr(field, raw, fmt.Errorf("missing value"))
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, decodeErr(field, raw, err)
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			digits := strings.TrimLeft(s[2:], "0")
			if digits == "" {
				digits = "0"
			}
			v, err := hexutil.DecodeBig("0x" + digits)
			if err != nil {
				return nil, decodeErr(field, raw, err)
			}
			return v, nil
		}
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, decodeErr(field, raw, fmt.Errorf("not an integer"))
		}
		return v, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var num json.Number
	if err := dec.Decode(&num); err != nil {
		return nil, decodeErr(field, raw, err)
	}
	v, ok := new(big.Int).SetString(num.String(), 10)
	if !ok {
		return nil, decodeErr(field, raw, fmt.Errorf("not an integer"))
	}
	return v, nil
}

func decodeUint64(field string, raw json.RawMessage) (uint64, error) {
	v, err := decodeAmount(field, raw)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, decodeErr(field, raw, fmt.Errorf("out of range"))
	}
	return v.Uint64(), nil
}

func decodeUint32(field string, raw json.RawMessage) (uint32, error) {
	v, err := decodeUint64(field, raw)
	if err != nil {
		return 0, err
	}
	if v > uint64(^uint32(0)) {
		return 0, decodeErr(field, raw, fmt.Errorf("out of range"))
	}
	return uint32(v), nil
}

func decodeObject(field string, raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return decodeErr(field, raw, err)
	}
	return nil
}

// DecodeEra decodes an era index.
func DecodeEra(raw json.RawMessage) (model.EraIndex, error) {
	v, err := decodeUint32("era", raw)
	return model.EraIndex(v), err
}

// DecodeBlockNumber decodes a bare block number.
func DecodeBlockNumber(raw json.RawMessage) (uint64, error) {
	return decodeUint64("block", raw)
}

type headerPayload struct {
	Number json.RawMessage `json:"number"`
}

// DecodeHeader returns the number of a block header.
func DecodeHeader(raw json.RawMessage) (uint64, error) {
	var p headerPayload
	if err := decodeObject("header", raw, &p); err != nil {
		return 0, err
	}
	return decodeUint64("header.number", p.Number)
}

type propertiesPayload struct {
	BlocksPerEra         json.RawMessage `json:"blocksPerEra"`
	MaxStakersPerCore    json.RawMessage `json:"maxStakersPerCore"`
	InflationErasPerYear json.RawMessage `json:"inflationErasPerYear"`
}

// DecodeChainProperties decodes the staking constants. Only blocksPerEra is
// required.
func DecodeChainProperties(raw json.RawMessage) (model.ChainProperties, error) {
	var p propertiesPayload
	if err := decodeObject("properties", raw, &p); err != nil {
		return model.ChainProperties{}, err
	}
	var out model.ChainProperties
	var err error
	if out.BlocksPerEra, err = decodeUint64("properties.blocksPerEra", p.BlocksPerEra); err != nil {
		return model.ChainProperties{}, err
	}
	if !isNull(p.MaxStakersPerCore) {
		if out.MaxStakersPerCore, err = decodeUint32("properties.maxStakersPerCore", p.MaxStakersPerCore); err != nil {
			return model.ChainProperties{}, err
		}
	}
	if !isNull(p.InflationErasPerYear) {
		if out.InflationErasPerYear, err = decodeUint32("properties.inflationErasPerYear", p.InflationErasPerYear); err != nil {
			return model.ChainProperties{}, err
		}
	}
	return out, nil
}

type corePayload struct {
	Key      json.RawMessage    `json:"key"`
	Account  string             `json:"account"`
	Metadata model.CoreMetadata `json:"metadata"`
}

// DecodeCores decodes the registered core listing.
func DecodeCores(raw json.RawMessage) ([]model.StakingCore, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []corePayload
	if err := decodeObject("cores", raw, &items); err != nil {
		return nil, err
	}
	out := make([]model.StakingCore, 0, len(items))
	for _, item := range items {
		id, err := decodeUint32("core.key", item.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, model.StakingCore{ID: id, Owner: item.Account, Metadata: item.Metadata})
	}
	return out, nil
}

type eraStakePayload struct {
	Era             json.RawMessage `json:"era"`
	Total           json.RawMessage `json:"total"`
	NumberOfStakers json.RawMessage `json:"numberOfStakers"`
	RewardClaimed   bool            `json:"rewardClaimed"`
	Active          bool            `json:"active"`
}

// DecodeEraSnapshot decodes a core's era stake. The payload's era, when
// present, wins over era; a null payload reports false.
func DecodeEraSnapshot(coreID uint32, era model.EraIndex, raw json.RawMessage) (model.EraSnapshot, bool, error) {
	if isNull(raw) {
		return model.EraSnapshot{}, false, nil
	}
	var p eraStakePayload
	if err := decodeObject("coreEraStake", raw, &p); err != nil {
		return model.EraSnapshot{}, false, err
	}
	if !isNull(p.Era) {
		v, err := decodeUint32("coreEraStake.era", p.Era)
		if err != nil {
			return model.EraSnapshot{}, false, err
		}
		era = model.EraIndex(v)
	}
	total, err := decodeAmount("coreEraStake.total", p.Total)
	if err != nil {
		return model.EraSnapshot{}, false, err
	}
	var stakers uint32
	if !isNull(p.NumberOfStakers) {
		if stakers, err = decodeUint32("coreEraStake.numberOfStakers", p.NumberOfStakers); err != nil {
			return model.EraSnapshot{}, false, err
		}
	}
	return model.EraSnapshot{
		CoreID:          coreID,
		Era:             era,
		TotalStaked:     total,
		NumberOfStakers: stakers,
		RewardClaimed:   p.RewardClaimed,
		Active:          p.Active,
	}, true, nil
}

type stakerInfoPayload struct {
	Stakes []struct {
		Era    json.RawMessage `json:"era"`
		Staked json.RawMessage `json:"staked"`
	} `json:"stakes"`
}

// DecodeStakerInfo decodes an account's staker record on a core. An empty
// record reports false.
func DecodeStakerInfo(coreID uint32, account string, raw json.RawMessage) (model.StakePosition, bool, error) {
	if isNull(raw) {
		return model.StakePosition{}, false, nil
	}
	var p stakerInfoPayload
	if err := decodeObject("generalStakerInfo", raw, &p); err != nil {
		return model.StakePosition{}, false, err
	}
	stakes := make([]model.StakeEntry, 0, len(p.Stakes))
	for _, s := range p.Stakes {
		era, err := decodeUint32("generalStakerInfo.stakes.era", s.Era)
		if err != nil {
			return model.StakePosition{}, false, err
		}
		staked, err := decodeAmount("generalStakerInfo.stakes.staked", s.Staked)
		if err != nil {
			return model.StakePosition{}, false, err
		}
		stakes = append(stakes, model.StakeEntry{Era: model.EraIndex(era), Staked: staked})
	}
	pos, ok := model.PositionFromStakes(coreID, account, stakes)
	return pos, ok, nil
}

type eraInfoPayload struct {
	Staked json.RawMessage `json:"staked"`
}

// DecodeEraInfo returns the network-wide stake of an era.
func DecodeEraInfo(raw json.RawMessage) (*big.Int, error) {
	if isNull(raw) {
		return nil, nil
	}
	var p eraInfoPayload
	if err := decodeObject("generalEraInfo", raw, &p); err != nil {
		return nil, err
	}
	return decodeAmount("generalEraInfo.staked", p.Staked)
}

type issuancePayload struct {
	TotalIssuance    json.RawMessage `json:"totalIssuance"`
	InactiveIssuance json.RawMessage `json:"inactiveIssuance"`
}

// DecodeIssuance returns total and active issuance. Active issuance is the
// total minus the inactive part.
func DecodeIssuance(raw json.RawMessage) (*big.Int, *big.Int, error) {
	var p issuancePayload
	if err := decodeObject("issuance", raw, &p); err != nil {
		return nil, nil, err
	}
	total, err := decodeAmount("issuance.totalIssuance", p.TotalIssuance)
	if err != nil {
		return nil, nil, err
	}
	inactive := big.NewInt(0)
	if !isNull(p.InactiveIssuance) {
		if inactive, err = decodeAmount("issuance.inactiveIssuance", p.InactiveIssuance); err != nil {
			return nil, nil, err
		}
	}
	return total, new(big.Int).Sub(total, inactive), nil
}

type accountPayload struct {
	Data struct {
		Free     json.RawMessage `json:"free"`
		Reserved json.RawMessage `json:"reserved"`
		Frozen   json.RawMessage `json:"frozen"`
	} `json:"data"`
}

// DecodeAccount decodes the balance part of an account record. Locked is
// left nil; it comes from the staking ledger.
func DecodeAccount(raw json.RawMessage) (model.AccountBalance, error) {
	var p accountPayload
	if err := decodeObject("account", raw, &p); err != nil {
		return model.AccountBalance{}, err
	}
	var out model.AccountBalance
	var err error
	if out.Free, err = decodeAmount("account.data.free", p.Data.Free); err != nil {
		return model.AccountBalance{}, err
	}
	if out.Reserved, err = optionalAmount("account.data.reserved", p.Data.Reserved); err != nil {
		return model.AccountBalance{}, err
	}
	if out.Frozen, err = optionalAmount("account.data.frozen", p.Data.Frozen); err != nil {
		return model.AccountBalance{}, err
	}
	return out, nil
}

type ledgerPayload struct {
	Locked json.RawMessage `json:"locked"`
}

// DecodeLedger returns the amount locked by staking; zero without a ledger.
func DecodeLedger(raw json.RawMessage) (*big.Int, error) {
	if isNull(raw) {
		return big.NewInt(0), nil
	}
	var p ledgerPayload
	if err := decodeObject("ledger", raw, &p); err != nil {
		return nil, err
	}
	return optionalAmount("ledger.locked", p.Locked)
}

func optionalAmount(field string, raw json.RawMessage) (*big.Int, error) {
	if isNull(raw) {
		return big.NewInt(0), nil
	}
	return decodeAmount(field, raw)
}
