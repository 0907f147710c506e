package fulfillment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SeaportABI contains the Seaport fulfillOrder method
const SeaportABI = `[{
	"inputs": [
		{"internalType": "struct Order", "name": "order", "type": "tuple", "components": [
			{"internalType": "struct OrderParameters", "name": "parameters", "type": "tuple", "components": [
				{"internalType": "address", "name": "offerer", "type": "address"},
				{"internalType": "address", "name": "zone", "type": "address"},
				{"internalType": "struct OfferItem[]", "name": "offer", "type": "tuple[]", "components": [
					{"internalType": "enum ItemType", "name": "itemType", "type": "uint8"},
					{"internalType": "address", "name": "token", "type": "address"},
					{"internalType": "uint256", "name": "identifierOrCriteria", "type": "uint256"},
					{"internalType": "uint256", "name": "startAmount", "type": "uint256"},
					{"internalType": "uint256", "name": "endAmount", "type": "uint256"}
				]},
				{"internalType": "struct ConsiderationItem[]", "name": "consideration", "type": "tuple[]", "components": [
					{"internalType": "enum ItemType", "name": "itemType", "type": "uint8"},
					{"internalType": "address", "name": "token", "type": "address"},
					{"internalType": "uint256", "name": "identifierOrCriteria", "type": "uint256"},
					{"internalType": "uint256", "name": "startAmount", "type": "uint256"},
					{"internalType": "uint256", "name": "endAmount", "type": "uint256"},
					{"internalType": "address payable", "name": "recipient", "type": "address"}
				]},
				{"internalType": "enum OrderType", "name": "orderType", "type": "uint8"},
				{"internalType": "uint256", "name": "startTime", "type": "uint256"},
				{"internalType": "uint256", "name": "endTime", "type": "uint256"},
				{"internalType": "bytes32", "name": "zoneHash", "type": "bytes32"},
				{"internalType": "uint256", "name": "salt", "type": "uint256"},
				{"internalType": "bytes32", "name": "conduitKey", "type": "bytes32"},
				{"internalType": "uint256", "name": "totalOriginalConsiderationItems", "type": "uint256"}
			]},
			{"internalType": "bytes", "name": "signature", "type": "bytes"}
		]},
		{"internalType": "bytes32", "name": "fulfillerConduitKey", "type": "bytes32"}
	],
	"name": "fulfillOrder",
	"outputs": [{"internalType": "bool", "name": "fulfilled", "type": "bool"}],
	"stateMutability": "payable",
	"type": "function"
}]`

// ItemTypeNative is the Seaport item type for the chain's native currency.
const ItemTypeNative uint8 = 0

// Field names and types must line up with the ABI tuple components for packing.
type OfferItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
}

type ConsiderationItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
	Recipient            common.Address
}

type OrderParameters struct {
	Offerer                         common.Address
	Zone                            common.Address
	Offer                           []OfferItem
	Consideration                   []ConsiderationItem
	OrderType                       uint8
	StartTime                       *big.Int
	EndTime                         *big.Int
	ZoneHash                        [32]byte
	Salt                            *big.Int
	ConduitKey                      [32]byte
	TotalOriginalConsiderationItems *big.Int
}

// SeaportOrder is a signed Seaport order ready to be passed to fulfillOrder.
type SeaportOrder struct {
	Parameters OrderParameters
	Signature  []byte
}

// NativeValue is the amount of native currency the fulfiller has to send. Seaport refunds
// anything above the current price, so the larger of start and end amount is used.
func (o SeaportOrder) NativeValue() *big.Int {
	total := new(big.Int)
	for _, item := range o.Parameters.Consideration {
		if item.ItemType != ItemTypeNative {
			continue
		}
		amount := item.StartAmount
		if item.EndAmount.Cmp(amount) > 0 {
			amount = item.EndAmount
		}
		total.Add(total, amount)
	}
	return total
}

// quantity accepts a JSON number, a decimal string or a 0x-prefixed hex string.
type quantity struct {
	v *big.Int
}

func (q *quantity) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
	}
	if s == "" {
		q.v = new(big.Int)
		return nil
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base, digits = 16, s[2:]
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok || n.Sign() < 0 {
		return fmt.Errorf("invalid quantity %q", s)
	}
	q.v = n
	return nil
}

func (q quantity) bigInt() *big.Int {
	if q.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(q.v)
}

func (q quantity) uint8(field string) (uint8, error) {
	v := q.bigInt()
	if !v.IsUint64() || v.Uint64() > 255 {
		return 0, fmt.Errorf("%s out of range: %s", field, v)
	}
	return uint8(v.Uint64()), nil
}

type itemJSON struct {
	ItemType             quantity `json:"itemType"`
	Token                string   `json:"token"`
	IdentifierOrCriteria quantity `json:"identifierOrCriteria"`
	StartAmount          quantity `json:"startAmount"`
	EndAmount            quantity `json:"endAmount"`
	Recipient            string   `json:"recipient"`
}

type orderJSON struct {
	Parameters *struct {
		Offerer                         string     `json:"offerer"`
		Zone                            string     `json:"zone"`
		Offer                           []itemJSON `json:"offer"`
		Consideration                   []itemJSON `json:"consideration"`
		OrderType                       quantity   `json:"orderType"`
		StartTime                       quantity   `json:"startTime"`
		EndTime                         quantity   `json:"endTime"`
		ZoneHash                        string     `json:"zoneHash"`
		Salt                            quantity   `json:"salt"`
		ConduitKey                      string     `json:"conduitKey"`
		TotalOriginalConsiderationItems *quantity  `json:"totalOriginalConsiderationItems"`
	} `json:"parameters"`
	Signature string `json:"signature"`
}

// DecodeSeaportOrder parses the signed order stored with a listing.
func DecodeSeaportOrder(raw json.RawMessage) (SeaportOrder, error) {
	var in orderJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return SeaportOrder{}, fmt.Errorf("failed to decode seaport order: %w", err)
	}
	if in.Parameters == nil {
		return SeaportOrder{}, errors.New("seaport order has no parameters")
	}
	p := in.Parameters

	var (
		out SeaportOrder
		err error
	)
	if out.Parameters.Offerer, err = parseAddress("offerer", p.Offerer, false); err != nil {
		return SeaportOrder{}, err
	}
	if out.Parameters.Zone, err = parseAddress("zone", p.Zone, true); err != nil {
		return SeaportOrder{}, err
	}

	out.Parameters.Offer = make([]OfferItem, 0, len(p.Offer))
	for i, item := range p.Offer {
		itemType, err := item.ItemType.uint8(fmt.Sprintf("offer[%d].itemType", i))
		if err != nil {
			return SeaportOrder{}, err
		}
		token, err := parseAddress(fmt.Sprintf("offer[%d].token", i), item.Token, true)
		if err != nil {
			return SeaportOrder{}, err
		}
		out.Parameters.Offer = append(out.Parameters.Offer, OfferItem{
			ItemType:             itemType,
			Token:                token,
			IdentifierOrCriteria: item.IdentifierOrCriteria.bigInt(),
			StartAmount:          item.StartAmount.bigInt(),
			EndAmount:            item.EndAmount.bigInt(),
		})
	}

	out.Parameters.Consideration = make([]ConsiderationItem, 0, len(p.Consideration))
	for i, item := range p.Consideration {
		itemType, err := item.ItemType.uint8(fmt.Sprintf("consideration[%d].itemType", i))
		if err != nil {
			return SeaportOrder{}, err
		}
		token, err := parseAddress(fmt.Sprintf("consideration[%d].token", i), item.Token, true)
		if err != nil {
			return SeaportOrder{}, err
		}
		recipient, err := parseAddress(fmt.Sprintf("consideration[%d].recipient", i), item.Recipient, false)
		if err != nil {
			return SeaportOrder{}, err
		}
		out.Parameters.Consideration = append(out.Parameters.Consideration, ConsiderationItem{
			ItemType:             itemType,
			Token:                token,
			IdentifierOrCriteria: item.IdentifierOrCriteria.bigInt(),
			StartAmount:          item.StartAmount.bigInt(),
			EndAmount:            item.EndAmount.bigInt(),
			Recipient:            recipient,
		})
	}

	if out.Parameters.OrderType, err = p.OrderType.uint8("orderType"); err != nil {
		return SeaportOrder{}, err
	}
	out.Parameters.StartTime = p.StartTime.bigInt()
	out.Parameters.EndTime = p.EndTime.bigInt()
	out.Parameters.Salt = p.Salt.bigInt()

	if out.Parameters.ZoneHash, err = parseBytes32("zoneHash", p.ZoneHash); err != nil {
		return SeaportOrder{}, err
	}
	if out.Parameters.ConduitKey, err = parseBytes32("conduitKey", p.ConduitKey); err != nil {
		return SeaportOrder{}, err
	}

	if p.TotalOriginalConsiderationItems != nil {
		out.Parameters.TotalOriginalConsiderationItems = p.TotalOriginalConsiderationItems.bigInt()
	} else {
		out.Parameters.TotalOriginalConsiderationItems = big.NewInt(int64(len(p.Consideration)))
	}

	if in.Signature == "" {
		return SeaportOrder{}, errors.New("seaport order is not signed")
	}
	if out.Signature, err = hexutil.Decode(in.Signature); err != nil {
		return SeaportOrder{}, fmt.Errorf("invalid signature: %w", err)
	}

	return out, nil
}

func parseAddress(field, value string, allowEmpty bool) (common.Address, error) {
	if value == "" && allowEmpty {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", field, value)
	}
	return common.HexToAddress(value), nil
}

func parseBytes32(field, value string) ([32]byte, error) {
	var out [32]byte
	if value == "" {
		return out, nil
	}
	b, err := hexutil.Decode(value)
	if err != nil {
		return out, fmt.Errorf("invalid %s: %w", field, err)
	}
	if len(b) > 32 {
		return out, fmt.Errorf("invalid %s: %d bytes", field, len(b))
	}
	copy(out[32-len(b):], b)
	return out, nil
}
