package rpc

import (
	"encoding/json"
	"errors"

	"katana-node/core/felt"
)

// Tag distinguishes the symbolic block identifiers from a concrete
// number/hash.
type Tag uint8

const (
	TagNone Tag = iota
	TagLatest
	TagPending
)

// BlockID is the RPC's polymorphic block_id parameter: a tag ("latest",
// "pending"), a block_number object, or a block_hash object.
type BlockID struct {
	Tag    Tag
	Number *uint64
	Hash   *felt.Felt
}

// Latest is the block_id value every read defaults to when the caller omits
// one.
var Latest = BlockID{Tag: TagLatest}

func (b *BlockID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "latest":
			*b = BlockID{Tag: TagLatest}
			return nil
		case "pending":
			*b = BlockID{Tag: TagPending}
			return nil
		default:
			return errors.New("rpc: unrecognized block tag " + s)
		}
	}

	var obj struct {
		BlockNumber *uint64    `json:"block_number"`
		BlockHash   *felt.Felt `json:"block_hash"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch {
	case obj.BlockNumber != nil:
		*b = BlockID{Tag: TagNone, Number: obj.BlockNumber}
	case obj.BlockHash != nil:
		*b = BlockID{Tag: TagNone, Hash: obj.BlockHash}
	default:
		return errors.New("rpc: block_id requires block_number, block_hash, or a tag")
	}
	return nil
}

func (b BlockID) MarshalJSON() ([]byte, error) {
	switch {
	case b.Tag == TagLatest:
		return json.Marshal("latest")
	case b.Tag == TagPending:
		return json.Marshal("pending")
	case b.Number != nil:
		return json.Marshal(struct {
			BlockNumber uint64 `json:"block_number"`
		}{*b.Number})
	case b.Hash != nil:
		return json.Marshal(struct {
			BlockHash felt.Felt `json:"block_hash"`
		}{*b.Hash})
	default:
		return json.Marshal("latest")
	}
}
