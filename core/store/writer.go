package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/rlp"

	"katana-node/core/felt"
	"katana-node/core/types"
)

// InsertBlockWithStatesAndReceipts commits a sealed block, its receipts and
// its state delta in a single pebble batch. On any encode/write
// failure the store is tripped into read-only mode and the
// batch is discarded.
func (s *Store) InsertBlockWithStatesAndReceipts(block types.Block, receipts []types.Receipt, delta *types.StateDelta, stateRoot felt.Felt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrReadOnly
	}

	if len(receipts) != len(block.Transactions) {
		return fmt.Errorf("store: %d receipts for %d transactions", len(receipts), len(block.Transactions))
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	number := block.Header.Number
	headerBytes, err := rlp.EncodeToBytes(block.Header)
	if err != nil {
		return s.fault(fmt.Errorf("store: encode header: %w", err))
	}
	if err := batch.Set(key(prefixBlockHeader, encodeU64(number)), headerBytes, nil); err != nil {
		return s.fault(err)
	}

	headerHash := block.Header.Hash()
	hb := headerHash.BytesBE()
	if err := batch.Set(key(prefixBlockHashToNum, hb[:]), encodeU64(number), nil); err != nil {
		return s.fault(err)
	}

	hashes := block.TxHashes()
	bodyBytes, err := rlp.EncodeToBytes(hashes)
	if err != nil {
		return s.fault(fmt.Errorf("store: encode body: %w", err))
	}
	if err := batch.Set(key(prefixBlockBody, encodeU64(number)), bodyBytes, nil); err != nil {
		return s.fault(err)
	}

	for i, tx := range block.Transactions {
		txb, err := types.EncodeTransaction(tx)
		if err != nil {
			return s.fault(fmt.Errorf("store: encode tx: %w", err))
		}
		th := hashes[i].BytesBE()
		if err := batch.Set(key(prefixTransaction, th[:]), txb, nil); err != nil {
			return s.fault(err)
		}

		idx := append(encodeU64(number), encodeU64(uint64(i))...)
		if err := batch.Set(key(prefixTxBlockIndex, th[:]), idx, nil); err != nil {
			return s.fault(err)
		}

		rb, err := types.EncodeReceipt(receipts[i])
		if err != nil {
			return s.fault(fmt.Errorf("store: encode receipt: %w", err))
		}
		if err := batch.Set(key(prefixReceipt, th[:]), rb, nil); err != nil {
			return s.fault(err)
		}

		finality := []byte{byte(receipts[i].Finality)}
		if err := batch.Set(key(prefixFinality, th[:]), finality, nil); err != nil {
			return s.fault(err)
		}
	}

	if delta != nil {
		if err := s.applyDeltaToBatch(batch, delta, number); err != nil {
			return s.fault(err)
		}
		db, err := types.EncodeStateDelta(delta)
		if err != nil {
			return s.fault(fmt.Errorf("store: encode state delta: %w", err))
		}
		if err := batch.Set(key(prefixStateUpdate, encodeU64(number)), db, nil); err != nil {
			return s.fault(err)
		}
	}

	srb := stateRoot.BytesBE()
	if err := batch.Set(key(prefixStateRoot, encodeU64(number)), srb[:], nil); err != nil {
		return s.fault(err)
	}
	if err := batch.Set(key(prefixLatestNumber), encodeU64(number), nil); err != nil {
		return s.fault(err)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return s.fault(fmt.Errorf("store: commit batch: %w", err))
	}

	s.latest = number
	s.hasLatest = true
	return nil
}

func (s *Store) applyDeltaToBatch(batch *pebble.Batch, delta *types.StateDelta, number uint64) error {
	for addr, nonce := range delta.NonceUpdates {
		ab := addr.Felt().BytesBE()
		nb := nonce.BytesBE()
		if err := batch.Set(key(prefixNonce, ab[:]), nb[:], nil); err != nil {
			return err
		}
		hk := append(append([]byte{}, ab[:]...), encodeU64(number)...)
		if err := batch.Set(key(prefixHistNonce, hk), nb[:], nil); err != nil {
			return err
		}
	}

	for _, kv := range delta.StorageWrites {
		ab := kv.Address.Felt().BytesBE()
		kb := kv.Key.BytesBE()
		vb := kv.Value.BytesBE()
		if err := batch.Set(key(prefixStorage, ab[:], kb[:]), vb[:], nil); err != nil {
			return err
		}
		hk := append(append(append([]byte{}, ab[:]...), kb[:]...), encodeU64(number)...)
		if err := batch.Set(key(prefixHistStorage, hk), vb[:], nil); err != nil {
			return err
		}
	}

	for addr, ch := range delta.ClassHashUpdates {
		ab := addr.Felt().BytesBE()
		cb := ch.BytesBE()
		if err := batch.Set(key(prefixContractClass, ab[:]), cb[:], nil); err != nil {
			return err
		}
		hk := append(append([]byte{}, ab[:]...), encodeU64(number)...)
		if err := batch.Set(key(prefixHistContractCls, hk), cb[:], nil); err != nil {
			return err
		}
	}

	for _, class := range delta.DeclaredClasses {
		cb, err := types.EncodeClass(class)
		if err != nil {
			return err
		}
		hb := class.Hash.BytesBE()
		if err := batch.Set(key(prefixClass, hb[:]), cb, nil); err != nil {
			return err
		}
	}

	for classHash, compiledHash := range delta.CompiledClassPairs {
		chb := classHash.BytesBE()
		cb := compiledHash.BytesBE()
		if err := batch.Set(key(prefixCompiledClass, chb[:]), cb[:], nil); err != nil {
			return err
		}
	}

	return nil
}

// PutNode and GetNode implement core/trie.NodeStore, letting the commitment
// tries persist their nodes through the same batch-backed keyspace.
func (s *Store) PutNode(namespace string, hash felt.Felt, encoded []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrReadOnly
	}
	hb := hash.BytesBE()
	k := key(prefixTrieNode, []byte(namespace), hb[:])
	if err := s.db.Set(k, encoded, pebble.NoSync); err != nil {
		return s.fault(err)
	}
	return nil
}

func (s *Store) GetNode(namespace string, hash felt.Felt) ([]byte, bool, error) {
	hb := hash.BytesBE()
	return s.get(key(prefixTrieNode, []byte(namespace), hb[:]))
}

func (s *Store) PutRoot(namespace string, commitID uint64, root felt.Felt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrReadOnly
	}
	rb := root.BytesBE()
	k := key(prefixTrieRoot, []byte(namespace), encodeU64(commitID))
	if err := s.db.Set(k, rb[:], pebble.Sync); err != nil {
		return s.fault(err)
	}
	return nil
}

func (s *Store) GetRoot(namespace string, commitID uint64) (felt.Felt, bool, error) {
	v, ok, err := s.get(key(prefixTrieRoot, []byte(namespace), encodeU64(commitID)))
	if err != nil || !ok {
		return felt.Zero(), ok, err
	}
	return felt.FromBytesBE(v), true, nil
}
