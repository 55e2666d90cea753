package store

import (
	"testing"

	"github.com/sirupsen/logrus"

	"katana-node/core/felt"
	"katana-node/core/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s, err := Open(dir, log)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleBlock(number uint64) (types.Block, []types.Receipt) {
	tx := &types.InvokeTransaction{
		TxHash:  felt.FromUint64(100 + number),
		Sender:  felt.NewAddress(felt.FromUint64(7)),
		TxNonce: felt.FromUint64(number),
		MaxFee:  felt.FromUint64(1000),
	}
	header := types.BlockHeader{
		Number:          number,
		Timestamp:       1700000000 + number,
		SequencerAddr:   felt.NewAddress(felt.FromUint64(1)),
		StateRoot:       felt.FromUint64(200 + number),
		ProtocolVersion: "0.1.0",
	}
	block := types.Block{Header: header, Transactions: []types.Transaction{tx}}
	receipts := []types.Receipt{{
		TransactionHash: tx.TxHash,
		Status:          types.ExecutionSucceeded,
		FeeCharged:      felt.FromUint64(5),
		Finality:        types.FinalityAcceptedOnL2,
	}}
	return block, receipts
}

func TestInsertAndReadBackBlock(t *testing.T) {
	s := newTestStore(t)
	block, receipts := sampleBlock(1)

	delta := types.NewStateDelta()
	delta.NonceUpdates[block.Transactions[0].SenderAddress()] = felt.FromUint64(1)

	if err := s.InsertBlockWithStatesAndReceipts(block, receipts, delta, felt.FromUint64(999)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.Header(1)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if got.Timestamp != block.Header.Timestamp {
		t.Fatalf("timestamp mismatch: got %d want %d", got.Timestamp, block.Header.Timestamp)
	}

	gotBlock, err := s.Block(1)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if len(gotBlock.Transactions) != 1 {
		t.Fatalf("expected 1 tx, got %d", len(gotBlock.Transactions))
	}
	if !gotBlock.Transactions[0].Hash().Equal(block.Transactions[0].Hash()) {
		t.Fatalf("tx hash mismatch")
	}

	n, err := s.NumberByHash(block.Header.Hash())
	if err != nil {
		t.Fatalf("number by hash: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected block 1, got %d", n)
	}

	rcpt, err := s.Receipt(block.Transactions[0].Hash())
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if !rcpt.FeeCharged.Equal(felt.FromUint64(5)) {
		t.Fatalf("fee mismatch")
	}

	nonce, ok, err := s.LatestNonce(block.Transactions[0].SenderAddress())
	if err != nil || !ok {
		t.Fatalf("latest nonce: %v %v", ok, err)
	}
	if !nonce.Equal(felt.FromUint64(1)) {
		t.Fatalf("nonce mismatch")
	}

	latest, ok := s.LatestNumber()
	if !ok || latest != 1 {
		t.Fatalf("latest number: %d %v", latest, ok)
	}
}

func TestHistoricalLookupSeesOlderWrites(t *testing.T) {
	s := newTestStore(t)
	addr := felt.NewAddress(felt.FromUint64(7))

	b1, r1 := sampleBlock(1)
	d1 := types.NewStateDelta()
	d1.NonceUpdates[addr] = felt.FromUint64(1)
	if err := s.InsertBlockWithStatesAndReceipts(b1, r1, d1, felt.FromUint64(1)); err != nil {
		t.Fatalf("insert 1: %v", err)
	}

	b2, r2 := sampleBlock(2)
	d2 := types.NewStateDelta()
	d2.NonceUpdates[addr] = felt.FromUint64(2)
	if err := s.InsertBlockWithStatesAndReceipts(b2, r2, d2, felt.FromUint64(2)); err != nil {
		t.Fatalf("insert 2: %v", err)
	}

	n1, ok, err := s.HistoricalNonce(addr, 1)
	if err != nil || !ok || !n1.Equal(felt.FromUint64(1)) {
		t.Fatalf("historical nonce at 1: %v ok=%v err=%v", n1, ok, err)
	}
	n2, ok, err := s.HistoricalNonce(addr, 2)
	if err != nil || !ok || !n2.Equal(felt.FromUint64(2)) {
		t.Fatalf("historical nonce at 2: %v ok=%v err=%v", n2, ok, err)
	}
}

func TestSchemaVersionMismatchRejectsOpen(t *testing.T) {
	dir := t.TempDir()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	s, err := Open(dir, log)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.db.Set(key(prefixSchemaVersion), encodeU32(CurrentSchemaVersion+1), nil); err != nil {
		t.Fatalf("corrupt schema version: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := Open(dir, log); err == nil {
		t.Fatal("expected schema version mismatch to reject open")
	}
}
