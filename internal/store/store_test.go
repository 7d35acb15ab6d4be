package store

import (
	"errors"
	"testing"
)

func TestStoreBootstrapPing(t *testing.T) {
	st, ctx := openStore(t)
	if err := st.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestAccountsEnsureGetList(t *testing.T) {
	st, ctx := openStore(t)

	mustCreateAccount(t, st, ctx, "alice", 1234)
	mustCreateAccount(t, st, ctx, "alice", 9999)

	bal, err := st.GetAccountBalance(ctx, "alice")
	if err != nil {
		t.Fatalf("get account balance: %v", err)
	}
	if bal != 1234 {
		t.Fatalf("ensure must not overwrite, got %d", bal)
	}
	if _, err := st.GetAccountBalance(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	items, err := st.ListAccounts(ctx, "alice", 10, 0)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(items) != 1 || items[0].PlayerID != "alice" {
		t.Fatalf("unexpected account list: %+v", items)
	}
}

func TestTxDebitCreditConsistency(t *testing.T) {
	st, ctx := openStore(t)
	mustCreateAccount(t, st, ctx, "alice", 1000)

	if _, err := st.Debit(ctx, "alice", 2000, "buy_in", "table", "t1"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	bal, err := st.Credit(ctx, "alice", 300, "cash_out", "table", "t1")
	if err != nil || bal != 1300 {
		t.Fatalf("credit: bal=%d err=%v", bal, err)
	}
	bal, err = st.Debit(ctx, "alice", 500, "buy_in", "table", "t1")
	if err != nil || bal != 800 {
		t.Fatalf("debit: bal=%d err=%v", bal, err)
	}
	entries, err := st.ListLedgerEntries(ctx, LedgerFilter{PlayerID: "alice", RefID: "t1"}, 10, 0)
	if err != nil {
		t.Fatalf("list ledger entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	sum := int64(0)
	for _, e := range entries {
		sum += e.Amount
	}
	if sum != -200 {
		t.Fatalf("ledger entries should net -200, got %d", sum)
	}
}

func TestSaveHandWithDeltas(t *testing.T) {
	st, ctx := openStore(t)

	if err := st.CreateTable(ctx, Table{ID: "t1", Capacity: 6, SmallBlind: 10, BigBlind: 20}); err != nil {
		t.Fatalf("create table: %v", err)
	}
	h := Hand{
		ID:         NewID(),
		TableID:    "t1",
		HandNumber: 1,
		Pot:        40,
		Board:      []string{"As", "Kd", "7h"},
		Result:     []byte(`{"fold_out":true}`),
		FoldOut:    true,
		Deltas: []HandDelta{
			{Seat: 0, PlayerID: "alice", Contributed: 20, Payout: 40, Delta: 20},
			{Seat: 1, PlayerID: "bob", Contributed: 20, Payout: 0, Delta: -20},
		},
	}
	if err := st.SaveHand(ctx, h); err != nil {
		t.Fatalf("save hand: %v", err)
	}
	got, err := st.GetHand(ctx, h.ID)
	if err != nil {
		t.Fatalf("get hand: %v", err)
	}
	if len(got.Deltas) != 2 || got.Deltas[0].Delta+got.Deltas[1].Delta != 0 {
		t.Fatalf("unexpected deltas %+v", got.Deltas)
	}
	if len(got.Board) != 3 || !got.FoldOut {
		t.Fatalf("unexpected hand %+v", got)
	}
	if err := st.SaveHand(ctx, h); err == nil {
		t.Fatalf("saving the same hand twice should fail")
	}
	hands, err := st.ListHands(ctx, "t1", 10)
	if err != nil || len(hands) != 1 {
		t.Fatalf("list hands: %v %d", err, len(hands))
	}
}

func TestTablesAndFees(t *testing.T) {
	st, ctx := openStore(t)

	if err := st.CreateTable(ctx, Table{ID: "t1", Capacity: 2, SmallBlind: 5, BigBlind: 10}); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := st.CloseTable(ctx, "t1"); err != nil {
		t.Fatalf("close table: %v", err)
	}
	tbl, err := st.GetTable(ctx, "t1")
	if err != nil || tbl.Status != "closed" || tbl.ClosedAt == nil {
		t.Fatalf("unexpected table %+v %v", tbl, err)
	}
	if err := st.CloseTable(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := st.RecordFee(ctx, Fee{TableID: "t1", HandID: "h1", PlayerID: "alice", Reason: "rabbit_hunt", Amount: 5}); err != nil {
			t.Fatalf("record fee: %v", err)
		}
	}
	total, err := st.SumFees(ctx, "t1", "alice")
	if err != nil || total != 10 {
		t.Fatalf("sum fees: %d %v", total, err)
	}
}
