package tablepush

import (
	"strings"
	"testing"

	"poker-club/internal/broadcast"
	"poker-club/internal/game"
)

func TestFormatHandResult(t *testing.T) {
	res := &game.HandResult{
		HandID:     "hand_01",
		HandNumber: 7,
		Board:      []string{"Ah", "Kd", "7c", "7s", "2d"},
		Awards: []game.PotAward{
			{Pot: game.Pot{Amount: 300}, Winners: []int{2}, Shares: map[int]int64{2: 300}, Hand: "Full House"},
		},
		Players: map[int]string{0: "alice", 2: "bob"},
		Payouts: map[int]int64{2: 300},
	}
	ev := normalizeEvent(broadcast.Event{Event: "hand_result", TableID: "main", Seat: broadcast.Public, ServerTS: 1700000000000, Data: res})
	msg, ok := FormatMessage(ev)
	if !ok {
		t.Fatal("expected a message")
	}
	if msg.Title != "Hand #7 · T:main" {
		t.Fatalf("unexpected title %q", msg.Title)
	}
	if !strings.Contains(msg.Content, "bob (seat 2)") || !strings.Contains(msg.Description, "300 chips") {
		t.Fatalf("unexpected body %q / %q", msg.Content, msg.Description)
	}
	if len(msg.Fields) != 3 || msg.Fields[1].Value != "Ah Kd 7c 7s 2d" || msg.Fields[2].Value != "Full House" {
		t.Fatalf("unexpected fields %+v", msg.Fields)
	}
	if msg.Timestamp != "2023-11-14T22:13:20Z" {
		t.Fatalf("unexpected timestamp %q", msg.Timestamp)
	}
}

func TestFormatAbortedHand(t *testing.T) {
	res := &game.HandResult{HandID: "hand_02", HandNumber: 3, Aborted: true, AbortReason: "table closed"}
	msg, ok := FormatMessage(normalizeEvent(broadcast.Event{Event: "hand_result", TableID: "main", Data: res}))
	if !ok || !strings.Contains(msg.Description, "table closed") || msg.Color != colorCritical {
		t.Fatalf("unexpected aborted message %+v", msg)
	}
}

func TestFormatOnlyBombPotStarts(t *testing.T) {
	plain := normalizeEvent(broadcast.Event{Event: "hand_started", TableID: "main", Data: map[string]any{"hand_id": "h1", "hand_number": int64(1), "bomb_pot": false}})
	if _, ok := FormatMessage(plain); ok {
		t.Fatal("ordinary hand start should not be pushed")
	}
	bomb := normalizeEvent(broadcast.Event{Event: "hand_started", TableID: "main", Data: map[string]any{"hand_id": "h2", "hand_number": int64(2), "bomb_pot": true}})
	msg, ok := FormatMessage(bomb)
	if !ok || !strings.Contains(msg.Content, "#2 is a bomb pot") {
		t.Fatalf("unexpected bomb pot message %+v", msg)
	}
}

func TestFormatSeatEvents(t *testing.T) {
	ev := normalizeEvent(broadcast.Event{Event: "seat_joined", TableID: "main", Data: map[string]any{"seat": 4, "player_id": "carol", "stack": int64(1500)}})
	msg, ok := FormatMessage(ev)
	if !ok || msg.Content != "carol joined seat 4" || msg.Fields[1].Value != "1500" {
		t.Fatalf("unexpected seat message %+v", msg)
	}
	ev = normalizeEvent(broadcast.Event{Event: "connection_exhausted", TableID: "main", Data: map[string]any{"seat": 1}})
	msg, ok = FormatMessage(ev)
	if !ok || msg.Content != "seat 1 gave up reconnecting" {
		t.Fatalf("unexpected exhausted message %+v", msg)
	}
	ev = normalizeEvent(broadcast.Event{Event: "rabbit_hunt", TableID: "main", Data: map[string]any{"seat": 0, "cards": []string{"2c", "3d"}, "fee": int64(5)}})
	msg, ok = FormatMessage(ev)
	if !ok || msg.Description != "Seat 0 paid 5 to see 2c 3d" {
		t.Fatalf("unexpected rabbit hunt message %+v", msg)
	}
}

func TestFormatIgnoresChatter(t *testing.T) {
	for _, name := range []string{"snapshot", "action", "board", "time_bank"} {
		if _, ok := FormatMessage(NormalizedEvent{EventType: name, TableID: "main"}); ok {
			t.Fatalf("%s should not be pushed", name)
		}
	}
}
