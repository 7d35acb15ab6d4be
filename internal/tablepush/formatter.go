package tablepush

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	colorResult   = 0x3BA55D
	colorBomb     = 0xE67E22
	colorSeat     = 0x5865F2
	colorWarn     = 0xFEE75C
	colorCritical = 0xED4245

	shortIDLimit  = 10
	defaultFooter = "poker-club table push"
)

// FormatMessage renders the events worth a chat message. Everything else,
// and a hand start that is not a bomb pot, reports false.
func FormatMessage(ev NormalizedEvent) (FormattedMessage, bool) {
	table := shortID(fallback(ev.TableID, "unknown"), shortIDLimit)
	base := FormattedMessage{
		Timestamp: eventTimestamp(ev.ServerTS),
		Footer:    defaultFooter,
	}
	fields := make([]MessageField, 0, 6)

	switch ev.EventType {
	case "hand_result":
		if boolField(ev.Raw, "aborted") {
			base.Title = fmt.Sprintf("Hand aborted · T:%s", table)
			base.Content = fmt.Sprintf("hand #%d aborted", ev.HandNumber)
			base.Description = fmt.Sprintf("Hand #%d aborted: %s. Contributions refunded.", ev.HandNumber, fallback(stringField(ev.Raw, "abort_reason"), "unknown"))
			base.Color = colorCritical
			fields = append(fields, MessageField{Name: "Hand", Value: fallback(ev.HandID, "-"), Inline: true})
			break
		}
		winners := winnerText(ev.Raw)
		base.Title = fmt.Sprintf("Hand #%d · T:%s", ev.HandNumber, table)
		base.Content = fmt.Sprintf("hand #%d won by %s", ev.HandNumber, winners)
		base.Description = fmt.Sprintf("%s won %d chips", winners, sumMap(ev.Raw, "payouts"))
		base.Color = colorResult
		fields = append(fields,
			MessageField{Name: "Hand", Value: fallback(ev.HandID, "-"), Inline: true},
			MessageField{Name: "Board", Value: fallback(strings.Join(stringSlice(ev.Raw, "board"), " "), "-"), Inline: true},
		)
		if boolField(ev.Raw, "fold_out") {
			fields = append(fields, MessageField{Name: "Showdown", Value: "no", Inline: true})
		} else if hand := bestRevealed(ev.Raw); hand != "" {
			fields = append(fields, MessageField{Name: "Winning hand", Value: hand, Inline: true})
		}
	case "hand_started":
		if !ev.BombPot {
			return FormattedMessage{}, false
		}
		base.Title = fmt.Sprintf("Bomb pot · T:%s", table)
		base.Content = fmt.Sprintf("hand #%d is a bomb pot", ev.HandNumber)
		base.Description = fmt.Sprintf("Hand #%d is a bomb pot. Every seat antes and the flop is dealt.", ev.HandNumber)
		base.Color = colorBomb
		fields = append(fields, MessageField{Name: "Hand", Value: fallback(ev.HandID, "-"), Inline: true})
	case "rabbit_hunt":
		cards := strings.Join(stringSlice(ev.Raw, "cards"), " ")
		base.Title = fmt.Sprintf("Rabbit hunt · T:%s", table)
		base.Content = fmt.Sprintf("seat %s hunted %s", seatText(ev.Seat), fallback(cards, "-"))
		base.Description = fmt.Sprintf("Seat %s paid %s to see %s", seatText(ev.Seat), amountText(ev.Amount), fallback(cards, "-"))
		base.Color = colorSeat
		fields = append(fields,
			MessageField{Name: "Seat", Value: seatText(ev.Seat), Inline: true},
			MessageField{Name: "Hand", Value: fallback(ev.HandID, "-"), Inline: true},
		)
	case "connection_exhausted":
		base.Title = fmt.Sprintf("Connection lost · T:%s", table)
		base.Content = fmt.Sprintf("seat %s gave up reconnecting", seatText(ev.Seat))
		base.Description = fmt.Sprintf("Seat %s ran out of reconnect attempts and sits out.", seatText(ev.Seat))
		base.Color = colorWarn
		fields = append(fields, MessageField{Name: "Seat", Value: seatText(ev.Seat), Inline: true})
	case "seat_joined", "seat_left":
		verb := "joined"
		if ev.EventType == "seat_left" {
			verb = "left"
		}
		base.Title = fmt.Sprintf("Seat %s · T:%s", verb, table)
		base.Content = fmt.Sprintf("%s %s seat %s", fallback(ev.PlayerID, "player"), verb, seatText(ev.Seat))
		base.Description = fmt.Sprintf("%s %s seat %s with %s", fallback(ev.PlayerID, "player"), verb, seatText(ev.Seat), amountText(ev.Amount))
		base.Color = colorSeat
		fields = append(fields,
			MessageField{Name: "Seat", Value: seatText(ev.Seat), Inline: true},
			MessageField{Name: "Stack", Value: amountText(ev.Amount), Inline: true},
		)
	case "table_closed":
		base.Title = fmt.Sprintf("Table closed · T:%s", table)
		base.Content = "table closed"
		base.Description = "The table closed and every seat was cashed out."
		base.Color = colorCritical
	default:
		return FormattedMessage{}, false
	}
	base.Fields = fields
	return base, true
}

func winnerText(raw map[string]any) string {
	seen := map[int]bool{}
	var seats []int
	awards, _ := raw["awards"].([]any)
	for _, a := range awards {
		m, ok := a.(map[string]any)
		if !ok {
			continue
		}
		ws, _ := m["winners"].([]any)
		for _, w := range ws {
			f, ok := w.(float64)
			if !ok || seen[int(f)] {
				continue
			}
			seen[int(f)] = true
			seats = append(seats, int(f))
		}
	}
	if len(seats) == 0 {
		return "nobody"
	}
	sort.Ints(seats)
	players, _ := raw["players"].(map[string]any)
	names := make([]string, 0, len(seats))
	for _, s := range seats {
		key := strconv.Itoa(s)
		if p, ok := players[key].(string); ok && p != "" {
			names = append(names, fmt.Sprintf("%s (seat %d)", p, s))
			continue
		}
		names = append(names, "seat "+key)
	}
	return strings.Join(names, ", ")
}

func bestRevealed(raw map[string]any) string {
	awards, _ := raw["awards"].([]any)
	for _, a := range awards {
		if m, ok := a.(map[string]any); ok {
			if h := stringField(m, "hand"); h != "" {
				return h
			}
		}
	}
	return ""
}

func sumMap(raw map[string]any, key string) int64 {
	m, _ := raw[key].(map[string]any)
	total := int64(0)
	for _, v := range m {
		if f, ok := v.(float64); ok {
			total += int64(f)
		}
	}
	return total
}

func stringSlice(raw map[string]any, key string) []string {
	items, _ := raw[key].([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func eventTimestamp(serverTS int64) string {
	if serverTS <= 0 {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return time.UnixMilli(serverTS).UTC().Format(time.RFC3339)
}

func seatText(seat *int) string {
	if seat == nil {
		return "-"
	}
	return strconv.Itoa(*seat)
}

func amountText(amount *int64) string {
	if amount == nil {
		return "-"
	}
	return strconv.FormatInt(*amount, 10)
}

func shortID(id string, limit int) string {
	if limit <= 0 || len(id) <= limit {
		return id
	}
	return id[:limit]
}

func fallback(v, alt string) string {
	if strings.TrimSpace(v) == "" {
		return alt
	}
	return v
}
