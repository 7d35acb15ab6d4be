package game

import "sort"

// Contribution is what one seat has put in over the whole hand.
type Contribution struct {
	Seat   int
	Amount int64
	Folded bool
}

// Pot is one layer of the pot. Only seats listed in Eligible can win it.
// Cap is the per-seat contribution level the layer tops out at.
type Pot struct {
	Amount   int64 `json:"amount"`
	Cap      int64 `json:"cap"`
	Eligible []int `json:"eligible"`
}

// ComputePots partitions hand contributions into layers: every distinct
// contribution level closes one layer worth (level - previous level) times
// the number of seats that reached it. A layer nobody live reached (only
// folded money) is folded into the layer below, and neighbouring layers with
// the same eligibility are merged. The layer amounts always sum to the total
// contributed.
func ComputePots(contribs []Contribution) []Pot {
	levels := make([]int64, 0, len(contribs))
	seen := map[int64]bool{}
	for _, c := range contribs {
		if c.Amount > 0 && !seen[c.Amount] {
			seen[c.Amount] = true
			levels = append(levels, c.Amount)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]Pot, 0, len(levels))
	prev := int64(0)
	for _, level := range levels {
		layer := Pot{Cap: level}
		for _, c := range contribs {
			if c.Amount >= level {
				layer.Amount += level - prev
				if !c.Folded {
					layer.Eligible = append(layer.Eligible, c.Seat)
				}
			}
		}
		sort.Ints(layer.Eligible)
		prev = level

		if len(pots) > 0 {
			last := &pots[len(pots)-1]
			if len(layer.Eligible) == 0 || sameSeats(last.Eligible, layer.Eligible) {
				last.Amount += layer.Amount
				last.Cap = layer.Cap
				continue
			}
		}
		pots = append(pots, layer)
	}
	return pots
}

func PotsTotal(pots []Pot) int64 {
	total := int64(0)
	for _, p := range pots {
		total += p.Amount
	}
	return total
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
