package game

import (
	"fmt"
	"sort"
)

type HandCategory int

const (
	HighCard HandCategory = iota
	OnePair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
)

func (c HandCategory) String() string {
	switch c {
	case HighCard:
		return "high card"
	case OnePair:
		return "pair"
	case TwoPair:
		return "two pair"
	case Trips:
		return "three of a kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full house"
	case Quads:
		return "four of a kind"
	case StraightFlush:
		return "straight flush"
	default:
		return "unknown"
	}
}

// HandRank orders hands by category, then by tie-break ranks compared
// left to right. Two ranks with equal Category and Ranks are a split.
type HandRank struct {
	Category HandCategory
	Ranks    []int
	Best     []Card
}

// Compare returns 1 when h beats o, -1 when o beats h and 0 on a tie.
func (h HandRank) Compare(o HandRank) int {
	if h.Category != o.Category {
		if h.Category > o.Category {
			return 1
		}
		return -1
	}
	for i := 0; i < len(h.Ranks) && i < len(o.Ranks); i++ {
		if h.Ranks[i] != o.Ranks[i] {
			if h.Ranks[i] > o.Ranks[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

func (h HandRank) BetterThan(o HandRank) bool {
	return h.Compare(o) > 0
}

// Describe renders the category with its leading rank, e.g. "straight, five high".
func (h HandRank) Describe() string {
	if len(h.Ranks) == 0 {
		return h.Category.String()
	}
	return fmt.Sprintf("%s, %s high", h.Category, rankName(h.Ranks[0]))
}

// Evaluate picks the best five-card hand out of 5 to 7 cards.
func Evaluate(cards []Card) (HandRank, error) {
	n := len(cards)
	if n < 5 || n > 7 {
		return HandRank{}, fmt.Errorf("evaluate: need 5-7 cards, got %d", n)
	}
	best := HandRank{Category: -1}
	var pick [5]Card
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			for c := b + 1; c < n; c++ {
				for d := c + 1; d < n; d++ {
					for e := d + 1; e < n; e++ {
						pick = [5]Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						h := eval5(pick)
						if best.Category < 0 || h.BetterThan(best) {
							best = h
						}
					}
				}
			}
		}
	}
	return best, nil
}

func eval5(cards [5]Card) HandRank {
	var counts [15]int
	suited := true
	ranks := make([]int, 0, 5)
	for i, c := range cards {
		counts[c.Rank]++
		ranks = append(ranks, int(c.Rank))
		if i > 0 && c.Suit != cards[0].Suit {
			suited = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
	best := append([]Card(nil), cards[:]...)

	straight, high := straightHigh(ranks)
	if suited && straight {
		return HandRank{Category: StraightFlush, Ranks: []int{high}, Best: best}
	}

	// groups ordered by multiplicity then rank, so quads/trips/pairs lead
	type group struct{ rank, count int }
	groups := make([]group, 0, 5)
	for r := int(Ace); r >= int(Two); r-- {
		if counts[r] > 0 {
			groups = append(groups, group{rank: r, count: counts[r]})
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].count > groups[j].count
	})
	ordered := make([]int, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g.rank)
	}

	switch {
	case groups[0].count == 4:
		return HandRank{Category: Quads, Ranks: ordered, Best: best}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandRank{Category: FullHouse, Ranks: ordered, Best: best}
	case suited:
		return HandRank{Category: Flush, Ranks: ranks, Best: best}
	case straight:
		return HandRank{Category: Straight, Ranks: []int{high}, Best: best}
	case groups[0].count == 3:
		return HandRank{Category: Trips, Ranks: ordered, Best: best}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandRank{Category: TwoPair, Ranks: ordered, Best: best}
	case groups[0].count == 2:
		return HandRank{Category: OnePair, Ranks: ordered, Best: best}
	}
	return HandRank{Category: HighCard, Ranks: ranks, Best: best}
}

// straightHigh expects five ranks sorted descending. The wheel A-2-3-4-5
// is a five-high straight.
func straightHigh(ranks []int) (bool, int) {
	for i := 1; i < len(ranks); i++ {
		if ranks[i] == ranks[i-1] {
			return false, 0
		}
	}
	if ranks[0]-ranks[4] == 4 {
		return true, ranks[0]
	}
	if ranks[0] == int(Ace) && ranks[1] == 5 && ranks[4] == 2 {
		return true, 5
	}
	return false, 0
}

func rankName(r int) string {
	names := map[int]string{
		2: "two", 3: "three", 4: "four", 5: "five", 6: "six", 7: "seven", 8: "eight",
		9: "nine", 10: "ten", 11: "jack", 12: "queen", 13: "king", 14: "ace",
	}
	if n, ok := names[r]; ok {
		return n
	}
	return "?"
}
