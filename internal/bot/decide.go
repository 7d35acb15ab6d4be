package bot

import (
	"math/rand"
	"slices"

	"poker-club/internal/game"
)

type Decision struct {
	Action game.ActionKind
	Amount int64
}

// Decide plays a random legal move: check or min-raise when nothing is
// owed, otherwise fold, call or min-raise with equal odds.
func Decide(rnd *rand.Rand, legal game.Legal) Decision {
	can := func(k game.ActionKind) bool { return slices.Contains(legal.Actions, k) }
	raise := Decision{Action: game.ActionRaise, Amount: legal.MinRaise}
	if !can(game.ActionRaise) {
		raise = Decision{Action: game.ActionAllIn}
	}
	if !can(raise.Action) {
		raise = Decision{}
	}

	var options []Decision
	if legal.ToCall == 0 {
		options = append(options, Decision{Action: game.ActionCheck})
	} else {
		options = append(options, Decision{Action: game.ActionFold})
		if can(game.ActionCall) {
			options = append(options, Decision{Action: game.ActionCall})
		}
	}
	if raise.Action != "" {
		options = append(options, raise)
	}
	return options[rnd.Intn(len(options))]
}
