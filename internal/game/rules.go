package game

// Legal describes what the current actor may do. Raise amounts are
// increments over the current bet.
type Legal struct {
	Actions  []ActionKind `json:"actions"`
	ToCall   int64        `json:"to_call"`
	MinRaise int64        `json:"min_raise"`
	MaxRaise int64        `json:"max_raise"`
}

type move struct {
	kind  ActionKind
	pay   int64
	label string
}

// canRaise is false for a seat that already acted at or above the last full
// raise level: a short all-in does not reopen betting for it.
func (e *Engine) canRaise(s *Seat) bool {
	return !s.Acted || s.ActedAt < e.State.FullBetLevel
}

// resolve validates an action against the bet level and returns the chips it
// moves. It never mutates state.
func (e *Engine) resolve(s *Seat, kind ActionKind, amount int64) (move, error) {
	t := e.State
	toCall := t.ToCall(s.Index)
	switch kind {
	case ActionFold:
		return move{kind: ActionFold, label: string(ActionFold)}, nil
	case ActionCheck:
		if toCall > 0 {
			return move{}, illegal("check facing a bet of %d", toCall)
		}
		return move{kind: ActionCheck, label: string(ActionCheck)}, nil
	case ActionCall:
		if toCall == 0 {
			return move{}, illegal("nothing to call")
		}
		if toCall >= s.Stack {
			return move{kind: ActionCall, pay: s.Stack, label: string(ActionAllIn)}, nil
		}
		return move{kind: ActionCall, pay: toCall, label: string(ActionCall)}, nil
	case ActionRaise:
		if amount <= 0 {
			return move{}, illegal("raise amount must be positive")
		}
		if amount >= s.Stack-toCall {
			return e.resolveAllIn(s)
		}
		if !e.canRaise(s) {
			return move{}, illegal("betting is not reopened for seat %d", s.Index)
		}
		if amount < t.MinRaise {
			return move{}, illegal("raise by %d below minimum %d", amount, t.MinRaise)
		}
		return move{kind: ActionRaise, pay: toCall + amount, label: string(ActionRaise)}, nil
	case ActionAllIn:
		return e.resolveAllIn(s)
	}
	return move{}, illegal("unknown action %q", kind)
}

func (e *Engine) resolveAllIn(s *Seat) (move, error) {
	toCall := e.State.ToCall(s.Index)
	if s.Stack > toCall && !e.canRaise(s) {
		return move{}, illegal("betting is not reopened for seat %d; call or fold", s.Index)
	}
	return move{kind: ActionAllIn, pay: s.Stack, label: string(ActionAllIn)}, nil
}

// LegalActions lists the options of the seat whose turn it is. Any other
// seat gets an empty result.
func (e *Engine) LegalActions(idx int) Legal {
	t := e.State
	if !t.Phase.Betting() || idx != t.CurrentActor {
		return Legal{}
	}
	s := t.Seats[idx]
	if s == nil || s.Status != SeatActive {
		return Legal{}
	}
	toCall := t.ToCall(idx)
	l := Legal{ToCall: toCall, Actions: []ActionKind{ActionFold}}
	if toCall == 0 {
		l.Actions = append(l.Actions, ActionCheck)
	} else {
		l.Actions = append(l.Actions, ActionCall)
	}
	if s.Stack <= toCall {
		l.Actions = append(l.Actions, ActionAllIn)
		return l
	}
	if !e.canRaise(s) {
		return l
	}
	l.MaxRaise = s.Stack - toCall
	l.MinRaise = t.MinRaise
	if l.MinRaise > l.MaxRaise {
		l.MinRaise = l.MaxRaise
	}
	l.Actions = append(l.Actions, ActionRaise, ActionAllIn)
	return l
}

func (e *Engine) needsAction(s *Seat) bool {
	return s.canAct() && (!s.Acted || e.State.ToCall(s.Index) > 0)
}

// streetComplete is true when every seat able to act has acted and matched
// the bet, or when at most one such seat is left and it owes nothing.
func (e *Engine) streetComplete() bool {
	t := e.State
	actors := 0
	for _, s := range t.Seats {
		if !s.canAct() {
			continue
		}
		actors++
		if t.ToCall(s.Index) > 0 {
			return false
		}
	}
	if actors <= 1 {
		return true
	}
	return t.count(e.needsAction) == 0
}
