package game

import (
	"errors"
	"testing"
)

func TestStraddleRaisesPreflopBetLevel(t *testing.T) {
	e := newTestEngine(t, testRules(4), 1000, 1000, 1000, 1000)
	mustStart(t, e)
	if e.State.CurrentActor != 3 {
		t.Fatalf("expected seat 3 under the gun, got %d", e.State.CurrentActor)
	}
	if _, err := e.PostStraddle(0, 40); !errors.Is(err, ErrInvalidTurn) {
		t.Fatalf("only the seat after the big blind may straddle, got %v", err)
	}
	if _, err := e.PostStraddle(3, 30); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("straddle below two big blinds should be illegal, got %v", err)
	}
	if _, err := e.PostStraddle(3, 5000); !errors.Is(err, ErrInsufficientStack) {
		t.Fatalf("expected insufficient stack, got %v", err)
	}
	out, err := e.PostStraddle(3, 40)
	if err != nil {
		t.Fatalf("straddle: %v", err)
	}
	if out.NextActor != 0 || e.State.CurrentBet != 40 || e.State.StraddleSeat != 3 {
		t.Fatalf("unexpected state after straddle: actor=%d bet=%d", out.NextActor, e.State.CurrentBet)
	}
	if _, err := e.PostStraddle(3, 80); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("second straddle should be illegal, got %v", err)
	}
	mustAct(t, e, 0, ActionCall, 0)
	mustAct(t, e, 1, ActionCall, 0)
	mustAct(t, e, 2, ActionCall, 0)
	if e.State.CurrentActor != 3 {
		t.Fatalf("straddler should get the option, actor=%d", e.State.CurrentActor)
	}
	legal := e.LegalActions(3)
	if legal.ToCall != 0 || legal.Actions[1] != ActionCheck {
		t.Fatalf("straddler should be able to check, got %+v", legal)
	}
	out = mustAct(t, e, 3, ActionCheck, 0)
	if out.Phase != PhaseFlop || e.State.Pot() != 160 {
		t.Fatalf("expected flop with 160 in the pot, got %s %d", out.Phase, e.State.Pot())
	}
}

func TestStraddleNeedsThreePlayers(t *testing.T) {
	e := newTestEngine(t, testRules(2), 1000, 1000)
	mustStart(t, e)
	if _, err := e.PostStraddle(0, 40); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected heads-up straddle to be illegal, got %v", err)
	}
}

func TestStraddleDisabled(t *testing.T) {
	rules := testRules(4)
	rules.AllowStraddle = false
	e := newTestEngine(t, rules, 1000, 1000, 1000, 1000)
	mustStart(t, e)
	if _, err := e.PostStraddle(3, 40); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected disabled straddle, got %v", err)
	}
}

func TestBombPotJumpsToFlop(t *testing.T) {
	e := newTestEngine(t, testRules(6), 1000, 1000, 1000, 1000)
	out, err := e.StartBombPot("hand_bomb")
	if err != nil {
		t.Fatalf("bomb pot: %v", err)
	}
	if e.State.Pot() != 200 {
		t.Fatalf("expected pot 200, got %d", e.State.Pot())
	}
	if out.Phase != PhaseFlop || e.State.Phase != PhaseFlop || len(e.State.Community) != 3 {
		t.Fatalf("expected flop, got %s with %d cards", e.State.Phase, len(e.State.Community))
	}
	if !e.State.BombPot || e.State.SmallBlindSeat != -1 || e.State.BigBlindSeat != -1 {
		t.Fatalf("bomb pot should post no blinds")
	}
	if e.State.CurrentActor != 1 {
		t.Fatalf("expected first seat after the button to act on the flop, got %d", e.State.CurrentActor)
	}
	for _, s := range e.State.Seats[:4] {
		if s.HandContrib != 50 || s.StreetBet != 0 {
			t.Fatalf("seat %d: contrib=%d street=%d", s.Index, s.HandContrib, s.StreetBet)
		}
	}
	if _, err := e.PostStraddle(1, 40); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("no straddle in a bomb pot, got %v", err)
	}
}

func TestBombPotShortStacksRunOut(t *testing.T) {
	e := newTestEngine(t, testRules(3), 40, 50)
	out, err := e.StartBombPot("hand_bomb")
	if err != nil {
		t.Fatalf("bomb pot: %v", err)
	}
	if !out.HandOver || len(e.State.Community) != 5 {
		t.Fatalf("expected all-in runout, got phase %s", e.State.Phase)
	}
	if out.Result.PaidOut() != 90 {
		t.Fatalf("expected 90 paid out, got %d", out.Result.PaidOut())
	}
}

func TestBombPotDisabled(t *testing.T) {
	rules := testRules(3)
	rules.AllowBombPot = false
	e := newTestEngine(t, rules, 1000, 1000)
	if _, err := e.StartBombPot("hand_bomb"); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected disabled bomb pot, got %v", err)
	}
}

func TestRabbitHuntAfterFoldOut(t *testing.T) {
	e := newTestEngine(t, testRules(2), 1000, 1000)
	stackDeck(e, "Ah Kh Ad Kd 2c 7s 9d Jc 3h")
	if _, _, err := e.RabbitHunt(0); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("nothing to hunt before a hand, got %v", err)
	}
	mustStart(t, e)
	if _, _, err := e.RabbitHunt(0); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("no hunting during betting, got %v", err)
	}
	out := mustAct(t, e, 0, ActionFold, 0)
	if !out.Result.FoldOut {
		t.Fatalf("expected fold-out")
	}
	pot := e.State.LastResult.PaidOut()
	cards, fee, err := e.RabbitHunt(0)
	if err != nil {
		t.Fatalf("rabbit hunt: %v", err)
	}
	if got := CardStrings(cards); len(got) != 5 || got[0] != "2c" || got[4] != "3h" {
		t.Fatalf("unexpected rabbit cards %v", got)
	}
	if fee != 5 || e.State.Seats[0].Stack != 985 {
		t.Fatalf("expected fee 5 from stack, fee=%d stack=%d", fee, e.State.Seats[0].Stack)
	}
	if e.State.LastResult.PaidOut() != pot || len(e.State.Community) != 0 {
		t.Fatalf("rabbit hunt must not touch the pot or board")
	}
	if _, _, err := e.RabbitHunt(0); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("second hunt should be rejected, got %v", err)
	}
	e.FinishHand()
	if _, _, err := e.RabbitHunt(1); err != nil {
		t.Fatalf("winner may hunt after the hand: %v", err)
	}
}

func TestRabbitHuntNeedsStack(t *testing.T) {
	rules := testRules(2)
	rules.RabbitHuntCost = 5000
	e := newTestEngine(t, rules, 1000, 1000)
	mustStart(t, e)
	mustAct(t, e, 0, ActionFold, 0)
	if _, _, err := e.RabbitHunt(0); !errors.Is(err, ErrInsufficientStack) {
		t.Fatalf("expected insufficient stack, got %v", err)
	}
}

func TestRabbitHuntNotAfterShowdown(t *testing.T) {
	e := newTestEngine(t, testRules(2), 1000, 1000)
	mustStart(t, e)
	mustAct(t, e, 0, ActionAllIn, 0)
	mustAct(t, e, 1, ActionCall, 0)
	if _, _, err := e.RabbitHunt(0); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("expected rejection after a showdown, got %v", err)
	}
}
