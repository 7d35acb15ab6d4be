package bot

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"poker-club/internal/broadcast"
	"poker-club/internal/game"
	"poker-club/internal/session"
)

// Player is an in-process demo bot. It follows the table's snapshot
// events and acts whenever the turn is its own.
type Player struct {
	Table    *session.Coordinator
	Hub      *broadcast.Hub
	PlayerID string
	Seat     int
	BuyIn    int64
	Rand     *rand.Rand

	log zerolog.Logger
}

// Run seats the bot and plays until ctx ends or the table closes. The
// seat is given up on the way out.
func (p *Player) Run(ctx context.Context) error {
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewSource(int64(p.Seat) + 1))
	}
	p.log = log.With().Str("table_id", p.Table.ID()).Str("player_id", p.PlayerID).Int("seat", p.Seat).Logger()

	buf := p.Hub.Buffer(p.Table.ID())
	ch := buf.Subscribe()
	defer buf.Unsubscribe(ch)

	if err := p.sit(ctx); err != nil {
		return err
	}
	p.log.Info().Msg("bot seated")
	for {
		select {
		case <-ctx.Done():
			p.leave()
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			switch ev.Event {
			case "table_closed":
				return nil
			case "snapshot", "hand_result":
			default:
				continue
			}
			if err := p.step(ctx); err != nil {
				if errors.Is(err, session.ErrTableClosed) || errors.Is(err, context.Canceled) {
					return nil
				}
				p.log.Warn().Err(err).Msg("bot step")
			}
		}
	}
}

func (p *Player) sit(ctx context.Context) error {
	_, err := p.Table.Join(ctx, p.Seat, p.PlayerID, p.BuyIn)
	return err
}

func (p *Player) step(ctx context.Context) error {
	v, err := p.Table.Snapshot(ctx, p.Seat)
	if err != nil {
		return err
	}
	if _, seated := v.SeatOf(p.PlayerID); !seated {
		return p.sit(ctx)
	}
	for _, sv := range v.Seats {
		if sv.Seat == p.Seat && sv.Stack == 0 && !sv.InHand {
			p.log.Info().Msg("bot busted; buying in again")
			if _, err := p.Table.Leave(ctx, p.Seat); err != nil {
				return err
			}
			return p.sit(ctx)
		}
	}
	if v.CurrentActorSeat != p.Seat || v.Legal == nil {
		return nil
	}
	d := Decide(p.Rand, *v.Legal)
	_, err = p.Table.Act(ctx, p.Seat, d.Action, d.Amount, v.TurnID)
	if errors.Is(err, game.ErrStaleTurn) || errors.Is(err, game.ErrInvalidTurn) {
		return nil
	}
	return err
}

func (p *Player) leave() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := p.Table.Leave(ctx, p.Seat); err != nil && !errors.Is(err, session.ErrTableClosed) {
		p.log.Debug().Err(err).Msg("bot leave")
	}
}
