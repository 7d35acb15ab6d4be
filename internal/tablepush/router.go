package tablepush

import "slices"

type Router struct{}

func (r Router) MatchTargets(targets []Target, ev NormalizedEvent) []Target {
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if !t.Enabled {
			continue
		}
		if t.TableID != "" && t.TableID != ev.TableID {
			continue
		}
		if len(t.Events) > 0 && !slices.Contains(t.Events, ev.EventType) {
			continue
		}
		out = append(out, t)
	}
	return out
}
