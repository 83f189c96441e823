package storyteller

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixil98/go-clocktower/internal/abilities"
	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/narration"
	"github.com/pixil98/go-clocktower/internal/rules"
)

// evilInfoMinPlayers is the smallest game in which the evil team learns
// each other on the first night.
const evilInfoMinPlayers = 7

// runNight plays one night. A night that was interrupted picks up after the
// last wake slot that finished, without clearing the night's effects again.
func (st *Storyteller) runNight(ctx context.Context, first bool) error {
	st.mu.Lock()
	resumed := st.state.NightStep > 0
	if !resumed {
		if !first {
			st.dusk()
		}
		st.state.Night++
		st.state.NightStep = 1
		st.state.Touch()
	}
	done := st.state.NightStep - 1
	night := st.state.Night
	script := st.state.Script
	st.mu.Unlock()

	if resumed {
		st.log.InfoContext(ctx, "night resumed", "night", night, "slots_done", done)
	} else {
		st.log.InfoContext(ctx, "night falls", "night", night)
		st.announce(ctx, narration.KindNightFalls, map[string]any{"Night": night})
	}

	var order []string
	var err error
	if first {
		order, err = st.provider.FirstNightOrder(script)
	} else {
		order, err = st.provider.OtherNightOrder(script)
	}
	if err != nil {
		return &InvariantError{Err: err}
	}

	if first && done == 0 {
		st.evilInfo(ctx)
	}

	slot := 0
	for _, role := range order {
		st.mu.Lock()
		holders := st.state.PlayersWithRole(role)
		st.mu.Unlock()

		for _, p := range holders {
			slot++
			if slot <= done {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := st.wake(ctx, p, first, slot); err != nil {
				return err
			}
		}
	}

	return st.dawn(ctx)
}

// dusk clears the effects that only last one night. mu must be held.
func (st *Storyteller) dusk() {
	for _, p := range st.state.Players {
		p.Poisoned = false
		p.ClearReminders(game.TokenPoisoned)
		p.ClearReminders(game.TokenProtected)
		p.ClearReminders(game.TokenDiedTonight)
	}
}

// evilInfo tells the minions who their demon is and the demon who its
// minions are along with three bluffs.
func (st *Storyteller) evilInfo(ctx context.Context) {
	st.mu.Lock()
	if len(st.state.Players) < evilInfoMinPlayers {
		st.mu.Unlock()
		return
	}
	demon, err := st.state.Demon()
	minions := playerNames(st.state.Minions())
	bluffs := append([]string(nil), st.state.Bluffs...)
	st.mu.Unlock()
	if err != nil {
		return
	}

	for _, m := range minions {
		msg := fmt.Sprintf("%s is the demon.", demon.Name)
		if others := without(minions, m); len(others) > 0 {
			msg += fmt.Sprintf(" Your fellow minions: %s.", strings.Join(others, ", "))
		}
		st.tell(ctx, m, msg)
	}
	st.tell(ctx, demon.Name, fmt.Sprintf("Your minions: %s. These characters are not in play: %s.",
		strings.Join(minions, ", "), strings.Join(bluffs, ", ")))
}

func without(list []string, s string) []string {
	var out []string
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// wake resolves one player's night ability and applies the result before
// the next role in the night order acts. The slot is marked finished in the
// same critical section that applies the result.
func (st *Storyteller) wake(ctx context.Context, p *game.Player, first bool, slot int) error {
	h, err := st.provider.GetAbilityHandler(p.Role)
	if err != nil {
		return &InvariantError{Err: err}
	}
	if !abilities.HasAbility(h, first) {
		st.finishSlot(slot)
		return nil
	}

	st.mu.Lock()
	req := abilities.Request{
		State: st.state,
		Actor: p,
		First: first,
		Tick:  st.state.Night,
		Roles: st.book,
	}
	if !abilities.Wakes(h, req) {
		st.state.NightStep = slot + 1
		st.mu.Unlock()
		return nil
	}
	st.mu.Unlock()

	st.emit(ctx, st.event(events.PlayerWoken, map[string]any{"player": p.Name, "role": p.Role}))
	st.tell(ctx, p.Name, fmt.Sprintf("%s, wake up. You are the %s.", p.Name, p.Role))

	targets, err := st.chooseTargets(ctx, p, h.Targets())
	if err != nil {
		return err
	}
	req.Targets = targets

	res, err := abilities.Resolve(h, req, st.distorter)
	if err != nil {
		return &InvariantError{Err: fmt.Errorf("resolving %s for %s: %w", p.Role, p.Name, err)}
	}

	disclose := res.Disclose && res.Info != ""
	st.mu.Lock()
	evs := st.apply(p, res)
	if disclose {
		st.distorter.Ledger().Record(res.Facts...)
		st.state.Disclosed = st.distorter.Ledger().Facts()
	}
	st.state.NightStep = slot + 1
	st.mu.Unlock()

	st.log.DebugContext(ctx, "ability resolved", "role", res.Role, "player", p.Name, "targets", res.Targets, "truthful", res.Truthful)
	evs = append(evs, st.event(events.AbilityResolved, map[string]any{
		"role":     p.Role,
		"player":   p.Name,
		"targets":  res.Targets,
		"truthful": res.Truthful,
	}))
	st.emit(ctx, evs...)

	if disclose {
		st.tell(ctx, p.Name, res.Info)
	}
	st.tell(ctx, p.Name, "Go back to sleep.")

	return nil
}

// chooseTargets prompts until the player names a legal set of targets. A
// player who will not choose gets a random legal choice.
func (st *Storyteller) chooseTargets(ctx context.Context, p *game.Player, rule rules.TargetRule) ([]*game.Player, error) {
	if rule.Count == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf("%s, choose %d player(s).", p.Role, rule.Count)
	for range st.cfg.MaxPromptTries {
		picked, err := st.io.ChoosePlayers(ctx, p.Name, prompt, rule.Count)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			st.log.WarnContext(ctx, "choosing targets", "player", p.Name, "error", err)
			break
		}

		st.mu.Lock()
		targets := make([]*game.Player, 0, len(picked))
		for _, name := range picked {
			targets = append(targets, st.state.PlayerByName(name))
		}
		err = rules.ValidateTargets(rule, p, targets)
		st.mu.Unlock()

		if err == nil {
			return targets, nil
		}
		st.tell(ctx, p.Name, err.Error())
	}

	targets := st.randomTargets(p, rule)
	st.log.InfoContext(ctx, "chose targets at random", "player", p.Name, "targets", playerNames(targets))
	return targets, nil
}

func (st *Storyteller) randomTargets(p *game.Player, rule rules.TargetRule) []*game.Player {
	st.mu.Lock()
	defer st.mu.Unlock()

	var pool []*game.Player
	for _, c := range st.state.Players {
		if (c.ID != p.ID || rule.AllowSelf) && (c.IsAlive() || rule.AllowDead) {
			pool = append(pool, c)
		}
	}
	st.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:min(rule.Count, len(pool))]
}

func (st *Storyteller) finishSlot(slot int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.NightStep = slot + 1
}

// apply writes an ability's effects to the state. mu must be held.
func (st *Storyteller) apply(actor *game.Player, res abilities.Result) []events.Event {
	var evs []events.Event
	for _, e := range res.Effects {
		t := st.state.PlayerByID(e.Target)
		if t == nil {
			continue
		}

		switch e.Kind {
		case abilities.EffectPoison:
			t.Poisoned = true
			t.AddReminder(game.TokenPoisoned, res.Role, "")
		case abilities.EffectDrunk:
			t.AddReminder(game.TokenDrunk, res.Role, "")
		case abilities.EffectProtect:
			t.AddReminder(game.TokenProtected, res.Role, actor.ID)
		case abilities.EffectKill:
			evs = append(evs, st.kill(t, res.Role))
		case abilities.EffectReminder:
			t.AddReminder(e.Token, res.Role, e.Note)
		case abilities.EffectMarkMaster:
			actor.ClearReminders(game.TokenMaster)
			actor.AddReminder(game.TokenMaster, res.Role, t.ID)
		}
	}
	st.state.Touch()
	return evs
}

// kill applies a night kill. mu must be held.
func (st *Storyteller) kill(t *game.Player, source string) events.Event {
	reason := ""
	switch {
	case !t.IsAlive():
		reason = "already dead"
	case t.HasReminder(game.TokenProtected):
		reason = "protected"
	case t.Role == abilities.RoleSoldier && !t.Impaired():
		reason = "soldier"
	}
	if reason != "" {
		return st.event(events.PlayerSurvived, map[string]any{"player": t.Name, "source": source, "reason": reason})
	}

	t.Status = game.StatusDead
	t.AddReminder(game.TokenDiedTonight, source, "")
	return st.event(events.PlayerDied, map[string]any{"player": t.Name, "source": source})
}

// dawn announces the night's deaths, starts the next day and checks for a
// winner.
func (st *Storyteller) dawn(ctx context.Context) error {
	st.mu.Lock()
	var deaths []string
	for _, p := range st.state.Players {
		if p.HasReminder(game.TokenDiedTonight) {
			deaths = append(deaths, p.Name)
		}
	}
	st.state.Day++
	st.state.NightStep = 0
	st.state.Nominations = nil
	st.state.ExecutedToday = ""
	day := st.state.Day
	changed := st.setPhase(game.PhaseDay)
	out, err := rules.CheckWinCondition(st.state)
	st.mu.Unlock()

	if err != nil {
		return &InvariantError{Err: err}
	}

	st.log.InfoContext(ctx, "dawn", "day", day, "deaths", deaths)
	st.emit(ctx, changed)
	st.announce(ctx, narration.KindDawn, map[string]any{"Day": day, "Deaths": deaths})

	if out.Ended {
		st.endGame(ctx, out)
	}
	return nil
}
