package storyteller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pixil98/go-clocktower/internal/abilities"
	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/narration"
	"github.com/pixil98/go-clocktower/internal/rules"
)

// Day commands.
const (
	CommandNominate = "nominate"
	CommandClose    = "close"
	CommandStatus   = "status"
	CommandSlay     = "slay"
)

// Commands are the verbs heard during the day.
var Commands = []string{CommandNominate, CommandClose, CommandStatus, CommandSlay}

// VoteResult is the tally of one nomination.
type VoteResult struct {
	Nominee  string
	Votes    int
	Required int
	Voters   []string
	Executed bool
}

func (st *Storyteller) runDay(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, st.cfg.DiscussionTimeout)
	defer cancel()

	failures := 0
	for {
		if phase, _ := st.phase(); phase != game.PhaseDay {
			return nil
		}

		cmd, err := st.io.ListenForCommand(dctx, Commands)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if dctx.Err() != nil {
				st.log.InfoContext(ctx, "discussion timed out")
				break
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("listening for commands: %w", err)
			}
			failures++
			st.log.WarnContext(ctx, "listening for commands", "error", err)
			if failures >= st.cfg.MaxPromptTries {
				break
			}
			continue
		}
		failures = 0

		done, err := st.handleCommand(ctx, cmd)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}

	return st.closeDay(ctx)
}

// handleCommand runs one day command and reports whether the day is over.
func (st *Storyteller) handleCommand(ctx context.Context, text string) (bool, error) {
	verb, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	verb = strings.ToLower(verb)
	if slices.Contains(strings.Fields(strings.ToLower(text)), CommandSlay+"s") {
		verb = CommandSlay
	}

	switch verb {
	case CommandClose:
		return true, nil

	case CommandStatus:
		st.speak(ctx, st.status())
		return false, nil

	case CommandSlay:
		slayer, target, err := st.io.ParseNomination(text)
		if err != nil {
			st.speak(ctx, err.Error())
			return false, nil
		}
		err = st.Slay(ctx, slayer, target)
		if rules.IsRejection(err) {
			st.speak(ctx, err.Error())
			return false, nil
		}
		return false, err
	}

	nominator, nominee, err := st.io.ParseNomination(text)
	if err != nil {
		st.speak(ctx, err.Error())
		return false, nil
	}

	nom, err := st.Nominate(ctx, nominator, nominee)
	if rules.IsRejection(err) {
		st.speak(ctx, err.Error())
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if st.dayOver() {
		return true, nil
	}

	_, err = st.Vote(ctx, nom)
	if rules.IsRejection(err) {
		st.speak(ctx, err.Error())
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return st.dayOver(), nil
}

// dayOver reports whether no more nominations can lead anywhere today.
func (st *Storyteller) dayOver() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.Phase != game.PhaseDay || rules.ExecutionsToday(st.state) >= max(st.opts.ExecutionsPerDay, 1)
}

// Nominate records a nomination after checking it against the rules. A
// rejected nomination returns a *rules.Rejection and changes nothing.
func (st *Storyteller) Nominate(ctx context.Context, nominator, nominee string) (game.Nomination, error) {
	st.mu.Lock()
	if st.state == nil {
		st.mu.Unlock()
		return game.Nomination{}, ErrNotSetUp
	}

	if err := rules.ValidateNomination(nominator, nominee, st.state, st.opts); err != nil {
		st.mu.Unlock()
		st.emit(ctx, st.event(events.NominationRejected, map[string]any{
			"nominator": nominator,
			"nominee":   nominee,
			"reason":    err.Error(),
		}))
		return game.Nomination{}, err
	}

	nr := st.state.PlayerByName(nominator)
	ne := st.state.PlayerByName(nominee)
	nom := &game.Nomination{Nominator: nr.Name, Nominee: ne.Name, Day: st.state.Day}
	st.state.Nominations = append(st.state.Nominations, nom)
	required := rules.RequiredVotes(st.state.AliveCount())

	var out rules.Outcome
	var err error
	virgin := st.virginTriggered(nr, ne)
	if virgin {
		out, err = st.execute(nr)
	}
	st.state.Touch()
	made := *nom
	st.mu.Unlock()

	st.log.InfoContext(ctx, "nomination", "nominator", made.Nominator, "nominee", made.Nominee)
	st.emit(ctx, st.event(events.NominationMade, map[string]any{
		"nominator": made.Nominator,
		"nominee":   made.Nominee,
		"day":       made.Day,
	}))
	st.announce(ctx, narration.KindNomination, map[string]any{
		"Nominator": made.Nominator,
		"Nominee":   made.Nominee,
		"Required":  required,
	})

	if virgin {
		st.speak(ctx, fmt.Sprintf("%s is the Virgin.", made.Nominee))
		if err := st.finishExecution(ctx, made.Nominator, out, err); err != nil {
			return made, err
		}
	}

	return made, nil
}

// virginTriggered spends a healthy Virgin's ability and reports whether the
// nominator is a townsfolk who must be executed. mu must be held.
func (st *Storyteller) virginTriggered(nominator, nominee *game.Player) bool {
	if nominee.Role != abilities.RoleVirgin || nominee.Drunk || nominee.HasReminder(game.TokenAbilityUsed) {
		return false
	}
	nominee.AddReminder(game.TokenAbilityUsed, abilities.RoleVirgin, "")
	if nominee.Poisoned {
		return false
	}
	return nominator.Type == game.TypeTownsfolk && !nominator.Drunk
}

// Vote collects hands for a nomination made today, counts them and executes
// the nominee if the threshold is reached.
func (st *Storyteller) Vote(ctx context.Context, nom game.Nomination) (VoteResult, error) {
	st.mu.Lock()
	if st.state == nil {
		st.mu.Unlock()
		return VoteResult{}, ErrNotSetUp
	}
	stored, err := st.openNomination(nom)
	if err != nil {
		st.mu.Unlock()
		return VoteResult{}, err
	}
	var eligible []string
	for _, p := range st.state.Players {
		if rules.CanVote(p) {
			eligible = append(eligible, p.Name)
		}
	}
	current := *stored
	st.mu.Unlock()

	raised, err := st.io.CollectVotes(ctx, current, eligible)
	if err != nil {
		if ctx.Err() != nil {
			return VoteResult{}, ctx.Err()
		}
		st.log.WarnContext(ctx, "collecting votes", "nominee", current.Nominee, "error", err)
		raised = nil
	}

	st.mu.Lock()
	voters := st.countVotes(raised)
	res := VoteResult{
		Nominee:  stored.Nominee,
		Votes:    len(voters),
		Required: rules.RequiredVotes(st.state.AliveCount()),
		Voters:   voters,
	}
	stored.Votes = res.Votes
	stored.Voters = voters
	stored.Tallied = true

	var out rules.Outcome
	if res.Votes >= res.Required {
		res.Executed = true
		stored.Executed = true
		out, err = st.execute(st.state.PlayerByName(stored.Nominee))
	}
	st.state.Touch()
	st.mu.Unlock()

	st.log.InfoContext(ctx, "vote tallied", "nominee", res.Nominee, "votes", res.Votes, "required", res.Required)
	st.emit(ctx, st.event(events.VoteTallied, map[string]any{
		"nominee":  res.Nominee,
		"votes":    res.Votes,
		"required": res.Required,
		"voters":   res.Voters,
		"executed": res.Executed,
	}))
	st.announce(ctx, narration.KindVoteResult, map[string]any{
		"Nominee":  res.Nominee,
		"Votes":    res.Votes,
		"Required": res.Required,
		"Executed": res.Executed,
	})

	if res.Executed {
		return res, st.finishExecution(ctx, res.Nominee, out, err)
	}
	return res, nil
}

// openNomination finds today's untallied nomination matching nom. mu must
// be held.
func (st *Storyteller) openNomination(nom game.Nomination) (*game.Nomination, error) {
	if st.state.Phase != game.PhaseDay {
		return nil, &rules.Rejection{Reason: "voting is only allowed during the day"}
	}
	if rules.ExecutionsToday(st.state) >= max(st.opts.ExecutionsPerDay, 1) {
		return nil, &rules.Rejection{Reason: "there has already been an execution today"}
	}
	for _, n := range st.state.Nominations {
		if n.Day != st.state.Day || fold.String(n.Nominee) != fold.String(nom.Nominee) {
			continue
		}
		if n.Tallied {
			return nil, &rules.Rejection{Reason: fmt.Sprintf("the vote on %s is already over", n.Nominee)}
		}
		return n, nil
	}
	return nil, &rules.Rejection{Reason: fmt.Sprintf("%s has not been nominated today", nom.Nominee)}
}

// countVotes returns the voters whose hands count and spends the ghost
// votes of dead voters. mu must be held.
func (st *Storyteller) countVotes(raised []string) []string {
	seen := map[string]bool{}
	var hands []*game.Player
	for _, name := range raised {
		p := st.state.PlayerByName(name)
		if p == nil || seen[p.ID] || !rules.CanVote(p) {
			continue
		}
		seen[p.ID] = true
		hands = append(hands, p)
	}

	var voters []string
	for _, p := range hands {
		if !rules.ButlerMayVote(p, raised, st.state) {
			continue
		}
		if !p.IsAlive() {
			p.GhostVoteUsed = true
		}
		voters = append(voters, p.Name)
	}
	return voters
}

// execute kills p by execution and checks for a winner. mu must be held.
func (st *Storyteller) execute(p *game.Player) (rules.Outcome, error) {
	alive := st.state.AliveCount()
	p.Status = game.StatusDead
	p.AddReminder(game.TokenExecuted, "", "")
	if rules.SaintExecutionLoses(p) {
		p.AddReminder(game.TokenSaintLoss, rules.RoleSaint, "")
	}
	st.state.ExecutedToday = p.ID
	st.state.LastExecuted = p.ID
	st.passDemon(p, alive)
	return rules.CheckWinCondition(st.state)
}

func (st *Storyteller) finishExecution(ctx context.Context, name string, out rules.Outcome, err error) error {
	st.log.InfoContext(ctx, "execution", "player", name)
	st.emit(ctx, st.event(events.PlayerExecuted, map[string]any{"player": name}))
	st.announce(ctx, narration.KindExecution, map[string]any{"Player": name})
	st.revealNewDemon(ctx)

	if err != nil {
		return &InvariantError{Err: err}
	}
	if out.Ended {
		st.endGame(ctx, out)
	}
	return nil
}

// Slay resolves a public Slayer claim. Only a healthy Slayer who has not
// used the ability kills, and only the demon dies.
func (st *Storyteller) Slay(ctx context.Context, slayer, target string) error {
	st.mu.Lock()
	if st.state == nil {
		st.mu.Unlock()
		return ErrNotSetUp
	}
	if st.state.Phase != game.PhaseDay {
		st.mu.Unlock()
		return &rules.Rejection{Reason: "the Slayer may only act during the day"}
	}
	s := st.state.PlayerByName(slayer)
	t := st.state.PlayerByName(target)
	switch {
	case s == nil:
		st.mu.Unlock()
		return &rules.Rejection{Reason: fmt.Sprintf("player %q not found", slayer)}
	case t == nil:
		st.mu.Unlock()
		return &rules.Rejection{Reason: fmt.Sprintf("player %q not found", target)}
	case !s.IsAlive():
		st.mu.Unlock()
		return &rules.Rejection{Reason: fmt.Sprintf("%s is dead", s.Name)}
	}

	died := false
	if s.Role == abilities.RoleSlayer && !s.HasReminder(game.TokenAbilityUsed) {
		s.AddReminder(game.TokenAbilityUsed, abilities.RoleSlayer, "")
		if !s.Impaired() && t.IsAlive() && t.Type == game.TypeDemon {
			alive := st.state.AliveCount()
			t.Status = game.StatusDead
			st.passDemon(t, alive)
			died = true
		}
	}

	var out rules.Outcome
	var err error
	if died {
		out, err = rules.CheckWinCondition(st.state)
	}
	st.state.Touch()
	slayerName, targetName := s.Name, t.Name
	st.mu.Unlock()

	if died {
		st.emit(ctx, st.event(events.PlayerDied, map[string]any{"player": targetName, "source": abilities.RoleSlayer}))
	}
	st.announce(ctx, narration.KindSlay, map[string]any{
		"Slayer": slayerName,
		"Target": targetName,
		"Died":   died,
	})
	st.revealNewDemon(ctx)

	if err != nil {
		return &InvariantError{Err: err}
	}
	if out.Ended {
		st.endGame(ctx, out)
	}
	return nil
}

// closeDay ends the day, checking the day-end win conditions first.
func (st *Storyteller) closeDay(ctx context.Context) error {
	st.mu.Lock()
	if st.state.Phase != game.PhaseDay {
		st.mu.Unlock()
		return nil
	}
	out := rules.CheckDayEndWin(st.state)
	var changed events.Event
	if !out.Ended {
		changed = st.setPhase(game.PhaseNight)
	}
	st.mu.Unlock()

	if out.Ended {
		st.endGame(ctx, out)
		return nil
	}
	st.emit(ctx, changed)
	return nil
}

func (st *Storyteller) status() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	var alive, dead []string
	for _, p := range st.state.Players {
		switch {
		case p.IsAlive():
			alive = append(alive, p.Name)
		case p.GhostVoteUsed:
			dead = append(dead, p.Name)
		default:
			dead = append(dead, p.Name+" (ghost vote)")
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Day %d. Alive: %s.", st.state.Day, strings.Join(alive, ", "))
	if len(dead) > 0 {
		fmt.Fprintf(&sb, " Dead: %s.", strings.Join(dead, ", "))
	}
	fmt.Fprintf(&sb, " %d votes are needed to execute.", rules.RequiredVotes(st.state.AliveCount()))
	for _, n := range st.state.Nominations {
		fmt.Fprintf(&sb, " %s nominated %s", n.Nominator, n.Nominee)
		if n.Tallied {
			fmt.Fprintf(&sb, " (%d votes)", n.Votes)
		}
		sb.WriteString(".")
	}
	return sb.String()
}
