package abilities

import (
	"cmp"
	"math/rand"
	"slices"
	"strings"
	"sync"
)

type factKey struct {
	subject   string
	attribute string
}

// Ledger remembers every fact disclosed to players during one game.
type Ledger struct {
	mu    sync.Mutex
	facts map[factKey]string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{facts: make(map[factKey]string)}
}

// Record adds disclosed facts. Later facts overwrite earlier ones with the
// same subject and attribute.
func (l *Ledger) Record(facts ...Fact) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range facts {
		l.facts[factKey{f.Subject, f.Attribute}] = f.Value
	}
}

// Contradicts reports whether any of facts disagrees with what was disclosed.
func (l *Ledger) Contradicts(facts ...Fact) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range facts {
		if l.contradicts(f) {
			return true
		}
	}
	return false
}

func (l *Ledger) contradicts(f Fact) bool {
	if v, ok := l.facts[factKey{f.Subject, f.Attribute}]; ok && v != f.Value {
		return true
	}

	switch f.Attribute {
	case AttrDemon:
		// A demon is evil.
		if f.Value == "yes" && l.facts[factKey{f.Subject, AttrEvil}] == "no" {
			return true
		}
	case AttrEvil:
		if f.Value == "no" && l.facts[factKey{f.Subject, AttrDemon}] == "yes" {
			return true
		}
	case AttrOneOf:
		// Both players are already known to hold other characters.
		a, b, ok := strings.Cut(f.Subject, "|")
		if !ok {
			return false
		}
		ra, oka := l.facts[factKey{a, AttrRole}]
		rb, okb := l.facts[factKey{b, AttrRole}]
		return oka && okb && ra != f.Value && rb != f.Value
	case AttrDemonAmong:
		a, b, ok := strings.Cut(f.Subject, "|")
		if !ok {
			return false
		}
		if f.Value == "yes" {
			return l.facts[factKey{a, AttrDemon}] == "no" && l.facts[factKey{b, AttrDemon}] == "no"
		}
		return l.facts[factKey{a, AttrDemon}] == "yes" || l.facts[factKey{b, AttrDemon}] == "yes"
	}
	return false
}

// Facts returns the recorded facts in a stable order.
func (l *Ledger) Facts() []Fact {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Fact, 0, len(l.facts))
	for k, v := range l.facts {
		out = append(out, Fact{Subject: k.subject, Attribute: k.attribute, Value: v})
	}
	slices.SortFunc(out, func(a, b Fact) int {
		return cmp.Or(cmp.Compare(a.Subject, b.Subject), cmp.Compare(a.Attribute, b.Attribute))
	})
	return out
}

type distortKey struct {
	tick  int
	actor string
	role  string
}

// Distorter substitutes false information for impaired actors. The choice is
// seeded from the game and cached per tick, so asking twice gives the same
// answer. Candidates that contradict the Ledger are never chosen.
type Distorter struct {
	mu     sync.Mutex
	ledger *Ledger
	cache  map[distortKey]Result
}

// NewDistorter returns a distorter checking candidates against ledger.
func NewDistorter(ledger *Ledger) *Distorter {
	if ledger == nil {
		ledger = NewLedger()
	}
	return &Distorter{
		ledger: ledger,
		cache:  make(map[distortKey]Result),
	}
}

// Ledger returns the ledger the distorter consults.
func (d *Distorter) Ledger() *Ledger {
	return d.ledger
}

// Distort returns the result an impaired actor receives in place of truth.
// When no consistent false candidate exists the truth is returned.
func (d *Distorter) Distort(h Handler, req Request, truth Result) Result {
	key := distortKey{tick: req.Tick, actor: req.Actor.ID, role: req.Actor.Role}

	d.mu.Lock()
	defer d.mu.Unlock()

	if res, ok := d.cache[key]; ok {
		return res
	}

	res := d.pick(h, req, truth)
	d.cache[key] = res
	return res
}

func (d *Distorter) pick(h Handler, req Request, truth Result) Result {
	dh, ok := h.(Distortable)
	if !ok || !truth.Disclose {
		return truth
	}

	var candidates []Result
	for _, c := range dh.Alternatives(req, truth) {
		if c.Info == truth.Info || d.ledger.Contradicts(c.Facts...) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return truth
	}

	rng := rand.New(rand.NewSource(Seed(req.State.Seed, req.Tick, req.Actor.ID, req.Actor.Role, "distort")))
	res := candidates[rng.Intn(len(candidates))]
	res.Effects = truth.Effects
	res.Truthful = false
	return res
}
