package solver

import (
	"cmp"
	"reflect"
	"sync"

	"github.com/danpasecinic/thimble/internal/errs"
	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/match"
	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/types"
)

// Source ranks binding functions. Lower values win ties.
type Source uint8

const (
	SourceExplicit Source = iota
	SourceDefault
	SourceImplicit
)

func (s Source) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourceDefault:
		return "default"
	case SourceImplicit:
		return "implicit"
	default:
		return "unknown"
	}
}

// DesireChain is the rewrite history of one dependency: the initial desire
// followed by each rule applied and the desire it produced.
type DesireChain struct {
	desires []inject.Desire
	rules   []*BindRule
}

func NewDesireChain(d inject.Desire) DesireChain {
	return DesireChain{desires: []inject.Desire{d}}
}

func (c DesireChain) Initial() inject.Desire {
	return c.desires[0]
}

func (c DesireChain) Current() inject.Desire {
	return c.desires[len(c.desires)-1]
}

func (c DesireChain) Len() int {
	return len(c.rules)
}

func (c DesireChain) Applied(r *BindRule) bool {
	for _, applied := range c.rules {
		if applied == r {
			return true
		}
	}
	return false
}

func (c DesireChain) Extend(r *BindRule, d inject.Desire) DesireChain {
	return DesireChain{
		desires: append(c.desires[:len(c.desires):len(c.desires)], d),
		rules:   append(c.rules[:len(c.rules):len(c.rules)], r),
	}
}

// Candidate is a rule proposed by a binding function together with the
// evidence used to rank it.
type Candidate struct {
	Rule    *BindRule
	Context []match.MatchElement
	Source  Source
	// Distance is the number of hierarchy steps from the desired type to the
	// rule's dependency type.
	Distance int
}

// Compare returns a negative number when c is the better candidate.
func (c Candidate) Compare(o Candidate) int {
	if r := match.CompareChains(c.Context, o.Context); r != 0 {
		return r
	}
	if r := c.Rule.qualifier.Compare(o.Rule.qualifier); r != 0 {
		return r
	}
	if r := cmp.Compare(c.Distance, o.Distance); r != 0 {
		return r
	}
	return cmp.Compare(c.Source, o.Source)
}

// BindingFunction proposes at most one rule for the current desire of chain
// at ctx.
type BindingFunction interface {
	Bind(ctx *InjectionContext, chain DesireChain) (Candidate, bool, error)
}

// ScopedRule is a rule that only applies beneath a matching context.
type ScopedRule struct {
	Context match.Chain
	Rule    *BindRule
}

// RuleSet is a binding function over a fixed list of scoped rules.
type RuleSet struct {
	source   Source
	rules    []ScopedRule
	universe types.Universe
}

func NewRuleSet(source Source, u types.Universe, rules ...ScopedRule) *RuleSet {
	return &RuleSet{source: source, rules: rules, universe: u}
}

func (s *RuleSet) Source() Source {
	return s.source
}

func (s *RuleSet) Rules() []ScopedRule {
	return s.rules
}

func (s *RuleSet) Bind(ctx *InjectionContext, chain DesireChain) (Candidate, bool, error) {
	desire := chain.Current()
	path := ctx.Path()

	var (
		best  Candidate
		found bool
		tied  []ScopedRule
		bestR ScopedRule
	)

	for _, sr := range s.rules {
		if chain.Applied(sr.Rule) || !sr.Rule.Matches(desire, s.universe) {
			continue
		}
		elems, ok := sr.Context.Match(path, s.universe)
		if !ok {
			continue
		}

		c := Candidate{
			Rule:     sr.Rule,
			Context:  elems,
			Source:   s.source,
			Distance: s.universe.Distance(desire.Type(), sr.Rule.depType),
		}

		switch {
		case !found:
			best, bestR, found = c, sr, true
			tied = tied[:0]
		case c.Compare(best) < 0:
			best, bestR = c, sr
			tied = tied[:0]
		case c.Compare(best) == 0 && !sameRule(sr, bestR):
			tied = append(tied, sr)
		}
	}

	if len(tied) > 0 {
		return Candidate{}, false, ambiguous(desire, bestR, tied[0])
	}
	return best, found, nil
}

func sameRule(a, b ScopedRule) bool {
	return a.Rule == b.Rule || (*a.Rule == *b.Rule && a.Context.Equal(b.Context))
}

func ambiguous(d inject.Desire, a, b ScopedRule) error {
	return errs.Newf(
		errs.CodeAmbiguousBinding, "rules %s in %s and %s in %s are equally specific",
		a.Rule, a.Context, b.Rule, b.Context,
	).WithType(types.Name(d.Type())).WithQualifier(qualifier.Describe(d.Qualifier()))
}

// Discoverer builds a satisfaction for a type that has no explicit binding,
// or reports that it cannot.
type Discoverer func(t reflect.Type) (inject.Satisfaction, bool, error)

// Implicit binds desires for directly constructible types. Discovered
// satisfactions are cached per type so that repeated resolutions reuse them.
type Implicit struct {
	discover Discoverer
	universe types.Universe

	mu    sync.Mutex
	rules map[reflect.Type]*BindRule
}

func NewImplicit(u types.Universe, discover Discoverer) *Implicit {
	return &Implicit{
		discover: discover,
		universe: u,
		rules:    make(map[reflect.Type]*BindRule),
	}
}

func (b *Implicit) Bind(_ *InjectionContext, chain DesireChain) (Candidate, bool, error) {
	desire := chain.Current()
	if desire.Instantiable() || desire.Type() == nil {
		return Candidate{}, false, nil
	}

	rule, err := b.ruleFor(desire.Type())
	if err != nil || rule == nil || chain.Applied(rule) {
		return Candidate{}, false, err
	}

	return Candidate{Rule: rule, Source: SourceImplicit}, true, nil
}

func (b *Implicit) ruleFor(t reflect.Type) (*BindRule, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rule, ok := b.rules[t]; ok {
		return rule, nil
	}

	sat, ok, err := b.discover(t)
	if err != nil {
		return nil, err
	}

	var rule *BindRule
	if ok {
		rule, err = NewRule(t).ToSatisfaction(sat).Terminal(true).Build()
		if err != nil {
			return nil, err
		}
	}
	b.rules[t] = rule
	return rule, nil
}
