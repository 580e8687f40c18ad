package solver

import (
	"errors"

	"github.com/danpasecinic/thimble/internal/errs"
	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/scope"
	"github.com/danpasecinic/thimble/internal/types"
)

// rewrite applies the best ranked rule to desire until no rule applies, or a
// terminal rule has attached a satisfaction. The returned policy is the last
// explicit cache hint seen along the way, else the satisfaction's own default.
func (r *resolution) rewrite(ctx *InjectionContext, desire inject.Desire) (inject.Desire, scope.CachePolicy, error) {
	chain := NewDesireChain(desire)
	policy := scope.NoPreference
	final := false

	for {
		if chain.Len() >= r.maxDepth {
			return inject.Desire{}, policy, r.fail(
				errs.Newf(errs.CodeRewriteCycle, "no satisfaction after %d rewrites", chain.Len()),
				ctx, desire,
			)
		}

		cand, ok, err := r.selectRule(ctx, chain, final)
		if err != nil {
			var e *errs.Error
			if !errors.As(err, &e) {
				e = errs.New(errs.CodeInvalidBinding, "cannot derive a binding", err)
			}
			if e.Path == nil {
				r.fail(e, ctx, chain.Current())
			}
			return inject.Desire{}, policy, e
		}
		if !ok {
			break
		}

		next := cand.Rule.Apply(chain.Current())
		chain = chain.Extend(cand.Rule, next)
		if p := cand.Rule.CachePolicy(); p != scope.NoPreference {
			policy = p
		}

		r.logger.Debug().
			Str("desire", desire.String()).
			Str("rule", cand.Rule.String()).
			Stringer("source", cand.Source).
			Int("step", chain.Len()).
			Msg("applied bind rule")

		if cand.Rule.Terminal() {
			if next.Instantiable() {
				break
			}
			final = true
		}
	}

	current := chain.Current()
	if !current.Instantiable() {
		return inject.Desire{}, policy, r.fail(
			errs.Newf(errs.CodeUnsatisfiableDependency, "no binding, default or constructor for %s", types.ShortName(current.Type())),
			ctx, desire,
		)
	}

	if policy == scope.NoPreference {
		policy = current.Satisfaction().DefaultCachePolicy()
	}
	return current, policy, nil
}

// selectRule asks every binding function for its best rule and keeps the best
// overall. Once a terminal rule has fired only implicit bindings are consulted.
func (r *resolution) selectRule(ctx *InjectionContext, chain DesireChain, final bool) (Candidate, bool, error) {
	var (
		best  Candidate
		found bool
	)

	for _, fn := range r.functions {
		if final {
			if _, implicit := fn.(*Implicit); !implicit {
				continue
			}
		}

		c, ok, err := fn.Bind(ctx, chain)
		if err != nil {
			return Candidate{}, false, err
		}
		if ok && (!found || c.Compare(best) < 0) {
			best, found = c, true
		}
	}

	return best, found, nil
}
