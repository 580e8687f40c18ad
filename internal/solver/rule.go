package solver

import (
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/errs"
	"github.com/danpasecinic/thimble/internal/inject"
	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/scope"
	"github.com/danpasecinic/thimble/internal/types"
)

// BindRule rewrites a desire whose type is assignable to the rule's dependency
// type into a narrower desire, or attaches a satisfaction to it.
type BindRule struct {
	depType   reflect.Type
	qualifier qualifier.Matcher
	implType  reflect.Type
	sat       inject.Satisfaction
	policy    scope.CachePolicy
	terminal  bool
}

func (r *BindRule) DependencyType() reflect.Type {
	return r.depType
}

func (r *BindRule) Qualifier() qualifier.Matcher {
	return r.qualifier
}

func (r *BindRule) Satisfaction() inject.Satisfaction {
	return r.sat
}

func (r *BindRule) CachePolicy() scope.CachePolicy {
	return r.policy
}

func (r *BindRule) Terminal() bool {
	return r.terminal
}

func (r *BindRule) target() reflect.Type {
	if r.sat != nil {
		return r.sat.Type()
	}
	return r.implType
}

func (r *BindRule) Matches(d inject.Desire, u types.Universe) bool {
	return u.IsAssignable(d.Type(), r.depType) &&
		u.IsAssignable(r.target(), d.Type()) &&
		r.qualifier.Matches(d.Qualifier())
}

func (r *BindRule) Apply(d inject.Desire) inject.Desire {
	if r.sat != nil {
		return d.RestrictSatisfaction(r.sat)
	}
	return d.Restrict(r.implType)
}

func (r *BindRule) String() string {
	return fmt.Sprintf("%s %s -> %s", r.qualifier, types.ShortName(r.depType), types.ShortName(r.target()))
}

// RuleBuilder assembles a BindRule. Unless told otherwise the rule accepts any
// qualifier, has no cache preference and is not terminal.
type RuleBuilder struct {
	rule BindRule
}

func NewRule(depType reflect.Type) *RuleBuilder {
	return &RuleBuilder{rule: BindRule{depType: depType, qualifier: qualifier.Any()}}
}

func (b *RuleBuilder) Qualifier(m qualifier.Matcher) *RuleBuilder {
	b.rule.qualifier = m
	return b
}

func (b *RuleBuilder) To(impl reflect.Type) *RuleBuilder {
	b.rule.implType = impl
	b.rule.sat = nil
	return b
}

func (b *RuleBuilder) ToSatisfaction(s inject.Satisfaction) *RuleBuilder {
	b.rule.sat = s
	b.rule.implType = nil
	return b
}

func (b *RuleBuilder) CachePolicy(p scope.CachePolicy) *RuleBuilder {
	b.rule.policy = p
	return b
}

func (b *RuleBuilder) Terminal(terminal bool) *RuleBuilder {
	b.rule.terminal = terminal
	return b
}

func (b *RuleBuilder) Build() (*BindRule, error) {
	r := b.rule

	if r.depType == nil {
		return nil, errs.Newf(errs.CodeInvalidBinding, "no dependency type specified")
	}
	target := r.target()
	if target == nil {
		return nil, errs.Newf(errs.CodeInvalidBinding, "no binding target specified").WithType(types.Name(r.depType))
	}
	if !target.AssignableTo(r.depType) {
		return nil, errs.Newf(
			errs.CodeInvalidBinding, "%s is not assignable to %s", target, r.depType,
		).WithType(types.Name(r.depType))
	}

	return &r, nil
}
