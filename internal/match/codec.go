package match

import (
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/danpasecinic/thimble/internal/errs"
	"github.com/danpasecinic/thimble/internal/qualifier"
	"github.com/danpasecinic/thimble/internal/types"
)

const codecVersion = 1

type chainDoc struct {
	Version  int          `yaml:"version"`
	Matchers []elementDoc `yaml:"matchers"`
}

type elementDoc struct {
	Kind      string       `yaml:"kind"`
	Type      string       `yaml:"type,omitempty"`
	Qualifier qualifierDoc `yaml:"qualifier"`
}

type qualifierDoc struct {
	Kind  string     `yaml:"kind"`
	Type  string     `yaml:"type,omitempty"`
	Value *yaml.Node `yaml:"value,omitempty"`
}

const (
	kindTyped    = "type"
	kindWildcard = "wildcard"
)

// Encode renders c in a versioned YAML form. Types are written by name, so the
// result can be decoded by a process whose runtime type handles differ.
func Encode(c Chain) ([]byte, error) {
	doc := chainDoc{Version: codecVersion, Matchers: make([]elementDoc, 0, len(c))}

	for _, m := range c {
		ed := elementDoc{Kind: kindWildcard}
		if m.Type != nil {
			ed.Kind = kindTyped
			ed.Type = types.Name(m.Type)
		}

		qd, err := encodeQualifier(m.Qualifier)
		if err != nil {
			return nil, err
		}
		ed.Qualifier = qd
		doc.Matchers = append(doc.Matchers, ed)
	}

	return yaml.Marshal(doc)
}

func encodeQualifier(m qualifier.Matcher) (qualifierDoc, error) {
	qd := qualifierDoc{Kind: m.Kind().String()}

	switch m.Kind() {
	case qualifier.KindType:
		qd.Type = types.Name(m.Type())
	case qualifier.KindValue:
		qd.Type = types.Name(m.Type())
		var node yaml.Node
		if err := node.Encode(m.Value()); err != nil {
			return qualifierDoc{}, fmt.Errorf("encode qualifier %v: %w", m.Value(), err)
		}
		qd.Value = &node
	}

	return qd, nil
}

// Decode parses data produced by Encode, resolving type names through u.
// Unknown names fail with a TypeResolution error.
func Decode(data []byte, u types.Universe) (Chain, error) {
	var doc chainDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.New(errs.CodeTypeResolution, "malformed matcher encoding", err)
	}
	if doc.Version != codecVersion {
		return nil, errs.Newf(errs.CodeTypeResolution, "unsupported matcher encoding version %d", doc.Version)
	}

	chain := make(Chain, 0, len(doc.Matchers))
	for i, ed := range doc.Matchers {
		var m ElementMatcher

		switch ed.Kind {
		case kindTyped:
			t, err := lookup(u, ed.Type)
			if err != nil {
				return nil, err
			}
			m.Type = t
		case kindWildcard:
		default:
			return nil, errs.Newf(errs.CodeTypeResolution, "matcher %d: unknown kind %q", i, ed.Kind)
		}

		qm, err := decodeQualifier(ed.Qualifier, u)
		if err != nil {
			return nil, err
		}
		m.Qualifier = qm
		chain = append(chain, m)
	}

	return chain, nil
}

func decodeQualifier(qd qualifierDoc, u types.Universe) (qualifier.Matcher, error) {
	switch qd.Kind {
	case "", qualifier.KindAny.String():
		return qualifier.Any(), nil
	case qualifier.KindDefault.String():
		return qualifier.Default(), nil
	case qualifier.KindNone.String():
		return qualifier.None(), nil
	case qualifier.KindType.String():
		t, err := lookup(u, qd.Type)
		if err != nil {
			return qualifier.Matcher{}, err
		}
		return qualifier.ByType(t), nil
	case qualifier.KindValue.String():
		t, err := lookup(u, qd.Type)
		if err != nil {
			return qualifier.Matcher{}, err
		}
		if qd.Value == nil {
			return qualifier.Matcher{}, errs.Newf(errs.CodeTypeResolution, "qualifier %s: missing value", qd.Type)
		}
		v := reflect.New(t)
		if err := qd.Value.Decode(v.Interface()); err != nil {
			return qualifier.Matcher{}, errs.New(errs.CodeTypeResolution, "decode qualifier value", err).WithType(qd.Type)
		}
		m, err := qualifier.Value(v.Elem().Interface())
		if err != nil {
			return qualifier.Matcher{}, errs.New(errs.CodeTypeResolution, "invalid qualifier value", err).WithType(qd.Type)
		}
		return m, nil
	default:
		return qualifier.Matcher{}, errs.Newf(errs.CodeTypeResolution, "unknown qualifier kind %q", qd.Kind)
	}
}

func lookup(u types.Universe, name string) (reflect.Type, error) {
	t, ok := u.Lookup(name)
	if !ok {
		return nil, errs.Newf(errs.CodeTypeResolution, "cannot resolve type by name").WithType(name)
	}
	return t, nil
}
