package thimble

import (
	"github.com/danpasecinic/thimble/internal/match"
)

// EncodeChain serializes the context matchers of c as versioned YAML. Types are
// written by package-qualified name.
func EncodeChain(c *Context) ([]byte, error) {
	return match.Encode(c.chain)
}

// DecodeChain reads a context written by EncodeChain. Every type it names must
// be known to b, through a binding, Provide, DeclareParent or Register;
// otherwise the error has code ErrCodeTypeResolution.
func DecodeChain(b *Builder, data []byte) (*Context, error) {
	chain, err := match.Decode(data, b.universe)
	if err != nil {
		return nil, err
	}
	return &Context{builder: b, chain: chain}, nil
}
