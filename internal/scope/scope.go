package scope

import "fmt"

type CachePolicy int

const (
	NoPreference CachePolicy = iota
	Memoize
	NewInstance
)

func (p CachePolicy) String() string {
	switch p {
	case NoPreference:
		return "no-preference"
	case Memoize:
		return "memoize"
	case NewInstance:
		return "new-instance"
	default:
		return "unknown"
	}
}

func Parse(s string) (CachePolicy, error) {
	switch s {
	case "", "no-preference", "no_preference":
		return NoPreference, nil
	case "memoize", "singleton":
		return Memoize, nil
	case "new-instance", "new_instance", "transient":
		return NewInstance, nil
	default:
		return NoPreference, fmt.Errorf("unknown cache policy %q", s)
	}
}

// Or returns p unless it is NoPreference, in which case fallback is returned.
func (p CachePolicy) Or(fallback CachePolicy) CachePolicy {
	if p == NoPreference {
		return fallback
	}
	return p
}
