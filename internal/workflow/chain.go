package workflow

import (
	"strings"

	"github.com/trustvest/be-proposals/internal/apperr"
)

// Chain is the approval chain policy: given a selection it produces the
// canonical ordered list of step names baked into a proposal at submission.
// Chains are immutable once baked; later configuration changes never affect
// already-submitted proposals.
type Chain struct {
	defaults []string
}

// NewChain builds the policy around the configured default step names.
func NewChain(defaultSteps []string) (*Chain, error) {
	names, err := normalizeNames(defaultSteps)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, apperr.InvalidInput("defaultChain", "default chain must name at least one step")
	}
	return &Chain{defaults: names}, nil
}

// Selection is the tagged choice between the default chain and a
// caller-supplied ordered list of step names.
type Selection struct {
	custom []string
}

// DefaultChain selects the configured default chain.
func DefaultChain() Selection { return Selection{} }

// CustomChain selects a caller-supplied ordered list of step names.
func CustomChain(names []string) Selection { return Selection{custom: names} }

// IsDefault reports whether the selection uses the default chain.
func (s Selection) IsDefault() bool { return len(s.custom) == 0 }

// Resolve returns the ordered step names for a selection. Names are trimmed;
// whitespace-only names and adjacent duplicates are rejected; a custom
// selection that resolves to zero names is a validation error.
func (c *Chain) Resolve(sel Selection) ([]string, error) {
	if sel.IsDefault() {
		out := make([]string, len(c.defaults))
		copy(out, c.defaults)
		return out, nil
	}

	names, err := normalizeNames(sel.custom)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, apperr.InvalidInput("chain", "chain must name at least one step")
	}
	return names, nil
}

func normalizeNames(raw []string) ([]string, error) {
	names := make([]string, 0, len(raw))
	for _, n := range raw {
		name := strings.TrimSpace(n)
		if name == "" {
			return nil, apperr.InvalidInput("chain", "step names must not be blank")
		}
		if len(names) > 0 && names[len(names)-1] == name {
			return nil, apperr.InvalidInput("chain", "adjacent duplicate step name: "+name)
		}
		names = append(names, name)
	}
	return names, nil
}
