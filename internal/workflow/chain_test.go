package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustvest/be-proposals/internal/apperr"
	"github.com/trustvest/be-proposals/internal/workflow"
)

func TestNewChainValidation(t *testing.T) {
	_, err := workflow.NewChain(nil)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = workflow.NewChain([]string{"A", " "})
	require.Error(t, err)

	_, err = workflow.NewChain([]string{"A", "A"})
	require.Error(t, err)
}

func TestResolveDefault(t *testing.T) {
	chain, err := workflow.NewChain([]string{"A", "B"})
	require.NoError(t, err)

	names, err := chain.Resolve(workflow.DefaultChain())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)

	// The returned slice is a copy; mutating it must not affect the policy.
	names[0] = "mutated"
	again, err := chain.Resolve(workflow.DefaultChain())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, again)
}

func TestResolveCustom(t *testing.T) {
	chain, err := workflow.NewChain([]string{"A"})
	require.NoError(t, err)

	names, err := chain.Resolve(workflow.CustomChain([]string{"  X ", "Y"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, names)

	// Non-adjacent duplicates are fine.
	names, err = chain.Resolve(workflow.CustomChain([]string{"X", "Y", "X"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y", "X"}, names)
}

func TestResolveCustomRejects(t *testing.T) {
	chain, err := workflow.NewChain([]string{"A"})
	require.NoError(t, err)

	for name, sel := range map[string]workflow.Selection{
		"blank name":         workflow.CustomChain([]string{"X", "\t"}),
		"adjacent duplicate": workflow.CustomChain([]string{"X", "X"}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := chain.Resolve(sel)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
		})
	}
}

func TestEmptyCustomSelectionIsDefault(t *testing.T) {
	assert.True(t, workflow.CustomChain(nil).IsDefault())
	assert.True(t, workflow.CustomChain([]string{}).IsDefault())
	assert.False(t, workflow.CustomChain([]string{"X"}).IsDefault())
}
