package workflow_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustvest/be-proposals/internal/workflow"
)

func TestParseAmount(t *testing.T) {
	valid := []string{"1", "100000", "0.01", "99.90", "100000.10"}
	for _, s := range valid {
		a, err := workflow.ParseAmount(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, a.String())
	}

	invalid := []string{"", "0", "0.0", "00.00", "-1", "1.2.3", ".", ".5", "5.", "1e5", "abc", " 1", "007", "00.5", "01"}
	for _, s := range invalid {
		_, err := workflow.ParseAmount(s)
		assert.Error(t, err, "expected %q to be rejected", s)
	}
}

// Amounts must round-trip with exactly the digits the client submitted.
func TestAmountJSONRoundTrip(t *testing.T) {
	var req workflow.CreateRequest
	err := json.Unmarshal([]byte(`{"title":"t","applicantName":"a","amount":100000.10,"description":"d"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "100000.10", req.Amount.String())

	out, err := json.Marshal(req.Amount)
	require.NoError(t, err)
	assert.Equal(t, "100000.10", string(out))
}

func TestAmountJSONRejects(t *testing.T) {
	var a workflow.Amount
	assert.Error(t, json.Unmarshal([]byte(`0`), &a))
	assert.Error(t, json.Unmarshal([]byte(`-10`), &a))
	assert.Error(t, json.Unmarshal([]byte(`true`), &a))
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &a))

	// The string path must not smuggle in text that would break response
	// encoding later: a leading zero is not a valid JSON number.
	assert.Error(t, json.Unmarshal([]byte(`"007"`), &a))

	// Numeric strings are tolerated.
	require.NoError(t, json.Unmarshal([]byte(`"12.50"`), &a))
	assert.Equal(t, "12.50", a.String())

	// Whatever was accepted must marshal back as a valid JSON number.
	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, "12.50", string(out))
}
