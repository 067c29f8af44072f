package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssessment_Defaults(t *testing.T) {
	a, err := NewAssessment(Assessment{PhotoURLs: []string{"u"}, CurrencyExchangeRate: 1}, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "JOD", a.Currency)

	a, err = NewAssessment(Assessment{ID: "given", PhotoURLs: []string{"u"}, CurrencyExchangeRate: 1, Currency: "USD"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "given", a.ID)
	assert.Equal(t, "USD", a.Currency)
}

func TestAssessmentStatus_Lifecycle(t *testing.T) {
	a := &Assessment{ID: "x"}
	s := NewAssessmentStatus(a)
	assert.Equal(t, AssessmentProcessing, s.State)
	assert.False(t, s.State.IsTerminal())

	s.Advance("Processed photo 1/2...", 40)
	assert.Equal(t, 40, s.Progress)
	s.Advance("Downloading photos...", -1)
	assert.Equal(t, 40, s.Progress)
	assert.Equal(t, "Downloading photos...", s.Message)

	s.Complete(&AssessmentResult{})
	assert.Equal(t, AssessmentCompleted, s.State)
	assert.Equal(t, 100, s.Progress)
	assert.True(t, s.State.IsTerminal())

	s.Fail(errors.New("boom"))
	assert.Equal(t, AssessmentFailed, s.State)
	assert.Equal(t, 0, s.Progress)
	assert.Equal(t, "boom", s.Error)
}
