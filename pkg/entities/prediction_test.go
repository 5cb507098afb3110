package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modelhub/modelhub/pkg/entities"
)

func TestPredictionStatusTransitions(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		from, to entities.PredictionStatus
		allowed  bool
	}{
		{entities.PredictionStatusPending, entities.PredictionStatusRunning, true},
		{entities.PredictionStatusPending, entities.PredictionStatusFailed, true},
		{entities.PredictionStatusRunning, entities.PredictionStatusCompleted, true},
		{entities.PredictionStatusRunning, entities.PredictionStatusFailed, true},
		{entities.PredictionStatusPending, entities.PredictionStatusCompleted, false},
		{entities.PredictionStatusPending, entities.PredictionStatusPending, false},
		{entities.PredictionStatusRunning, entities.PredictionStatusPending, false},
		{entities.PredictionStatusRunning, entities.PredictionStatusRunning, false},
		{entities.PredictionStatusCompleted, entities.PredictionStatusRunning, false},
		{entities.PredictionStatusCompleted, entities.PredictionStatusFailed, false},
		{entities.PredictionStatusFailed, entities.PredictionStatusCompleted, false},
	}

	for _, scenario := range scenarios {
		assert.Equal(t, scenario.allowed, scenario.from.CanTransitionTo(scenario.to),
			"%s -> %s", scenario.from, scenario.to)
	}
}

func TestVersionOrdering(t *testing.T) {
	t.Parallel()

	assert.True(t, entities.Version{Major: 1, Minor: 0, Patch: 9}.Less(entities.Version{Major: 1, Minor: 1, Patch: 0}))
	assert.True(t, entities.Version{Major: 1, Minor: 9, Patch: 9}.Less(entities.Version{Major: 2, Minor: 0, Patch: 0}))
	assert.False(t, entities.Version{Major: 2, Minor: 0, Patch: 0}.Less(entities.Version{Major: 2, Minor: 0, Patch: 0}))
	assert.Equal(t, entities.Version{Major: 1, Minor: 2, Patch: 4}, entities.Version{Major: 1, Minor: 2, Patch: 3}.Next())
	assert.Equal(t, "1.0.0", entities.InitialVersion.String())
}
