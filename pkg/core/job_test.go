package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Values(t *testing.T) {
	assert.Equal(t, State("pending"), StatePending)
	assert.Equal(t, State("running"), StateRunning)
	assert.Equal(t, State("succeeded"), StateSucceeded)
	assert.Equal(t, State("failed"), StateFailed)
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateSucceeded.Terminal())
	assert.True(t, StateFailed.Terminal())
}

func TestState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    State
		to      State
		allowed bool
	}{
		{StatePending, StateRunning, true},
		{StatePending, StateSucceeded, true},
		{StatePending, StateFailed, true},
		{StatePending, StatePending, false},
		{StateRunning, StateSucceeded, true},
		{StateRunning, StateFailed, true},
		{StateRunning, StatePending, false},
		{StateRunning, StateRunning, false},
		{StateSucceeded, StateRunning, false},
		{StateSucceeded, StateFailed, false},
		{StateSucceeded, StatePending, false},
		{StateFailed, StateSucceeded, false},
		{StateFailed, StateRunning, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestRequest_Input(t *testing.T) {
	r := &Request{Content: "func f() {}", Context: "whole file"}
	assert.Equal(t, "func f() {}", r.Input())

	r = &Request{Context: "whole file"}
	assert.Equal(t, "whole file", r.Input())

	r = &Request{}
	assert.Empty(t, r.Input())
}
