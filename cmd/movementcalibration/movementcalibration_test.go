package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestRadius(t *testing.T) {
	// Went further than the tachos said: wheels are bigger than configured.
	assert.InDelta(t, 2.255, suggestRadius(2.05, 50, 55), 1e-9)
	assert.InDelta(t, 2.05, suggestRadius(2.05, 50, 50), 1e-9)
}

func TestSuggestWidth(t *testing.T) {
	// Over-rotated: effective axle is narrower.
	assert.InDelta(t, 16.8, suggestWidth(18.48, 360, 396), 1e-9)
	assert.InDelta(t, 18.48, suggestWidth(18.48, 360, 360), 1e-9)
}
