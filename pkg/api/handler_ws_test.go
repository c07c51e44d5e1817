package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDimensionFallsBackOnInvalidInput(t *testing.T) {
	assert.Equal(t, uint16(80), parseDimension("", 80))
	assert.Equal(t, uint16(80), parseDimension("not-a-number", 80))
	assert.Equal(t, uint16(80), parseDimension("-5", 80))
	assert.Equal(t, uint16(132), parseDimension("132", 80))
}
