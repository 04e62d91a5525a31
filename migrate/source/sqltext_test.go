package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitBothSections(t *testing.T) {
	text := "-- FORWARD\nCREATE FUNCTION f();\nSELECT 1;\n-- BACKWARD\nDROP FUNCTION f();\n"

	assert.Equal(t, "CREATE FUNCTION f();\nSELECT 1;", ForwardSQL(text))
	bwd, ok := BackwardSQL(text)
	assert.True(t, ok)
	assert.Equal(t, "DROP FUNCTION f();", bwd)
}

func TestTextBeforeMarkerIsForward(t *testing.T) {
	text := "CREATE VIEW v AS SELECT 1;\n-- BACKWARD\nDROP VIEW v;"

	assert.Equal(t, "CREATE VIEW v AS SELECT 1;", ForwardSQL(text))
	bwd, ok := BackwardSQL(text)
	assert.True(t, ok)
	assert.Equal(t, "DROP VIEW v;", bwd)
}

func TestMissingBackwardSection(t *testing.T) {
	text := "-- FORWARD\nCREATE POLICY p;"

	assert.Equal(t, "CREATE POLICY p;", ForwardSQL(text))
	bwd, ok := BackwardSQL(text)
	assert.False(t, ok)
	assert.Empty(t, bwd)
}

func TestMarkerDetectionIgnoresIndentation(t *testing.T) {
	text := "SELECT 1;\n   -- BACKWARD   \nSELECT 2;"

	assert.Equal(t, "SELECT 1;", ForwardSQL(text))
	bwd, ok := BackwardSQL(text)
	assert.True(t, ok)
	assert.Equal(t, "SELECT 2;", bwd)
}
