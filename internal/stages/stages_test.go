package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIsTotal(t *testing.T) {
	want := []Name{Extract, Identify, Scaffold, Sections, Assemble, Review, Deploy}
	assert.Equal(t, want, Order())
	for i, n := range want {
		assert.Equal(t, i, Index(n))
	}
	assert.Equal(t, -1, Index("publish"))
	assert.True(t, Extract.Before(Sections))
	assert.False(t, Deploy.Before(Review))
}

func TestParse(t *testing.T) {
	n, err := Parse(" Sections ")
	require.NoError(t, err)
	assert.Equal(t, Sections, n)

	_, err = Parse("publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract, identify, scaffold")
}

func TestPipelineFrom(t *testing.T) {
	noop := func(context.Context) error { return nil }
	defs := NewPipeline().
		AddIf(false, Extract, noop).
		Add(Scaffold, noop).
		Add(Sections, noop).
		Add(Assemble, noop).
		Add(Review, noop).
		From(Assemble).
		Build()

	names := make([]Name, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	assert.Equal(t, []Name{Assemble, Review}, names)
}
