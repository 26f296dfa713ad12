package deepForest

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProgress struct {
	name       string
	total      int
	increments int
	finished   bool
}

func (p *countingProgress) Start(name string, total int) { p.name, p.total = name, total }
func (p *countingProgress) Increment()                   { p.increments++ }
func (p *countingProgress) Finish()                      { p.finished = true }

func TestForestReportsProgress(t *testing.T) {
	progress := &countingProgress{}
	forest, err := NewDecisionForest(testForestConfig(6), newTestPool(t), WithProgress(progress))
	require.NoError(t, err)
	require.NoError(t, forest.Train(context.Background(), twoBlobs(20, rand.New(rand.NewSource(1)))))

	assert.Equal(t, "test", progress.name)
	assert.Equal(t, 6, progress.total)
	assert.Equal(t, 6, progress.increments)
	assert.True(t, progress.finished)
}

func TestBarProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBarProgress(&buf)
	bar.Start("layer", 3)
	for i := 0; i < 3; i++ {
		bar.Increment()
	}
	bar.Finish()
	assert.Contains(t, buf.String(), "layer")

	// increments outside a run are ignored
	bar.Increment()
	bar.Finish()
}

func TestLogProgress(t *testing.T) {
	p := &LogProgress{}
	p.Start("forest", 2)
	p.Increment()
	p.Increment()
	p.Finish()
	assert.Equal(t, 2, p.done)
}
