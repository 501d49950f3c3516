package clock_test

import (
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestFake_Advance(t *testing.T) {
	start := time.UnixMilli(0)
	clk := clock.NewFake(start)

	assert.Equal(t, start, clk.Now())

	clk.Advance(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), clk.Now())

	clk.Advance(time.Second)
	assert.Equal(t, start.Add(5*time.Minute+time.Second), clk.Now())
}

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	got := clock.System().Now()
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}
