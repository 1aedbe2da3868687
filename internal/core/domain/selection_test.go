package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperatorState_ToggleBasketIsInvolutive(t *testing.T) {
	s := NewOperatorState(1)
	s.Basket = []int64{3, 9}

	added := s.ToggleBasket(5)
	assert.True(t, added)
	assert.Equal(t, []int64{3, 5, 9}, s.Basket)

	added = s.ToggleBasket(5)
	assert.False(t, added)
	assert.Equal(t, []int64{3, 9}, s.Basket)
}

func TestOperatorState_ToggleBasketDoesNotAliasPrevious(t *testing.T) {
	s := NewOperatorState(1)
	s.Basket = []int64{1, 2, 3}
	before := s.Basket

	s.ToggleBasket(2)

	assert.Equal(t, []int64{1, 2, 3}, before)
	assert.Equal(t, []int64{1, 3}, s.Basket)
}

func TestOperatorState_ToggleLink(t *testing.T) {
	s := NewOperatorState(1)
	assert.True(t, s.ToggleLink(4))
	assert.True(t, s.IsLinked(4))
	assert.False(t, s.ToggleLink(4))
	assert.False(t, s.IsLinked(4))
}

func TestOperatorState_RunInFlight(t *testing.T) {
	now := time.Now()
	s := NewOperatorState(1)
	assert.False(t, s.RunInFlight(now, time.Minute))

	since := now.Add(-30 * time.Second)
	s.InFlightRunID = "run-1"
	s.InFlightSince = &since
	assert.True(t, s.RunInFlight(now, time.Minute))
	assert.False(t, s.RunInFlight(now, 10*time.Second))
}

func TestSortedUnique(t *testing.T) {
	assert.Equal(t, []int64{}, SortedUnique(nil))
	assert.Equal(t, []int64{1, 2, 5}, SortedUnique([]int64{5, 1, 2, 5, 1}))
}

func TestScopeMode_Next(t *testing.T) {
	assert.Equal(t, ScopeLinked, ScopeActive.Next())
	assert.Equal(t, ScopeAll, ScopeLinked.Next())
	assert.Equal(t, ScopeNone, ScopeAll.Next())
	assert.Equal(t, ScopeActive, ScopeNone.Next())
	assert.False(t, ScopeMode("global").IsValid())
}

func TestNormaliseTags(t *testing.T) {
	got := NormaliseTags([]string{" API", "#db", "api", "", "  "})
	assert.Equal(t, []string{"api", "db"}, got)
}

func TestDocument_DisplayTitle(t *testing.T) {
	d := &Document{ID: 12}
	assert.Equal(t, "12", d.DisplayTitle())
	d.Title = "Design"
	assert.Equal(t, "Design", d.DisplayTitle())
}
