package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakd/streakd/internal/domain/model"
)

func TestRegistry_SwapVersionsAndIsolation(t *testing.T) {
	registry := NewRegistry([]model.Account{
		{Name: "a", Enabled: true},
		{Name: "b", Enabled: false},
	})

	first := registry.Current()
	assert.Equal(t, int64(1), first.Version)
	assert.Len(t, first.Enabled(), 1)

	second := registry.Swap([]model.Account{{Name: "c", Enabled: true}})
	assert.Equal(t, int64(2), second.Version)

	// A reader holding the old snapshot still sees the old world.
	_, ok := first.Account("a")
	assert.True(t, ok)
	_, ok = first.Account("c")
	assert.False(t, ok)

	// New readers see the new world.
	current := registry.Current()
	assert.Equal(t, second, current)
	_, ok = current.Account("a")
	assert.False(t, ok)
}

func TestSnapshot_AccountLookup(t *testing.T) {
	registry := NewRegistry([]model.Account{{Name: "x", Username: "user-x"}})

	account, ok := registry.Current().Account("x")
	require.True(t, ok)
	assert.Equal(t, "user-x", account.Username)

	_, ok = registry.Current().Account("missing")
	assert.False(t, ok)
}

func TestNewSnapshot_CopiesInput(t *testing.T) {
	accounts := []model.Account{{Name: "a", Enabled: true}}
	registry := NewRegistry(accounts)

	accounts[0].Name = "mutated"

	got, ok := registry.Current().Account("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)
}
