// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package checker_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"codeberg.org/trustlink/trustlink/internal/services/checker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trials = 2000

func newSimulator(seed uint64) *checker.Simulator {
	return checker.NewSimulator(checker.Delays{}, rand.New(rand.NewPCG(seed, seed)))
}

func TestSimulator_ImplementsChecker(t *testing.T) {
	var _ checker.Checker = newSimulator(1)
}

func TestCheckIdentity_MatchRate(t *testing.T) {
	sim := newSimulator(42)
	ctx := context.Background()
	registry := []string{"John Smith", "Sarah Johnson", "Michael Brown", "Emily Davis"}

	matches := 0
	for range trials {
		out, err := sim.CheckIdentity(ctx, "8001015009087", "Zed Zulu")
		require.NoError(t, err)
		assert.True(t, out.Verified)
		if out.NameMatch {
			matches++
			assert.Equal(t, "Zed Zulu", out.RetrievedName)
		} else {
			assert.Contains(t, registry, out.RetrievedName)
		}
	}

	rate := float64(matches) / trials
	assert.InDelta(t, 0.7, rate, 0.05)
}

func TestCheckIdentity_EmptyFirstNameMatches(t *testing.T) {
	sim := newSimulator(7)

	for range 50 {
		out, err := sim.CheckIdentity(context.Background(), "1", " Smith")
		require.NoError(t, err)
		assert.True(t, out.NameMatch)
		assert.Equal(t, " Smith", out.RetrievedName)
	}
}

func TestCheckOwnership_MatchRate(t *testing.T) {
	sim := newSimulator(99)
	ctx := context.Background()

	property, vehicle := 0, 0
	for range trials {
		p, err := sim.CheckProperty(ctx, "ERF-1")
		require.NoError(t, err)
		assert.True(t, p.Verified)
		if p.OwnershipMatch {
			property++
		}

		v, err := sim.CheckVehicle(ctx, "CA 1")
		require.NoError(t, err)
		assert.True(t, v.Verified)
		if v.OwnershipMatch {
			vehicle++
		}
	}

	assert.InDelta(t, 0.8, float64(property)/trials, 0.05)
	assert.InDelta(t, 0.8, float64(vehicle)/trials, 0.05)
}

func TestSimulator_SameSeedSameOutcomes(t *testing.T) {
	a, b := newSimulator(5), newSimulator(5)
	ctx := context.Background()

	for range 20 {
		oa, err := a.CheckIdentity(ctx, "1", "Zed Zulu")
		require.NoError(t, err)
		ob, err := b.CheckIdentity(ctx, "1", "Zed Zulu")
		require.NoError(t, err)
		assert.Equal(t, oa, ob)
	}
}

func TestSimulator_Delay(t *testing.T) {
	sim := checker.NewSimulator(checker.Delays{Vehicle: 20 * time.Millisecond}, nil)

	start := time.Now()
	_, err := sim.CheckVehicle(context.Background(), "CA 1")

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSimulator_ContextCancelled(t *testing.T) {
	sim := checker.NewSimulator(checker.DefaultDelays, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.CheckIdentity(ctx, "1", "John Smith")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = sim.CheckProperty(ctx, "ERF-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultDelays(t *testing.T) {
	assert.Equal(t, time.Second, checker.DefaultDelays.Identity)
	assert.Equal(t, 1200*time.Millisecond, checker.DefaultDelays.Property)
	assert.Equal(t, 1100*time.Millisecond, checker.DefaultDelays.Vehicle)
}
