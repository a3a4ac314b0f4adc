// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

// Package checker answers identity and ownership checks.
//
// Simulator stands in for real registries: it waits a fixed latency and
// returns randomized outcomes. Replace it by implementing Checker.
package checker

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// IdentityOutcome is the answer of an identity check.
type IdentityOutcome struct {
	Verified      bool
	NameMatch     bool
	RetrievedName string
}

// OwnershipOutcome is the answer of a property or vehicle check.
type OwnershipOutcome struct {
	Verified       bool
	OwnershipMatch bool
}

// Checker verifies seller disclosures against an authority.
type Checker interface {
	CheckIdentity(ctx context.Context, idValue, expectedName string) (IdentityOutcome, error)
	CheckProperty(ctx context.Context, reference string) (OwnershipOutcome, error)
	CheckVehicle(ctx context.Context, reference string) (OwnershipOutcome, error)
}

// Delays configures the simulated latency per check.
type Delays struct {
	Identity time.Duration
	Property time.Duration
	Vehicle  time.Duration
}

// DefaultDelays mirror typical registry response times.
var DefaultDelays = Delays{
	Identity: 1000 * time.Millisecond,
	Property: 1200 * time.Millisecond,
	Vehicle:  1100 * time.Millisecond,
}

// registryNames are the names the simulated identity registry returns.
var registryNames = []string{"John Smith", "Sarah Johnson", "Michael Brown", "Emily Davis"}

const (
	nameMatchThreshold      = 0.3
	ownershipMatchThreshold = 0.2
)

// Simulator is a Checker returning randomized outcomes after a fixed delay.
type Simulator struct {
	delays Delays

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulator creates a simulator. A nil rnd uses a randomly seeded source.
func NewSimulator(delays Delays, rnd *rand.Rand) *Simulator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // simulated outcomes
	}
	return &Simulator{delays: delays, rnd: rnd}
}

// CheckIdentity picks a registry name and reports a match when it shares the
// expected first name, or otherwise with 70% probability. On a match the
// expected name is returned as the retrieved one.
func (s *Simulator) CheckIdentity(ctx context.Context, _ string, expectedName string) (IdentityOutcome, error) {
	if err := sleep(ctx, s.delays.Identity); err != nil {
		return IdentityOutcome{}, err
	}

	s.mu.Lock()
	retrieved := registryNames[s.rnd.IntN(len(registryNames))]
	roll := s.rnd.Float64()
	s.mu.Unlock()

	first, _, _ := strings.Cut(strings.ToLower(expectedName), " ")
	match := strings.Contains(strings.ToLower(retrieved), first) || roll > nameMatchThreshold
	if match {
		retrieved = expectedName
	}

	return IdentityOutcome{Verified: true, NameMatch: match, RetrievedName: retrieved}, nil
}

// CheckProperty reports ownership with 80% probability.
func (s *Simulator) CheckProperty(ctx context.Context, _ string) (OwnershipOutcome, error) {
	return s.ownership(ctx, s.delays.Property)
}

// CheckVehicle reports ownership with 80% probability.
func (s *Simulator) CheckVehicle(ctx context.Context, _ string) (OwnershipOutcome, error) {
	return s.ownership(ctx, s.delays.Vehicle)
}

func (s *Simulator) ownership(ctx context.Context, delay time.Duration) (OwnershipOutcome, error) {
	if err := sleep(ctx, delay); err != nil {
		return OwnershipOutcome{}, err
	}

	s.mu.Lock()
	roll := s.rnd.Float64()
	s.mu.Unlock()

	return OwnershipOutcome{Verified: true, OwnershipMatch: roll > ownershipMatchThreshold}, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
