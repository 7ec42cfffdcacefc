// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/canopy-a11y/canopy/adapter"
	"github.com/canopy-a11y/canopy/lib/clock"
	"github.com/canopy-a11y/canopy/schema"
	"github.com/canopy-a11y/canopy/tree"
)

// Player drives an adapter from a scenario. It owns the mock
// application's model tree, applies one scenario step per tick, and
// answers relayed action requests by mutating the model.
//
// The action handler runs on the adapter's worker goroutine, so it
// must not call back into the adapter; it records the response and the
// next tick delivers it.
type Player struct {
	scenario *Scenario
	adapter  *adapter.Adapter
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	model   *tree.Tree
	pending []schema.TreeUpdate

	nextStep int
}

// NewPlayer builds the player's model from the scenario's initial
// state. Bind the adapter before calling Run.
func NewPlayer(scenario *Scenario, clk clock.Clock, interval time.Duration, logger *slog.Logger) (*Player, error) {
	model, err := tree.New(scenario.Initial)
	if err != nil {
		return nil, fmt.Errorf("building scenario model: %w", err)
	}
	return &Player{
		scenario: scenario,
		clock:    clk,
		interval: interval,
		logger:   logger,
		model:    model,
	}, nil
}

// Bind attaches the adapter the player drives.
func (p *Player) Bind(a *adapter.Adapter) {
	p.adapter = a
}

// Factory returns the model's current full state. The adapter invokes
// it once, when the tree is first needed.
func (p *Player) Factory() schema.TreeUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model.Snapshot()
}

// HandleAction mutates the model in response to a client action and
// queues the resulting update for delivery on the next tick.
func (p *Player) HandleAction(request schema.ActionRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()

	update, ok := p.respondLocked(request)
	if !ok {
		p.logger.Debug("ignoring action",
			"action", request.Action, "target", request.Target)
		return
	}
	p.model.Apply(update)
	p.pending = append(p.pending, update)
	p.logger.Info("action applied",
		"action", request.Action, "target", request.Target)
}

// respondLocked computes the model mutation for a request. Callers
// hold p.mu.
func (p *Player) respondLocked(request schema.ActionRequest) (schema.TreeUpdate, bool) {
	node, ok := p.model.Node(request.Target)
	if !ok {
		return schema.TreeUpdate{}, false
	}
	switch request.Action {
	case schema.ActionClick:
		if node.Toggled == nil {
			// Clicking anything else refocuses it.
			return schema.TreeUpdate{Focus: node.ID}, true
		}
		next := schema.ToggledTrue
		if *node.Toggled == schema.ToggledTrue {
			next = schema.ToggledFalse
		}
		node.Toggled = &next
		return schema.TreeUpdate{Nodes: []schema.Node{node}}, true
	case schema.ActionFocus:
		return schema.TreeUpdate{Focus: node.ID}, true
	case schema.ActionSetValue:
		if request.Data == nil {
			return schema.TreeUpdate{}, false
		}
		node.Value = request.Data.Value
		return schema.TreeUpdate{Nodes: []schema.Node{node}}, true
	default:
		return schema.TreeUpdate{}, false
	}
}

// Run applies scenario steps and queued action responses until the
// context is cancelled. One tick delivers all queued responses plus
// at most one scenario step.
func (p *Player) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		p.tick()
	}
}

// tick delivers pending action responses, then the next scenario step.
func (p *Player) tick() {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()
	for _, update := range pending {
		p.adapter.Update(update)
	}

	step, ok := p.advance()
	if !ok {
		return
	}
	p.mu.Lock()
	p.model.Apply(step.Update)
	p.mu.Unlock()

	if step.IfActive {
		p.adapter.UpdateIfActive(func() schema.TreeUpdate { return step.Update })
	} else {
		p.adapter.Update(step.Update)
	}
	p.logger.Debug("step applied", "step", step.Label)
}

// advance returns the next scenario step, restarting when the scenario
// loops and stopping (while ticks continue for action responses) when
// it does not.
func (p *Player) advance() (Step, bool) {
	if len(p.scenario.Steps) == 0 {
		return Step{}, false
	}
	if p.nextStep >= len(p.scenario.Steps) {
		if !p.scenario.Loop {
			return Step{}, false
		}
		p.nextStep = 0
	}
	step := p.scenario.Steps[p.nextStep]
	p.nextStep++
	return step, true
}
