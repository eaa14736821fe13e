package workflow

import (
	"context"
	"fmt"
)

// GuardFunc decides whether a transition may be taken
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder collects transitions and builds machines from them
type StateMachineBuilder interface {
	// Configure returns the transition table of a state
	Configure(state State) StateConfiguration

	// PermitGlobal allows a trigger from every non-terminal state
	PermitGlobal(trigger Trigger, toState State) StateMachineBuilder

	// Build creates an independent machine positioned at the given state
	Build(initialState State) StateMachine
}

// StateConfiguration configures the transitions leaving one state
type StateConfiguration interface {
	Permit(trigger Trigger, toState State) StateConfiguration
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type transitionTable map[Trigger][]transition

func (t transitionTable) clone() transitionTable {
	out := make(transitionTable, len(t))
	for trigger, transitions := range t {
		out[trigger] = append([]transition{}, transitions...)
	}
	return out
}

type stateConfig struct {
	fromState   State
	transitions transitionTable
}

type stateMachineBuilder struct {
	configurations map[State]*stateConfig
	global         transitionTable
}

type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
	global         transitionTable
}

// NewBuilder creates an empty state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[State]*stateConfig),
		global:         make(transitionTable),
	}
}

func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(transitionTable),
		}
		b.configurations[state] = config
	}

	return config
}

func (b *stateMachineBuilder) PermitGlobal(trigger Trigger, toState State) StateMachineBuilder {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	b.global[trigger] = append(b.global[trigger], transition{toState: toState})
	return b
}

func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	configs := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		configs[state] = &stateConfig{
			fromState:   state,
			transitions: config.transitions.clone(),
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configs,
		global:         b.global.clone(),
	}
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

func (m *stateMachine) State() State {
	return m.currentState
}

// candidates returns the transitions a trigger may take from the current state.
// State-specific transitions win over global ones.
func (m *stateMachine) candidates(trigger Trigger) []transition {
	if config, ok := m.configurations[m.currentState]; ok {
		if transitions := config.transitions[trigger]; len(transitions) > 0 {
			return transitions
		}
	}
	if m.currentState.IsTerminal() {
		return nil
	}
	return m.global[trigger]
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	return len(m.candidates(trigger)) > 0
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	transitions := m.candidates(trigger)
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	seen := make(map[Trigger]bool)
	triggers := make([]Trigger, 0)

	if config, ok := m.configurations[m.currentState]; ok {
		for trigger := range config.transitions {
			seen[trigger] = true
			triggers = append(triggers, trigger)
		}
	}
	if !m.currentState.IsTerminal() {
		for trigger := range m.global {
			if !seen[trigger] {
				triggers = append(triggers, trigger)
			}
		}
	}

	return triggers
}
