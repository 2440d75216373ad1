package ecs

import "go.uber.org/zap"

// ExecutionContext bundles the stores a system may touch during a tick.
// System parameters are fetched from it right before the system runs.
type ExecutionContext struct {
	Commands      *CommandBuffer
	Entities      *EntityStore
	Relationships *RelationshipStore
	Resources     *Resources
	Events        *EventQueue
	Log           *zap.Logger

	strict  bool
	workers int
}
