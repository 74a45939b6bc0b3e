// Package controller implements the ControllerManager from spec §4.7: it
// owns the controller plug-ins and routes component events to whichever
// controllers subscribed to them.
package controller

import (
	"github.com/radioflow/runtime/internal/component"
	"github.com/radioflow/runtime/internal/radiograph"
	"github.com/radioflow/runtime/internal/rendezvous"
	"github.com/radioflow/runtime/internal/types"
)

// EventSubscription names one (event, component) pair a controller wants
// to observe (spec §4.7 "subscribeToEvents").
type EventSubscription struct {
	EventName     string
	ComponentName string
}

// ManagerCallback is the EngineManager surface a controller is handed at
// load time so it can request reconfigurations or commands (spec §4.7
// "inject the manager-callback"). *enginemanager.EngineManager satisfies
// this structurally.
type ManagerCallback interface {
	Reconfigure(set radiograph.ReconfigSet)
	PostCommand(componentName string, msg rendezvous.Message)
	GetParameterValue(componentName, paramName string) string
}

// Controller is the plug-in ABI contract a controller library's Create
// must return (spec §4.7, §6).
type Controller interface {
	Name() string
	ParameterSpecs() []types.ParameterSpec
	SubscribeToEvents() []EventSubscription

	Initialize(params *component.ParameterTable, manager ManagerCallback) error
	ProcessEvent(event types.Event)
	Destroy()
}

// Worker is implemented by controllers that also run a work loop (spec
// §4.7 "optional work loop"). WorkFunction is called repeatedly until the
// manager's token is cancelled; a controller with no background work
// simply doesn't implement this interface.
type Worker interface {
	WorkFunction() error
}
