package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/radioflow/runtime/internal/cancel"
	"github.com/radioflow/runtime/internal/component"
	"github.com/radioflow/runtime/internal/pluginhost"
	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type controllerRuntime struct {
	name    string
	impl    Controller
	table   *component.ParameterTable
	library pluginhost.Library
	handle  any
	queue   *eventQueue
}

// subscriptionKey matches spec §4.7's event→subscribers map key:
// eventName + "·" + componentName.
func subscriptionKey(eventName, componentName string) string {
	return fmt.Sprintf("%s·%s", eventName, componentName)
}

// Manager owns every loaded controller and the event subscription map
// (spec §4.7). Construct it first, hand its ActivateEvent method to
// enginemanager.New as the types.EventUpcall, then Load controllers once
// the EngineManager exists to serve as their ManagerCallback.
type Manager struct {
	log *logrus.Logger

	mu          sync.RWMutex
	subs        map[string][]*controllerRuntime
	controllers map[string]*controllerRuntime
	order       []string

	token     *cancel.Token
	startedCh chan struct{}
	wg        sync.WaitGroup

	loaded  bool
	running bool
}

// New returns an unloaded Manager.
func New(log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	return &Manager{log: log, subs: make(map[string][]*controllerRuntime)}
}

// Load instantiates every described controller via host, injects manager
// as its ManagerCallback, applies its parameter values, registers its event
// subscriptions, then spins up its event loop (and work loop, if it
// implements Worker) — spec §4.7 "Load". The subscriptions are in place
// when Load returns; the event and work loops start immediately but park
// until Start.
func (m *Manager) Load(descs []types.ControllerDescription, host *pluginhost.Host, manager ManagerCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return radioerr.New(radioerr.GraphStructureError, "controller.Manager.Load", nil)
	}

	m.token = cancel.New()
	m.startedCh = make(chan struct{})
	m.controllers = make(map[string]*controllerRuntime, len(descs))

	// Controllers have no load-time dependency on one another, so
	// construction (library load, parameter table, Initialize) fans out
	// concurrently; errgroup waits for every construction to finish and
	// reports the first failure.
	runtimes := make([]*controllerRuntime, len(descs))
	group, _ := errgroup.WithContext(context.Background())
	for i, desc := range descs {
		i, desc := i, desc
		group.Go(func() error {
			cr, err := m.construct(desc, host, manager)
			if err != nil {
				return err
			}
			runtimes[i] = cr
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for i, desc := range descs {
		m.controllers[desc.Name] = runtimes[i]
		m.order = append(m.order, desc.Name)
	}

	for _, name := range m.order {
		cr := m.controllers[name]
		for _, sub := range cr.impl.SubscribeToEvents() {
			m.subscribe(sub.EventName, sub.ComponentName, cr)
		}
		m.wg.Add(1)
		go m.eventLoop(cr)
		if worker, ok := cr.impl.(Worker); ok {
			m.wg.Add(1)
			go m.workLoop(cr, worker)
		}
	}

	m.loaded = true
	return nil
}

func (m *Manager) construct(desc types.ControllerDescription, host *pluginhost.Host, manager ManagerCallback) (*controllerRuntime, error) {
	lib, err := host.Load(pluginhost.KindController, desc.Type)
	if err != nil {
		return nil, err
	}
	handle, err := lib.Create(desc.Name)
	if err != nil {
		return nil, radioerr.New(radioerr.LibraryLoad, "controller.Manager.construct", err)
	}
	impl, ok := handle.(Controller)
	if !ok {
		lib.Release(handle)
		return nil, radioerr.Newf(radioerr.LibraryLoad, "controller.Manager.construct", "controller %q does not implement Controller", desc.Name)
	}

	table, err := component.NewParameterTable(impl.ParameterSpecs())
	if err != nil {
		lib.Release(handle)
		return nil, err
	}
	for _, p := range desc.Parameters {
		if _, err := table.Set(p.Name, p.Value); err != nil {
			lib.Release(handle)
			return nil, err
		}
	}

	cr := &controllerRuntime{
		name:    desc.Name,
		impl:    impl,
		table:   table,
		library: lib,
		handle:  handle,
		queue:   newEventQueue(m.token),
	}
	if err := impl.Initialize(table, manager); err != nil {
		lib.Release(handle)
		return nil, err
	}
	return cr, nil
}

// eventLoop implements spec §4.7's event loop: park until Start, then
// drain the queue until cancelled, calling Destroy on exit. Subscriptions
// are registered by Load before the loop starts.
func (m *Manager) eventLoop(cr *controllerRuntime) {
	defer m.wg.Done()

	select {
	case <-m.startedCh:
	case <-m.token.Done():
		cr.impl.Destroy()
		return
	}

	for {
		event, ok := cr.queue.pop()
		if !ok {
			break
		}
		cr.impl.ProcessEvent(event)
	}
	cr.impl.Destroy()
}

// workLoop implements spec §4.7's optional work loop: run workFunction
// repeatedly until the manager's token is cancelled.
func (m *Manager) workLoop(cr *controllerRuntime, worker Worker) {
	defer m.wg.Done()

	select {
	case <-m.startedCh:
	case <-m.token.Done():
		return
	}

	for !m.token.Cancelled() {
		if err := worker.WorkFunction(); err != nil {
			m.log.Errorf("controller %s: workFunction: %v", cr.name, err)
		}
	}
}

// subscribe appends cr to the subscribers of (eventName, componentName).
// The caller must hold m.mu.
func (m *Manager) subscribe(eventName, componentName string, cr *controllerRuntime) {
	key := subscriptionKey(eventName, componentName)
	m.subs[key] = append(m.subs[key], cr)
}

// ActivateEvent implements types.EventUpcall: it looks up every controller
// subscribed to (event.Name, event.ComponentName) and pushes event into
// each one's queue. An event with no subscriber is silently dropped (spec
// §9 Open Questions).
func (m *Manager) ActivateEvent(event types.Event) {
	m.mu.RLock()
	subs := append([]*controllerRuntime{}, m.subs[subscriptionKey(event.Name, event.ComponentName)]...)
	m.mu.RUnlock()

	for _, cr := range subs {
		cr.queue.push(event)
	}
}

// Start releases every controller's event and work loops from their
// initial park (spec §4.7 "parks until start is received").
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	close(m.startedCh)
	m.running = true
}

// Stop cancels every controller's token and joins their loops. Destroy is
// called from within each loop as it exits.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return
	}
	token := m.token
	m.mu.Unlock()

	token.Cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// Unload releases every controller's plug-in handle and clears the
// manager's state, making it ready for another Load (spec §5 unload
// order: controllers before engines before library handles).
func (m *Manager) Unload() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range m.order {
		cr := m.controllers[name]
		cr.library.Release(cr.handle)
	}

	m.subs = make(map[string][]*controllerRuntime)
	m.controllers = nil
	m.order = nil
	m.token = nil
	m.startedCh = nil
	m.loaded = false
	m.running = false
}

// IsLoaded reports whether Load has succeeded and Unload has not yet run.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// IsRunning reports whether Start has run more recently than Stop.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Names reports every loaded controller's name, in declared order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.order...)
}

// QueueDepth reports the current event-queue depth of the named
// controller, or -1 if unknown (spec §10 controller event-queue depth
// metric).
func (m *Manager) QueueDepth(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cr, ok := m.controllers[name]
	if !ok {
		return -1
	}
	return cr.queue.len()
}
