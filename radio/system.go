// Package radio implements the System façade (spec §4.10): the three-state
// machine — Unloaded ⇄ Loaded ⇄ Running — every other package sits behind.
// It wires an xmlradio-parsed description into a RadioRepresentation, hands
// that to an EngineManager and a ControllerManager bound to each other
// through the event up-call / ManagerCallback contract, and fans the
// public loadRadio/start/stop/unload/reconfigure operations out to them.
package radio

import (
	"sync"

	"github.com/google/uuid"
	"github.com/radioflow/runtime/internal/controller"
	"github.com/radioflow/runtime/internal/enginemanager"
	"github.com/radioflow/runtime/internal/pluginhost"
	"github.com/radioflow/runtime/internal/radiograph"
	"github.com/radioflow/runtime/internal/xmlradio"
	"github.com/radioflow/runtime/pkg/config"
	"github.com/radioflow/runtime/pkg/logger"
	"github.com/radioflow/runtime/radio/metrics"
	"github.com/sirupsen/logrus"
)

// state is the façade's three-state machine (spec §4.10).
type state int

const (
	stateUnloaded state = iota
	stateLoaded
	stateRunning
)

func (s state) String() string {
	switch s {
	case stateLoaded:
		return "loaded"
	case stateRunning:
		return "running"
	default:
		return "unloaded"
	}
}

// System is the public façade a launcher (cmd/radiohost or any other
// caller) drives. One System owns at most one loaded radio at a time.
type System struct {
	mu  sync.Mutex
	log *logrus.Logger
	cfg *config.Config

	registry *pluginhost.Registry
	repo     *pluginhost.Repository
	host     *pluginhost.Host

	state      state
	instanceID uuid.UUID

	rep         *radiograph.RadioRepresentation
	controllers *controller.Manager
	engines     *enginemanager.EngineManager
}

// New returns an Unloaded System. registry is the in-process plug-in
// substitute (spec §4.7 "external collaborator, contract only") shared
// across every radio this System ever loads; pass pluginhost.NewRegistry()
// for a System whose components/controllers only self-register in-process,
// as the scenario tests in this module do.
func New(registry *pluginhost.Registry) *System {
	return &System{
		cfg:      config.New(),
		registry: registry,
		repo:     pluginhost.NewRepository(),
	}
}

// Init sets up process-wide logging (spec §6 "init() — set up logging").
// Safe to call more than once.
func (s *System) Init() {
	logger.Init()
	s.mu.Lock()
	s.log = logger.Get()
	s.host = pluginhost.NewHost(s.repo, s.registry)
	s.mu.Unlock()
}

func (s *System) logEntry() *logrus.Entry {
	log := s.log
	if log == nil {
		log = logger.Get()
	}
	return log.WithField("radio_instance", s.instanceID.String())
}

// SetRepository mutates the plug-in search path for kind (spec §6
// "setRepository"). Rejects any path that does not exist on disk.
func (s *System) SetRepository(kind config.RepositoryKind, pathList string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cfg.SetRepository(kind, pathList); err != nil {
		s.logEntry().Warnf("setRepository %s: %v", kind, err)
		return false
	}
	if err := s.repo.SetPaths(pluginKind(kind), s.cfg.RepositoryPaths(kind)); err != nil {
		s.logEntry().Warnf("setRepository %s: %v", kind, err)
		return false
	}
	return true
}

// SetLogLevel mutates the process-wide logging threshold (spec §6
// "setLogLevel"). Unknown levels warn and fall back to INFO.
func (s *System) SetLogLevel(level string) {
	logger.SetLevel(level)
}

// pluginKind maps a config repository bucket to the pluginhost.Kind that
// resolves shared-library search paths for it.
func pluginKind(kind config.RepositoryKind) pluginhost.Kind {
	switch kind {
	case config.RepositoryPhy:
		return pluginhost.KindPhy
	case config.RepositorySDF:
		return pluginhost.KindSDF
	case config.RepositoryController:
		return pluginhost.KindController
	default:
		return pluginhost.KindStack
	}
}

// LoadRadio parses the XML description at xmlPath, builds its
// RadioRepresentation, and loads an EngineManager and ControllerManager for
// it. Only legal from Unloaded (spec §4.10); any failure leaves the System
// Unloaded (spec §7 propagation policy: "library-load errors ... leave the
// system in Unloaded").
func (s *System) LoadRadio(xmlPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRadioLocked(xmlPath)
}

func (s *System) loadRadioLocked(xmlPath string) (ok bool) {
	defer func() { metrics.RecordRadioLoad(ok) }()

	if s.state != stateUnloaded {
		s.logEntry().Warnf("loadRadio rejected: system is %s, want unloaded", s.state)
		return false
	}

	engineDescs, controllerDescs, links, err := xmlradio.ParseFile(xmlPath)
	if err != nil {
		s.log.Warnf("loadRadio %s: %v", xmlPath, err)
		return false
	}

	rep := radiograph.New(engineDescs, controllerDescs, links)
	if err := rep.BuildGraphs(); err != nil {
		s.log.Warnf("loadRadio %s: %v", xmlPath, err)
		return false
	}

	instanceID := uuid.New()
	entry := s.log.WithField("radio_instance", instanceID.String())

	controllers := controller.New(s.log)
	engines := enginemanager.New(s.log, controllers.ActivateEvent)

	if err := engines.Load(rep, s.host); err != nil {
		entry.Warnf("loadRadio %s: engine load failed: %v", xmlPath, err)
		return false
	}
	if err := controllers.Load(rep.Controllers(), s.host, engines); err != nil {
		entry.Warnf("loadRadio %s: controller load failed: %v", xmlPath, err)
		engines.Unload()
		return false
	}

	s.instanceID = instanceID
	s.rep = rep
	s.controllers = controllers
	s.engines = engines
	s.state = stateLoaded
	entry.Infof("loadRadio %s: loaded", xmlPath)
	return true
}

// Start releases every controller's park and launches every engine, in
// that order (spec §2 flow: "ControllerManager loads controllers →
// System.Start() starts engine threads"). Only legal from Loaded.
func (s *System) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateLoaded {
		s.logEntry().Warnf("start rejected: system is %s, want loaded", s.state)
		return false
	}

	s.controllers.Start()
	s.engines.Start()
	s.state = stateRunning
	s.logEntry().Info("start: running")
	return true
}

// Stop halts every engine, then every controller. Only legal from Running.
func (s *System) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateRunning {
		s.logEntry().Warnf("stop rejected: system is %s, want running", s.state)
		return false
	}

	s.engines.Stop()
	s.controllers.Stop()
	s.state = stateLoaded
	s.logEntry().Info("stop: loaded")
	return true
}

// Unload releases every plug-in handle, controllers before engines before
// library handles (spec §5). Only legal from Loaded.
func (s *System) Unload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateLoaded {
		s.logEntry().Warnf("unload rejected: system is %s, want loaded", s.state)
		return false
	}

	s.controllers.Unload()
	s.engines.Unload()
	s.rep = nil
	s.controllers = nil
	s.engines = nil
	s.state = stateUnloaded
	s.logEntry().Info("unload: unloaded")
	return true
}

// Reconfigure diffs the radio description at xmlPath against the currently
// loaded representation and applies the resulting ReconfigSet through the
// EngineManager. From Unloaded this falls back to LoadRadio (spec §4.10
// "reconfigure from Unloaded falls back to loadRadio"). Legal from Loaded
// or Running.
func (s *System) Reconfigure(xmlPath string) (ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateUnloaded {
		return s.loadRadioLocked(xmlPath)
	}
	defer func() { metrics.RecordReconfigApply(ok) }()

	engineDescs, controllerDescs, links, err := xmlradio.ParseFile(xmlPath)
	if err != nil {
		s.logEntry().Warnf("reconfigure %s: %v", xmlPath, err)
		return false
	}
	next := radiograph.New(engineDescs, controllerDescs, links)
	if err := next.BuildGraphs(); err != nil {
		s.logEntry().Warnf("reconfigure %s: %v", xmlPath, err)
		return false
	}

	set := radiograph.Compare(s.rep, next)
	s.engines.Reconfigure(set)
	s.logEntry().Infof("reconfigure %s: applied %d parameter change(s)", xmlPath, len(set.Reconfigs))
	return true
}

// IsLoaded reports whether the system is Loaded or Running.
func (s *System) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateLoaded || s.state == stateRunning
}

// IsRunning reports whether the system is Running.
func (s *System) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

// IsSuspended reports whether the system is Loaded but not Running.
func (s *System) IsSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateLoaded
}

// QueueDepth exposes a loaded controller's undelivered event count, or -1
// if unloaded or unknown (spec §10 controller event-queue depth metric).
func (s *System) QueueDepth(controllerName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controllers == nil {
		return -1
	}
	return s.controllers.QueueDepth(controllerName)
}

// EngineStats snapshots every loaded engine's scheduling activity, or nil
// if unloaded (spec §10, consumed by radio/metrics).
func (s *System) EngineStats() map[string]enginemanager.EngineStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engines == nil {
		return nil
	}
	return s.engines.Stats()
}

// ControllerQueueDepths snapshots every loaded controller's undelivered
// event count, keyed by controller name (spec §10).
func (s *System) ControllerQueueDepths() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controllers == nil {
		return nil
	}
	out := make(map[string]int)
	for _, name := range s.controllers.Names() {
		out[name] = s.controllers.QueueDepth(name)
	}
	return out
}

// GetParameterValue passes through to the loaded representation's current
// value, or "" when unloaded or absent (spec §4.8 getParameterValue).
func (s *System) GetParameterValue(componentName, paramName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rep == nil {
		return ""
	}
	return s.rep.GetParameterValue(componentName, paramName)
}
