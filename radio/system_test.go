package radio

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/radioflow/runtime/internal/component"
	"github.com/radioflow/runtime/internal/controller"
	"github.com/radioflow/runtime/internal/pluginhost"
	"github.com/radioflow/runtime/internal/types"
	"github.com/radioflow/runtime/radio/scripted"
	"github.com/stretchr/testify/require"
)

// lib adapts a plain constructor function to the pluginhost.Library ABI
// for in-process test registrations.
type lib struct {
	create func(name string) (any, error)
}

func (l lib) APIVersion() string              { return pluginhost.HostAPIVersion }
func (l lib) Create(name string) (any, error) { return l.create(name) }
func (l lib) Release(v any)                   {}

const sourceScript = `
function process(inputs, params) {
	return [{ real: [1, 11], sampleRate: 1000 }];
}
`

const overflowAmpScript = `
function process(inputs, params) {
	var samples = inputs[0].real;
	var peak = 0;
	for (var i = 0; i < samples.length; i++) {
		if (Math.abs(samples[i]) > peak) { peak = Math.abs(samples[i]); }
	}
	if (peak > 10) {
		activateEvent("overflow", peak);
	}
	return [{ real: samples, sampleRate: inputs[0].sampleRate }];
}
`

// watchdog is a minimal test Controller (spec §4.7) that counts every
// "overflow" activation from the "amp" component it subscribes to.
type watchdog struct {
	mu    sync.Mutex
	count int
}

func (w *watchdog) Name() string                        { return "watchdog" }
func (w *watchdog) ParameterSpecs() []types.ParameterSpec { return nil }
func (w *watchdog) SubscribeToEvents() []controller.EventSubscription {
	return []controller.EventSubscription{{EventName: "overflow", ComponentName: "amp"}}
}
func (w *watchdog) Initialize(params *component.ParameterTable, manager controller.ManagerCallback) error {
	return nil
}
func (w *watchdog) ProcessEvent(event types.Event) {
	w.mu.Lock()
	w.count++
	w.mu.Unlock()
}
func (w *watchdog) Destroy() {}

func (w *watchdog) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func newTestSystem(t *testing.T, wd *watchdog) *System {
	t.Helper()
	registry := pluginhost.NewRegistry()

	require.NoError(t, registry.Register("source", func() (pluginhost.Library, error) {
		return lib{create: func(name string) (any, error) {
			return scripted.NewPhy(name, scripted.Spec{
				Ports:  []types.Port{{Name: "out", Direction: types.PortOutput}},
				Script: sourceScript,
			}), nil
		}}, nil
	}))
	require.NoError(t, registry.Register("amp", func() (pluginhost.Library, error) {
		return lib{create: func(name string) (any, error) {
			return scripted.NewPhy(name, scripted.Spec{
				Ports: []types.Port{
					{Name: "in", Direction: types.PortInput},
					{Name: "out", Direction: types.PortOutput},
				},
				EventNames: []string{"overflow"},
				Script:     overflowAmpScript,
			}), nil
		}}, nil
	}))
	require.NoError(t, registry.Register("watchdog", func() (pluginhost.Library, error) {
		return lib{create: func(name string) (any, error) { return wd, nil }}, nil
	}))

	sys := New(registry)
	sys.Init()
	return sys
}

const radioXML = `
<softwareradio>
  <controller class="Watchdog"/>
  <engine name="rf" class="PhyEngine">
    <component name="src" class="Source">
      <port name="Out" class="output"/>
    </component>
    <component name="amp" class="Amp">
      <port name="In" class="input"/>
      <port name="Out" class="output"/>
    </component>
  </engine>
  <link source="src.Out" sink="amp.In"/>
</softwareradio>
`

func writeXML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "radio.xml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSystemLifecycleTransitions(t *testing.T) {
	wd := &watchdog{}
	sys := newTestSystem(t, wd)
	path := writeXML(t, radioXML)

	require.False(t, sys.IsLoaded())
	require.False(t, sys.Start(), "start before load must fail")
	require.False(t, sys.Stop(), "stop before running must fail")
	require.False(t, sys.Unload(), "unload before load must fail")

	require.True(t, sys.LoadRadio(path))
	require.True(t, sys.IsLoaded())
	require.True(t, sys.IsSuspended())
	require.False(t, sys.LoadRadio(path), "loadRadio from Loaded must fail")

	require.True(t, sys.Start())
	require.True(t, sys.IsRunning())
	require.False(t, sys.Start(), "start from Running must fail")
	require.False(t, sys.Unload(), "unload from Running must fail without stop")

	time.Sleep(20 * time.Millisecond)
	require.Greater(t, wd.Count(), 0, "watchdog should have observed at least one overflow event")

	require.True(t, sys.Stop())
	require.False(t, sys.IsRunning())
	require.True(t, sys.Unload())
	require.False(t, sys.IsLoaded())
}

func TestSystemReconfigureFromUnloadedFallsBackToLoad(t *testing.T) {
	wd := &watchdog{}
	sys := newTestSystem(t, wd)
	path := writeXML(t, radioXML)

	require.True(t, sys.Reconfigure(path))
	require.True(t, sys.IsLoaded())
}

func TestSystemEngineStatsAndQueueDepthSurfaceThroughFacade(t *testing.T) {
	wd := &watchdog{}
	sys := newTestSystem(t, wd)
	path := writeXML(t, radioXML)

	require.Nil(t, sys.EngineStats())
	require.True(t, sys.LoadRadio(path))
	require.True(t, sys.Start())
	time.Sleep(20 * time.Millisecond)

	stats := sys.EngineStats()
	require.Contains(t, stats, "rf")
	require.Greater(t, stats["rf"].Passes, uint64(0))

	depths := sys.ControllerQueueDepths()
	// xmlradio names each controller "<class>#<index>".
	require.Contains(t, depths, "watchdog#0")

	require.True(t, sys.Stop())
	require.True(t, sys.Unload())
}
