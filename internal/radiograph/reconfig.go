package radiograph

// ParametricReconfig is one atomic parameter mutation, always targeting a
// single (engine, component, parameter) triple (spec §4.6, §4.9).
type ParametricReconfig struct {
	EngineName    string
	ComponentName string
	ParameterName string
	NewValue      string
}

// ReconfigSet is a batch of parametric mutations delivered between
// PhyEngine process steps or applied directly to a StackEngine component
// (spec glossary "Reconfiguration set").
type ReconfigSet struct {
	Reconfigs []ParametricReconfig
}

// ByEngine splits the set into per-engine slices, the shape EngineManager
// needs to fan a reconfiguration out to each owning engine (spec §4.6).
func (s ReconfigSet) ByEngine() map[string][]ParametricReconfig {
	out := make(map[string][]ParametricReconfig)
	for _, r := range s.Reconfigs {
		out[r.EngineName] = append(out[r.EngineName], r)
	}
	return out
}

// Compare implements ReconfigDiffer (spec §4.9): for every engine present
// in both a and b (matched by name+kind), every component present in both
// (matched by name+type+engineName), and every parameter present in both
// by name, a differing value emits one ParametricReconfig carrying b's
// value. Anything present on only one side is ignored — structural diffs
// are out of scope for this core.
func Compare(a, b *RadioRepresentation) ReconfigSet {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out ReconfigSet
	for name, engineA := range a.engines {
		engineB, ok := b.engines[name]
		if !ok || engineB.Kind != engineA.Kind {
			continue
		}
		for _, compA := range engineA.Components {
			compB, ok := engineB.Component(compA.Name)
			if !ok || !compA.Equal(compB) {
				continue
			}
			for _, paramA := range compA.Parameters {
				paramB, ok := compB.Parameter(paramA.Name)
				if !ok || paramB.Value == paramA.Value {
					continue
				}
				out.Reconfigs = append(out.Reconfigs, ParametricReconfig{
					EngineName:    name,
					ComponentName: compA.Name,
					ParameterName: paramA.Name,
					NewValue:      paramB.Value,
				})
			}
		}
	}
	return out
}
