// Package xmlradio parses the radio-description grammar from spec §6 into
// the EngineDescription/ControllerDescription/LinkDescription slices
// radiograph.New consumes directly. XML parsing is explicitly out of
// scope for the core (spec §1), so this package is a thin, stdlib-only
// adapter at the system's edge.
package xmlradio

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/radioflow/runtime/internal/radioerr"
	"github.com/radioflow/runtime/internal/types"
)

type document struct {
	XMLName     xml.Name        `xml:"softwareradio"`
	Controllers []controllerXML `xml:"controller"`
	Engines     []engineXML     `xml:"engine"`
	Links       []linkXML       `xml:"link"`
}

type parameterXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type portXML struct {
	Name  string `xml:"name,attr"`
	Class string `xml:"class,attr"`
}

type componentXML struct {
	Name       string         `xml:"name,attr"`
	Class      string         `xml:"class,attr"`
	Parameters []parameterXML `xml:"parameter"`
	Ports      []portXML      `xml:"port"`
}

type controllerXML struct {
	Class      string         `xml:"class,attr"`
	Parameters []parameterXML `xml:"parameter"`
}

type engineXML struct {
	Name       string         `xml:"name,attr"`
	Class      string         `xml:"class,attr"`
	Components []componentXML `xml:"component"`
}

type linkXML struct {
	Source string `xml:"source,attr"`
	Sink   string `xml:"sink,attr"`
	Above  string `xml:"above,attr"`
	Below  string `xml:"below,attr"`
}

// ParseFile reads and parses the radio description file at path.
func ParseFile(path string) ([]types.EngineDescription, []types.ControllerDescription, []types.LinkDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, radioerr.New(radioerr.FileNotFound, "xmlradio.ParseFile", err)
	}
	return Parse(data)
}

// Parse parses an in-memory radio description document (spec §6 grammar).
// Element and attribute values are canonicalised to lower case during
// ingest; `sink`/`source` take precedence over their `below`/`above`
// synonyms when both are present on a link.
func Parse(data []byte) ([]types.EngineDescription, []types.ControllerDescription, []types.LinkDescription, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, nil, nil, radioerr.New(radioerr.XmlParsing, "xmlradio.Parse", err)
	}

	controllers := make([]types.ControllerDescription, 0, len(doc.Controllers))
	for i, c := range doc.Controllers {
		class := lower(c.Class)
		controllers = append(controllers, types.ControllerDescription{
			Name:       fmt.Sprintf("%s#%d", class, i),
			Type:       class,
			Parameters: parseParameters(c.Parameters),
		})
	}

	engines := make([]types.EngineDescription, 0, len(doc.Engines))
	for _, e := range doc.Engines {
		kind, err := parseEngineKind(e.Class)
		if err != nil {
			return nil, nil, nil, err
		}
		engineName := lower(e.Name)

		comps := make([]types.ComponentDescription, 0, len(e.Components))
		for _, c := range e.Components {
			comps = append(comps, types.ComponentDescription{
				Name:       lower(c.Name),
				Type:       lower(c.Class),
				EngineName: engineName,
				Parameters: parseParameters(c.Parameters),
				Ports:      parsePorts(c.Ports),
			})
		}
		engines = append(engines, types.EngineDescription{Name: engineName, Kind: kind, Components: comps})
	}

	links := make([]types.LinkDescription, 0, len(doc.Links))
	for _, l := range doc.Links {
		link, err := parseLink(l)
		if err != nil {
			return nil, nil, nil, err
		}
		links = append(links, link)
	}

	return engines, controllers, links, nil
}

func lower(s string) string { return strings.ToLower(s) }

func parseParameters(in []parameterXML) []types.ParameterDescription {
	out := make([]types.ParameterDescription, 0, len(in))
	for _, p := range in {
		out = append(out, types.NewParameterDescription(p.Name, lower(p.Value)))
	}
	return out
}

func parsePorts(in []portXML) []types.Port {
	out := make([]types.Port, 0, len(in))
	for _, p := range in {
		direction := types.PortInput
		if lower(p.Class) == "output" {
			direction = types.PortOutput
		}
		out = append(out, types.Port{Name: lower(p.Name), Direction: direction})
	}
	return out
}

func parseEngineKind(class string) (types.EngineKind, error) {
	switch lower(class) {
	case "phyengine":
		return types.PhyEngineKind, nil
	case "stackengine":
		return types.StackEngineKind, nil
	default:
		return "", radioerr.Newf(radioerr.XmlParsing, "xmlradio.parseEngineKind", "unknown engine class %q", class)
	}
}

// parseLink splits "component.port" endpoints, preferring sink/source
// attributes over their above/below synonyms (spec §9 Open Questions).
func parseLink(l linkXML) (types.LinkDescription, error) {
	source := l.Source
	if source == "" {
		source = l.Above
	}
	sink := l.Sink
	if sink == "" {
		sink = l.Below
	}

	sourceComponent, sourcePort, err := splitEndpoint(source)
	if err != nil {
		return types.LinkDescription{}, err
	}
	sinkComponent, sinkPort, err := splitEndpoint(sink)
	if err != nil {
		return types.LinkDescription{}, err
	}

	return types.LinkDescription{
		SourceComponent: sourceComponent,
		SourcePort:      sourcePort,
		SinkComponent:   sinkComponent,
		SinkPort:        sinkPort,
	}, nil
}

func splitEndpoint(s string) (component, port string, err error) {
	component, port, ok := strings.Cut(s, ".")
	if !ok {
		return "", "", radioerr.Newf(radioerr.XmlParsing, "xmlradio.splitEndpoint", "malformed endpoint %q, want component.port", s)
	}
	return lower(component), lower(port), nil
}
