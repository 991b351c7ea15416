package mermaid

import (
	"strings"

	"github.com/cleitonmarx/teardown/introspection"
)

const (
	emojiTask     = "⚙️"
	emojiTimeout  = "⏱️"
	emojiConfig   = "🗝️"
	emojiLocation = "📍"
	emojiFatal    = "🛑"
)

var (
	// node styles
	styleRecoverable = Style{Fill: "#e0f7fa", Stroke: "#00838f", StrokeWidth: "2px", Color: "#222222"}
	styleFatal       = Style{Fill: "#fce1e1", Stroke: "#a60202", StrokeWidth: "3px", Color: "#222222"}
	styleUndeclared  = Style{Fill: "#f0f0f0", Stroke: "#888888", StrokeWidth: "1px", Color: "#222222"}
	styleConfig      = Style{Fill: "#e8f5e9", Stroke: "#388e3c", StrokeWidth: "2px", Color: "#222222"}

	// sublines styles
	styleTimeout        = Style{Color: "#b26a00", FontSize: "12px", IsHtml: true}
	styleTask           = Style{Color: "darkblue", FontSize: "11px", IsHtml: true}
	styleNoTask         = Style{Color: "darkgray", FontSize: "11px", IsHtml: true}
	styleCodeLoc        = Style{Color: "gray", FontSize: "11px", IsHtml: true}
	styleConfigProvider = Style{FontSize: "11px", Color: "green", IsHtml: true}
	styleConfigDefault  = Style{Color: "green", FontSize: "11px", IsHtml: true}
)

// GeneratePhaseGraph renders the phase plan of the report as a Mermaid graph.
// Each dependency points to the phases that wait for it, and configuration keys
// read by the host are listed below the phases.
func GeneratePhaseGraph(r introspection.Report) string {
	var (
		nodes []Node
		edges []Edge
	)
	for _, p := range orderedPhases(r) {
		nodes = append(nodes, phaseNode(p))
		for _, dep := range p.DependsOn {
			edges = append(edges, Edge{From: phaseID(dep), To: phaseID(p.Name)})
		}
	}
	nodes = append(nodes, configNodes(r.Configs)...)

	g := Graph{
		Nodes: nodes,
		Edges: edges,
	}
	return g.RenderTD()
}

// orderedPhases returns the phases of r following r.Order. Phases missing from the
// order are appended in report order.
func orderedPhases(r introspection.Report) []introspection.PhaseInfo {
	byName := make(map[string]introspection.PhaseInfo, len(r.Phases))
	for _, p := range r.Phases {
		byName[p.Name] = p
	}

	out := make([]introspection.PhaseInfo, 0, len(r.Phases))
	seen := make(map[string]struct{}, len(r.Phases))
	for _, name := range r.Order {
		p, ok := byName[name]
		if !ok {
			p = introspection.PhaseInfo{Name: name, Recover: true}
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, p)
	}
	for _, p := range r.Phases {
		if _, ok := seen[p.Name]; !ok {
			seen[p.Name] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func phaseID(name string) string {
	return "phase:" + name
}

func phaseNode(p introspection.PhaseInfo) Node {
	var sublines []string
	if p.Timeout > 0 {
		sublines = append(sublines, Subline(styleTimeout, "%s %s", emojiTimeout, p.Timeout))
	}
	if !p.Recover {
		sublines = append(sublines, Subline(styleTimeout, "%s aborts on failure", emojiFatal))
	}
	if len(p.Tasks) == 0 {
		sublines = append(sublines, Subline(styleNoTask, "no tasks"))
	}
	for _, task := range p.Tasks {
		sublines = append(sublines, Subline(styleTask, "%s %s", emojiTask, escapeLabel(task)))
	}

	n := Node{
		ID: phaseID(p.Name),
		Label: LabelBuilder{
			Label:    escapeLabel(p.Name),
			FontSize: 16,
			Bold:     true,
			SubLines: sublines,
		}.ToHTML(),
		Type: NodePhase,
	}
	switch {
	case !p.Declared:
		n.Type = NodeUndeclaredPhase
		n.Style = styleUndeclared
	case p.Recover:
		n.Style = styleRecoverable
	default:
		n.Style = styleFatal
	}
	return n
}

func configNodes(configs []introspection.ConfigAccess) []Node {
	var nodes []Node
	seen := make(map[string]struct{}, len(configs))
	for _, k := range configs {
		if _, ok := seen[k.Key]; ok {
			continue
		}
		seen[k.Key] = struct{}{}

		var sublines []string
		if k.Provider != "" {
			sublines = append(sublines, Subline(styleConfigProvider, "%s %s", emojiConfig, k.Provider))
		}
		if k.UsedDefault {
			sublines = append(sublines, Subline(styleConfigDefault, "default"))
		}
		if k.Caller.File != "" {
			sublines = append(sublines, Subline(styleCodeLoc, "%s(%s:%d)", emojiLocation, k.Caller.File, k.Caller.Line))
		}
		nodes = append(nodes, Node{
			ID: "config:" + k.Key,
			Label: LabelBuilder{
				Label:    escapeLabel(k.Key),
				FontSize: 14,
				Bold:     true,
				SubLines: sublines,
			}.ToHTML(),
			Type:  NodeConfig,
			Style: styleConfig,
		})
	}
	return nodes
}

// escapeLabel keeps user supplied names from breaking the quoted Mermaid label.
func escapeLabel(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "<", "#lt;", ">", "#gt;").Replace(s)
}
