package mermaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraph_RenderTD(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "config:LOG_LEVEL", Label: "LOG_LEVEL", Type: NodeConfig, Style: Style{Fill: "#fff"}},
			{ID: "phase:drain", Label: "drain", Type: NodePhase},
			{ID: "phase:stop-http", Label: "stop-http", Type: NodeUndeclaredPhase, Class: "muted"},
		},
		Edges: []Edge{
			{From: "phase:stop-http", To: "phase:drain"},
			{From: "phase:drain", To: "phase:stop-http", Arrow: "-.->"},
		},
	}

	out := g.RenderTD()

	assert.Equal(t, "graph TD\n"+
		"\tphase_drain[\"drain\"]\n"+
		"\tphase_stop_http[\"stop-http\"]\n"+
		"\tconfig_LOG_LEVEL[\"LOG_LEVEL\"]\n"+
		"    phase_drain -.-> phase_stop_http\n"+
		"    phase_stop_http --> phase_drain\n"+
		"    style config_LOG_LEVEL fill:#fff\n"+
		"    class phase_stop_http muted;\n", out)
}

func TestStyle_ToCSS(t *testing.T) {
	testCases := map[string]struct {
		style  Style
		expect string
	}{
		"empty": {style: Style{}, expect: ""},
		"mermaid": {
			style:  Style{Fill: "#fff", Stroke: "#000", StrokeWidth: "2px"},
			expect: "fill:#fff,stroke:#000,stroke-width:2px",
		},
		"html": {
			style:  Style{Color: "gray", FontSize: "11px", IsHtml: true},
			expect: "color:gray;font-size:11px;",
		},
	}
	for name, tt := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.style.ToCSS())
		})
	}
}

func TestLabelBuilder_ToHTML(t *testing.T) {
	label := LabelBuilder{
		Label:     "drain",
		FontSize:  16,
		FontColor: "white",
		Bold:      true,
		SubLines:  []string{Subline(Style{}, "tasks: %d", 2)},
	}.ToHTML()

	assert.Equal(t, "<b><span style='font-size:16px;color:white'>drain</span></b><br/><span>tasks: 2</span>", label)
}
