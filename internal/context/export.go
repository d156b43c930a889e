package context

import (
	"fmt"

	"github.com/mpengine/mpcore/internal/dag"
)

// nodeEntry names one member of a node group for dag.json.
type nodeEntry struct {
	Index string `json:"index"`
	Label string `json:"label"`
}

// displayConfig and labelConfig are cosmetic rendering hints carried through
// verbatim so a downstream graph viewer has something reasonable to draw with.
type displayConfig struct {
	NodeColor string  `json:"node_color,omitempty"`
	EdgeColor string  `json:"edge_color,omitempty"`
	Alpha     float64 `json:"alpha,omitempty"`
	Width     float64 `json:"width,omitempty"`
}

type labelConfig struct {
	FontSize   int    `json:"font_size"`
	FontFamily string `json:"font_family"`
}

type nodeGroup struct {
	NodeList      []nodeEntry  `json:"node_list"`
	DisplayConfig displayConfig `json:"display_configs"`
	LabelConfig   labelConfig   `json:"label_configs,omitempty"`
}

type edgeEntry struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type edgeGroup struct {
	EdgeList      []edgeEntry   `json:"edge_list"`
	DisplayConfig displayConfig `json:"display_configs"`
}

type nodeGroups struct {
	References nodeGroup `json:"references"`
	DAGNodes   nodeGroup `json:"dag_nodes"`
	Datas      nodeGroup `json:"datas"`
	Procedure  nodeGroup `json:"procedure"`
}

type edgeGroups struct {
	ReferencesNodes edgeGroup `json:"references_nodes"`
	NodesDatas      edgeGroup `json:"nodes_datas"`
	NodesNodes      edgeGroup `json:"nodes_nodes"`
	UnitsUnits      edgeGroup `json:"units_units"`
	NodesProcedures edgeGroup `json:"nodes_procedures"`
}

type graphExport struct {
	NodesGroups nodeGroups `json:"nodes_groups"`
	EdgesGroups edgeGroups `json:"edges_groups"`
}

func ptrID(v any) string { return fmt.Sprintf("%p", v) }

func buildGraphExport(nodes []dag.Node, slots []handleSlot) graphExport {
	var g graphExport

	for i, s := range slots {
		if !s.alive {
			continue
		}
		g.NodesGroups.References.NodeList = append(g.NodesGroups.References.NodeList, nodeEntry{
			Index: fmt.Sprintf("ref#%d@%d", i, s.generation),
			Label: fmt.Sprintf("reference#%d", len(g.NodesGroups.References.NodeList)+1),
		})
		g.EdgesGroups.ReferencesNodes.EdgeList = append(g.EdgesGroups.ReferencesNodes.EdgeList, edgeEntry{
			Source: fmt.Sprintf("ref#%d@%d", i, s.generation),
			Target: ptrID(s.node),
		})
	}
	g.NodesGroups.References.DisplayConfig = displayConfig{NodeColor: "red", Alpha: 0.3}
	g.NodesGroups.References.LabelConfig = labelConfig{FontSize: 5, FontFamily: "monospace"}

	dataSeen := make(map[string]bool)
	unitSeen := make(map[string]bool)

	for i, n := range nodes {
		g.NodesGroups.DAGNodes.NodeList = append(g.NodesGroups.DAGNodes.NodeList, nodeEntry{
			Index: ptrID(n),
			Label: fmt.Sprintf("dag_node#%d (%s)", i+1, n.Kind()),
		})

		for _, next := range *n.Nexts() {
			g.EdgesGroups.NodesNodes.EdgeList = append(g.EdgesGroups.NodesNodes.EdgeList, edgeEntry{
				Source: ptrID(n), Target: ptrID(next),
			})
		}

		if data := n.Data(); data != nil {
			id := ptrID(data)
			if !dataSeen[id] {
				dataSeen[id] = true
				g.NodesGroups.Datas.NodeList = append(g.NodesGroups.Datas.NodeList, nodeEntry{
					Index: id, Label: fmt.Sprintf("data#%d", len(g.NodesGroups.Datas.NodeList)+1),
				})
			}
			g.EdgesGroups.NodesDatas.EdgeList = append(g.EdgesGroups.NodesDatas.EdgeList, edgeEntry{
				Source: ptrID(n), Target: id,
			})
		}

		units := procedureUnits(n)
		for _, u := range units {
			id := ptrID(u)
			if !unitSeen[id] {
				unitSeen[id] = true
				g.NodesGroups.Procedure.NodeList = append(g.NodesGroups.Procedure.NodeList, nodeEntry{
					Index: id, Label: fmt.Sprintf("unit#%d", len(g.NodesGroups.Procedure.NodeList)+1),
				})
			}
		}
		for j := 0; j+1 < len(units); j++ {
			g.EdgesGroups.UnitsUnits.EdgeList = append(g.EdgesGroups.UnitsUnits.EdgeList, edgeEntry{
				Source: ptrID(units[j]), Target: ptrID(units[j+1]),
			})
		}
		if len(units) > 0 {
			g.EdgesGroups.NodesProcedures.EdgeList = append(g.EdgesGroups.NodesProcedures.EdgeList, edgeEntry{
				Source: ptrID(n), Target: ptrID(units[0]),
			})
		}
	}

	g.NodesGroups.DAGNodes.DisplayConfig = displayConfig{NodeColor: "blue", Alpha: 0.3}
	g.NodesGroups.DAGNodes.LabelConfig = labelConfig{FontSize: 5, FontFamily: "monospace"}
	g.NodesGroups.Datas.DisplayConfig = displayConfig{NodeColor: "green", Alpha: 0.3}
	g.NodesGroups.Datas.LabelConfig = labelConfig{FontSize: 5, FontFamily: "monospace"}
	g.NodesGroups.Procedure.DisplayConfig = displayConfig{NodeColor: "purple", Alpha: 0.3}
	g.NodesGroups.Procedure.LabelConfig = labelConfig{FontSize: 5, FontFamily: "monospace"}

	g.EdgesGroups.ReferencesNodes.DisplayConfig = displayConfig{Width: 1.5, EdgeColor: "gray"}
	g.EdgesGroups.NodesDatas.DisplayConfig = displayConfig{Width: 1.5, EdgeColor: "gray"}
	g.EdgesGroups.NodesNodes.DisplayConfig = displayConfig{Width: 1.5, EdgeColor: "blue"}
	g.EdgesGroups.UnitsUnits.DisplayConfig = displayConfig{Width: 1.5, EdgeColor: "purple"}
	g.EdgesGroups.NodesProcedures.DisplayConfig = displayConfig{Width: 1.5, EdgeColor: "purple"}

	return g
}

// procedureUnits collects a node's procedure list. Nodes built by this package only
// ever append units via GenerateProcedure, so ProcedurePort (the last one) is enough
// to discover the whole chain back through predecessors is unnecessary here: a node's
// own procedure is exactly the units it appended, which for the kinds this engine has
// is always a single unit.
func procedureUnits(n dag.Node) []*dag.Unit {
	port, err := n.ProcedurePort()
	if err != nil {
		return nil
	}
	return []*dag.Unit{port}
}

type unitEntry struct {
	Name           string `json:"name"`
	Index          string `json:"index"`
	Type           string `json:"type"`
	DependencyType string `json:"dependency_type"`
	ForwardSignal  string `json:"forward_signal"`
	Description    string `json:"description"`
}

type procedureExport struct {
	ComputeUnits []unitEntry `json:"compute_units"`
}

func buildProcedureExport(nodes []dag.Node) procedureExport {
	var out procedureExport
	seen := make(map[string]bool)
	idx := 0
	for _, n := range nodes {
		for _, u := range procedureUnits(n) {
			id := ptrID(u)
			if seen[id] {
				continue
			}
			seen[id] = true
			idx++
			out.ComputeUnits = append(out.ComputeUnits, unitEntry{
				Name:           fmt.Sprintf("unit#%d", idx),
				Index:          id,
				Type:           n.Kind(),
				DependencyType: u.DependencyKind(),
				ForwardSignal:  u.ForwardSignal(),
				Description:    u.Description(),
			})
		}
	}
	return out
}
