package codeintel

import "github.com/mira-dev/mira/internal/store"

// CallGraph is the inbound/outbound BFS result for get_call_graph, bounded
// to depth≤3 and cycle-safe via a visited set (spec §4.F).
type CallGraph struct {
	Root     store.CodeSymbol
	Outbound []store.CodeSymbol // callees reachable within depth
	Inbound  []store.CodeSymbol // callers reachable within depth
}

const maxCallGraphDepth = 3

// GetCallGraph resolves symbolName to a symbol and BFS-walks its call edges
// in both directions up to maxCallGraphDepth, per spec §4.F.
func GetCallGraph(db *store.DB, symbolName string) (*CallGraph, error) {
	root, err := db.FindSymbolByName(symbolName)
	if err != nil {
		return nil, err
	}

	outbound, err := bfs(db, root.ID, db.OutboundEdges, func(e store.CallEdge) string { return e.CalleeSymbolID })
	if err != nil {
		return nil, err
	}
	inbound, err := bfs(db, root.ID, db.InboundEdges, func(e store.CallEdge) string { return e.CallerSymbolID })
	if err != nil {
		return nil, err
	}

	return &CallGraph{Root: *root, Outbound: outbound, Inbound: inbound}, nil
}

// bfs walks edges via edgesOf starting from rootID, collecting the
// neighbor symbol on each edge (selected by next) up to maxCallGraphDepth,
// never revisiting a symbol id already seen.
func bfs(db *store.DB, rootID string, edgesOf func(string) ([]store.CallEdge, error), next func(store.CallEdge) string) ([]store.CodeSymbol, error) {
	visited := map[string]bool{rootID: true}
	frontier := []string{rootID}
	var out []store.CodeSymbol

	for depth := 0; depth < maxCallGraphDepth && len(frontier) > 0; depth++ {
		var nextFrontier []string
		for _, id := range frontier {
			edges, err := edgesOf(id)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				nid := next(e)
				if nid == "" || visited[nid] {
					continue
				}
				visited[nid] = true
				sym, err := db.GetSymbolByID(nid)
				if err != nil {
					continue // dangling edge to a symbol since deleted
				}
				out = append(out, *sym)
				nextFrontier = append(nextFrontier, nid)
			}
		}
		frontier = nextFrontier
	}
	return out, nil
}
