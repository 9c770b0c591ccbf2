package anomaly

import (
	"sort"

	"creator-market-sim/internal/models"
)

// Pair is an ordered (buyer, seller) edge of the trade graph.
type Pair struct {
	Buyer  string
	Seller string
}

// TradeGraph is a directed multigraph over trade participants: every trade adds one
// buyer -> seller edge.
type TradeGraph struct {
	edges map[string]map[string]int
	nodes []string
	total int
}

// BuildTradeGraph builds the graph of a trade window.
func BuildTradeGraph(trades []models.Trade) *TradeGraph {
	g := &TradeGraph{edges: make(map[string]map[string]int)}
	seen := make(map[string]bool)
	for _, t := range trades {
		for _, id := range []string{t.BuyerID, t.SellerID} {
			if !seen[id] {
				seen[id] = true
				g.nodes = append(g.nodes, id)
			}
		}
		out, ok := g.edges[t.BuyerID]
		if !ok {
			out = make(map[string]int)
			g.edges[t.BuyerID] = out
		}
		out[t.SellerID]++
		g.total++
	}
	sort.Strings(g.nodes)
	return g
}

// Nodes returns every participant id, sorted.
func (g *TradeGraph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// EdgeCount returns the number of trades from buyer to seller.
func (g *TradeGraph) EdgeCount(buyer, seller string) int {
	return g.edges[buyer][seller]
}

// TradeCount returns the number of trades the graph was built from.
func (g *TradeGraph) TradeCount() int {
	return g.total
}

// RepeatedPairs returns every ordered pair with at least minTrades trades, and the
// number of trades those pairs account for.
func (g *TradeGraph) RepeatedPairs(minTrades int) ([]Pair, int) {
	var pairs []Pair
	trades := 0
	for _, buyer := range g.nodes {
		for _, seller := range g.successors(buyer) {
			if n := g.edges[buyer][seller]; n >= minTrades {
				pairs = append(pairs, Pair{Buyer: buyer, Seller: seller})
				trades += n
			}
		}
	}
	return pairs, trades
}

// ReciprocalEdges counts directed edges u -> v whose reverse v -> u also exists.
// A pair trading both ways contributes two edges; a self-trade contributes one.
func (g *TradeGraph) ReciprocalEdges() int {
	count := 0
	for buyer, out := range g.edges {
		for seller := range out {
			if g.edges[seller][buyer] > 0 {
				count++
			}
		}
	}
	return count
}

// Cycles enumerates simple directed cycles with 2..maxLen participants. Each cycle is
// reported once, rotated to start at its smallest id; results are sorted.
func (g *TradeGraph) Cycles(maxLen int) [][]string {
	var cycles [][]string
	for _, start := range g.nodes {
		path := []string{start}
		onPath := map[string]bool{start: true}
		g.walk(start, start, maxLen, path, onPath, &cycles)
	}
	sort.Slice(cycles, func(i, j int) bool {
		a, b := cycles[i], cycles[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return cycles
}

// walk extends path depth-first, only through nodes greater than start so every cycle
// is found exactly once from its smallest member.
func (g *TradeGraph) walk(start, current string, maxLen int, path []string, onPath map[string]bool, out *[][]string) {
	for _, next := range g.successors(current) {
		if next == start && len(path) >= 2 {
			*out = append(*out, append([]string(nil), path...))
			continue
		}
		if next <= start || onPath[next] || len(path) >= maxLen {
			continue
		}
		onPath[next] = true
		g.walk(start, next, maxLen, append(path, next), onPath, out)
		delete(onPath, next)
	}
}

func (g *TradeGraph) successors(node string) []string {
	out := make([]string, 0, len(g.edges[node]))
	for s := range g.edges[node] {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
