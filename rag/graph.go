package rag

import (
	"sort"
	"sync"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 🕸️ 文档关系图
// =============================================================================

// DocumentGraph 文档间的有向加权关系图。
// add 操作串行化；neighbors 读取可与读并发，允许与写最终一致。
//
// 路径强度规则：单条路径强度为沿途边强度的乘积，多条路径取最大值。
// 乘积随跳数单调不增，保证更短更强的路径排名更高。
type DocumentGraph struct {
	mu sync.RWMutex
	// source -> target -> kind -> strength
	edges map[string]map[string]map[types.RelationKind]float64
}

// NewDocumentGraph 创建空关系图。
func NewDocumentGraph() *DocumentGraph {
	return &DocumentGraph{
		edges: make(map[string]map[string]map[types.RelationKind]float64),
	}
}

// AddRelation 插入或更新一条边。
// (source, target, kind) 三元组幂等：重复添加更新强度而非重复建边。
// 强度截断到 [0, 1]。
func (g *DocumentGraph) AddRelation(source, target string, kind types.RelationKind, strength float64) {
	if source == "" || target == "" || source == target {
		return
	}
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	targets, ok := g.edges[source]
	if !ok {
		targets = make(map[string]map[types.RelationKind]float64)
		g.edges[source] = targets
	}
	kinds, ok := targets[target]
	if !ok {
		kinds = make(map[types.RelationKind]float64)
		targets[target] = kinds
	}
	kinds[kind] = strength
}

// RemoveDocument 删除文档的所有出边和入边。
func (g *DocumentGraph) RemoveDocument(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.edges, id)
	for _, targets := range g.edges {
		delete(targets, id)
	}
}

// Relations 返回文档的全部出边，按 (target, kind) 排序。
func (g *DocumentGraph) Relations(source string) []types.GraphRelation {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []types.GraphRelation
	for target, kinds := range g.edges[source] {
		for kind, strength := range kinds {
			out = append(out, types.GraphRelation{
				SourceID: source,
				TargetID: target,
				Kind:     kind,
				Strength: strength,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TargetID != out[j].TargetID {
			return out[i].TargetID < out[j].TargetID
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Neighbor 可达文档及其累积路径强度。
type Neighbor struct {
	DocumentID string
	Strength   float64
	Hops       int
}

// Neighbors 返回 maxHops 跳内可达的文档。
// 每个文档记录所有路径中的最大累积强度，结果按强度降序、
// 同强度按文档 ID 升序，保证确定性。
func (g *DocumentGraph) Neighbors(documentID string, maxHops int) []Neighbor {
	if maxHops <= 0 {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	// 逐层松弛：best[id] 为当前已知最大路径强度
	best := map[string]Neighbor{documentID: {DocumentID: documentID, Strength: 1, Hops: 0}}
	frontier := map[string]float64{documentID: 1}

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		next := make(map[string]float64)
		for node, pathStrength := range frontier {
			for target, kinds := range g.edges[node] {
				edge := maxKindStrength(kinds)
				s := pathStrength * edge
				if s <= 0 {
					continue
				}
				prev, seen := best[target]
				if !seen || s > prev.Strength {
					best[target] = Neighbor{DocumentID: target, Strength: s, Hops: hop}
					next[target] = s
				}
			}
		}
		frontier = next
	}

	delete(best, documentID)
	out := make([]Neighbor, 0, len(best))
	for _, n := range best {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}

// maxKindStrength 平行边（不同关系类型）取最强的一条
func maxKindStrength(kinds map[types.RelationKind]float64) float64 {
	max := 0.0
	for _, s := range kinds {
		if s > max {
			max = s
		}
	}
	return max
}

// Size 返回边数。
func (g *DocumentGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, targets := range g.edges {
		for _, kinds := range targets {
			n += len(kinds)
		}
	}
	return n
}
