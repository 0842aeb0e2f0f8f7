package rag

import "strings"

// =============================================================================
// 🔎 查询扩展
// =============================================================================

// 法律同义词与口语-术语映射。
// 扩展一次后供三个检索策略共用，保证融合比较公平。
var legalSynonyms = map[string][]string{
	"fired":        {"terminated", "dismissed"},
	"fire":         {"terminate", "dismiss"},
	"sue":          {"litigate", "bring an action"},
	"sued":         {"litigated"},
	"lawsuit":      {"action", "litigation"},
	"lawyer":       {"attorney", "counsel"},
	"judge":        {"court"},
	"overturned":   {"overruled", "reversed"},
	"illegal":      {"unlawful", "prohibited"},
	"legal":        {"lawful", "permitted"},
	"allowed":      {"permitted"},
	"forbidden":    {"prohibited"},
	"contract":     {"agreement"},
	"break":        {"breach"},
	"broke":        {"breached"},
	"money":        {"damages", "compensation"},
	"hurt":         {"injury", "harm"},
	"carelessness": {"negligence"},
	"guilty":       {"liable"},
	"rule":         {"holding", "doctrine"},
	"precedent":    {"stare decisis"},
	"appeal":       {"appellate review"},
	"privacy":      {"right to privacy"},
	"ownership":    {"title"},
	"renter":       {"tenant", "lessee"},
	"landlord":     {"lessor"},
	"worker":       {"employee"},
	"boss":         {"employer"},
}

// ExpandQuery 为查询中命中的词追加同义词。
// 追加顺序由查询词序驱动，结果确定；已出现的词不重复追加。
func ExpandQuery(query string) string {
	words := strings.Fields(query)
	if len(words) == 0 {
		return query
	}

	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[normalizeWord(w)] = true
	}

	var additions []string
	for _, w := range words {
		for _, syn := range legalSynonyms[normalizeWord(w)] {
			key := normalizeWord(syn)
			if present[key] {
				continue
			}
			present[key] = true
			additions = append(additions, syn)
		}
	}

	if len(additions) == 0 {
		return query
	}
	return query + " " + strings.Join(additions, " ")
}

func normalizeWord(w string) string {
	return strings.Trim(strings.ToLower(w), ".,:;?!\"'()")
}
