package types

import (
	"fmt"
	"sort"
)

// ParseDocumentMeta converts an untyped metadata bag into the closed
// DocumentMeta shape. Unknown keys are quarantined by name and their
// values dropped; they never propagate untyped through the pipeline.
func ParseDocumentMeta(raw map[string]any) DocumentMeta {
	var meta DocumentMeta
	var quarantined []string

	for key, value := range raw {
		switch key {
		case "court":
			meta.Court, _ = value.(string)
		case "judge":
			meta.Judge, _ = value.(string)
		case "parties":
			meta.Parties = toStringSlice(value)
		case "topics":
			meta.Topics = toStringSlice(value)
		case "precedential_value":
			s, ok := value.(string)
			if !ok {
				quarantined = append(quarantined, key)
				continue
			}
			pv := PrecedentialValue(s)
			switch pv {
			case PrecedentBinding, PrecedentPersuasive, PrecedentNone:
				meta.PrecedentialValue = pv
			default:
				quarantined = append(quarantined, key)
			}
		case "ingestion_confidence":
			switch v := value.(type) {
			case float64:
				meta.IngestionConfidence = v
			case int:
				meta.IngestionConfidence = float64(v)
			default:
				quarantined = append(quarantined, key)
			}
		default:
			quarantined = append(quarantined, key)
		}
	}

	sort.Strings(quarantined)
	meta.Quarantined = quarantined
	return meta
}

func toStringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}
