package config

import "gopkg.in/yaml.v3"

// recordKeys identify a sequence item across rewrites, so unknown fields of
// an identity, key, session or rule follow that record even if others were
// added or removed around it.
var recordKeys = []string{"id", "pattern"}

// mergeUnknown copies into dst every mapping entry of src that dst lacks.
func mergeUnknown(dst, src *yaml.Node) {
	if src.Kind == yaml.DocumentNode && len(src.Content) == 1 {
		src = src.Content[0]
	}
	if dst.Kind != src.Kind {
		return
	}

	switch dst.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(src.Content); i += 2 {
			k, v := src.Content[i], src.Content[i+1]
			if dv := mappingValue(dst, k.Value); dv != nil {
				mergeUnknown(dv, v)
				continue
			}
			dst.Content = append(dst.Content, k, v)
		}
	case yaml.SequenceNode:
		for _, item := range dst.Content {
			if match := matchRecord(src, item); match != nil {
				mergeUnknown(item, match)
			}
		}
	}
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func matchRecord(seq, item *yaml.Node) *yaml.Node {
	if item.Kind != yaml.MappingNode {
		return nil
	}
	for _, rk := range recordKeys {
		v := mappingValue(item, rk)
		if v == nil {
			continue
		}
		for _, cand := range seq.Content {
			if cand.Kind != yaml.MappingNode {
				continue
			}
			if cv := mappingValue(cand, rk); cv != nil && cv.Value == v.Value {
				return cand
			}
		}
		return nil
	}
	return nil
}
