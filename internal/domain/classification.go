package domain

import "encoding/json"

// ClassificationIndex maps a classification id to its code → label dictionary.
// Built once per table from the getMetaInfo document, read-only thereafter.
type ClassificationIndex map[string]map[string]string

// BuildClassificationIndex builds an index from a raw getMetaInfo document.
// Absent or malformed metadata yields an empty index rather than an error;
// every lookup then degrades to raw-code passthrough.
func BuildClassificationIndex(raw json.RawMessage) ClassificationIndex {
	idx := make(ClassificationIndex)
	if len(raw) == 0 {
		return idx
	}

	var env MetaInfoEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return idx
	}

	for _, obj := range env.GetMetaInfo.MetadataInf.ClassInf.ClassObjs {
		if obj.ID == "" {
			continue
		}
		codes := make(map[string]string, len(obj.Classes))
		for _, entry := range obj.Classes {
			if entry.Code == "" {
				continue
			}
			codes[entry.Code] = entry.Name
		}
		idx[obj.ID] = codes
	}
	return idx
}

// Resolve returns the label for (classID, code), or code unchanged when the
// id or code is unknown. Never fails.
func (idx ClassificationIndex) Resolve(classID, code string) string {
	if codes, ok := idx[classID]; ok {
		if label, ok := codes[code]; ok && label != "" {
			return label
		}
	}
	return code
}
