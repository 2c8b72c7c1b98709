package autosave

import "github.com/mindmapapp/mindmap/internal/diagram"

// IsDirty reports whether current has unsaved changes relative to baseline,
// the last persisted copy. A nil baseline means nothing was ever persisted,
// which is dirty by definition.
//
// Comparison is element for element and order sensitive: reordering nodes
// counts as a change, as it would for a serialized comparison.
func IsDirty(current diagram.Document, baseline *diagram.Document) bool {
	if baseline == nil {
		return true
	}
	return !current.Equal(*baseline)
}
