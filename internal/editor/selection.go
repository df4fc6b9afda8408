package editor

// Selection is a half-open character range over the draft content. A
// collapsed selection (Start == End) is a bare cursor.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Selection) IsCollapsed() bool {
	return s.Start == s.End
}

func (s Selection) Width() int {
	return s.End - s.Start
}

// MenuState is what the editing surface should show for the current
// selection: the formatting menu anchored at a position, the insert
// affordance, or neither.
type MenuState struct {
	FormatVisible bool `json:"format_visible"`
	InsertVisible bool `json:"insert_visible"`
	Anchor        int  `json:"anchor"`
}

// EvaluateSelection derives the menu state for a selection. The menu is
// shown only when the selection differs from the last evaluated one and
// spans at least one character; redundant re-evaluations of the same
// range keep the menu stable instead of repositioning it.
func EvaluateSelection(content string, sel Selection, lastEvaluated *Selection) MenuState {
	if lastEvaluated != nil && sel == *lastEvaluated {
		return MenuState{}
	}

	if sel.Width() >= 1 {
		return MenuState{
			FormatVisible: true,
			Anchor:        sel.Start,
		}
	}

	if sel.IsCollapsed() && atEmptyParagraph(content, sel.Start) {
		return MenuState{
			InsertVisible: true,
			Anchor:        sel.Start,
		}
	}

	return MenuState{}
}

// atEmptyParagraph reports whether pos sits on a line with no text,
// which is where the insert affordance appears.
func atEmptyParagraph(content string, pos int) bool {
	if pos < 0 || pos > len(content) {
		return false
	}

	lineStart := pos
	for lineStart > 0 && content[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := pos
	for lineEnd < len(content) && content[lineEnd] != '\n' {
		lineEnd++
	}

	for i := lineStart; i < lineEnd; i++ {
		switch content[i] {
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}
