package chunking

import "strings"

type segmentKind int

const (
	segmentPreamble segmentKind = iota
	segmentSection
)

// segment is one parsed region of a statute: either the preamble before
// the first recognized marker or a single section starting at its marker.
type segment struct {
	kind  segmentKind
	label string
	start int
	end   int
}

// parseSections scans text into an ordered segment sequence covering the
// whole input. Section markers are recognized at line starts in the form
// "Section N." or "Section N(sub)." (the form used by the consolidated
// constitution text). Returns nil when no marker is found.
func parseSections(text string) []segment {
	type marker struct {
		label string
		pos   int
	}

	var markers []marker
	offset := 0
	for offset < len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var line string
		if lineEnd < 0 {
			line = text[offset:]
			lineEnd = len(text) - offset
		} else {
			line = text[offset : offset+lineEnd]
			lineEnd++
		}
		if label, ok := sectionMarker(line); ok {
			markers = append(markers, marker{label: label, pos: offset})
		}
		offset += lineEnd
	}

	if len(markers) == 0 {
		return nil
	}

	segs := make([]segment, 0, len(markers)+1)
	if markers[0].pos > 0 {
		segs = append(segs, segment{
			kind: segmentPreamble,
			end:  markers[0].pos,
		})
	}
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1].pos
		}
		segs = append(segs, segment{
			kind:  segmentSection,
			label: m.label,
			start: m.pos,
			end:   end,
		})
	}
	return segs
}

// sectionMarker reports whether the line opens a statutory section and
// returns its label without the trailing period, e.g. "Section 33(1)".
func sectionMarker(line string) (string, bool) {
	const prefix = "Section "

	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, prefix) {
		return "", false
	}

	rest := trimmed[len(prefix):]
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 0 {
		return "", false
	}

	if i < len(rest) && rest[i] == '(' {
		close := strings.IndexByte(rest[i:], ')')
		if close <= 1 {
			return "", false
		}
		i += close + 1
	}

	if i >= len(rest) || rest[i] != '.' {
		return "", false
	}
	return prefix + rest[:i], true
}
