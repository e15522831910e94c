package scan

// computeTrim implements the per-static-text-part trim computation of
// spec.md §4.2. It is a single forward pass (plus a linear suffix check
// per candidate newline), not two independent passes over the whole
// input, so it stays cheap even for large static runs.
//
// leftTrimAt is the index one past the first newline, valid only if the
// bytes before that newline are blank (spaces/tabs/NUL/CR). rightTrimAt is
// the index where a trailing blank run (spaces/tabs only) starts after the
// last newline that has one. A lone '\r' (no following '\n') never counts
// as a newline, per the reference behavior named in spec.md §9. It counts
// as blank in the text before the first newline (and for wholeBlank), but
// not in the trailing run after the last newline, which accepts only
// spaces and tabs.
func computeTrim(content []byte) (leftTrimAt int, hasLeft bool, rightTrimAt int, hasRight bool, wholeBlank bool) {
	leftTrimAt, rightTrimAt = none, none

	firstNL, firstLen := firstNewline(content)
	if firstNL >= 0 && isBlankPrefix(content[:firstNL]) {
		leftTrimAt = firstNL + firstLen
		hasLeft = true
	}

	i := 0
	for i < len(content) {
		if content[i] == '\n' {
			if isBlankSuffix(content[i+1:]) {
				rightTrimAt = i + 1
				hasRight = true
			}
			i++
			continue
		}
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			if isBlankSuffix(content[i+2:]) {
				rightTrimAt = i + 2
				hasRight = true
			}
			i += 2
			continue
		}
		i++
	}

	wholeBlank = isBlankPrefix(content)
	return
}

// firstNewline returns the index and byte-length (1 or 2) of the first
// "\n" or "\r\n" run in content, or (-1, 0) if there is none.
func firstNewline(content []byte) (int, int) {
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\n':
			return i, 1
		case '\r':
			if i+1 < len(content) && content[i+1] == '\n' {
				return i, 2
			}
			// lone CR: not a newline, keep scanning.
		}
	}
	return -1, 0
}

func isBlankPrefix(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', 0, '\r':
		default:
			return false
		}
	}
	return true
}

func isBlankSuffix(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t':
		default:
			return false
		}
	}
	return true
}
