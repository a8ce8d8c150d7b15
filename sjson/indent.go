package sjson

import "bytes"

// DetectIndent guesses the indentation unit of an SJSON text by taking the
// GCD of the leading-space counts of all indented, non-comment lines. Files
// with no usable indented lines report 4, the conventional JBeam unit.
func DetectIndent(b []byte) int {
	lines := bytes.Split(b, []byte("\n"))

	indents := []int{}
	for _, ln := range lines {
		if len(bytes.TrimSpace(ln)) == 0 {
			continue
		}
		// Skip pure comment lines; their indent tracks prose, not structure.
		trimmed := bytes.TrimLeft(ln, " \t")
		if bytes.HasPrefix(trimmed, []byte("//")) || bytes.HasPrefix(trimmed, []byte("/*")) || bytes.HasPrefix(trimmed, []byte("*")) {
			continue
		}

		n := leadingSpaces(ln)
		if n > 0 {
			indents = append(indents, n)
		}
	}

	if len(indents) == 0 {
		return 4
	}

	result := indents[0]
	for i := 1; i < len(indents); i++ {
		result = gcd(result, indents[i])
		if result == 1 {
			break
		}
	}

	if result > 0 && result <= 8 {
		return result
	}
	return 4
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func leadingSpaces(line []byte) int {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}
