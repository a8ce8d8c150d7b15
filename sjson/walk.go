package sjson

// Token-level structure iteration. All of these assume the token slice has
// passed Parse, so brackets are balanced and object entries are well-formed;
// they still bounds-check so a truncated slice cannot run them off the end.

// ValueSpan returns the index just past the last token of the value starting
// at token index i. Scalars span one token; containers span to their matching
// close bracket.
func ValueSpan(toks []*Token, i int) int {
	if i >= len(toks) {
		return i
	}
	switch toks[i].Kind {
	case KindObjectOpen, KindArrayOpen:
		depth := 1
		j := i + 1
		for j < len(toks) && depth > 0 {
			switch toks[j].Kind {
			case KindObjectOpen, KindArrayOpen:
				depth++
			case KindObjectClose, KindArrayClose:
				depth--
			}
			j++
		}
		return j
	default:
		return i + 1
	}
}

// Entry is one key/value pair of an object at the token level. KeyIdx is the
// key string token; the value occupies [ValStart, ValEnd).
type Entry struct {
	Key      string
	KeyIdx   int
	ValStart int
	ValEnd   int
}

// ObjectEntries lists the entries of the object whose open brace is at open.
func ObjectEntries(toks []*Token, open int) []Entry {
	var entries []Entry
	i := open + 1
	for {
		i = SkipWSC(toks, i)
		if i >= len(toks) || toks[i].Kind == KindObjectClose {
			return entries
		}
		if toks[i].Kind != KindString {
			return entries
		}
		e := Entry{Key: toks[i].Str, KeyIdx: i}
		i = SkipWSC(toks, i+1)
		if i >= len(toks) || toks[i].Kind != KindColon {
			return entries
		}
		i = SkipWSC(toks, i+1)
		if i >= len(toks) {
			return entries
		}
		e.ValStart = i
		e.ValEnd = ValueSpan(toks, i)
		entries = append(entries, e)
		i = e.ValEnd
	}
}

// Child is one element of an array at the token level, spanning
// [Start, End).
type Child struct {
	Start int
	End   int
}

// ArrayChildren lists the elements of the array whose open bracket is at
// open.
func ArrayChildren(toks []*Token, open int) []Child {
	var children []Child
	i := open + 1
	for {
		i = SkipWSC(toks, i)
		if i >= len(toks) || toks[i].Kind == KindArrayClose {
			return children
		}
		end := ValueSpan(toks, i)
		children = append(children, Child{Start: i, End: end})
		i = end
	}
}
