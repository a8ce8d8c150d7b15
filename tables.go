package jbeamsync

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jbeamtools/jbeamsync/sjson"
)

// tableEditor applies one cycle's entity actions to a document. All
// mutations are token splices; scalar cells are rewritten in place. Callers
// hand it the cycle's working copy, never the committed document.
type tableEditor struct {
	doc    *sjson.Document
	cfg    Config
	scheme SymmetryScheme
	log    *slog.Logger
	unit   int
}

func newTableEditor(doc *sjson.Document, cfg Config, scheme SymmetryScheme, unit int, log *slog.Logger) *tableEditor {
	if log == nil {
		log = NopLogger()
	}
	if unit <= 0 {
		unit = 4
	}
	return &tableEditor{doc: doc, cfg: cfg, scheme: scheme, log: log, unit: unit}
}

// Apply executes every part's action set. Parts run in name order so a given
// action set always produces the same bytes.
func (te *tableEditor) Apply(actions EntityActions) error {
	parts := make([]string, 0, len(actions))
	for p := range actions {
		parts = append(parts, p)
	}
	sort.Strings(parts)
	for _, part := range parts {
		if err := te.applyPart(part, actions[part]); err != nil {
			return err
		}
	}
	return nil
}

// applyPart runs one part's actions. Moves go before renames because both
// are keyed by the row's pre-cycle id; flips and row-index deletes run
// before any splice that would renumber rows, with deletes descending so
// each index is still valid when its turn comes.
func (te *tableEditor) applyPart(part string, pa *PartActions) error {
	for _, id := range sortedKeys(pa.NodesToMove) {
		if err := te.moveNode(part, id, pa.NodesToMove[id]); err != nil {
			return err
		}
	}
	for _, old := range sortedKeys(pa.NodesToRename) {
		if err := te.renameNode(part, old, pa.NodesToRename[old]); err != nil {
			return err
		}
	}
	if err := te.flipRows(part, TableTriangles, triHeaderNames, pa.TrisFlipped); err != nil {
		return err
	}
	if err := te.flipRows(part, TableQuads, quadHeaderNames, pa.QuadsFlipped); err != nil {
		return err
	}

	if err := te.deleteRowsDesc(part, TableBeams, pa.BeamsToDelete); err != nil {
		return err
	}
	if err := te.deleteRowsDesc(part, TableTriangles, pa.TrisToDelete); err != nil {
		return err
	}
	if err := te.deleteRowsDesc(part, TableQuads, pa.QuadsToDelete); err != nil {
		return err
	}
	for _, id := range sortedKeys(pa.NodesToDelete) {
		if err := te.deleteNode(part, id); err != nil {
			return err
		}
	}

	for _, id := range sortedKeys(pa.NodesToAddSymmetrically) {
		if err := te.addNodeSymmetric(part, id, pa.NodesToAddSymmetrically[id]); err != nil {
			return err
		}
	}
	var nodeRows [][]*sjson.Token
	for _, id := range sortedKeys(pa.NodesToAdd) {
		nodeRows = append(nodeRows, nodeRowTokens(id, pa.NodesToAdd[id]))
	}
	if err := te.appendRows(part, TableNodes, nodeRows); err != nil {
		return err
	}

	if err := te.addBeams(part, pa.BeamsToAdd); err != nil {
		return err
	}
	var triRows [][]*sjson.Token
	for _, ids := range pa.TrisToAdd {
		triRows = append(triRows, refRowTokens(ids[:]))
	}
	if err := te.appendRows(part, TableTriangles, triRows); err != nil {
		return err
	}
	var quadRows [][]*sjson.Token
	for _, ids := range pa.QuadsToAdd {
		quadRows = append(quadRows, refRowTokens(ids[:]))
	}
	return te.appendRows(part, TableQuads, quadRows)
}

// skippable reports whether a locate failure is per-entity drift (skip with
// a warning) rather than a malformed document (abort the cycle).
func skippable(err error) bool {
	return errors.Is(err, sjson.ErrAbsent)
}

func (te *tableEditor) moveNode(part, id string, pos Vec3) error {
	_, cells, cols, err := te.nodeRowByID(part, id)
	if err != nil {
		if skippable(err) {
			te.log.Warn("move target row not found", "part", part, "id", id)
			return nil
		}
		return err
	}
	toks := te.doc.Tokens
	for _, name := range []string{"posX", "posY", "posZ"} {
		col := cols[name]
		if col >= len(cells) || toks[cells[col].Start].Kind != sjson.KindNumber {
			te.log.Warn("position is not a literal, move skipped", "part", part, "id", id)
			return nil
		}
	}
	for axis, name := range []string{"posX", "posY", "posZ"} {
		toks[cells[cols[name]].Start].SetNumber(pos[axis])
	}
	return nil
}

func (te *tableEditor) renameNode(part, old, new string) error {
	_, cells, cols, err := te.nodeRowByID(part, old)
	if err != nil {
		if skippable(err) {
			te.log.Warn("rename target row not found", "part", part, "id", old)
			return nil
		}
		return err
	}
	te.doc.Tokens[cells[cols["id"]].Start].SetString(new)

	if !te.cfg.AffectNodeReferences {
		return nil
	}
	for table, names := range map[string][]string{
		TableBeams:     beamHeaderNames,
		TableTriangles: triHeaderNames,
		TableQuads:     quadHeaderNames,
	} {
		header, rows, err := sectionRows(te.doc, part, table)
		if err != nil {
			if skippable(err) {
				continue
			}
			return err
		}
		cols := headerCols(te.doc.Tokens, header, names)
		for _, r := range rows {
			cs := rowCells(te.doc.Tokens, r.start)
			for _, name := range names {
				col := cols[name]
				if col >= len(cs) {
					continue
				}
				t := te.doc.Tokens[cs[col].Start]
				if t.Kind == sjson.KindString && t.Str == old {
					t.SetString(new)
				}
			}
		}
	}
	return nil
}

// flipRows reverses the id cells of every flagged row, flipping the winding
// order without touching any other cell or the row's formatting.
func (te *tableEditor) flipRows(part, table string, names []string, flagged map[int]bool) error {
	if len(flagged) == 0 {
		return nil
	}
	header, rows, err := sectionRows(te.doc, part, table)
	if err != nil {
		if skippable(err) {
			te.log.Warn("flip on missing section", "part", part, "table", table)
			return nil
		}
		return err
	}
	cols := headerCols(te.doc.Tokens, header, names)
	for _, idx := range sortedInts(flagged) {
		if idx < 1 || idx > len(rows) {
			te.log.Warn("flip row out of range", "part", part, "table", table, "row", idx)
			continue
		}
		cs := rowCells(te.doc.Tokens, rows[idx-1].start)
		idToks := make([]*sjson.Token, 0, len(names))
		ok := true
		for _, name := range names {
			col := cols[name]
			if col >= len(cs) || te.doc.Tokens[cs[col].Start].Kind != sjson.KindString {
				ok = false
				break
			}
			idToks = append(idToks, te.doc.Tokens[cs[col].Start])
		}
		if !ok {
			te.log.Warn("flip row without id cells", "part", part, "table", table, "row", idx)
			continue
		}
		for i, j := 0, len(idToks)-1; i < j; i, j = i+1, j-1 {
			*idToks[i], *idToks[j] = *idToks[j], *idToks[i]
		}
	}
	return nil
}

// deleteRowsDesc removes data rows by 1-based index, highest first so lower
// indexes stay valid across splices.
func (te *tableEditor) deleteRowsDesc(part, table string, idxs map[int]bool) error {
	if len(idxs) == 0 {
		return nil
	}
	sorted := sortedInts(idxs)
	for i := len(sorted) - 1; i >= 0; i-- {
		idx := sorted[i]
		_, rows, err := sectionRows(te.doc, part, table)
		if err != nil {
			if skippable(err) {
				te.log.Warn("delete on missing section", "part", part, "table", table)
				return nil
			}
			return err
		}
		if idx < 1 || idx > len(rows) {
			te.log.Warn("delete row out of range", "part", part, "table", table, "row", idx)
			continue
		}
		te.deleteRowSpan(rows[idx-1])
	}
	return nil
}

func (te *tableEditor) deleteNode(part, id string) error {
	span, _, _, err := te.nodeRowByID(part, id)
	if err != nil {
		if skippable(err) {
			te.log.Warn("delete target row not found", "part", part, "id", id)
			return nil
		}
		return err
	}
	te.deleteRowSpan(span)
	return nil
}

// deleteRowSpan splices a row out together with its trailing separator. When
// the row is the last child before the close bracket, the whitespace on both
// sides is merged so no blank line is left behind and the bracket keeps its
// indentation.
func (te *tableEditor) deleteRowSpan(span rowSpan) {
	toks := te.doc.Tokens
	leadIdx := -1
	if span.start > 0 && toks[span.start-1].Kind == sjson.KindWSC {
		leadIdx = span.start - 1
	}
	trailIdx := -1
	if span.end < len(toks) && toks[span.end].Kind == sjson.KindWSC {
		trailIdx = span.end
	}
	nextIdx := span.end
	if trailIdx >= 0 {
		nextIdx = trailIdx + 1
	}
	lastChild := nextIdx >= len(toks) || toks[nextIdx].Kind == sjson.KindArrayClose

	if lastChild {
		lead, trail := "", ""
		spliceStart, spliceEnd := span.start, span.end
		if leadIdx >= 0 {
			lead = toks[leadIdx].Raw
			spliceStart = leadIdx
		}
		if trailIdx >= 0 {
			trail = toks[trailIdx].Raw
			spliceEnd = trailIdx + 1
		}
		merged := upToLastNL(lead) + afterLastNL(trail)
		if merged == "" {
			te.doc.Splice(spliceStart, spliceEnd)
		} else {
			te.doc.Splice(spliceStart, spliceEnd, sjson.NewWSC(merged))
		}
		return
	}

	spliceEnd := span.end
	if trailIdx >= 0 {
		spliceEnd = trailIdx + 1
	}
	te.doc.Splice(span.start, spliceEnd)
	te.mergeAdjacentWSC(span.start)
}

// mergeAdjacentWSC concatenates the wsc tokens around boundary i if a splice
// left two of them touching.
func (te *tableEditor) mergeAdjacentWSC(i int) {
	toks := te.doc.Tokens
	if i <= 0 || i >= len(toks) {
		return
	}
	if toks[i-1].Kind == sjson.KindWSC && toks[i].Kind == sjson.KindWSC {
		te.doc.Splice(i-1, i+1, sjson.NewWSC(toks[i-1].Raw+toks[i].Raw))
	}
}

// addNodeSymmetric inserts a node row directly after its mirror source's
// row, cloned from it so attribute cells and formatting carry over, with the
// id and position cells substituted. A vanished mirror row degrades to a
// normal append.
func (te *tableEditor) addNodeSymmetric(part, newID string, sa SymAdd) error {
	span, cells, cols, err := te.nodeRowByID(part, sa.MirrorID)
	if err != nil {
		if skippable(err) {
			te.log.Warn("mirror source row not found, appending", "part", part, "id", newID, "mirror", sa.MirrorID)
			return te.appendRows(part, TableNodes, [][]*sjson.Token{nodeRowTokens(newID, sa.Pos)})
		}
		return err
	}
	toks := te.doc.Tokens
	clone := make([]*sjson.Token, 0, span.end-span.start)
	for _, t := range toks[span.start:span.end] {
		clone = append(clone, t.Clone())
	}
	rel := func(c sjson.Child) int { return c.Start - span.start }

	idCol := cols["id"]
	if idCol < len(cells) {
		clone[rel(cells[idCol])].SetString(newID)
	}
	for axis, name := range []string{"posX", "posY", "posZ"} {
		col := cols[name]
		if col < len(cells) && clone[rel(cells[col])].Kind == sjson.KindNumber {
			clone[rel(cells[col])].SetNumber(sa.Pos[axis])
		}
	}

	indent := strings.Repeat(" ", te.unit*3)
	if span.start > 0 && toks[span.start-1].Kind == sjson.KindWSC {
		if ind := afterLastNL(toks[span.start-1].Raw); ind != "" && strings.TrimLeft(ind, " \t") == "" {
			indent = ind
		}
	}
	seq := append([]*sjson.Token{sjson.NewWSC(",\n" + indent)}, clone...)
	te.doc.Splice(span.end, span.end, seq...)
	return nil
}

// addBeams inserts each new beam next to its mirrored counterpart row when
// the symmetry scheme resolves one, and appends the rest at the section end.
func (te *tableEditor) addBeams(part string, adds [][2]string) error {
	var appendLater [][]*sjson.Token
	for _, pair := range adds {
		if te.insertBeamAtMirror(part, pair) {
			continue
		}
		appendLater = append(appendLater, refRowTokens(pair[:]))
	}
	return te.appendRows(part, TableBeams, appendLater)
}

func (te *tableEditor) insertBeamAtMirror(part string, pair [2]string) bool {
	c1, ok1 := te.scheme.Counterpart(pair[0])
	c2, ok2 := te.scheme.Counterpart(pair[1])
	if !ok1 || !ok2 {
		return false
	}
	header, rows, err := sectionRows(te.doc, part, TableBeams)
	if err != nil {
		return false
	}
	toks := te.doc.Tokens
	cols := headerCols(toks, header, beamHeaderNames)
	for _, r := range rows {
		ids, ok := refCells(toks, r, cols, beamHeaderNames)
		if !ok || ids[0] != c1 || ids[1] != c2 {
			continue
		}
		clone := make([]*sjson.Token, 0, r.end-r.start)
		for _, t := range toks[r.start:r.end] {
			clone = append(clone, t.Clone())
		}
		cells := rowCells(toks, r.start)
		rel := func(c sjson.Child) int { return c.Start - r.start }
		for i, name := range beamHeaderNames {
			col := cols[name]
			if col < len(cells) {
				clone[rel(cells[col])].SetString(pair[i])
			}
		}
		indent := strings.Repeat(" ", te.unit*3)
		if r.start > 0 && toks[r.start-1].Kind == sjson.KindWSC {
			if ind := afterLastNL(toks[r.start-1].Raw); ind != "" && strings.TrimLeft(ind, " \t") == "" {
				indent = ind
			}
		}
		seq := append([]*sjson.Token{sjson.NewWSC(",\n" + indent)}, clone...)
		te.doc.Splice(r.end, r.end, seq...)
		return true
	}
	return false
}

// appendRows adds prebuilt rows before a section's close bracket. A missing
// section is synthesized first; a header-less section gets the conventional
// header row ahead of the new rows. The marker comment goes in once per
// section, ever.
func (te *tableEditor) appendRows(part, table string, rows [][]*sjson.Token) error {
	if len(rows) == 0 {
		return nil
	}
	open, end, err := sectionRange(te.doc, part, table)
	if errors.Is(err, sjson.ErrAbsent) {
		if err := te.synthesizeSection(part, table); err != nil {
			return err
		}
		open, end, err = sectionRange(te.doc, part, table)
	}
	if err != nil {
		return err
	}
	toks := te.doc.Tokens
	closeIdx := end - 1

	header, _, err := sectionRows(te.doc, part, table)
	if err != nil {
		return err
	}
	hasChildren := len(sjson.ArrayChildren(toks, open)) > 0
	hasMarker := sectionHasMarker(toks[open:end], te.cfg.MarkerComment)
	rowIndent, closeIndent := te.sectionIndents(open)

	spliceStart := closeIdx
	prevRaw := ""
	if closeIdx-1 > open && toks[closeIdx-1].Kind == sjson.KindWSC {
		spliceStart = closeIdx - 1
		prevRaw = toks[closeIdx-1].Raw
	}
	if strings.ContainsRune(prevRaw, '\n') {
		if ind := afterLastNL(prevRaw); strings.TrimLeft(ind, " \t") == "" {
			closeIndent = ind
		}
	}
	firstSep := upToLastNL(prevRaw)
	if firstSep == "" {
		if hasChildren {
			firstSep = ",\n"
		} else {
			firstSep = "\n"
		}
	}

	var seq []*sjson.Token
	sep := firstSep + rowIndent
	if header == nil {
		seq = append(seq, sjson.NewWSC(sep))
		seq = append(seq, headerRowTokens(table)...)
		sep = ",\n" + rowIndent
	}
	if !hasMarker && te.cfg.MarkerComment != "" {
		sep += te.cfg.MarkerComment + "\n" + rowIndent
	}
	for _, row := range rows {
		seq = append(seq, sjson.NewWSC(sep))
		seq = append(seq, row...)
		sep = ",\n" + rowIndent
	}
	seq = append(seq, sjson.NewWSC(",\n"+closeIndent))
	te.doc.Splice(spliceStart, closeIdx, seq...)
	return nil
}

// synthesizeSection writes `"<table>": [ <header row> ]` before the part's
// closing brace.
func (te *tableEditor) synthesizeSection(part, table string) error {
	pOpen, pEnd, err := partRange(te.doc, part)
	if err != nil {
		return err
	}
	toks := te.doc.Tokens
	closeIdx := pEnd - 1
	hasEntries := len(sjson.ObjectEntries(toks, pOpen)) > 0

	sectionIndent := strings.Repeat(" ", te.unit*2)
	rowIndent := strings.Repeat(" ", te.unit*3)
	partCloseIndent := strings.Repeat(" ", te.unit)
	for _, e := range sjson.ObjectEntries(toks, pOpen) {
		if e.KeyIdx > 0 && toks[e.KeyIdx-1].Kind == sjson.KindWSC {
			if ind := afterLastNL(toks[e.KeyIdx-1].Raw); ind != "" && strings.TrimLeft(ind, " \t") == "" {
				sectionIndent = ind
				rowIndent = ind + strings.Repeat(" ", te.unit)
				break
			}
		}
	}

	spliceStart := closeIdx
	prevRaw := ""
	if closeIdx-1 > pOpen && toks[closeIdx-1].Kind == sjson.KindWSC {
		spliceStart = closeIdx - 1
		prevRaw = toks[closeIdx-1].Raw
	}
	if strings.ContainsRune(prevRaw, '\n') {
		if ind := afterLastNL(prevRaw); strings.TrimLeft(ind, " \t") == "" {
			partCloseIndent = ind
		}
	}
	firstSep := upToLastNL(prevRaw)
	if firstSep == "" {
		if hasEntries {
			firstSep = ",\n"
		} else {
			firstSep = "\n"
		}
	}

	var seq []*sjson.Token
	seq = append(seq, sjson.NewWSC(firstSep+sectionIndent))
	seq = append(seq, sjson.NewString(table), sjson.NewDelim(sjson.KindColon), sjson.NewWSC(" "), sjson.NewDelim(sjson.KindArrayOpen))
	seq = append(seq, sjson.NewWSC("\n"+rowIndent))
	seq = append(seq, headerRowTokens(table)...)
	seq = append(seq, sjson.NewWSC(",\n"+sectionIndent), sjson.NewDelim(sjson.KindArrayClose))
	seq = append(seq, sjson.NewWSC(",\n"+partCloseIndent))
	te.doc.Splice(spliceStart, closeIdx, seq...)
	return nil
}

// sectionIndents derives the indent for new rows from what the section
// already uses, defaulting to three levels for rows and two for the close
// bracket.
func (te *tableEditor) sectionIndents(open int) (rowIndent, closeIndent string) {
	toks := te.doc.Tokens
	rowIndent = strings.Repeat(" ", te.unit*3)
	closeIndent = strings.Repeat(" ", te.unit*2)
	for _, c := range sjson.ArrayChildren(toks, open) {
		if c.Start > 0 && toks[c.Start-1].Kind == sjson.KindWSC {
			if ind := afterLastNL(toks[c.Start-1].Raw); ind != "" && strings.TrimLeft(ind, " \t") == "" {
				rowIndent = ind
				break
			}
		}
	}
	return rowIndent, closeIndent
}

// nodeRowByID locates the data row whose id cell is id.
func (te *tableEditor) nodeRowByID(part, id string) (rowSpan, []sjson.Child, map[string]int, error) {
	header, rows, err := sectionRows(te.doc, part, TableNodes)
	if err != nil {
		return rowSpan{}, nil, nil, err
	}
	toks := te.doc.Tokens
	cols := headerCols(toks, header, nodeHeaderNames)
	idCol := cols["id"]
	for _, r := range rows {
		cells := rowCells(toks, r.start)
		if idCol >= len(cells) {
			continue
		}
		t := toks[cells[idCol].Start]
		if t.Kind == sjson.KindString && t.Str == id {
			return r, cells, cols, nil
		}
	}
	return rowSpan{}, nil, nil, fmt.Errorf("%w: node row %q", sjson.ErrAbsent, id)
}

func sectionHasMarker(toks []*sjson.Token, marker string) bool {
	if marker == "" {
		return false
	}
	for _, t := range toks {
		if t.Kind == sjson.KindWSC && strings.Contains(t.Raw, marker) {
			return true
		}
	}
	return false
}

// Row literal builders. Node rows use ", " between cells the way hand-written
// tables do; reference rows pack their ids tight.

func nodeRowTokens(id string, pos Vec3) []*sjson.Token {
	return []*sjson.Token{
		sjson.NewDelim(sjson.KindArrayOpen),
		sjson.NewString(id),
		sjson.NewWSC(", "),
		sjson.NewNumber(pos[0]),
		sjson.NewWSC(", "),
		sjson.NewNumber(pos[1]),
		sjson.NewWSC(", "),
		sjson.NewNumber(pos[2]),
		sjson.NewDelim(sjson.KindArrayClose),
	}
}

func refRowTokens(ids []string) []*sjson.Token {
	seq := []*sjson.Token{sjson.NewDelim(sjson.KindArrayOpen)}
	for i, id := range ids {
		if i > 0 {
			seq = append(seq, sjson.NewWSC(","))
		}
		seq = append(seq, sjson.NewString(id))
	}
	return append(seq, sjson.NewDelim(sjson.KindArrayClose))
}

func headerRowTokens(table string) []*sjson.Token {
	switch table {
	case TableNodes:
		seq := []*sjson.Token{sjson.NewDelim(sjson.KindArrayOpen)}
		for i, name := range nodeHeaderNames {
			if i > 0 {
				seq = append(seq, sjson.NewWSC(", "))
			}
			seq = append(seq, sjson.NewString(name))
		}
		return append(seq, sjson.NewDelim(sjson.KindArrayClose))
	case TableBeams:
		return refRowTokens(beamHeaderNames)
	case TableTriangles:
		return refRowTokens(triHeaderNames)
	default:
		return refRowTokens(quadHeaderNames)
	}
}

func upToLastNL(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[:i+1]
	}
	return ""
}

func afterLastNL(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedInts(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
