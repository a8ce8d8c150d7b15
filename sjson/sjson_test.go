package sjson

import (
	"errors"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

const partFixture = `{
    "tailgate": {
        "information":{
            "authors":"Example Author",
            "name":"Tailgate", // display name
        }
        /* reference geometry
           spans two lines */
        "nodes": [
            ["id", "posX", "posY", "posZ"],
            {"nodeWeight":2.5},
            ["t1l", -0.50, 1.23, 0.30],
            ["t1r", 0.50, 1.23, 0.30], // mirrored
        ],
        "beams": [
            ["id1:","id2:"],
            ["t1l","t1r"],
        ],
    }
}
`

func TestParseMarshalRoundTripIsIdentity(t *testing.T) {
	doc, err := Parse([]byte(partFixture))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	out := doc.Marshal()
	if string(out) != partFixture {
		t.Fatalf("round trip not byte-identical:\n%s", unifiedDiff(partFixture, string(out)))
	}
}

func TestParseRejectsNonObjectTopLevel(t *testing.T) {
	for _, in := range []string{"[1, 2]", `"hello"`, "42", "true", ""} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Fatalf("expected error for top-level %q, got nil", in)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"unterminated string", `{"a": "oops`},
		{"newline in string", "{\"a\": \"ne\nwline\"}"},
		{"unterminated block comment", `{"a": 1 /* drifts off`},
		{"stray slash", `{"a": / 1}`},
		{"bad escape", `{"a": "\q"}`},
		{"lone colon value", `{"a": :}`},
		{"missing colon", `{"a" 1}`},
		{"unclosed object", `{"a": 1`},
		{"unclosed array", `{"a": [1, 2}`},
		{"bare word", `{"a": nope}`},
		{"trailing garbage", `{"a": 1} {"b": 2}`},
	}
	for _, tc := range cases {
		if _, err := Parse([]byte(tc.in)); err == nil {
			t.Fatalf("%s: expected parse error, got nil", tc.name)
		}
	}
}

func TestCommasAreWhitespace(t *testing.T) {
	// Same structure with and without commas decodes identically.
	withCommas := `{"a": [1, 2, 3], "b": true}`
	without := `{"a": [1 2 3] "b": true}`

	va := mustDecode(t, withCommas)
	vb := mustDecode(t, without)

	ja, err := ToJSON(va)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	jb, err := ToJSON(vb)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if string(ja) != string(jb) {
		t.Fatalf("comma handling changed the tree: %s vs %s", ja, jb)
	}
}

func TestNumberPrecisionCaptured(t *testing.T) {
	doc, err := Parse([]byte(`{"a": [0.50, 13, -1.2345, 1e3, 0.3]}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	var nums []*Token
	for _, tok := range doc.Tokens {
		if tok.Kind == KindNumber {
			nums = append(nums, tok)
		}
	}
	if len(nums) != 5 {
		t.Fatalf("expected 5 number tokens, got %d", len(nums))
	}
	wantPrec := []int{2, 0, 4, 0, 1}
	for i, tok := range nums {
		if tok.Prec != wantPrec[i] {
			t.Fatalf("token %d (%s): Prec = %d, want %d", i, tok.Raw, tok.Prec, wantPrec[i])
		}
	}
	if nums[0].Num != 0.5 || nums[3].Num != 1000 {
		t.Fatalf("number values wrong: %v, %v", nums[0].Num, nums[3].Num)
	}
}

func TestSetNumberUsesNaturalPrecision(t *testing.T) {
	doc, err := Parse([]byte(`{"a": 0.50}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	for _, tok := range doc.Tokens {
		if tok.Kind == KindNumber {
			tok.SetNumber(0.75)
			if tok.Raw != "0.75" {
				t.Fatalf("rewrite = %q, want 0.75", tok.Raw)
			}
		}
	}
}

func TestSetNumberCapsRewritePrecision(t *testing.T) {
	doc, err := Parse([]byte(`{"a": 1}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	for _, tok := range doc.Tokens {
		if tok.Kind == KindNumber {
			tok.SetNumber(0.123456789)
			if tok.Raw != "0.1235" {
				t.Fatalf("rewrite = %q, want 0.1235", tok.Raw)
			}
			if tok.Prec != 4 {
				t.Fatalf("Prec = %d, want 4", tok.Prec)
			}
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		v    float64
		prec int
		want string
	}{
		{0.5, 2, "0.50"},
		{13, 0, "13"},
		{-1.5, 1, "-1.5"},
		{-0.000001, 2, "0.00"}, // negative zero folds to zero
		{2.25, 4, "2.2500"},
	}
	for _, tc := range cases {
		if got := FormatNumber(tc.v, tc.prec); got != tc.want {
			t.Fatalf("FormatNumber(%v, %d) = %q, want %q", tc.v, tc.prec, got, tc.want)
		}
	}
}

func TestNaturalPrec(t *testing.T) {
	cases := []struct {
		v    float64
		want int
	}{
		{1, 0},
		{0.5, 1},
		{0.25, 2},
		{0.123456789, 4}, // capped
	}
	for _, tc := range cases {
		if got := NaturalPrec(tc.v); got != tc.want {
			t.Fatalf("NaturalPrec(%v) = %d, want %d", tc.v, got, tc.want)
		}
	}
}

func TestQuoteEscapes(t *testing.T) {
	in := "a\"b\\c\nd\te"
	want := `"a\"b\\c\nd\te"`
	if got := Quote(in); got != want {
		t.Fatalf("Quote = %s, want %s", got, want)
	}
}

func TestDecodeTree(t *testing.T) {
	v := mustDecode(t, partFixture)
	root, ok := v.(Object)
	if !ok {
		t.Fatalf("top level is %T, want Object", v)
	}
	part, ok := root["tailgate"].(Object)
	if !ok {
		t.Fatalf("tailgate is %T, want Object", root["tailgate"])
	}
	nodes, ok := part["nodes"].(Array)
	if !ok {
		t.Fatalf("nodes is %T, want Array", part["nodes"])
	}
	if len(nodes) != 4 {
		t.Fatalf("nodes has %d entries, want 4", len(nodes))
	}
	if _, ok := nodes[1].(Object); !ok {
		t.Fatalf("nodes[1] is %T, want Object (inline modifier)", nodes[1])
	}
	row, ok := nodes[2].(Array)
	if !ok || len(row) != 4 {
		t.Fatalf("nodes[2] = %#v, want 4-cell Array", nodes[2])
	}
	if row[0] != String("t1l") || row[1] != Number(-0.5) {
		t.Fatalf("nodes[2] cells wrong: %#v", row)
	}
}

func TestDecodeDuplicateKeysLastWins(t *testing.T) {
	v := mustDecode(t, `{"a": 1, "a": 2}`)
	got, err := Resolve(v, []PathStep{AtKey("a")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != Number(2) {
		t.Fatalf("a = %#v, want 2", got)
	}
}

func TestResolveDistinguishesAbsentFromMismatch(t *testing.T) {
	v := mustDecode(t, `{"parts": {"nodes": [["id"], ["n1", 1, 2, 3]]}}`)

	// present
	got, err := Resolve(v, []PathStep{AtKey("parts"), AtKey("nodes"), AtIndex(1), AtIndex(0)})
	if err != nil {
		t.Fatalf("Resolve present path: %v", err)
	}
	if got != String("n1") {
		t.Fatalf("got %#v, want n1", got)
	}

	// absent key in an existing object
	if _, err := Resolve(v, []PathStep{AtKey("parts"), AtKey("beams")}); !errors.Is(err, ErrAbsent) {
		t.Fatalf("absent key: err = %v, want ErrAbsent", err)
	}

	// absent index
	if _, err := Resolve(v, []PathStep{AtKey("parts"), AtKey("nodes"), AtIndex(9)}); !errors.Is(err, ErrAbsent) {
		t.Fatalf("absent index: err = %v, want ErrAbsent", err)
	}

	// object step into an array
	if _, err := Resolve(v, []PathStep{AtKey("parts"), AtKey("nodes"), AtKey("oops")}); !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("key into array: err = %v, want ErrStructuralMismatch", err)
	}

	// array step into an object
	if _, err := Resolve(v, []PathStep{AtIndex(0)}); !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("index into object: err = %v, want ErrStructuralMismatch", err)
	}

	// step through a leaf
	if _, err := Resolve(v, []PathStep{AtKey("parts"), AtKey("nodes"), AtIndex(1), AtIndex(1), AtKey("deep")}); !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("step through leaf: err = %v, want ErrStructuralMismatch", err)
	}
}

func TestJSONBridgeRoundTrip(t *testing.T) {
	v := mustDecode(t, `{"a": [1, "x", true], "b": {"c": 0.5}}`)
	j, err := ToJSON(v)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := FromJSON(j)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	j2, err := ToJSON(back)
	if err != nil {
		t.Fatalf("ToJSON (second): %v", err)
	}
	if string(j) != string(j2) {
		t.Fatalf("bridge not stable: %s vs %s", j, j2)
	}
}

func TestFromJSONRejectsNull(t *testing.T) {
	if _, err := FromJSON([]byte(`{"a": null}`)); err == nil {
		t.Fatalf("expected error for JSON null, got nil")
	}
}

func TestSpliceReplacesTokenRange(t *testing.T) {
	doc, err := Parse([]byte(`{"a": 1}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	// Find the number token and replace it with a bool.
	for i, tok := range doc.Tokens {
		if tok.Kind == KindNumber {
			doc.Splice(i, i+1, NewBool(true))
			break
		}
	}
	if got := string(doc.Marshal()); got != `{"a": true}` {
		t.Fatalf("after splice: %s", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc, err := Parse([]byte(`{"a": 1}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	cp := doc.Clone()
	for _, tok := range cp.Tokens {
		if tok.Kind == KindNumber {
			tok.SetNumber(9)
		}
	}
	if got := string(doc.Marshal()); got != `{"a": 1}` {
		t.Fatalf("clone mutation leaked into original: %s", got)
	}
}

func TestDetectIndent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"four", "{\n    \"a\": {\n        \"b\": 1\n    }\n}\n", 4},
		{"two", "{\n  \"a\": {\n    \"b\": 1\n  }\n}\n", 2},
		{"flat", `{"a": 1}`, 4},
		{"comments ignored", "{\n        // deep comment\n    \"a\": 1\n}\n", 4},
	}
	for _, tc := range cases {
		if got := DetectIndent([]byte(tc.in)); got != tc.want {
			t.Fatalf("%s: DetectIndent = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func mustDecode(t *testing.T, in string) Value {
	t.Helper()
	doc, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	v, err := doc.Decode()
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return v
}

func unifiedDiff(before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}
