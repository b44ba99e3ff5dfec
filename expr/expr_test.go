package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/tuplestream/errors"
)

func search(collection, q string) *Expression {
	return New("search",
		Value(collection),
		Pair("q", q),
		Pair("fl", "k,v"),
		Pair("sort", "k asc"),
		Pair("rows", "10"),
	)
}

func TestExpression_String(t *testing.T) {
	tests := []struct {
		name string
		e    *Expression
		want string
	}{
		{
			name: "search",
			e:    search("bulk", `k:("a")`),
			want: `search(bulk, q="k:(\"a\")", fl="k,v", sort="k asc", rows=10)`,
		},
		{
			name: "intersect",
			e:    New("intersect", Sub(search("a", "*:*")), Sub(search("b", "*:*")), Pair("on", "k")),
			want: `intersect(search(a, q="*:*", fl="k,v", sort="k asc", rows=10), search(b, q="*:*", fl="k,v", sort="k asc", rows=10), on="k")`,
		},
		{
			name: "select with rename",
			e:    New("select", Sub(New("search", Value("c"))), Value("a"), Value("b as c")),
			want: `select(search(c), a, b as c)`,
		},
		{
			name: "facet metrics",
			e:    New("facet", Value("c"), Sub(New("count", Value("*"))), Sub(New("avg", Sub(New("abs", Value("x")))))),
			want: `facet(c, count(*), avg(abs(x)))`,
		},
		{
			name: "quoted positional",
			e:    New("f", Value("a,b")),
			want: `f("a,b")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.String(); got != tt.want {
				t.Errorf("String() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	exprs := []*Expression{
		search("bulk", `k:("a" OR "b c")`),
		New("reduce", Sub(search("c", "*:*")), Pair("by", "g"), Sub(New("group", Pair("sort", "g asc"), Pair("n", "2")))),
		New("unique", Sub(search("c", "*:*")), Pair("over", "k")),
		New("cartesianProduct", Sub(search("c", "*:*")), Value("f1"), Value("f2")),
		New("select", Sub(search("c", "*:*"))),
		New("select", Sub(search("c", "*:*")), Value("a"), Value("b as c")),
		New("facet", Value("c"), Pair("buckets", "g"), Sub(New("count", Value("*")))),
		New("f", Value("weird, (value)"), Pair("empty", "")),
	}
	for _, want := range exprs {
		text := want.String()
		got, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%s): %v", text, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Parse(%s) mismatch (-want +got):\n%s", text, diff)
		}
		if got.String() != text {
			t.Errorf("re-render = %s, want %s", got.String(), text)
		}
	}
}

func TestParse_Whitespace(t *testing.T) {
	got, err := Parse("  unique( search( c , q = \"*:*\" ) ,over=k )  ")
	if err != nil {
		t.Fatal(err)
	}
	want := New("unique", Sub(New("search", Value("c"), Pair("q", "*:*"))), Pair("over", "k"))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"search",
		"search(c",
		"search(c,)",
		`search(q="unterminated)`,
		"search(c) trailing",
		"search(c d(x))",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			if !errors.IsInvalidStream(err) {
				t.Errorf("Parse(%q) = %v, want INVALID_STREAM", in, err)
			}
		})
	}
}

func TestExpression_Accessors(t *testing.T) {
	inner := search("c", "*:*")
	e := New("cartesianProduct", Sub(inner), Value("f1"), Pair("on", "k"), Value("f2"))

	if v, ok := e.Named("on"); !ok || v != "k" {
		t.Errorf("Named(on) = %q, %v", v, ok)
	}
	if _, ok := e.Named("missing"); ok {
		t.Error("Named(missing) should be absent")
	}
	if got := len(e.Positional()); got != 3 {
		t.Errorf("Positional() len = %d, want 3", got)
	}
	if subs := e.Subexpressions(); len(subs) != 1 || subs[0] != inner {
		t.Errorf("Subexpressions() = %v", subs)
	}
	if diff := cmp.Diff([]string{"f1", "f2"}, e.Values()); diff != "" {
		t.Errorf("Values() mismatch:\n%s", diff)
	}
}
