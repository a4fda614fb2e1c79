package snippet

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	inlet "github.com/Paranoid-AF/inlet"
)

// words counts whitespace-separated fields, which keeps budgets readable.
type words struct{}

func (words) Count(text, _ string) int { return len(strings.Fields(text)) }

func testHelper(maxTokens int, recent inlet.Priority) *inlet.HelperVars {
	return &inlet.HelperVars{
		Filepath:     "/repo/main.py",
		PrunedPrefix: "def foo():\n    ",
		PrunedSuffix: "\n",
		Options: inlet.Options{
			MaxPromptTokens: maxTokens,
			RecentlyEdited:  recent,
			BasePriority:    inlet.DefaultBasePriority,
		},
	}
}

func fixedRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func tokenCost(snippets []Snippet) int {
	total := 0
	for _, s := range snippets {
		total += words{}.Count(s.Content, "") + snippetTokenOverhead
	}
	return total
}

func TestPrioritizeNeverExceedsBudget(t *testing.T) {
	gen := rand.New(rand.NewPCG(42, 7))
	for budget := 0; budget <= 200; budget += 7 {
		var payload Payload
		for i := range gen.IntN(12) {
			content := strings.Repeat("tok ", 1+gen.IntN(30))
			s := Code(fmt.Sprintf("/repo/f%d.py", i), content, 0, 0)
			switch i % 3 {
			case 0:
				payload.RootPath = append(payload.RootPath, s)
			case 1:
				payload.ImportDefinitions = append(payload.ImportDefinitions, s)
			default:
				payload.RecentlyEdited = append(payload.RecentlyEdited, s)
			}
		}
		helper := testHelper(budget, inlet.Priority{Enabled: true})
		p := &Prioritizer{Counter: words{}, Rand: fixedRand()}
		got := p.Prioritize(helper, payload)

		initial := budget - words{}.Count(helper.PrunedCaretWindow(), "")
		if cost := tokenCost(got); cost > max(initial, 0) {
			t.Fatalf("budget %d: admitted cost %d exceeds %d", budget, cost, initial)
		}
	}
}

func TestPrioritizeOrdersByPriority(t *testing.T) {
	payload := Payload{
		RootPath:       []Snippet{Code("/repo/base.py", "base one", 0, 0)},
		RecentlyEdited: []Snippet{Code("/repo/recent.py", "recent one", 0, 0)},
	}
	helper := testHelper(1000, inlet.Priority{Enabled: true})
	p := &Prioritizer{Counter: words{}, Rand: fixedRand()}

	got := p.Prioritize(helper, payload)
	if len(got) != 2 {
		t.Fatalf("got %d snippets, want 2", len(got))
	}
	if got[0].Filepath != "/repo/recent.py" || got[1].Filepath != "/repo/base.py" {
		t.Errorf("order = %s, %s", got[0].Filepath, got[1].Filepath)
	}
}

func TestPrioritizeBaseCanOutrankRecent(t *testing.T) {
	payload := Payload{
		RootPath:       []Snippet{Code("/repo/base.py", "base one", 0, 0)},
		RecentlyEdited: []Snippet{Code("/repo/recent.py", "recent one", 0, 0)},
	}
	helper := testHelper(1000, inlet.Priority{Enabled: true, Value: 50})
	helper.Options.BasePriority = 10
	p := &Prioritizer{Counter: words{}, Rand: fixedRand()}

	got := p.Prioritize(helper, payload)
	if len(got) != 2 || got[0].Filepath != "/repo/base.py" {
		t.Errorf("got %+v, want base first", got)
	}
}

func TestPrioritizeSkipsUnaffordableAndContinues(t *testing.T) {
	payload := Payload{
		RecentlyEdited: []Snippet{
			Code("/repo/big.py", strings.Repeat("x ", 100), 0, 0),
			Code("/repo/small.py", "small", 0, 0),
		},
	}
	// Window costs 2 words, leaving 18: the big snippet (110) is skipped,
	// the small one (11) fits.
	helper := testHelper(20, inlet.Priority{Enabled: true})
	p := &Prioritizer{Counter: words{}, Rand: fixedRand()}

	got := p.Prioritize(helper, payload)
	if len(got) != 1 || got[0].Filepath != "/repo/small.py" {
		t.Errorf("got %+v, want only small.py", got)
	}
}

func TestPrioritizeExcludesOwnOutput(t *testing.T) {
	payload := Payload{
		RecentlyEdited: []Snippet{Code(OutputChannelPrefix+"-log", "log line", 0, 0)},
		RootPath:       []Snippet{Code(OutputChannelPrefix, "other log", 0, 0)},
	}
	helper := testHelper(1000, inlet.Priority{Enabled: true, Value: 0})
	p := &Prioritizer{Counter: words{}, Rand: fixedRand()}

	if got := p.Prioritize(helper, payload); len(got) != 0 {
		t.Errorf("got %+v, want none", got)
	}
}

func TestPrioritizeExcludesCaretWindowAndEmpty(t *testing.T) {
	payload := Payload{
		RootPath: []Snippet{
			Code("/repo/a.py", "  def foo():  ", 0, 0),
			Code("/repo/b.py", " \n\t", 0, 0),
			Code("/repo/c.py", "def bar(): pass", 0, 0),
		},
		RecentlyEdited: []Snippet{Code("/repo/main.py", "def foo():", 0, 0)},
	}
	helper := testHelper(1000, inlet.Priority{Enabled: true})
	p := &Prioritizer{Counter: words{}, Rand: fixedRand()}

	got := p.Prioritize(helper, payload)
	if len(got) != 1 || got[0].Filepath != "/repo/c.py" {
		t.Errorf("got %+v, want only c.py", got)
	}
}

func TestPrioritizeRecentDisabled(t *testing.T) {
	payload := Payload{
		RecentlyEdited: []Snippet{Code("/repo/recent.py", "recent", 0, 0)},
	}
	helper := testHelper(1000, inlet.Priority{Enabled: false, Value: 3})
	p := &Prioritizer{Counter: words{}, Rand: fixedRand()}

	if got := p.Prioritize(helper, payload); len(got) != 0 {
		t.Errorf("got %+v, want none", got)
	}
}

func TestPrioritizeDeterministicPerRequest(t *testing.T) {
	var payload Payload
	for i := range 20 {
		payload.RootPath = append(payload.RootPath, Code(fmt.Sprintf("/repo/f%d.py", i), fmt.Sprintf("body %d", i), 0, 0))
	}
	helper := testHelper(1000, inlet.Priority{Enabled: true})
	p := NewPrioritizer(words{})

	first := p.Prioritize(helper, payload)
	second := p.Prioritize(helper, payload)
	if !slices.Equal(first, second) {
		t.Error("identical requests produced different orderings")
	}
}

func TestPrioritizeDoesNotMutatePayload(t *testing.T) {
	root := []Snippet{
		Code("/repo/a.py", "a", 0, 0),
		Code("/repo/b.py", "b", 0, 0),
		Code("/repo/c.py", "c", 0, 0),
	}
	want := slices.Clone(root)
	p := &Prioritizer{Counter: words{}, Rand: fixedRand()}
	p.Prioritize(testHelper(1000, inlet.Priority{}), Payload{RootPath: root})

	if !slices.Equal(root, want) {
		t.Errorf("payload mutated: %+v", root)
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 50} {
		in := make([]int, n)
		for i := range in {
			in[i] = i
		}
		got := slices.Clone(in)
		Shuffle(fixedRand(), got)
		slices.Sort(got)
		if !slices.Equal(got, in) {
			t.Errorf("n=%d: shuffle lost elements: %v", n, got)
		}
	}
}

func TestRankIsStable(t *testing.T) {
	sources := []Source{
		{Name: "base", Priority: 99, Snippets: []Snippet{{Content: "b1"}, {Content: "b2"}}},
		{Name: "recent", Priority: 1, Snippets: []Snippet{{Content: "r1"}, {Content: "r2"}}},
		{Name: "tie", Priority: 99, Snippets: []Snippet{{Content: "t1"}}},
	}
	var got []string
	for _, r := range Rank(sources) {
		got = append(got, r.Snippet.Content)
	}
	want := []string{"r1", "r2", "b1", "b2", "t1"}
	if !slices.Equal(got, want) {
		t.Errorf("Rank = %v, want %v", got, want)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		s    Snippet
		want bool
	}{
		{"code", Code("/a.go", "x", 0, 0), true},
		{"code without path", Snippet{Kind: KindCode, Content: "x"}, false},
		{"blank", Code("/a.go", "  \n", 0, 0), false},
		{"clipboard", Snippet{Kind: KindClipboard, Content: "x"}, true},
		{"diff", Snippet{Kind: KindDiff, Content: "+x"}, true},
		{"unknown kind", Snippet{Kind: "other", Content: "x"}, false},
		{"oversized", Code("/a.go", strings.Repeat("x", maxSnippetBytes+1), 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.s); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEndToEndBudgetTooSmall(t *testing.T) {
	helper := testHelper(2, inlet.Priority{Enabled: true})
	payload := Payload{
		RecentlyEdited: []Snippet{Code("/repo/main.py", "def bar(): pass", 0, 0)},
	}
	p := &Prioritizer{Counter: words{}, Rand: fixedRand()}
	if got := p.Prioritize(helper, payload); len(got) != 0 {
		t.Errorf("got %+v, want nothing admitted", got)
	}
}
