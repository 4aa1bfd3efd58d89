package subquestion

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// scriptedGen returns canned replies in order: first the plan, then the
// synthesis.
type scriptedGen struct {
	replies []string
	calls   int
}

func (g *scriptedGen) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if g.calls >= len(g.replies) {
		return nil, fmt.Errorf("no scripted reply for call %d", g.calls)
	}
	reply := g.replies[g.calls]
	g.calls++
	return schema.AssistantMessage(reply, nil), nil
}

// echoTool answers every sub-question with a canned string and records what
// it was asked.
type echoTool struct {
	name   string
	answer string
	asked  []string
	fail   bool
}

func (t *echoTool) Name() string        { return t.name }
func (t *echoTool) Description() string { return "Answers questions about " + t.name }
func (t *echoTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: t.name, Desc: t.Description()}, nil
}
func (t *echoTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	if t.fail {
		return "", fmt.Errorf("%s unavailable", t.name)
	}
	t.asked = append(t.asked, argumentsInJSON)
	return t.answer, nil
}

func Test_Engine_DecomposeExecuteSynthesize(t *testing.T) {
	t.Parallel()

	boston := &echoTool{name: "doc_boston", answer: "Boston was founded in 1630."}
	houston := &echoTool{name: "doc_houston", answer: "Houston was founded in 1836."}
	gen := &scriptedGen{replies: []string{
		`{"sub_questions":[{"tool":"doc_boston","question":"When was Boston founded?"},{"tool":"doc_houston","question":"When was Houston founded?"}]}`,
		"Boston (1630) is older than Houston (1836).",
	}}

	eng, err := NewEngine(gen, []DocTool{boston, houston})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	answer, err := eng.Answer(context.Background(), "Which city is older, Boston or Houston?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "Boston (1630) is older than Houston (1836)." {
		t.Errorf("answer = %q", answer)
	}
	if len(boston.asked) != 1 || !strings.Contains(boston.asked[0], "When was Boston founded?") {
		t.Errorf("boston asked = %v", boston.asked)
	}
	if len(houston.asked) != 1 {
		t.Errorf("houston asked = %v", houston.asked)
	}
	if gen.calls != 2 {
		t.Errorf("generator calls = %d, want 2 (plan + synthesis)", gen.calls)
	}
}

func Test_Engine_SkipsUnknownAndFailedTools(t *testing.T) {
	t.Parallel()

	ok := &echoTool{name: "doc_ok", answer: "fine"}
	broken := &echoTool{name: "doc_broken", fail: true}
	gen := &scriptedGen{replies: []string{
		`{"sub_questions":[{"tool":"doc_ok","question":"q1"},{"tool":"doc_missing","question":"q2"},{"tool":"doc_broken","question":"q3"}]}`,
		"combined",
	}}

	eng, err := NewEngine(gen, []DocTool{ok, broken})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	answer, err := eng.Answer(context.Background(), "compare things")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "combined" {
		t.Errorf("answer = %q", answer)
	}
}

func Test_Engine_AllSubQuestionsFail(t *testing.T) {
	t.Parallel()

	broken := &echoTool{name: "doc_broken", fail: true}
	gen := &scriptedGen{replies: []string{
		`{"sub_questions":[{"tool":"doc_broken","question":"q"}]}`,
	}}

	eng, err := NewEngine(gen, []DocTool{broken})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if _, err := eng.Answer(context.Background(), "q"); err == nil {
		t.Error("expected error when no sub-question could be answered")
	}
}

func Test_Engine_ToolEnvelope(t *testing.T) {
	t.Parallel()

	doc := &echoTool{name: "doc_x", answer: "partial"}
	gen := &scriptedGen{replies: []string{
		`{"sub_questions":[{"tool":"doc_x","question":"q"}]}`,
		"final",
	}}
	eng, err := NewEngine(gen, []DocTool{doc})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if eng.Name() != ToolName {
		t.Errorf("name = %q, want %q", eng.Name(), ToolName)
	}

	out, err := eng.InvokableRun(context.Background(), `{"question":"compare"}`)
	if err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	if out != "final" {
		t.Errorf("out = %q", out)
	}

	if _, err := eng.InvokableRun(context.Background(), `{}`); err == nil {
		t.Error("expected error for missing question")
	}
}

func Test_ParsePlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		output  string
		want    int
		wantErr bool
	}{
		{
			name:   "bare json",
			output: `{"sub_questions":[{"tool":"a","question":"q"}]}`,
			want:   1,
		},
		{
			name:   "fenced json",
			output: "```json\n{\"sub_questions\":[{\"tool\":\"a\",\"question\":\"q\"},{\"tool\":\"b\",\"question\":\"r\"}]}\n```",
			want:   2,
		},
		{
			name:    "missing tool name",
			output:  `{"sub_questions":[{"question":"q"}]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			output:  "I cannot answer that.",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			subs, err := parsePlan(tc.output)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePlan: %v", err)
			}
			if len(subs) != tc.want {
				t.Errorf("got %d sub-questions, want %d", len(subs), tc.want)
			}
		})
	}
}
