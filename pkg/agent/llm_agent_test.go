package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/plastic-labs/textarena/pkg/core"
)

// MockClient implements providers.Client for testing. It replays canned
// replies and records every prompt it was given.
type MockClient struct {
	replies []string
	calls   int
	prompts []string
	err     error
}

func (m *MockClient) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	reply := m.replies[len(m.replies)-1]
	if m.calls < len(m.replies) {
		reply = m.replies[m.calls]
	}
	m.calls++
	return reply, nil
}

func obsFor(p core.PlayerID, text string) core.Observation {
	return core.Observation{Player: p, Text: text}
}

func TestLLMAgent(t *testing.T) {
	client := &MockClient{replies: []string{"I will open conservatively. [take 1]"}}
	agent, err := NewLLMAgent(
		WithAgentID("test-agent"),
		WithModel("gpt-4o-mini"),
		WithProvider(client),
	)
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	if got := agent.ID(); got != "test-agent" {
		t.Errorf("agent.ID() = %v, want %v", got, "test-agent")
	}
	if got := agent.Model(); got != "gpt-4o-mini" {
		t.Errorf("agent.Model() = %v, want %v", got, "gpt-4o-mini")
	}

	action, err := agent.Act(context.Background(), obsFor(0, "[GAME]: 21 tokens remain"))
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if action != "[take 1]" {
		t.Errorf("Act returned %q, want %q", action, "[take 1]")
	}
}

func TestLLMAgentReformatRetry(t *testing.T) {
	client := &MockClient{replies: []string{
		"I take one token.",
		"Apologies: [take 1]",
	}}
	agent, err := NewLLMAgent(WithProvider(client))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	action, err := agent.Act(context.Background(), obsFor(0, "[GAME]: your move"))
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if action != "[take 1]" {
		t.Errorf("Act returned %q, want %q", action, "[take 1]")
	}
	if client.calls != 2 {
		t.Errorf("Expected 2 completions (initial + reformat retry), got %d", client.calls)
	}
	if !strings.Contains(client.prompts[1], "square brackets") {
		t.Errorf("Retry prompt should ask for bracketed output, got: %s", client.prompts[1])
	}
}

func TestLLMAgentFallsBackToRawReply(t *testing.T) {
	client := &MockClient{replies: []string{"  pass  "}}
	agent, err := NewLLMAgent(WithProvider(client))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	action, err := agent.Act(context.Background(), obsFor(0, "[GAME]: your move"))
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	// No brackets even after retry: the trimmed reply goes to the
	// environment, which will judge it.
	if action != "pass" {
		t.Errorf("Act returned %q, want %q", action, "pass")
	}
	if client.calls != 2 {
		t.Errorf("Expected 2 completions, got %d", client.calls)
	}
}

func TestLLMAgentPropagatesProviderError(t *testing.T) {
	client := &MockClient{err: errors.New("rate limited")}
	agent, err := NewLLMAgent(WithProvider(client))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	if _, err := agent.Act(context.Background(), obsFor(0, "x")); err == nil {
		t.Error("Expected provider error to propagate, got nil")
	}
}

func TestLLMAgentRequiresProvider(t *testing.T) {
	if _, err := NewLLMAgent(); err == nil {
		t.Error("Expected error for missing provider, got nil")
	}
}

func TestLLMAgentMemoryFeedsNextPrompt(t *testing.T) {
	client := &MockClient{replies: []string{"[take 2]", "[take 1]"}}
	agent, err := NewLLMAgent(WithProvider(client), WithMemorySize(10))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	ctx := context.Background()
	if _, err := agent.Act(ctx, obsFor(0, "turn one")); err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if _, err := agent.Act(ctx, obsFor(0, "turn two")); err != nil {
		t.Fatalf("Act failed: %v", err)
	}

	second := client.prompts[1]
	if !strings.Contains(second, "action: [take 2]") {
		t.Errorf("Second prompt should carry the previous action, got: %s", second)
	}

	// Reset clears history for the next episode.
	agent.Reset()
	if _, err := agent.Act(ctx, obsFor(0, "fresh game")); err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	third := client.prompts[2]
	if strings.Contains(third, "take 2") {
		t.Errorf("Prompt after Reset should not carry old history, got: %s", third)
	}
}

func TestExtractAction(t *testing.T) {
	cases := []struct {
		reply string
		want  string
	}{
		{"[take 2]", "[take 2]"},
		{"I think [take 1] is wrong, so [take 3]", "[take 3]"},
		{"no action here", ""},
		{"unbalanced [take", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ExtractAction(c.reply); got != c.want {
			t.Errorf("ExtractAction(%q) = %q, want %q", c.reply, got, c.want)
		}
	}
}

func TestScriptedAgentRepeatsFinalAction(t *testing.T) {
	a := NewScriptedAgent("s", "[take 1]", "[take 2]")
	ctx := context.Background()

	want := []core.Action{"[take 1]", "[take 2]", "[take 2]"}
	for i, w := range want {
		got, err := a.Act(ctx, core.Observation{})
		if err != nil {
			t.Fatalf("Act failed: %v", err)
		}
		if got != w {
			t.Errorf("Act call %d = %q, want %q", i, got, w)
		}
	}
}

func TestRandomAgentPicksFromLegal(t *testing.T) {
	a := NewRandomAgent("r", 7, "[pass]")
	ctx := context.Background()

	legal := []core.Action{"[take 1]", "[take 2]", "[take 3]"}
	for i := 0; i < 20; i++ {
		got, err := a.ActLegal(ctx, core.Observation{}, legal)
		if err != nil {
			t.Fatalf("ActLegal failed: %v", err)
		}
		found := false
		for _, l := range legal {
			if got == l {
				found = true
			}
		}
		if !found {
			t.Errorf("ActLegal returned %q, not in the legal set", got)
		}
	}

	got, err := a.ActLegal(ctx, core.Observation{}, nil)
	if err != nil {
		t.Fatalf("ActLegal failed: %v", err)
	}
	if got != "[pass]" {
		t.Errorf("ActLegal without legal set = %q, want fallback %q", got, "[pass]")
	}
}
