package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/plastic-labs/textarena/pkg/core"
	"github.com/plastic-labs/textarena/pkg/memory"
	"github.com/plastic-labs/textarena/pkg/providers"
)

const defaultSystemPrompt = `You are a competitive game player. Read the game transcript carefully and respond with your chosen action. Always wrap your action in square brackets, e.g. [take 2]. You may reason before answering, but your final line must contain the bracketed action.`

// actionPattern matches the last [bracketed] token in a model reply.
var actionPattern = regexp.MustCompile(`\[[^\[\]]+\]`)

// LLMAgent wraps a model-provider client as an Agent. It keeps a bounded
// transcript memory so the model sees its own past replies alongside the
// current observation.
type LLMAgent struct {
	id     string
	model  string
	client providers.Client
	system string
	memory *memory.Memory
}

type AgentParams struct {
	AgentID      string
	Model        string
	Client       providers.Client
	SystemPrompt string
	MemorySize   int
}

type AgentOption func(*AgentParams)

func WithAgentID(id string) AgentOption {
	return func(p *AgentParams) {
		p.AgentID = id
	}
}

func WithModel(model string) AgentOption {
	return func(p *AgentParams) {
		p.Model = model
	}
}

func WithProvider(client providers.Client) AgentOption {
	return func(p *AgentParams) {
		p.Client = client
	}
}

func WithSystemPrompt(system string) AgentOption {
	return func(p *AgentParams) {
		p.SystemPrompt = system
	}
}

func WithMemorySize(n int) AgentOption {
	return func(p *AgentParams) {
		p.MemorySize = n
	}
}

func defaultAgentParams() *AgentParams {
	return &AgentParams{
		AgentID:      "agent-" + uuid.New().String(),
		Model:        "gpt-4o-mini",
		SystemPrompt: defaultSystemPrompt,
		MemorySize:   100,
	}
}

// NewLLMAgent creates a model-backed agent.
func NewLLMAgent(opts ...AgentOption) (*LLMAgent, error) {
	params := defaultAgentParams()
	for _, opt := range opts {
		opt(params)
	}
	if params.Client == nil {
		return nil, fmt.Errorf("llm agent requires a provider client")
	}

	return &LLMAgent{
		id:     params.AgentID,
		model:  params.Model,
		client: params.Client,
		system: params.SystemPrompt,
		memory: memory.NewMemory(params.MemorySize),
	}, nil
}

func (a *LLMAgent) ID() string { return a.id }

func (a *LLMAgent) Model() string { return a.model }

// Reset clears the agent's memory between episodes.
func (a *LLMAgent) Reset() {
	a.memory.Clear()
}

// Act prompts the model with the observation and extracts the bracketed
// action. A reply without one gets a single reformatting retry; if that
// also fails the raw reply is returned and the environment judges it.
func (a *LLMAgent) Act(ctx context.Context, obs core.Observation) (core.Action, error) {
	prompt := a.buildPrompt(obs)

	reply, err := a.client.Complete(ctx, a.model, a.system, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate action: %w", err)
	}

	action := ExtractAction(reply)
	if action == "" {
		retryPrompt := fmt.Sprintf(`Your previous response did not include an action in square brackets. Here was your response:

%s

Please answer again with your action wrapped in square brackets, e.g. [take 2].`, reply)

		reply, err = a.client.Complete(ctx, a.model, a.system, retryPrompt)
		if err != nil {
			return "", fmt.Errorf("failed to generate action on retry: %w", err)
		}
		action = ExtractAction(reply)
		if action == "" {
			// Let the environment reject it; the orchestrator's policy
			// decides what happens next.
			action = strings.TrimSpace(reply)
		}
	}

	a.memory.Store(fmt.Sprintf("observation: %s", obs.Text))
	a.memory.Store(fmt.Sprintf("action: %s", action))
	return core.Action(action), nil
}

func (a *LLMAgent) buildPrompt(obs core.Observation) string {
	var b strings.Builder
	if past := a.memory.All(); len(past) > 0 {
		b.WriteString("Your recent history:\n")
		for _, entry := range past {
			b.WriteString(entry)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "You are Player %d. Current game transcript:\n%s\n\nYour action:", obs.Player, obs.Text)
	return b.String()
}

// ExtractAction returns the last bracketed token in a reply, or "" when
// there is none. The last one wins so models may reason before answering.
func ExtractAction(reply string) string {
	matches := actionPattern.FindAllString(reply, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}
