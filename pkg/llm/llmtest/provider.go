// Package llmtest provides a scripted llm.ToolCaller for tests.
package llmtest

import (
	"context"
	"sync"

	"agentic-rag-be/pkg/llm"
)

type Reply struct {
	Text      string
	ToolCalls []llm.ToolCall
	Err       error
}

// Provider answers from Replies in order, then repeats Default forever.
// Handler, when set, takes precedence and sees the flattened prompt.
type Provider struct {
	mu      sync.Mutex
	Replies []Reply
	Default Reply
	Handler func(prompt string) Reply

	calls   int
	prompts []string
	tools   [][]llm.ToolDefinition
}

func New(replies ...Reply) *Provider {
	return &Provider{Replies: replies}
}

func Text(s string) Reply { return Reply{Text: s} }

func Fail(err error) Reply { return Reply{Err: err} }

func (p *Provider) next(prompt string, tools []llm.ToolDefinition) Reply {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.prompts = append(p.prompts, prompt)
	p.tools = append(p.tools, tools)

	if p.Handler != nil {
		return p.Handler(prompt)
	}
	if len(p.Replies) > 0 {
		r := p.Replies[0]
		p.Replies = p.Replies[1:]
		return r
	}
	return p.Default
}

func flatten(history []llm.Message) string {
	out := ""
	for i, m := range history {
		if i > 0 {
			out += "\n"
		}
		out += m.Content
	}
	return out
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	r := p.next(flatten(history), nil)
	return r.Text, r.Err
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	r := p.next(prompt, nil)
	return r.Text, r.Err
}

func (p *Provider) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.ToolDefinition, options ...llm.Option) (*llm.Message, error) {
	r := p.next(flatten(history), tools)
	if r.Err != nil {
		return nil, r.Err
	}
	return &llm.Message{Role: llm.RoleAssistant, Content: r.Text, ToolCalls: r.ToolCalls}, nil
}

func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Prompts returns every prompt seen so far, oldest first.
func (p *Provider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

// Tools returns the tool definitions offered on the most recent call.
func (p *Provider) Tools() []llm.ToolDefinition {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tools) == 0 {
		return nil
	}
	return p.tools[len(p.tools)-1]
}
