package llm

import (
	"context"
	"errors"
	"fmt"
)

// FallbackProvider tries each provider in order and returns the first success.
type FallbackProvider struct {
	providers []LLMProvider
}

var _ LLMProvider = (*FallbackProvider)(nil)

func NewFallbackProvider(providers ...LLMProvider) *FallbackProvider {
	nonNil := make([]LLMProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			nonNil = append(nonNil, p)
		}
	}
	return &FallbackProvider{providers: nonNil}
}

func (f *FallbackProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	if len(f.providers) == 0 {
		return "", errors.New("no llm provider configured")
	}
	var errs []error
	for i, p := range f.providers {
		out, err := p.Chat(ctx, history, options...)
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("provider %d: %w", i, err))
	}
	return "", errors.Join(errs...)
}

func (f *FallbackProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return f.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, options...)
}
