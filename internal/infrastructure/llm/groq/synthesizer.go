package groq

import (
	"context"
	"fmt"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

// Synthesizer turns retrieved chunks, or a fallback tariff record, into the
// final user-facing answer text.
type Synthesizer struct {
	client *Client
}

func NewSynthesizer(client *Client) *Synthesizer {
	return &Synthesizer{client: client}
}

func (s *Synthesizer) SynthesizeAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: buildAnswerPrompt(question, chunks)},
	}
	answer, err := s.client.chat(ctx, "synthesize", messages, 0.2, 1024)
	if err != nil {
		return "", domain.WrapError(domain.ErrSynthesis, "synthesize answer", err)
	}
	if answer == "" {
		return "", domain.WrapError(domain.ErrSynthesis, "synthesize answer", fmt.Errorf("model returned empty answer"))
	}
	return answer, nil
}

func (s *Synthesizer) SynthesizeFallback(ctx context.Context, question string, record domain.TariffRecord) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: buildFallbackPrompt(question, record)},
	}
	answer, err := s.client.chat(ctx, "synthesize", messages, 0.2, 1024)
	if err != nil {
		return "", domain.WrapError(domain.ErrSynthesis, "synthesize fallback answer", err)
	}
	if answer == "" {
		return "", domain.WrapError(domain.ErrSynthesis, "synthesize fallback answer", fmt.Errorf("model returned empty answer"))
	}
	return answer, nil
}
