package groq

import (
	"fmt"
	"strings"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

// contextSnippetLimit caps how much of each chunk reaches the prompt.
const contextSnippetLimit = 500

const answerSystemPrompt = `You are a trade compliance assistant. Answer using ONLY the provided document excerpts.

Rules:
- Cite the document title and page for every factual claim.
- If the excerpts do not contain the answer, say so plainly instead of guessing.
- Quote duty rates and rule-of-origin criteria verbatim where possible.`

func buildAnswerPrompt(question string, chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("Document excerpts:\n\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "Document %d: %s\n", i+1, chunk.Title)
		fmt.Fprintf(&b, "Source: %s", chunk.SourceID)
		if chunk.Page > 0 {
			fmt.Fprintf(&b, ", Page: %d", chunk.Page)
		}
		b.WriteString("\n")
		if chunk.OriginURL != "" {
			fmt.Fprintf(&b, "URL: %s\n", chunk.OriginURL)
		}
		b.WriteString(truncateRunes(chunk.Content, contextSnippetLimit))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

func buildFallbackPrompt(question string, record domain.TariffRecord) string {
	var b strings.Builder
	b.WriteString("No preferential trade agreement documents exist for this lane. ")
	b.WriteString("Answer the question from the standard tariff data below.\n\n")
	fmt.Fprintf(&b, "Exporter: %s\nImporter: %s\n", record.Exporter, record.Importer)
	if record.HSCode != "" {
		fmt.Fprintf(&b, "HS code: %s\n", record.HSCode)
	}
	fmt.Fprintf(&b, "MFN duty: %s\n", record.MFNDuty)
	if record.AppliedDuty != "" {
		fmt.Fprintf(&b, "Applied duty: %s\n", record.AppliedDuty)
	}
	if record.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", record.Notes)
	}
	if record.SourceURL != "" {
		fmt.Fprintf(&b, "Source: %s\n", record.SourceURL)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", question)
	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
