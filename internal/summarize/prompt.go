package summarize

import (
	"regexp"
	"strings"

	"sitedigest/internal/llm"
)

// DefaultPromptTemplate is used when the caller supplies no prompt file.
// It contains no {text} placeholder, so the page text travels as a second
// message.
const DefaultPromptTemplate = `You will see a webpage content from {url}.
Create its concise summary for a digest.
Your answer should contain only summary, it will be pasted directly into digest.
Nobody should know it was generated using an LLM.
Try your best to keep original style and language.
Webpage content to summarize:`

// thinkStripper removes a model's embedded reasoning block, including the
// empty-block case. Compiled once at package init.
var thinkStripper = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)

// buildMessages renders the prompt template for one page. {url} is always
// substituted; when the template carries a {text} placeholder the page text
// is inlined, otherwise it is sent as a separate user message.
func buildMessages(template, url, text string) []llm.Message {
	prompt := strings.ReplaceAll(template, "{url}", url)
	hasText := strings.Contains(template, "{text}")
	prompt = strings.ReplaceAll(prompt, "{text}", text)

	messages := []llm.Message{llm.UserMessage(prompt)}
	if !hasText {
		messages = append(messages, llm.UserMessage(text))
	}
	return messages
}

// cleanResponse strips the reasoning block and surrounding whitespace from
// a raw model response.
func cleanResponse(response string) string {
	return strings.TrimSpace(thinkStripper.ReplaceAllString(response, ""))
}
