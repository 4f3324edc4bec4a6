package fortune

import (
	"fmt"
	"strings"

	"github.com/0nhc/llm-fortune-teller/internal/debate"
)

// Output languages for final answers.
const (
	LangZh = "zh"
	LangEn = "en"
)

// FinalAnswer is one agent's standalone long-form report.
type FinalAnswer struct {
	AgentID   string `json:"agent_id" yaml:"agent_id"`
	AgentName string `json:"agent_name" yaml:"agent_name"`
	Text      string `json:"text,omitempty" yaml:"text,omitempty"`
	// Error is set when the agent could not produce its answer.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the answer was produced.
func (a FinalAnswer) OK() bool { return a.Error == "" }

func finalPrompt(agent *debate.Agent, input debate.DomainInput, final debate.Artifact, lang string) string {
	langLine := "Write the final answer in Simplified Chinese."
	if lang == LangEn {
		langLine = "Write the final answer in English."
	}

	var sb strings.Builder
	sb.WriteString("All participating experts have substantially converged on the question below.\n")
	fmt.Fprintf(&sb, "You are %s. Now write a final long-form answer for the user.\n", agent.DisplayName())
	sb.WriteString("The user does not care about the discussion process. Produce a standalone, polished report.\n\n")

	if !agent.SupportsWeb {
		sb.WriteString("Note: You cannot browse the web directly. You may include references previously surfaced\n")
		sb.WriteString("by web-enabled participants; label them as 'via <model name>: <url>'.\n\n")
	}

	fmt.Fprintf(&sb, "Language requirement: %s\n\n", langLine)

	sb.WriteString("Original question:\n")
	sb.WriteString(strings.TrimSpace(input.Payload))
	sb.WriteString("\n\n")
	sb.WriteString("Agreed working draft (use it as your factual basis, do not quote it as a source):\n")
	sb.WriteString(strings.TrimSpace(final.Text))
	sb.WriteString("\n\n")

	sb.WriteString("Writing requirements:\n")
	sb.WriteString("1) Do NOT mention models, debate, rounds, drafts, or 'another model said...'.\n")
	sb.WriteString("2) Start with a concise overview (1-3 paragraphs) of key conclusions.\n")
	sb.WriteString("3) Expand in sections with clear reasoning and concrete examples.\n")
	sb.WriteString("4) Include uncertainty, limitations, and common misinterpretations.\n")
	sb.WriteString("5) End with a practical summary and actionable suggestions.\n")
	sb.WriteString("6) Length: be thorough. If the topic benefits from detail, write a long answer.\n")
	sb.WriteString("7) If you used web search or relied on external links earlier, integrate them naturally\n")
	sb.WriteString("   and add a 'References:' section with key URLs. Otherwise write 'References: none'.\n\n")
	sb.WriteString("Now output the full final answer.\n")
	return sb.String()
}
