package debate

import (
	"fmt"
	"strings"
)

const separator = "------------------------------\n"

func systemPrompt(a *Agent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s", a.DisplayName())
	if a.Role != "" {
		fmt.Fprintf(&sb, ", acting as the %s of the panel", a.Role)
	}
	sb.WriteString(".")
	if a.Persona != "" {
		sb.WriteString(" ")
		sb.WriteString(strings.TrimSpace(a.Persona))
	}
	return sb.String()
}

// debatePrompt builds the per-round prompt for a. Debate prompts are always
// English; the output language only applies to final answers.
func debatePrompt(a *Agent, req RespondRequest) string {
	var sb strings.Builder

	sb.WriteString("You are participating in a multi-model debate on the same user question.\n")
	if a.SupportsWeb {
		sb.WriteString("You have access to web search tools in this environment.\n")
		sb.WriteString("If other models request a fact check or up-to-date info, you may search and bring back evidence.\n\n")
	} else {
		sb.WriteString("You do NOT have direct web search access in this environment.\n")
		sb.WriteString("If you need up-to-date facts, explicitly ask the web-enabled models to verify specific claims.\n")
		if web := webEnabled(req.Roster, a.ID); len(web) > 0 {
			fmt.Fprintf(&sb, "Web-enabled models: %s.\n", strings.Join(web, ", "))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "This is round %d.\n\n", req.Round)

	sb.WriteString("User question:\n")
	sb.WriteString(separator)
	sb.WriteString(strings.TrimSpace(req.Input.Payload))
	sb.WriteString("\n")
	sb.WriteString(separator)
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Current shared draft (version %d):\n", req.Artifact.Round)
	sb.WriteString(separator)
	sb.WriteString(strings.TrimSpace(req.Artifact.Text))
	sb.WriteString("\n")
	sb.WriteString(separator)
	sb.WriteString("\n")

	sb.WriteString("Other models' latest outputs:\n")
	sb.WriteString(separator)
	sb.WriteString(othersBlock(a.ID, req))
	sb.WriteString("\n")

	sb.WriteString("Your tasks:\n")
	sb.WriteString("1) Critically judge whether you agree with the draft and the other models' key conclusions and reasoning.\n")
	sb.WriteString("2) Group viewpoints: which model aligns with you, and which is incorrect or missing key points?\n")
	sb.WriteString("3) If you change your mind, explicitly state what convinced you and how your stance updated.\n")
	sb.WriteString("4) Focus on convergence:\n")
	sb.WriteString("   - Identify established consensus.\n")
	sb.WriteString("   - For disagreements, strengthen arguments or propose a resolution path.\n")
	if req.Synthesize {
		sb.WriteString("5) You are the synthesizer. Your message replaces the shared draft: return the COMPLETE revised draft,\n")
		sb.WriteString("   integrating every valid correction and keeping what the panel already agreed on.\n")
	} else {
		sb.WriteString("   - Avoid rewriting a full final answer; prioritize deltas, corrections, and persuasion.\n")
		sb.WriteString("5) Write directly to the other models: debate, challenge, reconcile.\n")
	}

	sb.WriteString("\nWeb search guidance:\n")
	if a.SupportsWeb {
		sb.WriteString("  - If you can search, do so when factual accuracy or recency matters.\n")
		sb.WriteString("  - If you use web search, include a short 'References:' list with key URLs.\n")
		sb.WriteString("  - If you do not use web search, write 'References: none'.\n")
	} else {
		sb.WriteString("  - You cannot browse the web directly.\n")
		sb.WriteString("  - You may cite links surfaced by other models; label them as 'via <model name>'.\n")
	}

	sb.WriteString("\nOutput format (strict):\n")
	sb.WriteString("  - Return a JSON array of length 2:\n")
	sb.WriteString("    [<agree_bool>, <message_str>]\n")
	sb.WriteString("  - agree_bool = true only if you believe all participating models have converged on key conclusions.\n")
	sb.WriteString("  - message_str must be English and should be addressed to other models.\n")

	return sb.String()
}

func othersBlock(self string, req RespondRequest) string {
	names := make(map[string]string, len(req.Roster))
	for _, p := range req.Roster {
		names[p.ID] = p.Name
	}

	var sb strings.Builder
	for _, c := range req.Previous {
		if c.AgentID == self {
			continue
		}
		name := names[c.AgentID]
		if name == "" {
			name = c.AgentID
		}
		stance := "disagrees"
		if c.Agree {
			stance = "agrees"
		}
		fmt.Fprintf(&sb, "[%s - Round %d, %s]\n%s\n%s", name, c.Round, stance, strings.TrimSpace(c.Text), separator)
	}
	if sb.Len() > 0 {
		return sb.String()
	}
	if req.Round <= 1 {
		return "(First round: no other model has spoken yet.)\n"
	}
	return "(Only you returned a valid answer in the previous round.)\n"
}

func webEnabled(roster []Participant, self string) []string {
	var names []string
	for _, p := range roster {
		if p.ID != self && p.SupportsWeb {
			names = append(names, p.Name)
		}
	}
	return names
}

// seedTemplate renders the initial draft when no drafter is configured.
func seedTemplate(input DomainInput) string {
	var sb strings.Builder
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = "the subject"
	}
	fmt.Fprintf(&sb, "# Draft reading for %s\n\n", subject)
	sb.WriteString("No draft has been written yet. Answer the user question below from first principles;\n")
	sb.WriteString("the synthesizer turns the first round's arguments into version 1 of the report.\n\n")
	sb.WriteString("## User question\n\n")
	sb.WriteString(strings.TrimSpace(input.Payload))
	sb.WriteString("\n")
	return sb.String()
}

func drafterPrompt(input DomainInput) string {
	var sb strings.Builder
	sb.WriteString("Write a complete first draft answering the user question below.\n")
	sb.WriteString("Other models will critique and refine it, so state your reasoning explicitly\n")
	sb.WriteString("and organise the draft in clear sections.\n\n")
	sb.WriteString("User question:\n")
	sb.WriteString(separator)
	sb.WriteString(strings.TrimSpace(input.Payload))
	sb.WriteString("\n")
	sb.WriteString(separator)
	return sb.String()
}

func judgePrompt(previous, current Artifact, round int) string {
	var sb strings.Builder
	sb.WriteString("You are the moderator of a multi-model debate that refines a shared report.\n")
	fmt.Fprintf(&sb, "Compare the draft before round %d with the draft after it and decide whether the debate has converged:\n", round)
	sb.WriteString("the key conclusions are stable and the remaining differences are cosmetic.\n\n")

	fmt.Fprintf(&sb, "Draft before round %d:\n", round)
	sb.WriteString(separator)
	sb.WriteString(strings.TrimSpace(previous.Text))
	sb.WriteString("\n")
	sb.WriteString(separator)
	fmt.Fprintf(&sb, "\nDraft after round %d:\n", round)
	sb.WriteString(separator)
	sb.WriteString(strings.TrimSpace(current.Text))
	sb.WriteString("\n")
	sb.WriteString(separator)

	if len(current.Contributions) > 0 {
		sb.WriteString("\nPanel stances this round:\n")
		for _, c := range current.Contributions {
			fmt.Fprintf(&sb, "  - %s: agree=%t\n", c.AgentID, c.Agree)
		}
	}

	sb.WriteString("\nOutput format (strict):\n")
	sb.WriteString("  - Return a JSON array of length 2:\n")
	sb.WriteString("    [<converged_bool>, <reason_str>]\n")
	sb.WriteString("  - reason_str is one or two English sentences.\n")
	return sb.String()
}
