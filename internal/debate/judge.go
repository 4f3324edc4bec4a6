package debate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/0nhc/llm-fortune-teller/internal/ai"
)

// Judge decides whether a session has converged after a round.
//
// current carries the contributions folded into it, so judges can look at
// agreement flags as well as the text. Implementations must not mutate
// either artifact.
type Judge interface {
	Evaluate(ctx context.Context, previous, current Artifact, round int) (Verdict, error)
}

// SimilarityJudge is a pure, deterministic heuristic judge.
//
// It reports convergence when the word-shingle Dice similarity between the
// two artifacts reaches Threshold, or when round >= AgreementFloor and every
// contribution folded into current reported agreement. AgreementFloor 0
// disables the agreement rule.
type SimilarityJudge struct {
	Threshold      float64
	AgreementFloor int
}

// Evaluate implements Judge.
func (j SimilarityJudge) Evaluate(_ context.Context, previous, current Artifact, round int) (Verdict, error) {
	score := Similarity(previous.Text, current.Text)
	if score >= j.Threshold {
		return Verdict{
			Converged: true,
			Reason:    fmt.Sprintf("draft similarity %.3f >= %.3f", score, j.Threshold),
			Round:     round,
			Score:     score,
		}, nil
	}

	if j.AgreementFloor > 0 && round >= j.AgreementFloor && allAgree(current.Contributions) {
		return Verdict{
			Converged: true,
			Reason:    fmt.Sprintf("all %d agents agree", len(current.Contributions)),
			Round:     round,
			Score:     score,
		}, nil
	}

	return Verdict{
		Converged: false,
		Reason:    fmt.Sprintf("draft similarity %.3f < %.3f", score, j.Threshold),
		Round:     round,
		Score:     score,
	}, nil
}

func allAgree(contributions []Contribution) bool {
	if len(contributions) == 0 {
		return false
	}
	for _, c := range contributions {
		if !c.Agree {
			return false
		}
	}
	return true
}

// shingleSize is the number of words per shingle.
const shingleSize = 2

// Similarity returns the Dice coefficient of the word-shingle multisets of a
// and b, in [0, 1]. Case and punctuation are ignored. Two empty texts are
// identical.
func Similarity(a, b string) float64 {
	sa, na := shingles(a)
	sb, nb := shingles(b)
	if na == 0 && nb == 0 {
		return 1
	}
	if na == 0 || nb == 0 {
		return 0
	}

	common := 0
	for k, ca := range sa {
		if cb, ok := sb[k]; ok {
			common += min(ca, cb)
		}
	}
	return 2 * float64(common) / float64(na+nb)
}

// shingles returns the multiset of word shingles and its total size. Texts
// shorter than a shingle fall back to single words.
func shingles(text string) (map[string]int, int) {
	words := tokenize(text)
	size := shingleSize
	if len(words) < size {
		size = 1
	}
	out := make(map[string]int)
	total := 0
	for i := 0; i+size <= len(words); i++ {
		out[strings.Join(words[i:i+size], " ")]++
		total++
	}
	return out, total
}

// tokenize splits text into lowercase words. Han characters count as one
// word each since Chinese text has no spaces.
func tokenize(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			words = append(words, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}

// ModelJudge asks a model whether two drafts have converged.
type ModelJudge struct {
	Client  ai.Client
	Options ai.GenerateOptions
}

// Evaluate implements Judge. Any client failure is returned unchanged; the
// orchestrator treats a failing judge as fatal for the session.
func (j ModelJudge) Evaluate(ctx context.Context, previous, current Artifact, round int) (Verdict, error) {
	if j.Client == nil {
		return Verdict{}, fmt.Errorf("model judge: no client configured")
	}
	text, err := j.Client.Generate(ctx, judgePrompt(previous, current, round), j.Options)
	if err != nil {
		return Verdict{}, err
	}
	reply := ParseReply(text)
	reason := strings.TrimSpace(reply.Message)
	if !reply.Structured {
		reason = "unstructured judge reply: " + truncate(reason, 200)
	}
	return Verdict{
		Converged: reply.Agree,
		Reason:    reason,
		Round:     round,
		Score:     Similarity(previous.Text, current.Text),
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
