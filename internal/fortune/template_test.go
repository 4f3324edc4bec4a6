package fortune

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0nhc/llm-fortune-teller/internal/debate"
)

func TestDefaultTemplate(t *testing.T) {
	tmpl := DefaultTemplate()
	if strings.TrimSpace(tmpl.Head) == "" || strings.TrimSpace(tmpl.Tail) == "" {
		t.Fatal("embedded template is empty")
	}

	got := tmpl.Render("PROFILE\n\n")
	if !strings.HasPrefix(got, tmpl.Head) || !strings.HasSuffix(got, tmpl.Tail) {
		t.Error("Render() should wrap the profile with head and tail")
	}
	if !strings.Contains(got, "PROFILE") || strings.Contains(got, "PROFILE\n\n\n") {
		t.Errorf("Render() should embed the trimmed profile:\n%s", got)
	}
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	head := filepath.Join(dir, "head.md")
	if err := os.WriteFile(head, []byte("HEAD\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tmpl, err := LoadTemplate(head, "")
	if err != nil {
		t.Fatalf("LoadTemplate() error = %v", err)
	}
	if tmpl.Head != "HEAD\n" {
		t.Errorf("Head = %q, want override", tmpl.Head)
	}
	if tmpl.Tail != DefaultTemplate().Tail {
		t.Error("Tail should stay the embedded default")
	}

	if _, err := LoadTemplate("", filepath.Join(dir, "missing.md")); err == nil {
		t.Error("LoadTemplate() with a missing file should fail")
	}
}

func TestFinalPrompt(t *testing.T) {
	input := debate.DomainInput{Subject: "alice", Payload: "What does 1990 hold?"}
	final := debate.Artifact{Text: "The agreed reading.", Round: 3}

	tests := []struct {
		name    string
		web     bool
		lang    string
		want    []string
		wantNot []string
	}{
		{
			name:    "web enabled chinese",
			web:     true,
			lang:    LangZh,
			want:    []string{"Simplified Chinese", "What does 1990 hold?", "The agreed reading.", "References:"},
			wantNot: []string{"cannot browse"},
		},
		{
			name: "no web english",
			lang: LangEn,
			want: []string{"in English", "cannot browse", "via <model name>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := &debate.Agent{ID: "a", Name: "Alpha", SupportsWeb: tt.web}
			got := finalPrompt(agent, input, final, tt.lang)
			if !strings.Contains(got, "You are Alpha") {
				t.Error("prompt should name the agent")
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("prompt missing %q", w)
				}
			}
			for _, w := range tt.wantNot {
				if strings.Contains(got, w) {
					t.Errorf("prompt should not contain %q", w)
				}
			}
		})
	}
}
