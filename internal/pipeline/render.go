package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/cram/internal/model"
)

// Renderer writes analysis results to disk and terminal
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer printing summaries to out
func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{out: out}
}

// RenderJSON writes the full result as indented JSON
func (r *Renderer) RenderJSON(result *model.AnalysisResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the narrative brief followed by the decision prompts
func (r *Renderer) RenderMarkdown(result *model.AnalysisResult, path string) error {
	return writeFile(path, []byte(Markdown(result)))
}

// Markdown renders the brief for a result
func Markdown(result *model.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Conflict risk brief: %s\n\n", regionLabel(result.Region))
	fmt.Fprintf(&b, "_Generated %s. Run %s. Approval: %s (confidence %.2f)._\n\n",
		result.Timestamp.Format("2006-01-02 15:04 MST"), result.RunID, result.ApprovalStatus, result.ConfidenceScore)

	if result.Narrative != nil {
		b.WriteString(strings.TrimSpace(*result.Narrative))
		b.WriteString("\n\n")
	}

	if result.Explainability != nil && len(result.Explainability.Reasoning.DecisionPrompts) > 0 {
		b.WriteString("## Questions before acting\n")
		for _, p := range result.Explainability.Reasoning.DecisionPrompts {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	return b.String()
}

// RenderSummary prints a short terminal summary
func (r *Renderer) RenderSummary(result *model.AnalysisResult) {
	fmt.Fprintf(r.out, "\nRegion:      %s\n", regionLabel(result.Region))
	if result.RetrievalContext != nil {
		fmt.Fprintf(r.out, "Retrieval:   %d events (%s)\n", len(result.Events), result.RetrievalContext.Filters.Mode)
	}
	if t := result.Trend.Get(); t != nil {
		fmt.Fprintf(r.out, "Trend:       %s (%s)\n", t.TrendClassification, t.Confidence)
	} else {
		fmt.Fprintf(r.out, "Trend:       not available\n")
	}
	if v := result.Validation.Get(); v != nil {
		fmt.Fprintf(r.out, "Validation:  %s, %d issues\n", v.ValidationStatus, len(v.Issues))
	} else {
		fmt.Fprintf(r.out, "Validation:  not available\n")
	}
	fmt.Fprintf(r.out, "Confidence:  %.2f\n", result.ConfidenceScore)
	fmt.Fprintf(r.out, "Approval:    %s\n", result.ApprovalStatus)
	if result.AuditLogPath != "" {
		fmt.Fprintf(r.out, "Audit log:   %s (run %s)\n", result.AuditLogPath, result.RunID)
	} else {
		fmt.Fprintf(r.out, "Audit log:   not written (run %s)\n", result.RunID)
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
