package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/cram/internal/model"
	"github.com/ppiankov/cram/internal/pipeline"
)

var (
	runRawFile       string
	runReportURL     string
	runEventsFile    string
	runInterventions []string
	runOutJSON       string
	runOutMD         string
	runTimeout       time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run [region]",
	Short: "Analyze conflict risk for one region",
	Long: `Run a full analysis for a region (omit it for a national analysis).

Optional field-report text can be read from a file or fetched from a URL;
events are extracted from it. Each --intervention is assessed against the
current trend.

Example:
  cram run Khartoum
  cram run "North Darfur" --intervention "food convoy to El Fasher" --md brief.md
  cram run Kassala --report-url https://example.org/sitrep.html
  cram run Sennar --events-file testdata/events.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalysis,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runRawFile, "raw-file", "", "field report to extract events from (text or HTML file)")
	runCmd.Flags().StringVar(&runReportURL, "report-url", "", "fetch a situation report and extract events from its text")
	runCmd.Flags().StringVar(&runEventsFile, "events-file", "", "use a JSON file of events instead of the vector store")
	runCmd.Flags().StringArrayVarP(&runInterventions, "intervention", "i", nil, "intervention to assess (repeatable)")
	runCmd.Flags().StringVar(&runOutJSON, "json", "", "write the full result as JSON to this path")
	runCmd.Flags().StringVar(&runOutMD, "md", "", "write the brief as Markdown to this path")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 15*time.Minute, "overall time budget for collaborator calls")
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	if runRawFile != "" && runReportURL != "" {
		return fmt.Errorf("--raw-file and --report-url are mutually exclusive")
	}

	cfg, a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()
	if runEventsFile != "" {
		cfg.Retrieval.EventsFile = runEventsFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	req := model.AnalysisRequest{Interventions: runInterventions}
	if len(args) == 1 {
		req.Region = args[0]
	}
	if req.Interventions == nil {
		req.Interventions = []string{}
	}

	if source := firstNonEmpty(runReportURL, runRawFile); source != "" {
		report, err := a.Reports().Load(ctx, source)
		if err != nil {
			return fmt.Errorf("load report: %w", err)
		}
		text := report.Text
		req.RawText = &text
		fmt.Fprintf(os.Stderr, "✓ Loaded report %s (%d chars)\n", orUntitled(report.Title, source), len(text))
	}

	provider, err := a.Provider()
	if err != nil {
		return err
	}
	if !provider.IsAvailable(ctx) {
		a.logger.Warn("model provider is not reachable; model-backed stages will degrade",
			zap.String("provider", provider.Name()),
			zap.String("model", provider.Model()),
		)
	}

	p, err := a.Pipeline()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing %s with %s/%s...\n", regionOrNational(req.Region), provider.Name(), provider.Model())
	result, err := p.Run(ctx, req)
	if err != nil {
		return err
	}

	renderer := pipeline.NewRenderer(os.Stderr)
	if runOutJSON != "" {
		if err := renderer.RenderJSON(result, runOutJSON); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ JSON result: %s\n", runOutJSON)
	}
	if runOutMD != "" {
		if err := renderer.RenderMarkdown(result, runOutMD); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown brief: %s\n", runOutMD)
	}
	if runOutJSON == "" && runOutMD == "" {
		fmt.Println(pipeline.Markdown(result))
	}
	renderer.RenderSummary(result)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func orUntitled(title, source string) string {
	if title != "" {
		return fmt.Sprintf("%q", title)
	}
	return source
}

func regionOrNational(region string) string {
	if strings.TrimSpace(region) == "" {
		return "Sudan (national)"
	}
	return region
}
