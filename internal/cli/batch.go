package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/cram/internal/pipeline"
	"github.com/ppiankov/cram/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	metricsAddr  string
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many regions in parallel",
	Long: `Batch runs independent analyses concurrently:
- Read requests from a YAML file (list of {region, interventions, raw_data})
  or a text file (one region per line, optionally "region | a; b")
- Run analyses on a worker pool
- Write <region>.json and <region>.md for each run

Example:
  cram batch regions.txt
  cram batch requests.yaml --concurrency 8 --output-dir ./briefs
  cram batch regions.txt --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent analyses (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./cram-briefs", "output directory for results")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for the batch")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the batch runs")
	batchCmd.Flags().StringVar(&runEventsFile, "events-file", "", "use a JSON file of events instead of the vector store")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	cfg, a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()
	if runEventsFile != "" {
		cfg.Retrieval.EventsFile = runEventsFile
	}
	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.BatchWorkers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, a.logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  cram batch analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := a.Pipeline()
	if err != nil {
		return err
	}

	renderer := pipeline.NewRenderer(os.Stderr)
	processor := worker.NewBatchProcessor(p, workers)
	processor.OnDone(func(o *worker.AnalysisOutcome) {
		region := regionOrNational(o.Request.Region)
		if o.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", region, o.Error)
			return
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%s, confidence %.2f)\n", region, o.Result.ApprovalStatus, o.Result.ConfidenceScore)
	})

	outcomes, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	success, failures, pending := 0, 0, 0
	used := make(map[string]int)
	for _, o := range outcomes {
		if o.Error != nil {
			failures++
			continue
		}
		success++
		if o.Result.ApprovalRequired {
			pending++
		}

		slug := uniqueSlug(sanitizeFilename(regionOrNational(o.Request.Region)), used)
		if err := renderer.RenderJSON(o.Result, filepath.Join(outputDir, slug+".json")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", slug, err)
		}
		if err := renderer.RenderMarkdown(o.Result, filepath.Join(outputDir, slug+".md")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", slug, err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Total:             %d\n", len(outcomes))
	fmt.Fprintf(os.Stderr, "  Success:           %d\n", success)
	fmt.Fprintf(os.Stderr, "  Pending approval:  %d\n", pending)
	fmt.Fprintf(os.Stderr, "  Failures:          %d\n", failures)
	fmt.Fprintf(os.Stderr, "  Audit log:         %s\n", a.Audit().Path())
	fmt.Fprintf(os.Stderr, "\n")

	if failures > 0 && success == 0 {
		return fmt.Errorf("all %d analyses failed", failures)
	}
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}

// sanitizeFilename turns a region name into a file-name slug
func sanitizeFilename(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > 100 {
		out = out[:100]
	}
	if out == "" {
		out = "region"
	}
	return out
}

func uniqueSlug(slug string, used map[string]int) string {
	used[slug]++
	if n := used[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}
