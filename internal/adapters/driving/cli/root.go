package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Root flags.
var (
	dataDir         string
	verbose         bool
	ingestFlag      bool
	askQuestion     string
	kPerDocFlag     int
	modelFlag       string
	temperatureFlag float64
)

// Services used by the commands. They are built lazily from the loaded
// configuration, or injected directly by tests.
var (
	cfg domain.Config
	rt  *Runtime

	catalogService   driving.CatalogService
	retrievalService driving.RetrievalService
	ingestService    driving.IngestService
	askService       driving.AskService
	routerService    driving.RouterService
	configValidator  driven.AIConfigValidator
)

var rootCmd = &cobra.Command{
	Use:   "lexrag",
	Short: "Question answering over legal acts",
	Long: `lexrag ingests legal act PDFs into searchable collections and answers
questions over them with hybrid retrieval and map-reduce synthesis.

  lexrag --ingest                 ingest every unprocessed act folder
  lexrag --ask "question"         answer across all processed collections
  lexrag chat                     interactive question routing session
  lexrag serve                    HTTP API`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runRoot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "config", "", "data directory holding config.toml (default ~/.lexrag)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.IntVar(&kPerDocFlag, "k_per_doc", 0, "chunks retrieved per document (default from configuration)")
	pf.StringVar(&modelFlag, "model", "", "completion model override")
	pf.Float64Var(&temperatureFlag, "temperature", 0, "sampling temperature override")

	rootCmd.Flags().BoolVar(&ingestFlag, "ingest", false, "ingest every unprocessed act folder")
	rootCmd.Flags().StringVar(&askQuestion, "ask", "", "answer a question across all processed collections")
	rootCmd.MarkFlagsMutuallyExclusive("ingest", "ask")
}

// Execute runs the root command. The runtime built for the command is
// closed before returning.
func Execute(ctx context.Context) error {
	defer closeRuntime()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig builds the configuration once: file, dotenv and environment,
// then the command-line overrides.
func loadConfig(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if rt != nil {
		return nil
	}

	loaded, store, err := file.LoadConfig(file.LoadOptions{DataDir: dataDir})
	if err != nil {
		return err
	}
	configStore = store
	if err := applyFlags(cmd.Flags(), &loaded); err != nil {
		return err
	}
	cfg = loaded
	rt = NewRuntime(cfg)
	return nil
}

func applyFlags(flags *pflag.FlagSet, c *domain.Config) error {
	if flags.Changed("k_per_doc") && kPerDocFlag > 0 {
		c.Synthesis.KPerDoc = kPerDocFlag
	}
	if flags.Changed("model") && modelFlag != "" {
		c.LLM.Model = modelFlag
	}
	if flags.Changed("temperature") {
		if temperatureFlag < 0 || temperatureFlag > 2 {
			return fmt.Errorf("%w: --temperature must be in [0, 2]", domain.ErrInvalidInput)
		}
		c.Synthesis.Temperature = temperatureFlag
	}
	return nil
}

func closeRuntime() {
	if rt == nil {
		return
	}
	if err := rt.Close(); err != nil {
		logger.Warn("closing runtime: %v", err)
	}
	rt = nil
}

func runRoot(cmd *cobra.Command, _ []string) error {
	switch {
	case ingestFlag:
		return runIngestAll(cmd)
	case askQuestion != "":
		return runAskQuestion(cmd, askQuestion)
	default:
		return cmd.Help()
	}
}

// requireCatalog ensures catalogService is available.
func requireCatalog() error {
	if catalogService != nil {
		return nil
	}
	if rt == nil {
		return errors.New("catalog service not configured")
	}
	svc, err := rt.Catalog()
	if err != nil {
		return err
	}
	catalogService = svc
	return nil
}

// requireRetrieval ensures retrievalService is available.
func requireRetrieval(ctx context.Context) error {
	if retrievalService != nil {
		return nil
	}
	if rt == nil {
		return errors.New("retrieval service not configured")
	}
	svc, err := rt.Retrieval(ctx)
	if err != nil {
		return err
	}
	retrievalService = svc
	return nil
}

// requireIngest ensures ingestService is available.
func requireIngest(ctx context.Context) error {
	if ingestService != nil {
		return nil
	}
	if rt == nil {
		return errors.New("ingest service not configured")
	}
	svc, err := rt.Ingest(ctx)
	if err != nil {
		return err
	}
	ingestService = svc
	return nil
}

// requireAsk ensures askService is available.
func requireAsk(ctx context.Context) error {
	if askService != nil {
		return nil
	}
	if rt == nil {
		return errors.New("ask service not configured")
	}
	svc, err := rt.Ask(ctx)
	if err != nil {
		return err
	}
	askService = svc
	return nil
}

// requireRouter ensures routerService is available.
func requireRouter(ctx context.Context) error {
	if routerService != nil {
		return nil
	}
	if rt == nil {
		return errors.New("router service not configured")
	}
	svc, err := rt.Router(ctx)
	if err != nil {
		return err
	}
	routerService = svc
	return nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
