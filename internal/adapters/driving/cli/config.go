package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// configStore is the config.toml the current configuration was loaded from.
var configStore *file.ConfigStore

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings in config.toml",
	Long: `Reads and writes keys of config.toml in the data directory, using the
dot notation of the file's tables (for example synthesis.k_per_doc or
llm.model). Environment variables and flags still take precedence.`,
	// An invalid config.toml must stay repairable, so the full load is skipped.
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		logger.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := requireConfigStore()
		if err != nil {
			return err
		}
		printf(cmd, "%s\n", store.Path())
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Stores a value in config.toml. "true" and "false" are booleans, numbers
are numbers, anything else is a string. A value that makes the
configuration invalid is rejected and the previous value is kept.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a setting so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := requireConfigStore()
		if err != nil {
			return err
		}
		if err := store.Delete(args[0]); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		printf(cmd, "Unset %s\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd, configGetCmd, configSetCmd, configUnsetCmd)
	rootCmd.AddCommand(configCmd)
}

func requireConfigStore() (*file.ConfigStore, error) {
	if configStore != nil {
		return configStore, nil
	}
	dir := dataDir
	if dir == "" {
		dir = os.Getenv(file.EnvDataDir)
	}
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	configStore = store
	return store, nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	store, err := requireConfigStore()
	if err != nil {
		return err
	}
	val, ok := store.Get(args[0])
	if !ok {
		return fmt.Errorf("%w: %s is not set in %s", domain.ErrNotFound, args[0], store.Path())
	}
	if isSecretKey(args[0]) {
		val = maskSecret(fmt.Sprint(val))
	}
	printf(cmd, "%v\n", val)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, err := requireConfigStore()
	if err != nil {
		return err
	}
	key, value := args[0], file.ParseValue(args[1])

	previous, had := store.Get(key)
	if err := store.Set(key, value); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	probe := domain.DefaultConfig()
	probe.DatabaseURL = os.Getenv(file.EnvDatabaseURL)
	file.ApplyStore(store, &probe)
	if verr := file.Validate(probe); verr != nil {
		restore := func() error { return store.Delete(key) }
		if had {
			restore = func() error { return store.Set(key, previous) }
		}
		if err := restore(); err != nil {
			return fmt.Errorf("restoring %s: %w (after: %w)", key, err, verr)
		}
		return verr
	}

	printf(cmd, "Set %s = %v\n", key, value)
	return nil
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "secret")
}

// maskSecret keeps the last four characters.
func maskSecret(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}
