package main

import (
	"fmt"
	"os"
	"time"

	"catalog-go/internal/app"
	"catalog-go/internal/catalog"
	"catalog-go/internal/config"
	"catalog-go/internal/encryption"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file from the default location.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "SyncUpdates", "Clear").
func newApp(cmd *cobra.Command, operation, parameters string) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts := app.Options{Parameters: parameters}
	if cfg.Encryption.Type == "age" {
		opts.Passphrase, err = readPassphrase("Passphrase: ")
		if err != nil {
			return nil, err
		}
	}

	a, err := app.New(cmd.Context(), cfg, operation, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase returns $CATALOG_PASSPHRASE, or prompts on the terminal.
func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv("CATALOG_PASSPHRASE"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal for passphrase prompt: set CATALOG_PASSPHRASE")
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "catalog",
	Short:        "Local product catalog cache",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		deviceID := uuid.New().String()
		cfg := config.NewConfig(deviceID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Device ID: %s\n", deviceID)
		fmt.Printf("Base Dir:  %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Device ID:  %s\n", cfg.DeviceID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Log Level:  %s\n", cfg.LogLevel)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Store:      %s\n", cfg.Store.Type)
		fmt.Printf("Remote:     %s\n", describeRemote(cfg.Remote))
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

func describeRemote(r config.RemoteConfig) string {
	switch r.Type {
	case "file":
		return "file " + r.FilePath
	case "s3":
		return fmt.Sprintf("s3://%s/%s", r.S3Bucket, r.S3Key)
	case "dynamodb":
		if r.DynamoDBIndex != "" {
			return fmt.Sprintf("dynamodb %s (index %s)", r.DynamoDBTable, r.DynamoDBIndex)
		}
		return "dynamodb " + r.DynamoDBTable
	default:
		return r.Type
	}
}

// cache commands
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Load the cached snapshot and sync it, or download everything",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Initialize", "")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Initialize(cmd.Context())
		if err != nil {
			return fmt.Errorf("initialize failed: %w", err)
		}

		fmt.Printf("%d product(s) cached\n", n)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch products created since the last sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "SyncUpdates", "")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Printf("%d product(s) cached\n", n)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Replace the cache with the whole remote collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DownloadAll", "")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Download(cmd.Context())
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}

		fmt.Printf("Downloaded %d product(s)\n", n)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cached snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Clear", "")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clear failed: %w", err)
		}

		fmt.Println("Cache cleared.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is cached",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Status", "")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Status(cmd.Context())
		if err != nil {
			return err
		}

		lastSync := "never"
		if !st.LastSync.IsZero() {
			lastSync = st.LastSync.Local().Format("2006-01-02 15:04:05")
		}

		fmt.Printf("Products:  %d\n", st.Products)
		fmt.Printf("Last sync: %s\n", lastSync)
		if st.Metadata != nil && st.Metadata.Count != st.Products {
			fmt.Printf("Metadata:  %d product(s) at last sync\n", st.Metadata.Count)
		}
		fmt.Printf("Remote:    %s\n", st.Remote)
		fmt.Printf("Store:     %s (encrypted: %v)\n", st.Store, st.Encrypted)
		fmt.Printf("Database:  %s\n", st.Database)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached products",
	RunE: func(cmd *cobra.Command, args []string) error {
		catFlag, _ := cmd.Flags().GetString("category")

		var category *catalog.Category
		if catFlag != "" {
			c, err := catalog.ParseCategory(catFlag)
			if err != nil {
				return err
			}
			category = &c
		}

		a, err := newApp(cmd, "ListProducts", "")
		if err != nil {
			return err
		}
		defer a.Close()

		products := a.Products(cmd.Context(), category)
		if len(products) == 0 {
			fmt.Println("No products cached.")
			return nil
		}

		for _, p := range products {
			fmt.Printf("%-36s  %-12s  %4.1f  %s / %s\n", p.ID, p.Category, p.Safety(), p.Brand, p.Name)
		}
		return nil
	},
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Rank cached products for a skin profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		skinType, _ := cmd.Flags().GetInt("skin-type")
		concerns, _ := cmd.Flags().GetIntSlice("concern")
		sensitivities, _ := cmd.Flags().GetIntSlice("sensitivity")
		catFlag, _ := cmd.Flags().GetString("category")
		minSafety, _ := cmd.Flags().GetFloat64("min-safety")
		limit, _ := cmd.Flags().GetInt("limit")

		opts := catalog.RankOptions{MinSafety: minSafety, Limit: limit}
		if catFlag != "" {
			c, err := catalog.ParseCategory(catFlag)
			if err != nil {
				return err
			}
			opts.Category = &c
		}
		profile := catalog.Profile{SkinType: skinType, Concerns: concerns, Sensitivities: sensitivities}

		a, err := newApp(cmd, "Explore", "")
		if err != nil {
			return err
		}
		defer a.Close()

		ranked := a.Explore(cmd.Context(), profile, opts)
		if len(ranked) == 0 {
			fmt.Println("No matching products.")
			return nil
		}

		for i, s := range ranked {
			fmt.Printf("%3d. %6.1f  %-12s  %s / %s\n", i+1, s.Score, s.Product.Category, s.Product.Brand, s.Product.Name)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View cache operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "GetHistory", "")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-12s  %s  %-8s  %5d  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				op.ProductCount,
				duration,
			)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage snapshot encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the age key pair used to encrypt the snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		if os.Getenv("CATALOG_PASSPHRASE") == "" {
			confirm, err := readPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if confirm != passphrase {
				return fmt.Errorf("passphrases do not match")
			}
		}

		enc := encryption.NewAgeEncryptor(cfg.Encryption)
		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("setting up keys: %w", err)
		}

		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		if cfg.Encryption.Type != "age" {
			fmt.Println(`Set encryption.type = "age" in the config to encrypt the snapshot.`)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the catalog database",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DBStatus", "")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.DBStatus()
		if err != nil {
			return err
		}

		state := "up to date"
		switch {
		case st.Dirty:
			state = "dirty"
		case !st.UpToDate():
			state = "behind"
		}
		fmt.Printf("Schema version: %d of %d (%s)\n", st.Current, st.Latest, state)
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup PATH",
	Short: "Write a copy of the catalog database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "BackupDatabase", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(args[0]); err != nil {
			return err
		}

		fmt.Printf("Database copied to %s\n", args[0])
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// db subcommands
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbBackupCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringP("category", "c", "", "Only list this category (name or code)")
	rootCmd.AddCommand(exploreCmd)
	exploreCmd.Flags().Int("skin-type", 0, "Skin type code (0 = unknown)")
	exploreCmd.Flags().IntSlice("concern", nil, "Concern codes")
	exploreCmd.Flags().IntSlice("sensitivity", nil, "Sensitivity codes")
	exploreCmd.Flags().StringP("category", "c", "", "Only rank this category")
	exploreCmd.Flags().Float64("min-safety", 0, "Minimum safety score")
	exploreCmd.Flags().IntP("limit", "n", 20, "Maximum number of products to show")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(dbCmd)
}
