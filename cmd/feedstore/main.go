package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"feedstore/internal/app"
	"feedstore/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "content put").
func newApp(operation string, mutating bool) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation, mutating)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase returns FEEDSTORE_PASSPHRASE when set, otherwise prompts
// on the terminal without echo.
func readPassphrase(a *app.App) (string, error) {
	if !a.NeedsPassphrase() {
		return "", nil
	}
	if p := os.Getenv(app.PassphraseEnv); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal for passphrase prompt: set %s", app.PassphraseEnv)
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("empty passphrase")
	}
	return string(b), nil
}

func printEntries(entries map[string][]byte) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s\t%s\n", k, entries[k])
	}
}

var rootCmd = &cobra.Command{
	Use:          "feedstore",
	Short:        "Local content and journal store",
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

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
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
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Log Level:  %s\n", cfg.LogLevel)
		fmt.Printf("Content:    %s %s\n", cfg.Content.Type, cfg.Content.DataDir)
		fmt.Printf("Journal:    %s %s\n", cfg.Journal.Type, cfg.Journal.DataDir)
		fmt.Printf("Scheduler:  %s (thread checks: %v)\n", cfg.Scheduler.Mode, cfg.Scheduler.ThreadChecks)
		fmt.Printf("Vault:      %s %s\n", cfg.Vault.Type, cfg.Vault.Name)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

// content command
var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Read and write content entries",
}

var contentPutCmd = &cobra.Command{
	Use:   "put KEY VALUE",
	Short: "Store a value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("content put", true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.PutContent(args[0], []byte(args[1])); err != nil {
			return fmt.Errorf("storing %s: %w", args[0], err)
		}
		return nil
	},
}

var contentGetCmd = &cobra.Command{
	Use:   "get KEY...",
	Short: "Print stored values",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("content get", false)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.GetContent(args)
		if err != nil {
			return err
		}
		printEntries(entries)
		return nil
	},
}

var contentListCmd = &cobra.Command{
	Use:   "list [PREFIX]",
	Short: "Print entries whose key starts with PREFIX",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("content list", false)
		if err != nil {
			return err
		}
		defer a.Close()

		prefix := ""
		if len(args) > 0 {
			prefix = args[0]
		}
		entries, err := a.ListContent(prefix)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No entries.")
			return nil
		}
		printEntries(entries)
		return nil
	},
}

var contentDeleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Delete a key, or every key with a prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byPrefix, _ := cmd.Flags().GetBool("prefix")

		a, err := newApp("content delete", true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.DeleteContent(args[0], byPrefix)
	},
}

var contentClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every content entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("content clear", true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.ClearContent()
	},
}

// journal command
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Manage append-only journals",
}

var journalAppendCmd = &cobra.Command{
	Use:   "append NAME VALUE...",
	Short: "Append values to a journal",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("journal append", true)
		if err != nil {
			return err
		}
		defer a.Close()

		values := make([][]byte, 0, len(args)-1)
		for _, v := range args[1:] {
			values = append(values, []byte(v))
		}
		if err := a.AppendJournal(args[0], values); err != nil {
			return fmt.Errorf("appending to %s: %w", args[0], err)
		}
		return nil
	},
}

var journalReadCmd = &cobra.Command{
	Use:   "read NAME",
	Short: "Print a journal's entries in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("journal read", false)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.ReadJournal(args[0])
		if err != nil {
			return err
		}
		for i, e := range entries {
			fmt.Printf("%d\t%s\n", i, e)
		}
		return nil
	},
}

var journalCopyCmd = &cobra.Command{
	Use:   "copy FROM TO",
	Short: "Copy a journal to a new name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("journal copy", true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CopyJournal(args[0], args[1]); err != nil {
			return fmt.Errorf("copying %s to %s: %w", args[0], args[1], err)
		}
		return nil
	},
}

var journalDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a journal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("journal delete", true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.DeleteJournal(args[0])
	},
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal names",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("journal list", false)
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListJournals()
		if err != nil {
			return err
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var journalClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("journal clear", true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.ClearJournals()
	},
}

// clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe content and journals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("clear", true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Clear()
	},
}

// dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print storage counters in Prometheus text format",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("dump", false)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Dump(os.Stdout)
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Push and pull encrypted snapshots to the vault",
}

var snapshotPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Store a snapshot of all data in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("snapshot push", false)
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase(a)
		if err != nil {
			return err
		}
		id, err := a.PushSnapshot(passphrase)
		if err != nil {
			return fmt.Errorf("pushing snapshot: %w", err)
		}
		fmt.Printf("Pushed snapshot %s\n", id)
		return nil
	},
}

var snapshotPullCmd = &cobra.Command{
	Use:   "pull ID",
	Short: "Replace all data with a snapshot from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("snapshot pull", true)
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase(a)
		if err != nil {
			return err
		}
		if err := a.PullSnapshot(args[0], passphrase); err != nil {
			return fmt.Errorf("pulling snapshot: %w", err)
		}
		fmt.Printf("Restored snapshot %s\n", args[0])
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("snapshot list", false)
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.ListSnapshots()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// content subcommands
	contentCmd.AddCommand(contentPutCmd)
	contentCmd.AddCommand(contentGetCmd)
	contentCmd.AddCommand(contentListCmd)
	contentCmd.AddCommand(contentDeleteCmd)
	contentDeleteCmd.Flags().BoolP("prefix", "p", false, "Delete every key starting with KEY")
	contentCmd.AddCommand(contentClearCmd)

	// journal subcommands
	journalCmd.AddCommand(journalAppendCmd)
	journalCmd.AddCommand(journalReadCmd)
	journalCmd.AddCommand(journalCopyCmd)
	journalCmd.AddCommand(journalDeleteCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalClearCmd)

	// snapshot subcommands
	snapshotCmd.AddCommand(snapshotPushCmd)
	snapshotCmd.AddCommand(snapshotPullCmd)
	snapshotCmd.AddCommand(snapshotListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(contentCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(snapshotCmd)
}
