package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/WaylonWalker/lspcore/pkg/config"
)

const defaultConfigFilename = "lspcore.toml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage lspcore configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create an lspcore.toml",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

// initWizardState holds the state gathered during the huh wizard.
type initWizardState struct {
	Verbose     bool
	Concurrency string
	TraceFile   string
	WatchGlob   string
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(defaultConfigFilename); err == nil {
		var overwrite bool
		confirmGroup := huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Overwrite?", defaultConfigFilename)).
				Value(&overwrite),
		)
		if err := huh.NewForm(confirmGroup).Run(); err != nil {
			return fmt.Errorf("wizard canceled: %w", err)
		}
		if !overwrite {
			fmt.Println("Aborted.")
			return nil
		}
	}

	defaults := config.Default()
	state := &initWizardState{
		Verbose:     defaults.Verbose,
		Concurrency: fmt.Sprintf("%d", defaults.Concurrency),
		TraceFile:   defaults.TraceFile,
		WatchGlob:   defaults.WatchGlob,
	}

	group := huh.NewGroup(
		huh.NewNote().
			Title("lspcore config").
			Description("Configure the server's logging, concurrency, and tracing."),
		huh.NewConfirm().
			Title("Verbose logging").
			Description("Include source file and line in log output").
			Value(&state.Verbose),
		huh.NewInput().
			Title("Concurrency").
			Description("Maximum number of request handlers running at once").
			Value(&state.Concurrency).
			Placeholder("4"),
		huh.NewInput().
			Title("Trace file").
			Description("Path to write a JSON-lines trace of every message (blank disables)").
			Value(&state.TraceFile).
			Placeholder("trace.jsonl"),
		huh.NewInput().
			Title("Watch glob").
			Description("Glob saved as watch_glob (the markdownls watcher forwards .md files only)").
			Value(&state.WatchGlob).
			Placeholder("*.md"),
	)

	form := huh.NewForm(group).WithTheme(huh.ThemeCharm())
	if err := form.Run(); err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	cfg := config.Default()
	cfg.Verbose = state.Verbose
	if state.TraceFile != "" {
		cfg.TraceFile = state.TraceFile
	}
	if state.WatchGlob != "" {
		cfg.WatchGlob = state.WatchGlob
	}
	fmt.Sscanf(state.Concurrency, "%d", &cfg.Concurrency)
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}

	f, err := os.Create(defaultConfigFilename)
	if err != nil {
		return fmt.Errorf("create %s: %w", defaultConfigFilename, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("write %s: %w", defaultConfigFilename, err)
	}

	fmt.Printf("\nWrote %s\n", defaultConfigFilename)
	return nil
}
