package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ApiratRepublic/RePublic/internal/cli/output"
	sharedcfg "github.com/ApiratRepublic/RePublic/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// initFile is the configuration written by init.
type initFile struct {
	RootDir       string                   `yaml:"root_dir"`
	ReportDir     string                   `yaml:"report_dir"`
	ReportFormat  string                   `yaml:"report_format"`
	OverlapDir    string                   `yaml:"overlap_dir"`
	SummaryFile   string                   `yaml:"summary_file"`
	InventoryFile string                   `yaml:"inventory_file"`
	Workers       int                      `yaml:"workers"`
	LayerWorkers  int                      `yaml:"layer_workers"`
	StrictNumeric bool                     `yaml:"strict_numeric"`
	StatePath     string                   `yaml:"state_path"`
	LogLevel      string                   `yaml:"log_level"`
	LogFormat     string                   `yaml:"log_format"`
	Sources       []sharedcfg.SourceConfig `yaml:"sources"`
}

func defaultInitFile() initFile {
	return initFile{
		RootDir:       ".",
		ReportDir:     sharedcfg.DefaultReportDir,
		ReportFormat:  sharedcfg.DefaultReportFormat,
		OverlapDir:    sharedcfg.DefaultOverlapDir,
		SummaryFile:   sharedcfg.DefaultSummaryFile,
		InventoryFile: sharedcfg.DefaultInventoryFile,
		Workers:       sharedcfg.DefaultWorkers,
		LayerWorkers:  sharedcfg.DefaultLayerWorkers,
		StatePath:     sharedcfg.DefaultStateFile,
		LogLevel:      sharedcfg.DefaultLogLevel,
		LogFormat:     sharedcfg.DefaultLogFormat,
		Sources: []sharedcfg.SourceConfig{
			{Type: "gpkg", Extensions: []string{".gpkg"}},
			{Type: "duckdb", Extensions: []string{".duckdb", ".ddb"}},
		},
	}
}

const initHeader = `# gdbcheck configuration
# Every key can be overridden with a GDBCHECK_ environment variable
# (e.g. GDBCHECK_WORKERS=8) or the matching command-line flag.
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a gdbcheck.yaml configuration",
		Long: `Write a gdbcheck.yaml with the default settings to the given directory
(the current directory by default).`,
		Example: `  gdbcheck init
  gdbcheck init /data/zones
  gdbcheck init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			mode := output.ModeAuto
			if cfg := getConfig(); cfg != nil {
				mode = output.Mode(cfg.Output)
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, sharedcfg.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", sharedcfg.ConfigFileName)
	}

	body, err := yaml.Marshal(defaultInitFile())
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(configPath, append([]byte(initHeader), body...), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.StatusLine(configPath, "success", "")
	r.Println("")
	r.Success("gdbcheck configuration created!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Set root_dir to the directory holding your datasets")
	r.Println("  2. Run 'gdbcheck inventory' to see which layers were found")
	r.Println("  3. Run 'gdbcheck validate' to write error reports")
	return nil
}
