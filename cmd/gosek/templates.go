package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/praetorian-inc/gosek/pkg/config"
	"github.com/praetorian-inc/gosek/pkg/fetch"
	"github.com/praetorian-inc/gosek/pkg/patternset"
	"github.com/praetorian-inc/gosek/pkg/template"
		"github.com/spf13/cobra"
)

var (
	templatesOpts      = config.Templates{To: config.DefaultTemplatesDir()}
	templatesDir       string
	templatesNoBuiltin bool
	templatesFormat    string
)

// downloadTimeout bounds a template archive download.
const downloadTimeout = 60 * time.Second

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage detection templates",
	Long:  "Commands for installing, updating and inspecting template files",
}

var templatesInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install templates from a git repository or zip archive",
	RunE:  runTemplatesInstall,
}

var templatesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update git-installed templates",
	RunE:  runTemplatesUpdate,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List readable template files",
	RunE:  runTemplatesList,
}

var templatesPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the templates a scan would use",
	Long:  "Compile the builtin and installed templates and display them after overrides, with their IDs and sources",
	RunE:  runTemplatesPatterns,
}

func init() {
	templatesCmd.AddCommand(templatesInstallCmd)
	templatesCmd.AddCommand(templatesUpdateCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesPatternsCmd)

	templatesInstallCmd.Flags().StringVar(&templatesOpts.From, "from", "", "Templates git repository, zip URL or local zip")
	templatesInstallCmd.Flags().StringVar(&templatesOpts.To, "to", templatesOpts.To, "Destination folder")
	templatesInstallCmd.Flags().BoolVar(&templatesOpts.Force, "force", false, "Replace a non-empty destination")
	_ = templatesInstallCmd.MarkFlagRequired("from")

	templatesUpdateCmd.Flags().StringVar(&templatesOpts.To, "to", templatesOpts.To, "Templates folder")

	for _, c := range []*cobra.Command{templatesListCmd, templatesPatternsCmd} {
		c.Flags().StringVarP(&templatesDir, "templates", "t", config.DefaultTemplatesDir(), "Templates folder")
	}
	templatesPatternsCmd.Flags().BoolVar(&templatesNoBuiltin, "no-builtin", false, "Do not include the builtin templates")
	templatesPatternsCmd.Flags().StringVar(&templatesFormat, "format", "table", "Output format: table, json")
}

func resolveTemplatesOpts(cmd *cobra.Command) (config.Templates, string, error) {
	opts := templatesOpts
	if err := config.Bind(cmd.Flags(), configFile, &opts); err != nil {
		return opts, "", err
	}
	if err := opts.Validate(); err != nil {
		return opts, "", err
	}
	dir, err := opts.Dir()
	if err != nil {
		return opts, "", err
	}
	return opts, dir, nil
}

func runTemplatesInstall(cmd *cobra.Command, args []string) error {
	opts, dir, err := resolveTemplatesOpts(cmd)
	if err != nil {
		return err
	}

	fc := fetch.DefaultConfig()
	fc.Timeout = downloadTimeout
	fc.UserAgent = userAgent()
	downloader, err := fetch.New(fc, logger)
	if err != nil {
		return fmt.Errorf("creating downloader: %w", err)
	}
	defer downloader.Close()

	res, err := template.NewInstaller(downloader, logger).Install(commandContext(cmd), opts.From, dir, opts.Force)
	if err != nil {
		return fmt.Errorf("installing templates: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installed %d template file(s) into %s (%s)\n", res.Files, res.Dir, res.Method)
	return nil
}

func runTemplatesUpdate(cmd *cobra.Command, args []string) error {
	_, dir, err := resolveTemplatesOpts(cmd)
	if err != nil {
		return err
	}

	res, err := template.NewInstaller(nil, logger).Update(commandContext(cmd), dir)
	if err != nil {
		return fmt.Errorf("updating templates: %w", err)
	}

	out := cmd.OutOrStdout()
	if res.UpToDate {
		fmt.Fprintf(out, "Templates in %s are up to date (%d file(s))\n", res.Dir, res.Files)
		return nil
	}
	fmt.Fprintf(out, "Updated templates in %s (%d file(s))\n", res.Dir, res.Files)
	return nil
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	files, err := template.List(templatesDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintf(out, "No template files in %s\n", templatesDir)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tFORMAT\tTEMPLATES\tSTATUS")
	for _, f := range files {
		status := "ok"
		if f.Err != nil {
			status = f.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Path, f.Format, f.Templates, status)
	}
	return w.Flush()
}

// patternEntry is the JSON shape of one listed template.
type patternEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Source      string   `json:"source"`
	Keywords    []string `json:"keywords,omitempty"`
	Description string   `json:"description,omitempty"`
}

func runTemplatesPatterns(cmd *cobra.Command, args []string) error {
	opts := template.LoadOptions{NoBuiltin: templatesNoBuiltin}
	if _, err := os.Stat(templatesDir); err == nil {
		opts.Paths = []string{templatesDir}
	}

	templates, err := template.NewLoader().Load(opts)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	set, err := patternset.Build(templates, patternset.DefaultOptions())
	if err != nil {
		return err
	}
	templates = set.Templates()

	out := cmd.OutOrStdout()
	switch templatesFormat {
	case "json":
		entries := make([]patternEntry, 0, len(templates))
		for _, t := range templates {
			entries = append(entries, patternEntry{
				ID:          t.RuleID(),
				Name:        t.Name,
				Source:      t.Source,
				Keywords:    t.Keywords,
				Description: t.Description,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "table":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSOURCE")
		for _, t := range templates {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.RuleID(), t.Name, t.Source)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nTotal: %d templates\n", len(templates))
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table or json)", templatesFormat)
	}
}
