// Command pdxpatch is the reference CLI named in spec §6 — a thin front
// end over pkgs/orchestrator, wiring just enough of a directory Scanner/
// Writer and descriptor generation to drive a merge run over a real mod
// directory tree. It owns no merge logic of its own: everything past flag
// parsing and file I/O belongs to pkgs/orchestrator, pkgs/merger, and
// pkgs/validator.
//
// Grounded on cli/main.go's cobra command tree (flags bound to local vars,
// a single RunE, manual os.Exit after cleanup) and cmd/devcmd/main.go's
// exit-code convention (0 success, 1 failure).
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	charmlog "charm.land/log/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pdxpatch/mergecore/pkgs/orchestrator"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

var supportedGames = map[string]bool{
	"ck3": true, "eu4": true, "hoi4": true, "stellaris": true, "vic3": true,
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		modDirs       []string
		outputDir     string
		patchName     string
		autoDetect    bool
		game          string
		strategy      string
		listMods      bool
		listConflicts bool
		verbose       bool
	)

	logger := charmlog.New(os.Stderr)
	logger.SetLevel(charmlog.InfoLevel)

	rootCmd := &cobra.Command{
		Use:           "pdxpatch <base-dir>",
		Short:         "Generate a load-order compatibility patch for Paradox grand-strategy mods",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logger.SetLevel(charmlog.DebugLevel)
			}

			if autoDetect {
				// Game-install auto-detection is out of scope for this module
				// (spec.md §1) — accepted for flag parity, never acted on.
				logger.Warn("--auto-detect is not implemented; pass <base-dir> explicitly")
			}

			if game != "" && !supportedGames[game] {
				return fmt.Errorf("unsupported --game %q (want one of ck3, eu4, hoi4, stellaris, vic3)", game)
			}

			switch strategy {
			case "", "smart":
			case "priority", "base":
				logger.Warn("--strategy is deprecated; the structural merger (smart) is always used", "requested", strategy)
			default:
				return fmt.Errorf("unsupported --strategy %q (want smart, priority, or base)", strategy)
			}

			baseDir := args[0]
			modByName := map[string]string{}
			var modOrder []string
			for _, spec := range modDirs {
				name := modNameFromDir(spec)
				modByName[name] = spec
				modOrder = append(modOrder, name)
			}

			if listMods {
				for _, name := range modOrder {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, modByName[name])
				}
				return nil
			}

			scanner, err := newDirScanner(baseDir, modByName)
			if err != nil {
				return fmt.Errorf("scanning mods: %w", err)
			}
			paths, err := scanner.Paths()
			if err != nil {
				return fmt.Errorf("listing paths: %w", err)
			}

			if listConflicts {
				conflicts := orchestrator.DetectConflicts(paths, modOrder, scanner)
				for _, c := range conflicts {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (differs=%v)\n", c.Path, strings.Join(c.Mods, ", "), c.Differs)
				}
				return nil
			}

			var descriptors []orchestrator.ModDescriptor
			for _, name := range modOrder {
				descriptors = append(descriptors, readModDescriptor(name, modByName[name]))
			}
			if err := orchestrator.CheckModGraph(descriptors); err != nil {
				return err
			}

			if outputDir == "" {
				return fmt.Errorf("--output is required")
			}
			if patchName == "" {
				patchName = "Compatibility Patch"
			}
			writer := newDirWriter(outputDir)

			cfg := orchestrator.Config{
				ModOrder: modOrder,
				Progress: func(currentFile string, index, total int, status orchestrator.Status) {
					logger.Debug("processed file", "path", currentFile, "progress", fmt.Sprintf("%d/%d", index, total), "status", status)
				},
			}

			stats, err := orchestrator.Run(context.Background(), scanner, writer, cfg)
			if err != nil {
				return fmt.Errorf("patch run cancelled: %w", err)
			}

			if err := writeDescriptorFiles(outputDir, patchName, descriptorGameVersion(game)); err != nil {
				return fmt.Errorf("writing descriptor files: %w", err)
			}
			if err := os.WriteFile(filepath.Join(outputDir, "README.md"), []byte(orchestrator.WriteReadme(patchName, *stats, modOrder)), 0o644); err != nil {
				return fmt.Errorf("writing README: %w", err)
			}

			if verbose {
				out, _ := yaml.Marshal(stats)
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "merged=%d copied=%d skipped=%d failed=%d\n", stats.Merged, stats.Copied, stats.Skipped, stats.Failed)
			}

			if stats.Failed > 0 {
				return fmt.Errorf("%d file(s) failed to merge cleanly", stats.Failed)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringSliceVar(&modDirs, "mods", nil, "Mod directories, in ascending priority order")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "", "Output directory for the generated patch")
	rootCmd.PersistentFlags().StringVar(&patchName, "name", "", "Patch name, used in the descriptor and README")
	rootCmd.PersistentFlags().BoolVar(&autoDetect, "auto-detect", false, "Auto-detect the game install (not implemented)")
	rootCmd.PersistentFlags().StringVar(&game, "game", "", "Target game: ck3, eu4, hoi4, stellaris, or vic3")
	rootCmd.PersistentFlags().StringVar(&strategy, "strategy", "smart", "Merge strategy: smart (priority/base are deprecated aliases)")
	rootCmd.PersistentFlags().BoolVar(&listMods, "list-mods", false, "List the resolved mod names and exit")
	rootCmd.PersistentFlags().BoolVar(&listConflicts, "list-conflicts", false, "List files touched by more than one mod and exit")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging and a full YAML statistics summary")

	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		return exitFailure
	}
	return exitSuccess
}

// modNameFromDir derives a mod's display name from its directory path —
// the base name of the path, matching how the original GUI labels a mod
// by its folder when no richer descriptor metadata is requested.
func modNameFromDir(dir string) string {
	trimmed := strings.TrimRight(strings.ReplaceAll(dir, "\\", "/"), "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func descriptorGameVersion(game string) string {
	if game == "" {
		return "*"
	}
	return game + "-*"
}

func writeDescriptorFiles(outputDir, patchName, supportedVersion string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	descriptor := orchestrator.GenerateDescriptor(patchName, supportedVersion)
	if err := os.WriteFile(filepath.Join(outputDir, "descriptor.mod"), []byte(descriptor), 0o644); err != nil {
		return err
	}

	outputDirName := filepath.Base(outputDir)
	safeName := orchestrator.SafeModName(patchName)
	modFile := orchestrator.GenerateModFile(patchName, supportedVersion, outputDirName)
	return os.WriteFile(filepath.Join(filepath.Dir(outputDir), safeName+".mod"), []byte(modFile), 0o644)
}
