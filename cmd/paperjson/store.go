// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meshintel/paperjson/internal/store"
	"github.com/meshintel/paperjson/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the converted-paper archive (ingest, search, list, get)",
	Long: `Store manages a local SQLite archive built from release JSON files.
Use subcommands to index converted papers, search their text, or read
them back.`,
}

// --- ingest subcommand ---

var storeIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index release JSON files into the archive",
	Long: `Ingest reads release JSON files from the output directory, ingests
them into a SQLite database with FTS5 paragraph indexing, and records
file modification times so unchanged papers are skipped on subsequent
runs.`,
	RunE: runStoreIngest,
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	outputDir, _ := cmd.Flags().GetString("output-dir")
	summary, err := s.Ingest(context.Background(), outputDir, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d paper(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var storeSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over archived paragraphs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStoreSearch,
}

func runStoreSearch(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	results, err := s.Search(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, r := range results {
		text := r.Text
		if len(text) > 120 {
			text = text[:117] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-20s  %-30s  %s\n", i+1, r.PaperID, r.Section, text)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- list subcommand ---

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived papers with span statistics",
	RunE:  runStoreList,
}

func runStoreList(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	papers, err := s.List(context.Background(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-6s  %-40s  %-4s  %5s  %5s  %5s  %5s\n",
		"ID", "Source", "Title", "Year", "Paras", "Cites", "Refs", "Eqs")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, p := range papers {
		title := p.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-6s  %-40s  %-4s  %5d  %5d  %5d  %5d\n",
			p.ID, p.Source, title, p.Year, p.Paragraphs, p.CiteSpans, p.RefSpans, p.EqSpans)
	}
	fmt.Fprintf(os.Stdout, "\n%d papers\n", len(papers))
	return nil
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the archive manifest to YAML or JSON",
	Long: `Export writes a manifest of all archived papers, with metadata and
span statistics, to export.yaml or export.json in the archive
directory.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	dir, _ := cmd.Flags().GetString("archive-dir")
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml", "":
		if err := s.ExportYAML(context.Background()); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/export.yaml\n", dir)
	case "json":
		if err := s.ExportJSON(context.Background()); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/export.json\n", dir)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	return nil
}

// --- get subcommand ---

var storeGetCmd = &cobra.Command{
	Use:   "get [paper-id]",
	Short: "Print an archived paper as release JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreGet,
}

func runStoreGet(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	paper, kind, err := s.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(paper.Release(kind))
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dir, _ := cmd.Flags().GetString("archive-dir")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return store.NewStore(types.StoreConfig{Dir: dir, MaxResults: maxResults})
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	storeCmd.PersistentFlags().String("archive-dir", "archive", "directory containing the archive database")
	storeCmd.PersistentFlags().Int("max-results", 20, "default maximum number of results")

	storeIngestCmd.Flags().String("output-dir", "output", "directory containing release JSON files")

	storeSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	storeSearchCmd.Flags().Bool("json", false, "output results as JSON")

	storeListCmd.Flags().Int("limit", 0, "maximum papers (0 = use default)")
	storeListCmd.Flags().Bool("json", false, "output listing as JSON")

	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	storeCmd.AddCommand(storeIngestCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeSearchCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeGetCmd)

	rootCmd.AddCommand(storeCmd)
}
