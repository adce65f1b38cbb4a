// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meshintel/paperjson/internal/convert"
	"github.com/meshintel/paperjson/internal/grobid"
	"github.com/meshintel/paperjson/internal/latex"
	"github.com/meshintel/paperjson/internal/secrets"
	"github.com/meshintel/paperjson/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert parsed papers into release JSON",
	Long: `Convert transforms source documents into normalized paper JSON files
under the output directory. Each source format has its own subcommand;
papers whose output is newer than the source are skipped.`,
}

var convertPDFCmd = &cobra.Command{
	Use:   "pdf [files...]",
	Short: "Convert PDF files via a GROBID service",
	Long: `PDF conversion sends each file to a GROBID service for fulltext
analysis, then converts the resulting TEI XML. Use --keep-temp to retain
the intermediate TEI files under the temp directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := convertConfig(cmd)
		c := &convert.PDFConverter{
			Client: grobid.New(grobidConfig(cmd)),
			Cfg:    cfg,
		}
		return runBatch(cmd, c, args, cfg)
	},
}

var convertTEICmd = &cobra.Command{
	Use:   "tei [files...]",
	Short: "Convert GROBID TEI XML files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := convertConfig(cmd)
		return runBatch(cmd, convert.TEIConverter{}, args, cfg)
	},
}

var convertLatexCmd = &cobra.Command{
	Use:   "latex [files...]",
	Short: "Convert LaTeX XML files",
	Long: `LaTeX conversion reads XML produced by the arXiv LaTeXML pipeline.
Bibliography entries are parsed through the GROBID citation service, so
a reachable GROBID instance is required.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := convertConfig(cmd)
		c := &convert.LatexConverter{
			Parser: &latex.GrobidParser{Client: grobid.New(grobidConfig(cmd))},
		}
		return runBatch(cmd, c, args, cfg)
	},
}

var convertJATSCmd = &cobra.Command{
	Use:   "jats [files...]",
	Short: "Convert JATS XML files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := convertConfig(cmd)
		return runBatch(cmd, convert.JATSConverter{}, args, cfg)
	},
}

func runBatch(cmd *cobra.Command, c convert.PaperConverter, paths []string, cfg types.ConvertConfig) error {
	result := convert.ConvertBatch(context.Background(), c, paths, cfg, cmd.OutOrStdout())
	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed conversion, see %s",
			result.Failed, filepath.Join(cfg.LogDir, "failed.log"))
	}
	return nil
}

func convertConfig(cmd *cobra.Command) types.ConvertConfig {
	cfg := types.DefaultConvertConfig()
	if v, _ := cmd.Flags().GetString("temp-dir"); v != "" {
		cfg.TempDir = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetString("log-dir"); v != "" {
		cfg.LogDir = v
	}
	cfg.KeepTemp, _ = cmd.Flags().GetBool("keep-temp")
	return cfg
}

func grobidConfig(cmd *cobra.Command) types.GrobidConfig {
	cfg := types.DefaultGrobidConfig()
	if v, _ := cmd.Flags().GetString("grobid-server"); v != "" {
		cfg.Server = v
	}
	if v, _ := cmd.Flags().GetString("grobid-port"); v != "" {
		cfg.Port = v
	}
	apiKey, _ := cmd.Flags().GetString("grobid-api-key")
	cfg.APIKey = secretDefault(secrets.GrobidAPIKey, apiKey)
	return cfg
}

func init() {
	convertCmd.PersistentFlags().String("temp-dir", "temp", "directory for intermediate TEI files")
	convertCmd.PersistentFlags().String("output-dir", "output", "directory for release JSON files")
	convertCmd.PersistentFlags().String("log-dir", "log", "directory for the failure log")
	convertCmd.PersistentFlags().Bool("keep-temp", false, "retain intermediate files after conversion")
	convertCmd.PersistentFlags().String("grobid-server", "", "GROBID host (default localhost)")
	convertCmd.PersistentFlags().String("grobid-port", "", "GROBID port (default 8070)")
	convertCmd.PersistentFlags().String("grobid-api-key", "", "GROBID API key (default: .secrets/grobid-api-key)")

	convertCmd.AddCommand(convertPDFCmd)
	convertCmd.AddCommand(convertTEICmd)
	convertCmd.AddCommand(convertLatexCmd)
	convertCmd.AddCommand(convertJATSCmd)

	rootCmd.AddCommand(convertCmd)
}
