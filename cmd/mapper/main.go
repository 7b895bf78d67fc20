package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kjetilk/mapper/internal/img"
	"github.com/kjetilk/mapper/internal/model"
	"github.com/kjetilk/mapper/pkg/ocd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var log = logrus.New()

func main() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mapper",
	Short: "Inspect and convert version 8 binary map files",
	Long: `mapper is a tool for working with version 8 binary map files.

It can inspect file metadata, list symbol tables, validate structure,
check round-trip fidelity, and export the map content to JSON.`,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(ocd2jsonCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress import warnings")
}

// parseFile loads and parses a map file, logging the collected warnings.
func parseFile(cmd *cobra.Command, path string) (*model.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	m, warnings, err := ocd.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse map file: %w", err)
	}
	logWarnings(cmd, warnings)
	return m, nil
}

// parseSymbolTable loads only the color and symbol tables of a map file,
// skipping object loading in the importer.
func parseSymbolTable(cmd *cobra.Command, path string) (*model.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	m, warnings, err := ocd.ParseSymbols(data)
	if err != nil {
		return nil, fmt.Errorf("parse map file: %w", err)
	}
	logWarnings(cmd, warnings)
	return m, nil
}

func logWarnings(cmd *cobra.Command, warnings []string) {
	quiet, _ := cmd.Flags().GetBool("quiet")
	if quiet {
		return
	}
	for _, w := range warnings {
		log.Warn(w)
	}
}

// info command
var infoCmd = &cobra.Command{
	Use:   "info <input.ocd>",
	Short: "Display map file information",
	Long: `Display metadata and statistics about a map file.

Shows the scale, color table size, symbol and object counts, and the
referenced templates.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().Bool("json", false, "Output as JSON")
	infoCmd.Flags().Bool("brief", false, "Show only summary")
}

func runInfo(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")
	brief, _ := cmd.Flags().GetBool("brief")

	m, err := parseFile(cmd, inputPath)
	if err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infoJSON(inputPath, m))
	}

	if brief {
		fmt.Printf("%s: scale=1:%d colors=%d symbols=%d objects=%d templates=%d\n",
			inputPath, m.ScaleDenominator, len(m.Colors), len(m.Symbols), m.NumObjects(), len(m.Templates))
		return nil
	}

	fmt.Printf("Map File: %s\n", inputPath)
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()
	fmt.Printf("Scale:      1:%d\n", m.ScaleDenominator)
	fmt.Printf("Colors:     %d\n", len(m.Colors))
	fmt.Printf("Symbols:    %d\n", len(m.Symbols))
	fmt.Printf("Objects:    %d\n", m.NumObjects())
	fmt.Printf("Templates:  %d\n", len(m.Templates))
	if m.Notes != "" {
		fmt.Println()
		fmt.Println("Notes:")
		for _, line := range strings.Split(m.Notes, "\n") {
			fmt.Printf("  %s\n", line)
		}
	}
	if len(m.Templates) > 0 {
		fmt.Println()
		fmt.Println("Templates:")
		for _, tpl := range m.Templates {
			kind := img.Kind(tpl.Path)
			if kind == "" {
				kind = "unknown type"
			}
			fmt.Printf("  %s (%s)\n", tpl.Path, kind)
		}
	}
	return nil
}

func infoJSON(path string, m *model.Map) map[string]interface{} {
	templates := make([]map[string]interface{}, len(m.Templates))
	for i, tpl := range m.Templates {
		templates[i] = map[string]interface{}{
			"path":   tpl.Path,
			"kind":   img.Kind(tpl.Path),
			"raster": img.IsRaster(tpl.Path),
		}
	}
	return map[string]interface{}{
		"file":  path,
		"scale": m.ScaleDenominator,
		"notes": m.Notes,
		"counts": map[string]int{
			"colors":    len(m.Colors),
			"symbols":   len(m.Symbols),
			"objects":   m.NumObjects(),
			"templates": len(m.Templates),
		},
		"templates": templates,
	}
}

// ocd2json command
var ocd2jsonCmd = &cobra.Command{
	Use:   "ocd2json <input.ocd>",
	Short: "Export map content to JSON",
	Long: `Export the parsed map content to JSON.

The output contains the color table, the symbol table and per-layer
object summaries. It is meant for inspection and diffing, not as an
interchange format.`,
	Args: cobra.ExactArgs(1),
	RunE: runOcd2JSON,
}

func init() {
	ocd2jsonCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	ocd2jsonCmd.Flags().Bool("symbols-only", false, "Export only the color and symbol tables")
}

func runOcd2JSON(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	symbolsOnly, _ := cmd.Flags().GetBool("symbols-only")

	var m *model.Map
	var err error
	if symbolsOnly {
		m, err = parseSymbolTable(cmd, inputPath)
	} else {
		m, err = parseFile(cmd, inputPath)
	}
	if err != nil {
		return err
	}

	output := os.Stdout
	if outputPath != "" {
		output, err = os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer output.Close()
	}

	doc := map[string]interface{}{
		"scale":   m.ScaleDenominator,
		"colors":  colorsJSON(m),
		"symbols": symbolsJSON(m),
	}
	if !symbolsOnly {
		doc["layers"] = layersJSON(m)
		doc["templates"] = infoJSON(inputPath, m)["templates"]
		doc["notes"] = m.Notes
	}

	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func colorsJSON(m *model.Map) []map[string]interface{} {
	result := make([]map[string]interface{}, len(m.Colors))
	for i, c := range m.Colors {
		result[i] = map[string]interface{}{
			"priority": c.Priority,
			"name":     c.Name,
			"cmyk":     []float64{c.C, c.M, c.Y, c.K},
			"rgb":      fmt.Sprintf("#%02x%02x%02x", int(c.R*255+0.5), int(c.G*255+0.5), int(c.B*255+0.5)),
		}
	}
	return result
}

func symbolsJSON(m *model.Map) []map[string]interface{} {
	result := make([]map[string]interface{}, len(m.Symbols))
	for i, sym := range m.Symbols {
		common := sym.Common()
		entry := map[string]interface{}{
			"number": common.NumberString(),
			"name":   common.Name,
			"kind":   symbolKind(sym),
		}
		if common.Hidden {
			entry["hidden"] = true
		}
		if common.Protected {
			entry["protected"] = true
		}
		result[i] = entry
	}
	return result
}

func symbolKind(sym model.Symbol) string {
	switch sym.(type) {
	case *model.PointSymbol:
		return "point"
	case *model.LineSymbol:
		return "line"
	case *model.AreaSymbol:
		return "area"
	case *model.TextSymbol:
		return "text"
	case *model.CombinedSymbol:
		return "combined"
	default:
		return "unknown"
	}
}

func layersJSON(m *model.Map) []map[string]interface{} {
	result := make([]map[string]interface{}, len(m.Layers))
	for i, layer := range m.Layers {
		counts := map[string]int{}
		for _, obj := range layer.Objects {
			switch obj.(type) {
			case *model.PointObject:
				counts["point"]++
			case *model.PathObject:
				counts["path"]++
			case *model.TextObject:
				counts["text"]++
			}
		}
		result[i] = map[string]interface{}{
			"name":    layer.Name,
			"objects": len(layer.Objects),
			"counts":  counts,
		}
	}
	return result
}

// symbols command
var symbolsCmd = &cobra.Command{
	Use:   "symbols <input.ocd>",
	Short: "List the symbol table",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbols,
}

func runSymbols(cmd *cobra.Command, args []string) error {
	m, err := parseSymbolTable(cmd, args[0])
	if err != nil {
		return err
	}
	for _, sym := range m.Symbols {
		common := sym.Common()
		flags := ""
		if common.Hidden {
			flags += " [hidden]"
		}
		if common.Protected {
			flags += " [protected]"
		}
		fmt.Printf("%-10s %-8s %s%s\n", common.NumberString(), symbolKind(sym), common.Name, flags)
	}
	return nil
}

// validate command
var validateCmd = &cobra.Command{
	Use:   "validate <input.ocd>",
	Short: "Validate map file structure",
	Long: `Validate a map file.

Parses the file, reports every recoverable problem found, and checks
that the parsed map can be written back. With --strict any warning
fails the validation.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("strict", false, "Fail on warnings")
}

func runValidate(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	strict, _ := cmd.Flags().GetBool("strict")

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}
	m, parseWarnings, err := ocd.Parse(data)
	if err != nil {
		return fmt.Errorf("parse map file: %w", err)
	}
	_, writeWarnings, err := ocd.Write(m)
	if err != nil {
		return fmt.Errorf("map cannot be written back: %w", err)
	}

	warnings := append(parseWarnings, writeWarnings...)
	fmt.Printf("Validating: %s\n", inputPath)
	fmt.Println(strings.Repeat("=", 50))
	if len(warnings) == 0 {
		fmt.Println("Valid map file - no issues found")
		return nil
	}
	fmt.Printf("\nWarnings (%d):\n", len(warnings))
	for _, w := range warnings {
		fmt.Printf("  - %s\n", w)
	}
	if strict {
		return fmt.Errorf("validation failed: %d warning(s)", len(warnings))
	}
	fmt.Printf("\nValidation passed with %d warning(s)\n", len(warnings))
	fmt.Println("(use --strict to fail on warnings)")
	return nil
}

// version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mapper version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
	},
}
