package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiraworks/borang/internal/pdf"
)

var (
	outputFormat = flag.String("format", "text", "Output format: text, json")
	verbose      = flag.Bool("verbose", false, "Enable verbose output")
	help         = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	pdfPath := flag.Arg(0)
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", pdfPath)
		os.Exit(1)
	}

	result, err := dumpFields(pdfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error inspecting fields: %v\n", err)
		os.Exit(1)
	}

	if err := outputResults(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("PDF Form Dump - inspect the fillable fields of a PDF form template")
	fmt.Println()
	fmt.Println("Lists every AcroForm field with its kind, max length, options, widget")
	fmt.Println("position and a best-effort printed-label hint. Useful for checking a")
	fmt.Println("template before registering it, and for building field mappings by hand.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -format        Output format: text (default), json")
	fmt.Println("  -verbose       Enable verbose output")
	fmt.Println("  -help          Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  pdf-form-dump borang-pinjaman.pdf")
	fmt.Println("  pdf-form-dump -format json templates/pinjaman-peribadi.pdf")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  pdf-form-dump [OPTIONS] <pdf_file>")
}

// DumpResult represents the complete result of a field dump
type DumpResult struct {
	FilePath   string         `json:"file_path"`
	Success    bool           `json:"success"`
	FieldCount int            `json:"field_count"`
	Fields     []pdf.RawField `json:"fields"`
	Error      string         `json:"error,omitempty"`
}

func dumpFields(pdfPath string) (*DumpResult, error) {
	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	result := &DumpResult{
		FilePath: absPath,
		Success:  false,
	}

	if *verbose {
		fmt.Printf("Analyzing PDF: %s\n\n", absPath)
	}

	inspector := pdf.NewInspector(nil)
	fields, err := inspector.ListFields(absPath)
	if err != nil {
		result.Error = err.Error()
		return result, nil // Don't fail, return error in result
	}

	result.Success = true
	result.FieldCount = len(fields)
	result.Fields = fields

	return result, nil
}

func outputResults(result *DumpResult) error {
	switch *outputFormat {
	case "json":
		return outputJSON(result)
	case "text":
		return outputText(result)
	default:
		return fmt.Errorf("unsupported output format: %s", *outputFormat)
	}
}

func outputJSON(result *DumpResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputText(result *DumpResult) error {
	if !result.Success {
		fmt.Printf("Field inspection failed: %s\n", result.Error)
		return nil
	}

	if result.FieldCount == 0 {
		fmt.Println("No fillable fields detected in the PDF")
		fmt.Println()
		fmt.Println("The document may be a flat scan, or its fields may use XFA,")
		fmt.Println("which this tool does not read. Check the file in a PDF viewer.")
		return nil
	}

	fmt.Printf("Found %d fillable field(s)\n\n", result.FieldCount)

	for i, field := range result.Fields {
		fmt.Printf("[%d] %s\n", i+1, field.Name)
		fmt.Printf("    Kind: %s\n", field.Kind)

		if field.MaxLen > 0 {
			fmt.Printf("    Max Length: %d\n", field.MaxLen)
		}

		if len(field.Options) > 0 {
			fmt.Printf("    Options: %s\n", strings.Join(field.Options, ", "))
		}

		if field.Geometry != nil {
			fmt.Printf("    Page: %d\n", field.Geometry.Page)
			fmt.Printf("    Position: (%.1f, %.1f), %g x %g\n",
				field.Geometry.X, field.Geometry.Y,
				field.Geometry.Width, field.Geometry.Height)
		}

		if field.Label != "" {
			fmt.Printf("    Label hint: %s\n", field.Label)
		}

		fmt.Println()
	}

	return nil
}

func init() {
	flag.Usage = func() {
		printHelp()
	}
}
