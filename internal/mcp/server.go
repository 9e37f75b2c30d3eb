package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kiraworks/borang/internal/catalog"
	"github.com/kiraworks/borang/internal/config"
	"github.com/kiraworks/borang/internal/fill"
	"github.com/kiraworks/borang/internal/pdf"
	"github.com/kiraworks/borang/internal/registry"
	"github.com/kiraworks/borang/internal/suggest"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	registry   *registry.Registry
	inspector  *pdf.Inspector
	fillSvc    *fill.Service
	suggestSvc *suggest.Service
	log        *zap.Logger
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance. suggestSvc may be nil when no
// suggestion API key is configured; the suggest tool then reports that.
func NewServer(
	cfg *config.Config,
	reg *registry.Registry,
	inspector *pdf.Inspector,
	fillSvc *fill.Service,
	suggestSvc *suggest.Service,
	logger *zap.Logger,
) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if fillSvc == nil {
		return nil, fmt.Errorf("fill service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		registry:   reg,
		inspector:  inspector,
		fillSvc:    fillSvc,
		suggestSvc: suggestSvc,
		log:        logger,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	templateListTool := mcp.NewTool(
		"template_list",
		mcp.WithDescription("List registered form templates with their mapping status"),
	)
	s.mcpServer.AddTool(templateListTool, s.handleTemplateList)

	templateAddTool := mcp.NewTool(
		"template_add",
		mcp.WithDescription("Register a PDF form template; key and label derive from the filename unless given"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file to register"),
		),
		mcp.WithString("key",
			mcp.Description("Optional product key; derived from the filename if empty"),
		),
		mcp.WithString("label",
			mcp.Description("Optional display label; derived from the filename if empty"),
		),
	)
	s.mcpServer.AddTool(templateAddTool, s.handleTemplateAdd)

	templateDeleteTool := mcp.NewTool(
		"template_delete",
		mcp.WithDescription("Remove a registered template and its stored PDF"),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Product key of the template to remove"),
		),
	)
	s.mcpServer.AddTool(templateDeleteTool, s.handleTemplateDelete)

	templateFieldsTool := mcp.NewTool(
		"template_fields",
		mcp.WithDescription("Introspect a template's fillable fields with positions, label hints and current mappings"),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Product key of the template"),
		),
	)
	s.mcpServer.AddTool(templateFieldsTool, s.handleTemplateFields)

	templateSaveMapTool := mcp.NewTool(
		"template_save_map",
		mcp.WithDescription("Replace a template's field mapping (raw field name to semantic key); unknown keys are dropped"),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Product key of the template"),
		),
		mcp.WithString("mapping",
			mcp.Required(),
			mcp.Description(`JSON object of raw field name to semantic key, e.g. {"Text1":"pemohon_nama"}`),
		),
	)
	s.mcpServer.AddTool(templateSaveMapTool, s.handleTemplateSaveMap)

	templateSuggestMapTool := mcp.NewTool(
		"template_suggest_map",
		mcp.WithDescription("Suggest a field mapping from page images of the form using a vision model"),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Product key of the template"),
		),
		mcp.WithString("images",
			mcp.Required(),
			mcp.Description("Comma-separated paths to page images (JPEG or PNG), in page order"),
		),
	)
	s.mcpServer.AddTool(templateSuggestMapTool, s.handleTemplateSuggestMap)

	formFillTool := mcp.NewTool(
		"form_fill",
		mcp.WithDescription("Generate a filled PDF for a template from an applicant data bundle"),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Product key of the template"),
		),
		mcp.WithString("bundle",
			mcp.Required(),
			mcp.Description("JSON bundle with applicant_data, spouse_data, job_data and reference_data sections"),
		),
		mcp.WithBoolean("flatten",
			mcp.Description("Lock all form fields so the output is no longer editable"),
		),
		mcp.WithString("output",
			mcp.Description("Directory to write the generated PDF into (defaults to the current directory)"),
		),
	)
	s.mcpServer.AddTool(formFillTool, s.handleFormFill)

	serverInfoTool := mcp.NewTool(
		"server_info",
		mcp.WithDescription("Get server information, available tools and the semantic field catalog"),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleTemplateList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := s.registry.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(templates) == 0 {
		return mcp.NewToolResultText("No templates registered yet. Use 'template_add' to register one."), nil
	}

	text := fmt.Sprintf("Registered templates (%d):\n\n", len(templates))
	for i, tmpl := range templates {
		status := "not mapped"
		if n := len(tmpl.FieldMap); n > 0 {
			status = fmt.Sprintf("%d field(s) mapped", n)
		}
		text += fmt.Sprintf("%d. %s\n", i+1, tmpl.Key)
		text += fmt.Sprintf("   Label: %s\n", tmpl.Label)
		text += fmt.Sprintf("   File: %s\n", tmpl.File)
		text += fmt.Sprintf("   Mapping: %s\n", status)
		if i < len(templates)-1 {
			text += "\n"
		}
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTemplateAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	info, err := os.Stat(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot access %s: %v", path, err)), nil
	}
	if info.Size() > s.config.MaxFileSize {
		return mcp.NewToolResultError(fmt.Sprintf("file exceeds maximum size of %d bytes", s.config.MaxFileSize)), nil
	}

	key, label := registry.Slugify(filepath.Base(path))
	if k, ok := args["key"].(string); ok && k != "" {
		key = k
	}
	if l, ok := args["label"].(string); ok && l != "" {
		label = l
	}

	// The template must introspect cleanly before it is registered.
	fields, err := s.inspector.ListFields(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not a usable PDF form: %v", err)), nil
	}

	file := key + ".pdf"
	if err := s.registry.Create(key, label, file); err != nil {
		if !errors.Is(err, registry.ErrDuplicateKey) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		key = fmt.Sprintf("%s-%d", key, time.Now().Unix())
		file = key + ".pdf"
		if err := s.registry.Create(key, label, file); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	if err := copyFile(path, filepath.Join(s.registry.Dir(), file)); err != nil {
		// Roll the descriptor back so the registry never points at a
		// binary that was not stored.
		_ = s.registry.Delete(key)
		return mcp.NewToolResultError(fmt.Sprintf("store template: %v", err)), nil
	}

	s.log.Info("template registered",
		zap.String("key", key),
		zap.String("source", path),
		zap.Int("fields", len(fields)))

	text := fmt.Sprintf("Registered template '%s'\n", key)
	text += fmt.Sprintf("Label: %s\n", label)
	text += fmt.Sprintf("Stored as: %s\n", file)
	text += fmt.Sprintf("Fillable fields: %d\n", len(fields))
	text += "\nNext: map its fields with 'template_suggest_map' or 'template_save_map'."

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTemplateDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.registry.Delete(key); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Deleted template '%s'", key)), nil
}

func (s *Server) handleTemplateFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tmpl, err := s.registry.Get(key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields, err := s.inspector.ListFields(s.registry.TemplatePath(tmpl))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatTemplateFields(tmpl, fields)), nil
}

func (s *Server) handleTemplateSaveMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := request.RequireString("mapping")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var mapping map[string]string
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("mapping is not a JSON object of strings: %v", err)), nil
	}

	kept, err := s.registry.SaveFieldMap(key, mapping)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Saved mapping for '%s': %d field(s)", key, kept)
	if dropped := len(mapping) - kept; dropped > 0 {
		text += fmt.Sprintf(" (%d entry(ies) dropped: unknown semantic keys)", dropped)
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTemplateSuggestMap(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	if s.suggestSvc == nil {
		return mcp.NewToolResultError("mapping suggestions are disabled: set BORANG_SUGGEST_API_KEY"), nil
	}

	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	imagesArg, err := request.RequireString("images")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tmpl, err := s.registry.Get(key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields, err := s.inspector.ListFields(s.registry.TemplatePath(tmpl))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	regions, err := buildRegions(imagesArg, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.suggestSvc.Suggest(regions)

	text := fmt.Sprintf("Analyzed %d/%d page(s) for '%s'\n", result.RegionsOK, result.RegionsTotal, key)
	if len(result.FieldMapping) == 0 {
		text += "\nNo confident suggestions. Map the fields manually with 'template_save_map'."
		return mcp.NewToolResultText(text), nil
	}

	encoded, err := json.MarshalIndent(result.FieldMapping, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text += fmt.Sprintf("\nSuggested mapping (%d field(s)):\n%s\n", len(result.FieldMapping), encoded)
	text += "\nReview it, then persist with 'template_save_map'."

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleFormFill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawBundle, err := request.RequireString("bundle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	var bundle fill.Bundle
	if err := json.Unmarshal([]byte(rawBundle), &bundle); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid bundle JSON: %v", err)), nil
	}

	flatten := false
	if f, ok := args["flatten"].(bool); ok {
		flatten = f
	}

	outputDir := "."
	if dir, ok := args["output"].(string); ok && dir != "" {
		outputDir = dir
	}

	result, err := s.fillSvc.Fill(fill.Request{
		TemplateKey: key,
		Bundle:      bundle,
		Flatten:     flatten,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	outPath := filepath.Join(outputDir, result.Filename)
	if err := os.WriteFile(outPath, result.Bytes, 0o600); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("write output: %v", err)), nil
	}

	text := fmt.Sprintf("Generated %s\n", outPath)
	text += fmt.Sprintf("Fields filled: %d\n", result.Fills)
	text += fmt.Sprintf("Flattened: %t\n", flatten)
	if len(result.Warnings) > 0 {
		text += fmt.Sprintf("\nWarnings (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			text += fmt.Sprintf("  - %s\n", w)
		}
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := s.registry.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Templates directory: %s\n", s.registry.Dir())
	text += fmt.Sprintf("Registered templates: %d\n", len(templates))
	text += fmt.Sprintf("Max template size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	if s.suggestSvc != nil {
		text += fmt.Sprintf("Mapping suggestions: enabled (%s)\n", s.config.SuggestModel)
	} else {
		text += "Mapping suggestions: disabled (no API key)\n"
	}

	text += "\nAvailable Tools:\n"
	text += "\n• template_list\n  List registered templates and their mapping status\n"
	text += "\n• template_add\n  Register a PDF form template from a file path\n"
	text += "\n• template_delete\n  Remove a template and its stored PDF\n"
	text += "\n• template_fields\n  Introspect a template's fillable fields\n"
	text += "\n• template_save_map\n  Replace a template's field mapping\n"
	text += "\n• template_suggest_map\n  Suggest a mapping from page images via a vision model\n"
	text += "\n• form_fill\n  Generate a filled PDF from an applicant data bundle\n"
	text += "\n• server_info\n  This information\n"

	text += fmt.Sprintf("\nSemantic field catalog (%d keys):\n", len(catalog.Standard))
	for _, key := range catalog.Keys() {
		text += fmt.Sprintf("  %s - %s\n", key, catalog.Standard[key].Label)
	}

	return mcp.NewToolResultText(text), nil
}

// Formatting methods
func (s *Server) formatTemplateFields(tmpl *registry.Template, fields []pdf.RawField) string {
	text := fmt.Sprintf("Fields of template '%s' (%d):\n\n", tmpl.Key, len(fields))

	for i, field := range fields {
		text += fmt.Sprintf("%d. %s (%s)\n", i+1, field.Name, field.Kind)
		if field.Geometry != nil {
			text += fmt.Sprintf("   Page %d at (%.0f, %.0f), %gx%g\n",
				field.Geometry.Page, field.Geometry.X, field.Geometry.Y,
				field.Geometry.Width, field.Geometry.Height)
		}
		if field.MaxLen > 0 {
			text += fmt.Sprintf("   Max length: %d\n", field.MaxLen)
		}
		if len(field.Options) > 0 {
			text += fmt.Sprintf("   Options: %s\n", strings.Join(field.Options, ", "))
		}
		if field.Label != "" {
			text += fmt.Sprintf("   Label hint: %s\n", field.Label)
		}
		if key, ok := tmpl.FieldMap[field.Name]; ok {
			text += fmt.Sprintf("   Mapped to: %s\n", key)
		} else {
			text += "   Mapped to: (unmapped)\n"
		}
		if i < len(fields)-1 {
			text += "\n"
		}
	}

	if len(tmpl.FieldMap) == 0 {
		text += "\nNo mapping configured yet; 'form_fill' will refuse this template."
	}

	return text
}

// buildRegions pairs page images with the fields on the corresponding page.
// Image i (1-based) covers page i; pages without an image are skipped.
func buildRegions(imagesArg string, fields []pdf.RawField) ([]suggest.Region, error) {
	var paths []string
	for _, p := range strings.Split(imagesArg, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, errors.New("no image paths given")
	}

	byPage := make(map[int][]suggest.FieldRef)
	for _, field := range fields {
		if field.Geometry == nil {
			continue
		}
		byPage[field.Geometry.Page] = append(byPage[field.Geometry.Page], suggest.FieldRef{
			Name:   field.Name,
			X:      field.Geometry.X,
			Y:      field.Geometry.Y,
			Width:  field.Geometry.Width,
			Height: field.Geometry.Height,
		})
	}

	regions := make([]suggest.Region, 0, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", path, err)
		}
		refs := byPage[i+1]
		sort.Slice(refs, func(a, b int) bool { return refs[a].Name < refs[b].Name })
		regions = append(regions, suggest.Region{
			Image:    data,
			MIMEType: imageMIMEType(path),
			Fields:   refs,
		})
	}
	return regions, nil
}

func imageMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting form engine MCP server in stdio mode")
		log.Printf("Templates directory: %s", s.registry.Dir())
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// The mark3labs transport only speaks stdio for now.
	log.Printf("Server mode not yet implemented with mark3labs/mcp-go")
	log.Printf("Falling back to stdio mode")
	return s.runStdioMode(ctx)
}
