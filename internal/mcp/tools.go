// Package mcp exposes the plugin tooling as MCP (Model Context Protocol) tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/pluginkit/internal/domain/manifest"
	"github.com/felixgeelhaar/pluginkit/internal/domain/pipeline"
	"github.com/felixgeelhaar/pluginkit/internal/domain/plugin"
	"github.com/felixgeelhaar/pluginkit/internal/domain/scaffold"
	"github.com/felixgeelhaar/pluginkit/internal/domain/signing"
)

// ErrNoTrustedKeys is returned by pluginkit_verify when no trusted keys are
// configured.
var ErrNoTrustedKeys = errors.New("no trusted keys configured (set signing.trusted_keys)")

// Toolkit holds the services the tools call into.
type Toolkit struct {
	// PluginsRoot is the directory plugin names resolve against.
	PluginsRoot string
	// OutputDir is the directory archive names resolve against.
	OutputDir   string
	Pipeline    *pipeline.Pipeline
	Generator   *scaffold.Generator
	TrustedKeys string
	Version     VersionInfo
}

// VersionInfo contains version metadata for the MCP server.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// ValidateInput is the input for the pluginkit_validate tool.
type ValidateInput struct {
	Plugin string `json:"plugin" jsonschema:"required,description=Plugin directory name under the plugins root"`
}

// ValidateOutput is the output for the pluginkit_validate tool.
type ValidateOutput struct {
	Plugin string       `json:"plugin"`
	Valid  bool         `json:"valid"`
	Files  []FileResult `json:"files"`
}

// FileResult is the validation result of one manifest.
type FileResult struct {
	Path   string   `json:"path"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ListInput is the input for the pluginkit_list tool.
type ListInput struct{}

// ListOutput is the output for the pluginkit_list tool.
type ListOutput struct {
	Root    string          `json:"root"`
	Plugins []PluginSummary `json:"plugins"`
	Errors  []string        `json:"errors,omitempty"`
}

// PluginSummary describes one discovered plugin.
type PluginSummary struct {
	Name       string   `json:"name"`
	ID         string   `json:"id"`
	Version    string   `json:"version,omitempty"`
	Admin      bool     `json:"admin"`
	API        bool     `json:"api"`
	Consistent bool     `json:"consistent"`
	Issues     []string `json:"issues,omitempty"`
}

// PackageInput is the input for the pluginkit_package tool.
type PackageInput struct {
	Plugin         string `json:"plugin" jsonschema:"required,description=Plugin directory name under the plugins root"`
	Mode           string `json:"mode,omitempty" jsonschema:"description=dev or prod (default: dev)"`
	SkipTypeCheck  bool   `json:"skip_type_check,omitempty" jsonschema:"description=Fall back to transpile-only compilation when type checking fails"`
	SkipValidation bool   `json:"skip_validation,omitempty" jsonschema:"description=Package without validating manifests"`
}

// PackageOutput is the output for the pluginkit_package tool.
type PackageOutput struct {
	Archive     string   `json:"archive"`
	Mode        string   `json:"mode"`
	Transitions []string `json:"transitions"`
}

// ScaffoldInput is the input for the pluginkit_scaffold tool.
type ScaffoldInput struct {
	Name  string `json:"name" jsonschema:"required,description=Plugin name (letters, numbers, spaces, hyphens, underscores)"`
	Admin bool   `json:"admin,omitempty" jsonschema:"description=Generate the admin module"`
	API   bool   `json:"api,omitempty" jsonschema:"description=Generate the api module"`
}

// ScaffoldOutput is the output for the pluginkit_scaffold tool.
type ScaffoldOutput struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// VerifyInput is the input for the pluginkit_verify tool.
type VerifyInput struct {
	Archive string `json:"archive" jsonschema:"required,description=Archive file name in the output directory"`
}

// VerifyOutput is the output for the pluginkit_verify tool.
type VerifyOutput struct {
	Archive     string `json:"archive"`
	Digest      string `json:"sha256"`
	Fingerprint string `json:"fingerprint"`
	SignedAt    string `json:"signed_at"`
}

// StatusInput is the input for the pluginkit_status tool.
type StatusInput struct{}

// StatusOutput is the output for the pluginkit_status tool.
type StatusOutput struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildDate   string `json:"build_date"`
	PluginsRoot string `json:"plugins_root"`
	OutputDir   string `json:"output_dir"`
	Verify      bool   `json:"verify_enabled"`
}

// RegisterAll registers every pluginkit tool on srv.
func RegisterAll(srv *mcp.Server, tk *Toolkit) {
	registerValidateTool(srv, tk)
	registerListTool(srv, tk)
	registerPackageTool(srv, tk)
	registerScaffoldTool(srv, tk)
	registerVerifyTool(srv, tk)
	registerStatusTool(srv, tk)
}

func (tk *Toolkit) pluginDir(name string) string {
	return filepath.Join(tk.PluginsRoot, name)
}

func registerValidateTool(srv *mcp.Server, tk *Toolkit) {
	srv.Tool("pluginkit_validate").
		Description("Validate a plugin's manifests and extension points. Returns every error per manifest file.").
		ReadOnly().
		Handler(func(ctx context.Context, in ValidateInput) (*ValidateOutput, error) {
			if err := ValidateValidateInput(&in); err != nil {
				return nil, err
			}

			dir := tk.pluginDir(in.Plugin)
			if _, err := plugin.Probe(dir); err != nil {
				return nil, err
			}
			report, err := manifest.ValidatePlugin(ctx, dir)
			if err != nil {
				return nil, err
			}

			output := &ValidateOutput{
				Plugin: in.Plugin,
				Valid:  report.Valid(),
				Files:  make([]FileResult, 0, len(report.Files)),
			}
			for _, f := range report.Files {
				output.Files = append(output.Files, FileResult{
					Path:   f.Path,
					Valid:  f.Result.Valid,
					Errors: f.Result.Errors,
				})
			}
			return output, nil
		})
}

func registerListTool(srv *mcp.Server, tk *Toolkit) {
	srv.Tool("pluginkit_list").
		Description("List plugins under the plugins root with their ids, versions and manifest consistency.").
		ReadOnly().
		Handler(func(ctx context.Context, _ ListInput) (*ListOutput, error) {
			result, err := plugin.NewLoader(tk.PluginsRoot).Discover(ctx)
			if err != nil {
				return nil, err
			}

			output := &ListOutput{
				Root:    tk.PluginsRoot,
				Plugins: make([]PluginSummary, 0, len(result.Plugins)),
			}
			for _, s := range result.Plugins {
				output.Plugins = append(output.Plugins, PluginSummary{
					Name:       s.Info.Name,
					ID:         s.ID,
					Version:    s.Version,
					Admin:      s.Info.HasAdmin,
					API:        s.Info.HasAPI,
					Consistent: s.Consistent(),
					Issues:     s.Issues,
				})
			}
			for _, e := range result.Errors {
				output.Errors = append(output.Errors, e.Error())
			}
			return output, nil
		})
}

func registerPackageTool(srv *mcp.Server, tk *Toolkit) {
	srv.Tool("pluginkit_package").
		Description("Validate and package a plugin into a zip archive. Production mode compiles a staged copy; the plugin directory is left untouched.").
		Handler(func(ctx context.Context, in PackageInput) (*PackageOutput, error) {
			mode, err := ValidatePackageInput(&in)
			if err != nil {
				return nil, err
			}

			result, err := tk.Pipeline.Run(ctx, tk.pluginDir(in.Plugin), pipeline.Request{
				Mode:           mode,
				SkipTypeCheck:  in.SkipTypeCheck,
				SkipValidation: in.SkipValidation,
			})
			if err != nil {
				return nil, describeFailure(err)
			}

			output := &PackageOutput{
				Archive:     result.Archive,
				Mode:        mode.String(),
				Transitions: make([]string, 0, len(result.Transitions)),
			}
			for _, s := range result.Transitions {
				output.Transitions = append(output.Transitions, string(s))
			}
			return output, nil
		})
}

// describeFailure lists manifest errors on validation failures so the client
// sees every message.
func describeFailure(err error) error {
	var ve *manifest.ValidationError
	if errors.As(err, &ve) {
		return fmt.Errorf("%w\n- %s", err, strings.Join(ve.Errors, "\n- "))
	}
	return err
}

func registerScaffoldTool(srv *mcp.Server, tk *Toolkit) {
	srv.Tool("pluginkit_scaffold").
		Description("Create a new plugin skeleton under the plugins root. Omit admin and api to generate both modules.").
		Handler(func(ctx context.Context, in ScaffoldInput) (*ScaffoldOutput, error) {
			if err := ValidateScaffoldInput(&in); err != nil {
				return nil, err
			}

			modules := scaffold.Modules{Admin: in.Admin, API: in.API}
			if !modules.Any() {
				modules = scaffold.Modules{Admin: true, API: true}
			}

			result, err := tk.Generator.CreatePlugin(ctx, in.Name, tk.PluginsRoot, modules)
			if err != nil {
				return nil, err
			}
			return &ScaffoldOutput{Dir: result.Dir, Files: result.Files}, nil
		})
}

func registerVerifyTool(srv *mcp.Server, tk *Toolkit) {
	srv.Tool("pluginkit_verify").
		Description("Verify the detached signature of an archive against the configured trusted keys.").
		ReadOnly().
		Handler(func(_ context.Context, in VerifyInput) (*VerifyOutput, error) {
			if err := ValidateVerifyInput(&in); err != nil {
				return nil, err
			}
			if tk.TrustedKeys == "" {
				return nil, ErrNoTrustedKeys
			}

			trusted, err := signing.LoadTrustedKeys(tk.TrustedKeys)
			if err != nil {
				return nil, err
			}

			path := filepath.Join(tk.OutputDir, in.Archive)
			sig, err := signing.Verify(path, signing.SignaturePath(path), trusted)
			if err != nil {
				return nil, err
			}
			return &VerifyOutput{
				Archive:     in.Archive,
				Digest:      sig.Digest,
				Fingerprint: sig.Fingerprint,
				SignedAt:    sig.SignedAt.Format(time.RFC3339),
			}, nil
		})
}

func registerStatusTool(srv *mcp.Server, tk *Toolkit) {
	srv.Tool("pluginkit_status").
		Description("Show pluginkit version and the directories the other tools operate on.").
		ReadOnly().
		Handler(func(_ context.Context, _ StatusInput) (*StatusOutput, error) {
			return &StatusOutput{
				Version:     tk.Version.Version,
				Commit:      tk.Version.Commit,
				BuildDate:   tk.Version.BuildDate,
				PluginsRoot: tk.PluginsRoot,
				OutputDir:   tk.OutputDir,
				Verify:      tk.TrustedKeys != "",
			}, nil
		})
}
