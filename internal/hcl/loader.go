package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/fsutil"
	"github.com/specialistvlad/cellgrid/internal/hclutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	evalCtx *hcl.EvalContext
}

// NewLoader creates a new HCL definition loader. evalCtx provides the
// functions available to static values such as refs and inputs; it may be
// nil.
func NewLoader(evalCtx *hcl.EvalContext) *Loader {
	return &Loader{evalCtx: evalCtx}
}

// Load reads every .hcl file under the given paths. Directories are walked
// recursively. Errors from all files and blocks are collected and returned
// together.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	doc := &config.Document{}
	parser := hclparse.NewParser()
	seen := make(map[string]hcl.Range)
	var settingsRange *hcl.Range
	var result *multierror.Error

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			result = multierror.Append(result, fmt.Errorf("failed to parse HCL file %s: %w", file, diags))
			continue
		}

		content, diags := hclFile.Body.Content(rootSchema)
		if diags.HasErrors() {
			result = multierror.Append(result, fmt.Errorf("failed to decode HCL file %s: %w", file, diags))
			continue
		}

		block, diags := hclutil.FindUniqueBlock(content.Blocks, "settings")
		if block != nil && settingsRange != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate \"settings\" block",
				Detail:   "Only one \"settings\" block is allowed across all files; the first one is at " + settingsRange.String() + ".",
				Subject:  block.DefRange.Ptr(),
			})
		}
		if diags.HasErrors() {
			result = multierror.Append(result, diags)
		} else if block != nil {
			settingsRange = block.DefRange.Ptr()
			if err := l.decodeSettings(block, &doc.Settings); err != nil {
				result = multierror.Append(result, err)
			}
		}

		for _, block := range content.Blocks {
			if block.Type != "model" {
				continue
			}
			name := block.Labels[0]
			if prev, dup := seen[name]; dup {
				result = multierror.Append(result, hcl.Diagnostics{hclutil.DuplicateLabel("model", name, block.DefRange, prev)})
				continue
			}
			seen[name] = block.DefRange

			m, err := l.translateModel(block, hclFile.Bytes)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			doc.Models = append(doc.Models, m)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "models", len(doc.Models), "max_depth", doc.Settings.MaxDepth)
	return doc, nil
}

func (l *Loader) decodeSettings(block *hcl.Block, out *config.Settings) error {
	var s settingsBlock
	if diags := gohcl.DecodeBody(block.Body, l.evalCtx, &s); diags.HasErrors() {
		return diags
	}
	if s.MaxDepth != nil {
		if *s.MaxDepth <= 0 {
			return hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid max_depth",
				Detail:   "max_depth must be a positive number.",
				Subject:  block.DefRange.Ptr(),
			}}
		}
		out.MaxDepth = *s.MaxDepth
	}
	return nil
}

// findAllHCLFiles returns the .hcl files named by paths, walking directories.
// A path that does not exist is an error.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("model path not found: %s", path)
		}
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) != ".hcl" {
				return nil, fmt.Errorf("specified file is not an .hcl file: %s", path)
			}
			add(path)
			continue
		}

		found, err := fsutil.FindFiles(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to find model files in %s: %w", path, err)
		}
		for _, f := range found {
			add(f)
		}
	}
	return allFiles, nil
}
