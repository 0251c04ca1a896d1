package discovery

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/modhost/internal/ctxlog"
	"github.com/vk/modhost/internal/fsutil"
	"github.com/vk/modhost/internal/modkit"
)

// A manifest file contains any number of module blocks:
//
//	module "economy" {
//	  version       = "1.4.0"
//	  description   = "Shop and currency handling"
//	  authors       = ["vk"]
//	  requires      = ["database"]
//	  soft_requires = ["metrics"]
//	  priority      = "high"
//	}

var manifestSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "module", LabelNames: []string{"name"}},
	},
}

var moduleSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "version"},
		{Name: "description"},
		{Name: "authors"},
		{Name: "requires"},
		{Name: "soft_requires"},
		{Name: "priority"},
	},
}

// Load parses every *.hcl manifest under dir into module descriptors. The
// returned descriptors carry no instance; binding instances to names is the
// host's job. Duplicate module names across manifests are an error here so
// they surface with file positions instead of failing later at
// registration.
func Load(ctx context.Context, dir string) ([]modkit.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)

	paths, err := fsutil.FindFilesByExtension(dir, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("walking manifest directory %s: %w", dir, err)
	}
	if len(paths) == 0 {
		logger.Warn("No module manifests found.", "path", dir)
		return nil, nil
	}

	parser := hclparse.NewParser()
	seen := make(map[string]string) // name -> file it was declared in
	var descs []modkit.Descriptor

	for _, path := range paths {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing manifest %s: %w", path, diags)
		}

		content, diags := file.Body.Content(manifestSchema)
		if diags.HasErrors() {
			return nil, fmt.Errorf("reading manifest %s: %w", path, diags)
		}

		for _, block := range content.Blocks {
			name := block.Labels[0]
			if prev, dup := seen[name]; dup {
				return nil, fmt.Errorf("module %q declared in both %s and %s", name, prev, path)
			}
			seen[name] = path

			desc, err := decodeModuleBlock(name, block)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: %w", path, err)
			}
			descs = append(descs, desc)
		}
		logger.Debug("Loaded module manifest.", "file", path)
	}

	logger.Info("Module discovery complete.", "modules", len(descs), "files", len(paths))
	return descs, nil
}

func decodeModuleBlock(name string, block *hcl.Block) (modkit.Descriptor, error) {
	desc := modkit.Descriptor{Name: name}

	content, diags := block.Body.Content(moduleSchema)
	if diags.HasErrors() {
		return desc, fmt.Errorf("module %q: %w", name, diags)
	}

	var err error
	if desc.Version, err = attrString(content.Attributes, "version"); err != nil {
		return desc, fmt.Errorf("module %q: %w", name, err)
	}
	if desc.Description, err = attrString(content.Attributes, "description"); err != nil {
		return desc, fmt.Errorf("module %q: %w", name, err)
	}
	if desc.Authors, err = attrStringList(content.Attributes, "authors"); err != nil {
		return desc, fmt.Errorf("module %q: %w", name, err)
	}
	if desc.Requires, err = attrStringList(content.Attributes, "requires"); err != nil {
		return desc, fmt.Errorf("module %q: %w", name, err)
	}
	if desc.SoftRequires, err = attrStringList(content.Attributes, "soft_requires"); err != nil {
		return desc, fmt.Errorf("module %q: %w", name, err)
	}

	priority, err := attrString(content.Attributes, "priority")
	if err != nil {
		return desc, fmt.Errorf("module %q: %w", name, err)
	}
	if desc.Priority, err = modkit.ParsePriority(priority); err != nil {
		return desc, fmt.Errorf("module %q: %w", name, err)
	}
	return desc, nil
}

// attrString evaluates an optional attribute and converts it to a string.
func attrString(attrs hcl.Attributes, name string) (string, error) {
	attr, ok := attrs[name]
	if !ok {
		return "", nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", fmt.Errorf("attribute %q: %w", name, diags)
	}
	converted, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("attribute %q: %w", name, err)
	}
	return converted.AsString(), nil
}

// attrStringList evaluates an optional attribute and converts it to a
// string slice.
func attrStringList(attrs hcl.Attributes, name string) ([]string, error) {
	attr, ok := attrs[name]
	if !ok {
		return nil, nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("attribute %q: %w", name, diags)
	}
	converted, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", name, err)
	}
	var out []string
	for it := converted.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		out = append(out, elem.AsString())
	}
	return out, nil
}
