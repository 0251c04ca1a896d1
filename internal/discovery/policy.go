package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/modhost/internal/ctxlog"
)

// The policy file lists modules whose enablement deviates from the
// default. Modules absent from it are attempted:
//
//	module "metrics" {
//	  enabled = false
//	}

type policyFile struct {
	Modules []policyBlock `hcl:"module,block"`
}

type policyBlock struct {
	Name    string `hcl:"name,label"`
	Enabled bool   `hcl:"enabled"`
}

// LoadPolicy parses the enable/disable policy file into a name to boolean
// map. An empty path or a missing file both yield an empty policy, meaning
// every discovered module is attempted.
func LoadPolicy(ctx context.Context, path string) (map[string]bool, error) {
	logger := ctxlog.FromContext(ctx)
	if path == "" {
		return map[string]bool{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Policy file not found, attempting all modules.", "path", path)
		return map[string]bool{}, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, diags)
	}

	var parsed policyFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decoding policy file %s: %w", path, diags)
	}

	policy := make(map[string]bool, len(parsed.Modules))
	for _, m := range parsed.Modules {
		policy[m.Name] = m.Enabled
	}
	logger.Debug("Policy file loaded.", "path", path, "entries", len(policy))
	return policy, nil
}
