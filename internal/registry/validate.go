package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
)

// Validate checks that every registered name can be called from a formula
// and does not use a name in reserved.
func (r *Registry) Validate(ctx context.Context, reserved ...string) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		for _, part := range strings.Split(name, "::") {
			if !hclsyntax.ValidIdentifier(part) {
				errs = append(errs, fmt.Sprintf("function '%s': '%s' is not a valid identifier", name, part))
			}
		}
		for _, res := range reserved {
			if name == res || strings.HasPrefix(name, res+"::") {
				errs = append(errs, fmt.Sprintf("function '%s': name is reserved", name))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validated.", "functions", r.Len())
	return nil
}
