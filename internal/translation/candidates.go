package translation

import (
	"context"
	"log/slog"
	"strings"

	"reelsub/internal/gateway"
	"reelsub/internal/logging"
	"reelsub/internal/services"
)

// FastMarker identifies models preferred during discovery.
const FastMarker = "flash"

// dedupeModels trims identifiers and drops blanks and repeats.
func dedupeModels(models []string) []string {
	out := make([]string, 0, len(models))
	seen := make(map[string]struct{}, len(models))
	for _, model := range models {
		model = strings.TrimSpace(model)
		if model == "" {
			continue
		}
		if _, ok := seen[model]; ok {
			continue
		}
		seen[model] = struct{}{}
		out = append(out, model)
	}
	return out
}

// PreferFast reorders models so those containing FastMarker come first,
// keeping provider order within each group.
func PreferFast(models []string) []string {
	fast := make([]string, 0, len(models))
	rest := make([]string, 0, len(models))
	for _, model := range models {
		if strings.Contains(strings.ToLower(model), FastMarker) {
			fast = append(fast, model)
		} else {
			rest = append(rest, model)
		}
	}
	return append(fast, rest...)
}

// resolveCandidates picks the ordered candidate list for a run: the request's
// models, then configured models, then discovery.
func (p *Pipeline) resolveCandidates(ctx context.Context, requested []string, lister gateway.ModelLister, logger *slog.Logger) ([]string, error) {
	if models := dedupeModels(requested); len(models) > 0 {
		return models, nil
	}
	if models := dedupeModels(p.opts.Models); len(models) > 0 {
		return models, nil
	}
	discovered, err := lister.ListCapableModels(ctx)
	if err != nil {
		failure := gateway.AsFailure(err)
		switch failure.Kind {
		case gateway.KindCredentialInvalid, gateway.KindNoCapableModel, gateway.KindCanceled:
			return nil, failure
		}
		logging.WarnWithContext(logger, "model discovery failed; using default model", "model_discovery_failed",
			logging.String("default_model", p.opts.FallbackModel),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(failure)),
			logging.String(logging.FieldImpact, "run uses a single candidate model"),
		)
		return []string{p.opts.FallbackModel}, nil
	}
	models := PreferFast(dedupeModels(discovered))
	if len(models) == 0 {
		return nil, gateway.Fail(gateway.KindNoCapableModel, "", "provider listed no content-generation models", nil)
	}
	if p.opts.MaxCandidates > 0 && len(models) > p.opts.MaxCandidates {
		models = models[:p.opts.MaxCandidates]
	}
	return models, nil
}
