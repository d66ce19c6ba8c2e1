package models

import (
	"context"

	"github.com/haasonsaas/nexus/internal/providers/bedrock"
)

// RefreshBedrockModels queries live AWS Bedrock model availability and
// registers each discovered foundation model into the catalog under
// ProviderBedrock. It is the bridge between the static builtin catalog and
// the account-specific set of models actually enabled in a Bedrock region;
// callers typically run it once at startup behind a feature flag, since it
// requires AWS credentials.
func (c *Catalog) RefreshBedrockModels(ctx context.Context, cfg *bedrock.DiscoveryConfig) error {
	discovered, err := bedrock.DiscoverModels(ctx, cfg)
	if err != nil {
		return err
	}
	for _, d := range discovered {
		caps := []Capability{CapStreaming}
		if d.Reasoning {
			caps = append(caps, CapReasoning)
		}
		for _, mode := range d.Input {
			if mode == "image" {
				caps = append(caps, CapVision)
			}
		}
		if d.ContextWindow >= 100000 {
			caps = append(caps, CapLongContext)
		}
		c.Register(&Model{
			ID:              d.ID,
			Name:            d.Name,
			Provider:        ProviderBedrock,
			Tier:            TierStandard,
			ContextWindow:   d.ContextWindow,
			MaxOutputTokens: d.MaxTokens,
			Capabilities:    caps,
			Deprecated:      d.LifecycleStatus == "LEGACY",
			Description:     d.Provider + " model served via Amazon Bedrock",
		})
	}
	return nil
}

// RefreshBedrockModels refreshes the default catalog from live Bedrock
// model availability.
func RefreshBedrockModels(ctx context.Context, cfg *bedrock.DiscoveryConfig) error {
	return DefaultCatalog.RefreshBedrockModels(ctx, cfg)
}
