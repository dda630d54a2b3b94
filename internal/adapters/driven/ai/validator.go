package ai

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(settings domain.ProviderSettings) error {
	return ValidateEmbeddingConfig(context.Background(), settings)
}

// ValidateCompletion validates a completion configuration by pinging the provider.
func (v *ConfigValidator) ValidateCompletion(settings domain.ProviderSettings) error {
	return ValidateCompletionConfig(context.Background(), settings)
}
