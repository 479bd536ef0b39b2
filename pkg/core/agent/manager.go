package agent

import (
	"context"
	"equity_research/pkg/core/llm"
	"fmt"
	"sync"
)

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Model       string `yaml:"model"`    // Optional model override
	Description string `yaml:"description"`
}

type Manager struct {
	mu        sync.RWMutex // guards config
	config    Config
	providers map[string]llm.Provider
}

func NewManager(config Config) *Manager {
	return &Manager{
		config: config,
		providers: map[string]llm.Provider{
			"gemini":        &llm.GeminiProvider{},
			"claude":        &llm.ClaudeProvider{},
			"deepseek":      &llm.DeepSeekProvider{},
			"gemini-vision": &llm.GeminiVisionProvider{},
		},
	}
}

// NewManagerWithProviders builds a manager over an explicit provider map.
// Used by tests to inject stub providers.
func NewManagerWithProviders(config Config, providers map[string]llm.Provider) *Manager {
	return &Manager{config: config, providers: providers}
}

func (m *Manager) GetProvider(agentType string) llm.Provider {
	m.mu.RLock()
	agentConfig, hasAgent := m.config.Agents[agentType]
	active := m.config.ActiveProvider
	m.mu.RUnlock()

	// 1. Check for agent-specific override
	if hasAgent && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
	}

	// 2. Use global active provider
	if p, ok := m.providers[active]; ok {
		return p
	}

	// 3. Fallback
	return m.providers["claude"]
}

// GetProviderByName retrieves a provider instance by its specific name (e.g. "deepseek", "gemini")
func (m *Manager) GetProviderByName(name string) llm.Provider {
	if p, ok := m.providers[name]; ok {
		return p
	}
	return nil
}

// ExecutePrompt handles instruction adaptation before sending to the model.
// An agent-level model override in the config is applied unless the caller
// already set one in options.
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.GetProvider(agentType)

	if options == nil {
		options = map[string]interface{}{}
	}
	m.mu.RLock()
	agentConfig, hasAgent := m.config.Agents[agentType]
	m.mu.RUnlock()
	if hasAgent && agentConfig.Model != "" {
		if _, set := options["model"]; !set {
			options["model"] = agentConfig.Model
		}
	}

	adaptedSystemPrompt := provider.AdaptInstructions(rawSystemPrompt)

	return provider.GenerateResponse(ctx, rawPrompt, adaptedSystemPrompt, options)
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.mu.Lock()
	m.config.ActiveProvider = newProvider
	m.mu.Unlock()
	fmt.Printf("Global provider set to: %s\n", newProvider)
	return nil
}

// WithActiveProvider returns a manager that routes to the named provider,
// sharing the provider registry but leaving the receiver's config alone.
// Callers use it to honor a per-run provider choice without affecting
// concurrent runs.
func (m *Manager) WithActiveProvider(name string) (*Manager, error) {
	if _, ok := m.providers[name]; !ok {
		return nil, fmt.Errorf("provider %s not found", name)
	}
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()
	cfg.ActiveProvider = name
	return &Manager{config: cfg, providers: m.providers}, nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// Providers lists the registered provider names.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	return names
}
