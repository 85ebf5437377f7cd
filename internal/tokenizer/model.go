package tokenizer

import (
	"fmt"
	"sort"
	"strings"
)

// Provider identifies the tokenizer backend of a model.
type Provider string

const (
	ProviderAnthropic   Provider = "anthropic"
	ProviderOpenAI      Provider = "openai"
	ProviderHuggingFace Provider = "huggingface"
)

// Model describes a supported LLM.
type Model struct {
	Name          string // short name accepted on the command line
	ID            string // identifier used by the provider
	Provider      Provider
	ContextWindow int
}

var models = []Model{
	{"sonnet-3.5", "claude-3-5-sonnet-latest", ProviderAnthropic, 200000},
	{"sonnet-3.7", "claude-3-7-sonnet-latest", ProviderAnthropic, 200000},
	{"gpt-4", "gpt-4", ProviderOpenAI, 8192},
	{"gpt-4-turbo", "gpt-4-0125-preview", ProviderOpenAI, 128000},
	{"gpt-4o", "gpt-4o", ProviderOpenAI, 128000},
	{"llama-2-7b", "meta-llama/Llama-2-7b-hf", ProviderHuggingFace, 4096},
	{"llama-3-8b", "meta-llama/Llama-3-8b-hf", ProviderHuggingFace, 8192},
	{"mistral-small-24b", "mistralai/Mistral-Small-3.1-24B-Base-2503", ProviderHuggingFace, 128000},
	{"mistral-large-instruct", "mistralai/Mistral-Large-Instruct-2411", ProviderHuggingFace, 128000},
	{"pixtral-12b", "mistralai/Pixtral-12B-Base-2409", ProviderHuggingFace, 128000},
	{"mistral-small", "mistralai/Mistral-Small-Instruct-2409", ProviderHuggingFace, 32000},
}

// Lookup finds a model by short name or provider ID (case-insensitive).
func Lookup(name string) (Model, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, m := range models {
		if strings.ToLower(m.Name) == needle || strings.ToLower(m.ID) == needle {
			return m, nil
		}
	}
	return Model{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownModel, name, strings.Join(ModelNames(), ", "))
}

// ModelNames returns the short names of all registered models, sorted.
func ModelNames() []string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}
