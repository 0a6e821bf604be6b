// Package config loads, normalizes, and validates filer configuration.
//
// Files are TOML by default; a .yaml or .yml extension switches to YAML with
// the same keys. Load searches the explicit --config path, then
// ~/.config/filer/config.toml, then ./filer.toml, falling back to Default()
// when none exist. normalize expands ~ in paths, fills backend-specific LLM
// defaults and pulls API keys from FILER_API_KEY or the provider variable
// (OPENROUTER_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY). Validate rejects
// combinations that cannot produce a working run.
package config
