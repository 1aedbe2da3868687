// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.mnemo/config.toml with MNEMO_* environment overrides
//   - PromptStore: operator prompt overrides under ~/.mnemo/prompts/
package file
