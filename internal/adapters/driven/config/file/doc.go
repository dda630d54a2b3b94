// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable prompt templates with embedded defaults
//
// LoadConfig layers config.toml, dotenv files and environment variables
// over domain.DefaultConfig.
package file
