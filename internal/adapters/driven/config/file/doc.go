// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.sercha-synth.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage with change watching
//   - PromptStore: user-editable prompt templates
package file
