// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: collections, documents, chunks and tags
//   - OperatorStore: per-operator selection record and run guard
//   - Tokenizer: token counting and windowing
//   - ModelCatalog: context windows and prices per model
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ModelClient: without it, runs fail with domain.ErrModelUnavailable.
//   - DebounceCache: without it, trigger ids are not remembered; the run guard still applies.
//   - RunObserver: metrics sink.
//   - PromptStore: custom system prompt; the built-in text is used otherwise.
//
// # Text Handling
//
//   - PostProcessor: ordered steps run on new documents (the chunker)
//   - TextNormaliser: canonical form of chunk text before prompt assembly
//   - ContentHasher: idempotent re-import detection
//   - ImportConverter: plain text from Markdown, HTML, DOCX and EML files
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
