// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Parser: Extracts paragraphs from source documents (DOCX, PDF)
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - VectorStore: Document/chunk persistence plus similarity search
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or parser package
package driven
