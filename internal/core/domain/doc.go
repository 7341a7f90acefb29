// Package domain contains the core entities of the retrieval pipeline:
// documents, paragraphs, chunks, chunk metadata, query results and the
// typed errors exchanged between services and adapters. Types here are
// plain data structures with no persistence or transport concerns.
package domain
