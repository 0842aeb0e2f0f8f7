// Package types defines the core data model shared by every stage of
// the retrieval and evidence-assembly pipeline: legal documents and
// their derived chunks, query contexts, graph relations, citation and
// contradiction findings, retrieval results, and the structured error
// taxonomy.
//
// All entities are closed structs with a known shape. Unrecognized
// metadata is quarantined at ingestion (see DocumentMeta.Quarantined)
// instead of flowing untyped through the pipeline.
package types
