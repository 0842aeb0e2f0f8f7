// Package rag implements the retrieval and evidence-assembly pipeline:
// chunking and enrichment, the hybrid sparse/dense/graph retriever with
// reciprocal-rank fusion, reranking, citation verification,
// contradiction detection, confidence scoring, and the multi-hop
// controller.
package rag
