// Package kgrag implements a knowledge-graph-augmented retrieval engine. It
// answers natural-language queries by retrieving supporting evidence from
// three heterogeneous sources (dense-vector text fragments, confidence-scored
// verified facts, and a typed entity/relation graph), then fusing or
// adaptively choosing among them before handing context to a text generator.
//
// The main entry point is Client:
//
//	graph, err := store.NewSQLiteStore("kgrag.db")
//	if err != nil { ... }
//	client, err := kgrag.NewClient(graph, embedderClient, generatorClient, nil, nil)
//	if err != nil { ... }
//	defer client.Close()
//
//	answer, err := client.Answer(ctx, "Ile mieszkańców ma Warszawa?", nil)
//
// Retrieval strategies form a closed set (text, facts, graph, hybrid). A
// per-query cost/performance model picks one, optionally under a budget; a
// post-execution quality gate re-routes through hybrid fusion when the chosen
// strategy underperforms. Collaborators (the embedding model, the generator,
// the entity recognizer) are consumed through narrow interfaces and their
// failures degrade quality rather than availability.
package kgrag
