// Package pkg provides the core libraries for pencilgraph, an editor and
// exporter for line-render node graphs.
//
// # Overview
//
// A document holds one or more node graphs and a stack of override layers.
// Each graph wires Line nodes to Line Sets, brushes, brush details and
// reduction settings; the override layers replace field values by name or
// pattern without touching the stored nodes. An export walks the live part
// of a graph and flattens it into records for the external line renderer.
//
// The pkg directory is organized into four areas:
//
//  1. Model: [schema], [nodegraph], [override], [filter]
//  2. Editing: [maintain], [merge], [session]
//  3. Output: [export], [render/dot], [engine]
//  4. Plumbing: [io], [pipeline], [cache], [config], [errors], [observability]
//
// # Architecture
//
// The typical data flow:
//
//	Document (JSON, TOML or YAML)
//	         ↓
//	    [io] package (decode, build graphs and layers)
//	         ↓
//	    [nodegraph] + [override] (typed graph, resolved through layers)
//	         ↓
//	    [export] package (live nodes → records)
//	         ↓
//	    [engine] package (records → image from the renderer)
//
// [pipeline] runs these stages with content-hash caching and is shared by
// the command-line interface and the HTTP server.
//
// # Package Guide
//
// ## Model
//
// [schema] - Node type declarations: typed fields with defaults and ranges,
// input sockets and their kinds, and the relay types that only pass links
// through.
//
// [nodegraph] - The graph itself: nodes, sockets, links, curve storage and
// the selection markers. Links are checked against socket kinds and never
// form cycles.
//
// [override] - Layers of key and pattern overrides. [override.Resolve]
// returns the effective value of a field, the layer that supplied it and
// the key that matched.
//
// [filter] - Socket activity. A socket whose gate fields resolve off is
// treated like an unconnected one by every consumer.
//
// ## Editing
//
// [maintain] - Structural edits that keep a graph consistent: adding Lines
// and Line Sets, trailing empty slots, render priorities, and deleting
// subgraphs nothing else uses.
//
// [merge] - Copies one graph into another, renaming clashes, sharing equal
// curves and replacing same-name Lines on request.
//
// [session] - An open editing session: graphs, layers, a revision counter,
// a bounded preview cache and persistence through a [session.Store].
//
// ## Output
//
// [export] - Flattens the live nodes of graphs into records. Fields the
// renderer cannot take are reported as mismatches instead of failing.
//
// [render/dot] - Graphviz diagrams of a graph, with inactive nodes dimmed.
//
// [engine] - The external renderer process, version checks, and the
// viewport that backs off after a slow draw.
//
// ## Plumbing
//
// [io] - The document format and its JSON, TOML and YAML codecs.
//
// [pipeline] - Load, export, diagram and preview stages with caching.
//
// [cache] - File, Redis and null caches keyed by content hash.
//
// [config] - User preferences in TOML, validated on load.
//
// [errors] - Structured errors with codes shared by the CLI and the server.
//
// [observability] - Hooks for metrics; [observability/prom] exports them
// to Prometheus.
//
// # Common Workflows
//
// Export a document:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	res, _ := runner.Execute(ctx, pipeline.Options{Path: "scene.json"})
//	os.Stdout.Write(res.ExportJSON)
//
// Find where a value comes from:
//
//	res := override.Resolve(line, "over_sampling", project.Stack)
//	fmt.Println(res.Value, res.Layer, res.Key)
//
// Reorder Lines:
//
//	_ = maintain.MovePriority(g, 2, 0)
//
// # Testing
//
//	go test ./pkg/...                 # All tests
//	go test ./pkg/override/...        # Specific package
//
// [schema]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/schema
// [nodegraph]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/nodegraph
// [override]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/override
// [override.Resolve]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/override#Resolve
// [filter]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/filter
// [maintain]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/maintain
// [merge]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/merge
// [session]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/session
// [session.Store]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/session#Store
// [export]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/export
// [render/dot]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/render/dot
// [engine]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/engine
// [io]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/io
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/matzehuels/pencilgraph/pkg/observability/prom
package pkg
