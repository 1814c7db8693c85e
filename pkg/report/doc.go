// Package report renders resolution results.
//
// Every record has a one-line form, produced by [Line]:
//
//	<registry>:<name>@<version>,<license>[,<expiration>]
//
// [WriteText] and [WriteCSV] write those lines to plain text or CSV,
// [WriteTree] prints the discovered dependency tree and [Summarize]
// computes license usage statistics and policy violations. [ToDOT] and
// [RenderSVG] draw the dependency graph with Graphviz, and [MongoSink]
// stores a run for later querying.
package report
