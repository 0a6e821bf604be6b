// Package workflow runs one end-to-end filing pass.
//
// A Runner takes the run lock, snapshots the destination tree, lists the
// incoming directory and routes every file either to the similarity matcher
// or to the classifier. Similarity hits are moved first. The remaining files
// are sent to the classifier in batches; each batch sees the directory
// registry as it stands after the previous batch's moves, so folders created
// earlier in the run are offered for reuse instead of being re-invented.
//
// Failures are isolated per file (a failed move) or per batch (a failed
// classifier call). Only problems reading the destination or incoming
// directories abort the run. Every incoming file ends up in the Report with
// exactly one Result.
package workflow
