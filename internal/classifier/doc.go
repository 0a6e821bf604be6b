// Package classifier turns a batch of incoming file names (plus optional
// content descriptions) into destination directory suggestions.
//
// The Adapter owns the contract the run orchestrator depends on: results come
// back in request order, one per requested file, keyed by file name. Backends
// only speak the wire protocol of a given provider (OpenRouter over the
// shared llm client, OpenAI tool calling, Gemini JSON mode, or a local
// process reading JSON on stdin) and may return partial, duplicated or
// misnamed entries; the Adapter reconciles and sanitizes whatever comes back.
package classifier
