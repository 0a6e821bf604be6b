// Package llm provides an OpenRouter-compatible chat client used to suggest
// destination folders for incoming files.
//
// The client sends a system prompt describing the known directory layout and a
// user prompt listing the files to place. Replies are requested in JSON mode
// and decoded tolerantly: fenced blocks, tool-call arguments, streaming
// deltas and legacy text completions are all accepted.
//
// Requests retry on HTTP 408/429/5xx, network timeouts and empty completions
// with exponential backoff (base 1s, capped at 10s, 3 attempts by default).
// A Retry-After header takes precedence over the computed delay. Context
// cancellation aborts retries immediately.
package llm
