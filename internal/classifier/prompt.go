package classifier

import (
	"encoding/json"
	"fmt"
)

// SystemPrompt captures the instructions sent to every model-backed backend.
// Keep the response shape in sync with llm.ParseFileSuggestions.
const SystemPrompt = `You are an assistant that files documents into an existing folder tree.

You receive a JSON object with:

- "knownDirs": folders that already exist, relative to the library root.
- "files": the files to place, each with a "fileName" and an optional "description" of its content.
- "defaultBucket": the folder for files you cannot place.

Rules:

- Prefer an existing folder from "knownDirs" whenever one fits. Reuse its exact spelling.
- Only invent a new folder when nothing fits. Keep new folder names short and in the language of the file name.
- Return a folder path, never a file path. Do not include the file name in "path".
- Paths are relative, use "/" as the separator and never start with "/" or contain "..".
- Return exactly one entry per input file and copy "fileName" unchanged.
- If you cannot decide, use "defaultBucket".

You must respond ONLY with a JSON object like:
{"files": [{"fileName": "report.pdf", "path": "Work/Reports", "confidence": 0.9, "reasoning": "short explanation"}]}`

// BuildUserPrompt renders the request as the JSON document described in
// SystemPrompt.
func BuildUserPrompt(req Request) (string, error) {
	payload := struct {
		KnownDirs     []string `json:"knownDirs"`
		Files         []Item   `json:"files"`
		DefaultBucket string   `json:"defaultBucket"`
	}{
		KnownDirs:     nonNil(req.KnownDirs),
		Files:         req.Items,
		DefaultBucket: req.DefaultBucket,
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("classifier prompt: encode request: %w", err)
	}
	return string(encoded), nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
