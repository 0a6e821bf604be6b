package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Process classifies by running a local command. The request JSON is written
// to stdin and the response is read from stdout using the same shape the
// model backends return.
type Process struct {
	command string
	args    []string
}

// NewProcess constructs the backend.
func NewProcess(command string, args []string) *Process {
	return &Process{command: command, args: append([]string(nil), args...)}
}

// Name implements Backend.
func (b *Process) Name() string { return "process" }

// Classify implements Backend.
func (b *Process) Classify(ctx context.Context, req Request) ([]Suggestion, error) {
	if strings.TrimSpace(b.command) == "" {
		return nil, errors.New("process classify: command required")
	}
	payload, err := json.Marshal(Request{
		Items:         req.Items,
		KnownDirs:     nonNil(req.KnownDirs),
		DefaultBucket: req.DefaultBucket,
	})
	if err != nil {
		return nil, fmt.Errorf("process classify: encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.command, b.args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("process classify: %s: %w: %s", b.command, err, detail)
		}
		return nil, fmt.Errorf("process classify: %s: %w", b.command, err)
	}
	return parseSuggestions("process classify", stdout.String())
}
