package describe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Metadata is the subset of exiftool output used for descriptions.
type Metadata struct {
	FileType   string
	MIMEType   string
	Title      string
	Author     string
	CreateDate string
	PageCount  string
	ImageSize  string
	Duration   string
}

// Inspect runs exiftool in JSON mode with numeric values and decodes the
// first record.
func Inspect(ctx context.Context, binary, path string) (Metadata, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "exiftool"
	}
	if strings.TrimSpace(path) == "" {
		return Metadata{}, errors.New("exiftool inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-j", "-n", "--", path) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Metadata{}, fmt.Errorf("exiftool inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Metadata{}, fmt.Errorf("exiftool inspect: %w", err)
	}
	return parseExiftool(output)
}

func parseExiftool(output []byte) (Metadata, error) {
	var records []map[string]any
	if err := json.Unmarshal(output, &records); err != nil {
		return Metadata{}, fmt.Errorf("exiftool parse: %w", err)
	}
	if len(records) == 0 {
		return Metadata{}, errors.New("exiftool parse: no records")
	}
	rec := records[0]

	meta := Metadata{
		FileType:   field(rec, "FileType"),
		MIMEType:   field(rec, "MIMEType"),
		Title:      field(rec, "Title"),
		Author:     field(rec, "Author", "Artist", "Creator"),
		CreateDate: exifDate(field(rec, "CreateDate", "DateTimeOriginal")),
		PageCount:  field(rec, "PageCount"),
		ImageSize:  strings.ReplaceAll(field(rec, "ImageSize"), " ", "x"),
	}
	if meta.ImageSize == "" {
		if w, h := field(rec, "ImageWidth"), field(rec, "ImageHeight"); w != "" && h != "" {
			meta.ImageSize = w + "x" + h
		}
	}
	if seconds, ok := rec["Duration"].(float64); ok && seconds > 0 {
		meta.Duration = time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
	}
	return meta, nil
}

// Summary renders the metadata as a single line.
func (m Metadata) Summary() string {
	var parts []string
	switch {
	case m.FileType != "" && m.MIMEType != "":
		parts = append(parts, fmt.Sprintf("%s (%s)", m.FileType, m.MIMEType))
	case m.FileType != "":
		parts = append(parts, m.FileType)
	case m.MIMEType != "":
		parts = append(parts, m.MIMEType)
	}
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	add("title", m.Title)
	add("author", m.Author)
	add("created", m.CreateDate)
	add("pages", m.PageCount)
	add("size", m.ImageSize)
	add("duration", m.Duration)
	return strings.Join(parts, "; ")
}

func field(rec map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := rec[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// exifDate turns "2024:03:09 14:05:06" into "2024-03-09".
func exifDate(value string) string {
	if len(value) < 10 {
		return value
	}
	return strings.ReplaceAll(value[:10], ":", "-")
}
