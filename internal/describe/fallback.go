package describe

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// sniff describes a file without external tools.
func sniff(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	parts := []string{mtype.String()}
	if mtype.Is("image/jpeg") || mtype.Is("image/tiff") {
		if camera := cameraSummary(path); camera != "" {
			parts = append(parts, camera)
		}
	}
	return strings.Join(parts, "; ")
}

func cameraSummary(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return ""
	}
	var parts []string
	camera := strings.TrimSpace(strings.Join([]string{tagString(x, exif.Make), tagString(x, exif.Model)}, " "))
	if camera != "" {
		parts = append(parts, "camera: "+camera)
	}
	if taken, err := x.DateTime(); err == nil {
		parts = append(parts, fmt.Sprintf("taken: %s", taken.Format("2006-01-02")))
	}
	return strings.Join(parts, "; ")
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	if tag.Format() == tiff.StringVal {
		s, _ := tag.StringVal()
		return strings.TrimSpace(s)
	}
	return strings.Trim(tag.String(), `"`)
}
