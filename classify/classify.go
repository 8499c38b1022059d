// Package classify maps file names to archive categories by extension.
package classify

import "strings"

// Category names one top-level directory inside an organized archive.
type Category string

const (
	Images        Category = "images"
	Videos        Category = "videos"
	Documents     Category = "documents"
	Presentations Category = "presentations"
	Codes         Category = "codes"
	Gifs          Category = "gifs"
	Others        Category = "others"
)

type entry struct {
	category   Category
	extensions []string
}

// table is consulted in order and the first listing wins, so "gif" resolves
// to Images and Gifs never matches.
var table = []entry{
	{Images, []string{"png", "jpg", "jpeg", "gif"}},
	{Videos, []string{"mp4", "mov", "mkv"}},
	{Documents, []string{"pdf", "docx", "txt", "csv", "xlsx"}},
	{Presentations, []string{"ppt", "pptx"}},
	{Codes, []string{"py", "js", "java", "c", "cpp", "html", "css"}},
	{Gifs, []string{"gif"}},
}

// Classify returns the category for a file name.
func Classify(name string) Category {
	return FromExtension(Extension(name))
}

// FromExtension returns the category for a bare extension. A leading dot and
// letter case are ignored.
func FromExtension(ext string) Category {
	ext = NormalizeExt(ext)
	for _, e := range table {
		for _, candidate := range e.extensions {
			if candidate == ext {
				return e.category
			}
		}
	}
	return Others
}

// Extension returns the lowercased text after the last dot. A name without a
// dot is returned whole.
func Extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Categories lists every category in table order with Others last.
func Categories() []Category {
	out := make([]Category, 0, len(table)+1)
	for _, e := range table {
		out = append(out, e.category)
	}
	return append(out, Others)
}

// Extensions returns a copy of the extensions listed for c.
func Extensions(c Category) []string {
	for _, e := range table {
		if e.category == c {
			return append([]string(nil), e.extensions...)
		}
	}
	return nil
}

// Valid reports whether c is one of the known categories.
func Valid(c Category) bool {
	for _, known := range Categories() {
		if known == c {
			return true
		}
	}
	return false
}
