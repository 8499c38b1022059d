package models

import "path/filepath"

// FileRef points at a previously received file that is readable by the core.
type FileRef struct {
	Path string `json:"path" yaml:"path"`
	Name string `json:"name" yaml:"name"`
}

// NewFileRef builds a reference whose name is the base of path.
func NewFileRef(path string) FileRef {
	return FileRef{Path: path, Name: filepath.Base(path)}
}

// FileRefs converts plain paths into references.
func FileRefs(paths []string) []FileRef {
	refs := make([]FileRef, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, NewFileRef(p))
	}
	return refs
}

// Filename returns the name the file keeps inside an archive.
func (r FileRef) Filename() string {
	if r.Name != "" {
		return filepath.Base(r.Name)
	}
	return filepath.Base(r.Path)
}

// FailedFile records a file that could not be staged.
type FailedFile struct {
	Ref    FileRef `json:"file" yaml:"file"`
	Reason string  `json:"reason" yaml:"reason"`
	Err    error   `json:"-" yaml:"-"`
}
