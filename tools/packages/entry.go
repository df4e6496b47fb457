package packages

import (
	"fmt"
)

// State is the resolution state of the current package.
type State int

const (
	Unresolved State = iota
	Found
	Unpacking
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Found:
		return "found"
	case Unpacking:
		return "unpacking"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Entry describes a package of the package directory.
type Entry struct {
	// The package file or directory name.
	Name string `json:"name"`

	// The name of the directory holding the unpacked content of the package.
	// Empty when the package was not unpacked.
	UnpackedName string `json:"unpacked_name,omitempty"`

	// Whether the package must be unpacked before being loaded.
	RequiresUnpack bool `json:"requires_unpack"`

	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	DocumentNames []string `json:"document_names,omitempty"`

	// Whether the package thumbnail was fetched.
	ImageReady bool `json:"image_ready"`

	// Whether the thumbnails of the package documents were fetched.
	DocumentImagesReady bool `json:"document_images_ready"`
}

// Image is a fetched thumbnail. Package thumbnails are keyed by package
// name, document thumbnails by package name and document title joined with
// an underscore.
type Image struct {
	Key  string
	Data []byte
}
