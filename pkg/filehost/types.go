package filehost

import (
	"time"
)

// Category partitions storage, metadata and external collections.
type Category string

const (
	CategoryPDF   Category = "pdf"
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
)

// Categories lists every supported category in routing order.
func Categories() []Category {
	return []Category{CategoryPDF, CategoryImage, CategoryVideo}
}

// IsValid checks if the category is one of the supported categories
func (c Category) IsValid() bool {
	switch c {
	case CategoryPDF, CategoryImage, CategoryVideo:
		return true
	default:
		return false
	}
}

// Label returns the human readable name used in messages.
func (c Category) Label() string {
	switch c {
	case CategoryPDF:
		return "PDF"
	case CategoryImage:
		return "Image"
	case CategoryVideo:
		return "Video"
	default:
		return string(c)
	}
}

// Record describes one uploaded file. It is the value held by a MetadataStore
// and written to the category snapshot.
type Record struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Filepath   string    `json:"filepath"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"uploadDate"`
	EditDate   time.Time `json:"editDate"`
}

// Document is the external counterpart of a Record. It shares the record ID
// and path and carries the caller supplied metadata payload.
type Document struct {
	ID          string                 `json:"_id" bson:"_id"`
	ContentPath string                 `json:"content_path" bson:"content_path"`
	Filename    string                 `json:"filename,omitempty" bson:"filename,omitempty"`
	Metadata    map[string]interface{} `json:"metadata" bson:"metadata"`
}

// DivisionField is the document path of the division classification tag.
const DivisionField = "metadata.Division"

// Projection selects which fields ListByDivision returns.
type Projection string

const (
	ProjectID       Projection = "_id"
	ProjectFilename Projection = "filename"
)

// Fields returns the document fields kept by the projection.
func (p Projection) Fields() []string {
	switch p {
	case ProjectFilename:
		return []string{"filename"}
	default:
		return []string{"_id"}
	}
}

// UploadedFile is a file already written to its category directory but not
// yet owned by any record.
type UploadedFile struct {
	Path         string
	OriginalName string
	Size         int64
	MimeType     string
}

// EditRequest carries the optional inputs of Coordinator.Edit.
type EditRequest struct {
	File       *UploadedFile
	Filename   string
	UploadDate *time.Time
}

// LoginRecord is a free-form account document keyed by "username".
type LoginRecord map[string]interface{}

// Username returns the username field when it is a string.
func (l LoginRecord) Username() string {
	if v, ok := l["username"].(string); ok {
		return v
	}
	return ""
}

// RawFile is the result of Query.FetchRaw.
type RawFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
