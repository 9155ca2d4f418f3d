package contentcache

import (
	"time"

	"github.com/studyhive/contentcache/docshape"
)

// Subject is a study subject outline: an ordered list of units, each an
// ordered list of chapters.
type Subject struct {
	Title string `json:"title"`
	Units []Unit `json:"units"`
}

// Unit is one unit of a subject.
type Unit struct {
	Unit     string    `json:"unit"`
	Title    string    `json:"title"`
	Chapters []Chapter `json:"chapters"`
}

// Chapter is one chapter of a unit.
type Chapter struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Content is an article content document: an editor document plus metadata.
// Data is always in runtime shape; the storage shape used by the remote
// store is reverted on every fallback fetch.
type Content struct {
	Title string            `json:"title"`
	Data  docshape.Document `json:"data"`
}

// QuestionFormat is an authored quiz question embedded in an article.
type QuestionFormat struct {
	Question    QuestionInput    `json:"question"`
	Options     []QuestionOption `json:"options"`
	Answers     []string         `json:"answers"`
	Explanation QuestionInput    `json:"explanation"`
	Content     QuestionInput    `json:"content"`
	Type        string           `json:"type"`
}

// QuestionOption is one answer choice of a question.
type QuestionOption struct {
	ID    string        `json:"id"`
	Value QuestionInput `json:"value"`
}

// QuestionInput is a free-text field that can carry media attachments.
// It is the unit the attachment lifecycle operates on.
type QuestionInput struct {
	Value string                `json:"value"`
	Files []AttachmentReference `json:"files"`
}

// AttachmentReference points at a stored media blob from inside an input
// field. References never own the blob; the local blob store does.
type AttachmentReference struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Upload is a candidate file handed to the attachment lifecycle by the
// authoring UI.
type Upload struct {
	// Name is the display name of the file.
	Name string

	// MediaType is the declared media type (e.g. "image/png").
	MediaType string

	// LastModified is the file's last-modified timestamp as reported by
	// the uploader.
	LastModified time.Time

	// Data is the raw payload.
	Data []byte
}
