package library

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/bebohany644546654/physica/core"
)

// Collection names in the sync layer.
const (
	VideoCollection    = "videos"
	BookCollection     = "books"
	ResourceCollection = "resources"
)

// Video is an external lesson recording, published per grade.
type Video struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	URL          string          `json:"url"`
	Grade        core.GradeLevel `json:"grade"`
	ThumbnailURL null.String     `json:"thumbnailUrl,omitempty"`
	Views        int             `json:"views"`
	CreatedAt    time.Time       `json:"createdAt"` // UTC
}

func (v Video) EntityID() string { return v.ID }

// Book is a recommended title with an external link to obtain it.
type Book struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	URL       string          `json:"url"`
	Grade     core.GradeLevel `json:"grade"`
	CreatedAt time.Time       `json:"createdAt"` // UTC
}

func (b Book) EntityID() string { return b.ID }

type ResourceKind string

const (
	ResourceBook ResourceKind = "book"
	ResourceFile ResourceKind = "file"
)

// Resource is a downloadable study material, either a book reference or
// a standalone file.
type Resource struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description null.String     `json:"description,omitempty"`
	Kind        ResourceKind    `json:"kind"`
	Grade       core.GradeLevel `json:"grade"`
	FileURL     null.String     `json:"fileUrl,omitempty"`
	// FileType is the extension of the linked file ("pdf", "docx"),
	// shown in listings.
	FileType  null.String `json:"fileType,omitempty"`
	CreatedAt time.Time   `json:"createdAt"` // UTC
}

func (r Resource) EntityID() string { return r.ID }

// NewVideo contains information needed to publish a Video.
type NewVideo struct {
	Title        string          `json:"title" validate:"required"`
	URL          string          `json:"url" validate:"required,url"`
	Grade        core.GradeLevel `json:"grade" validate:"required,gradelevel"`
	ThumbnailURL string          `json:"thumbnail_url" validate:"omitempty,url"`
}

func (nv *NewVideo) Validate() error {
	nv.Title = core.CleanString(nv.Title)
	nv.URL = core.CleanString(nv.URL)
	nv.ThumbnailURL = core.CleanString(nv.ThumbnailURL)
	return core.Validate.Struct(nv)
}

// UpdateVideo modifies an existing Video. Empty fields keep their
// current value.
type UpdateVideo struct {
	Title        string          `json:"title"`
	URL          string          `json:"url" validate:"omitempty,url"`
	Grade        core.GradeLevel `json:"grade" validate:"omitempty,gradelevel"`
	ThumbnailURL string          `json:"thumbnail_url" validate:"omitempty,url"`
}

func (uv *UpdateVideo) Validate(orig Video) error {
	if title := core.CleanString(uv.Title); title != "" {
		uv.Title = title
	} else {
		uv.Title = orig.Title
	}
	if url := core.CleanString(uv.URL); url != "" {
		uv.URL = url
	} else {
		uv.URL = orig.URL
	}
	if uv.Grade == "" {
		uv.Grade = orig.Grade
	}
	uv.ThumbnailURL = core.CleanString(uv.ThumbnailURL)
	return core.Validate.Struct(uv)
}

// NewBook contains information needed to list a Book.
type NewBook struct {
	Title string          `json:"title" validate:"required"`
	URL   string          `json:"url" validate:"required,url"`
	Grade core.GradeLevel `json:"grade" validate:"required,gradelevel"`
}

func (nb *NewBook) Validate() error {
	nb.Title = core.CleanString(nb.Title)
	nb.URL = core.CleanString(nb.URL)
	return core.Validate.Struct(nb)
}

// NewResource contains information needed to add a study Resource.
type NewResource struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Kind        ResourceKind    `json:"kind" validate:"required,oneof=book file"`
	Grade       core.GradeLevel `json:"grade" validate:"required,gradelevel"`
	FileURL     string          `json:"file_url" validate:"omitempty,url"`
	FileType    string          `json:"file_type" validate:"omitempty,alphanum"`
}

func (nr *NewResource) Validate() error {
	nr.Title = core.CleanString(nr.Title)
	nr.Description = core.CleanString(nr.Description)
	nr.FileURL = core.CleanString(nr.FileURL)
	nr.FileType = core.CleanString(nr.FileType, true /* lower */)
	return core.Validate.Struct(nr)
}
