package library

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/bebohany644546654/physica/core"
	"github.com/bebohany644546654/physica/sync"
)

var (
	// errors
	ErrVideoNotFound    = errors.New("video not found")
	ErrBookNotFound     = errors.New("book not found")
	ErrResourceNotFound = errors.New("resource not found")
)

type Service struct {
	videos    *sync.Collection[Video]
	books     *sync.Collection[Book]
	resources *sync.Collection[Resource]
	log       core.Logger
}

func NewService(
	videos *sync.Collection[Video],
	books *sync.Collection[Book],
	resources *sync.Collection[Resource],
	log core.Logger,
) *Service {
	return &Service{
		videos:    videos,
		books:     books,
		resources: resources,
		log:       log,
	}
}

func (svc *Service) AddVideo(nv NewVideo) (Video, error) {
	if err := nv.Validate(); err != nil {
		return Video{}, err
	}
	v := Video{
		ID:        uuid.New().String(),
		Title:     nv.Title,
		URL:       nv.URL,
		Grade:     nv.Grade,
		CreatedAt: time.Now().UTC(),
	}
	if nv.ThumbnailURL != "" {
		v.ThumbnailURL = null.StringFrom(nv.ThumbnailURL)
	}
	err := svc.videos.Upsert(v)
	if err != nil && !sync.IsLocalPersist(err) {
		return Video{}, err
	}
	return v, err
}

func (svc *Service) UpdateVideo(id string, uv UpdateVideo) (Video, error) {
	v, ok := svc.videos.Get(id)
	if !ok {
		return Video{}, ErrVideoNotFound
	}
	if err := uv.Validate(v); err != nil {
		return Video{}, err
	}
	v.Title = uv.Title
	v.URL = uv.URL
	v.Grade = uv.Grade
	if uv.ThumbnailURL != "" {
		v.ThumbnailURL = null.StringFrom(uv.ThumbnailURL)
	}
	err := svc.videos.Upsert(v)
	if err != nil && !sync.IsLocalPersist(err) {
		return Video{}, err
	}
	return v, err
}

// RecordView bumps the view counter. Lost increments under concurrent
// remote edits are acceptable; the counter is informational.
func (svc *Service) RecordView(id string) (Video, error) {
	v, ok := svc.videos.Get(id)
	if !ok {
		return Video{}, ErrVideoNotFound
	}
	v.Views++
	err := svc.videos.Upsert(v)
	if err != nil && !sync.IsLocalPersist(err) {
		return Video{}, err
	}
	return v, err
}

func (svc *Service) DeleteVideo(id string) error {
	if _, ok := svc.videos.Get(id); !ok {
		return ErrVideoNotFound
	}
	err := svc.videos.Delete(id)
	if err != nil && !sync.IsLocalPersist(err) {
		return err
	}
	return err
}

func (svc *Service) GetVideo(id string) (Video, error) {
	if v, ok := svc.videos.Get(id); ok {
		return v, nil
	}
	return Video{}, ErrVideoNotFound
}

func (svc *Service) VideosByGrade(grade core.GradeLevel) []Video {
	return svc.videos.Filter(func(v Video) bool { return v.Grade == grade })
}

func (svc *Service) QueryAllVideos() []Video {
	return svc.videos.All()
}

func (svc *Service) AddBook(nb NewBook) (Book, error) {
	if err := nb.Validate(); err != nil {
		return Book{}, err
	}
	b := Book{
		ID:        uuid.New().String(),
		Title:     nb.Title,
		URL:       nb.URL,
		Grade:     nb.Grade,
		CreatedAt: time.Now().UTC(),
	}
	err := svc.books.Upsert(b)
	if err != nil && !sync.IsLocalPersist(err) {
		return Book{}, err
	}
	return b, err
}

func (svc *Service) DeleteBook(id string) error {
	if _, ok := svc.books.Get(id); !ok {
		return ErrBookNotFound
	}
	err := svc.books.Delete(id)
	if err != nil && !sync.IsLocalPersist(err) {
		return err
	}
	return err
}

func (svc *Service) BooksByGrade(grade core.GradeLevel) []Book {
	return svc.books.Filter(func(b Book) bool { return b.Grade == grade })
}

func (svc *Service) QueryAllBooks() []Book {
	return svc.books.All()
}

func (svc *Service) AddResource(nr NewResource) (Resource, error) {
	if err := nr.Validate(); err != nil {
		return Resource{}, err
	}
	r := Resource{
		ID:        uuid.New().String(),
		Title:     nr.Title,
		Kind:      nr.Kind,
		Grade:     nr.Grade,
		CreatedAt: time.Now().UTC(),
	}
	if nr.Description != "" {
		r.Description = null.StringFrom(nr.Description)
	}
	if nr.FileURL != "" {
		r.FileURL = null.StringFrom(nr.FileURL)
	}
	if nr.FileType != "" {
		r.FileType = null.StringFrom(nr.FileType)
	}
	err := svc.resources.Upsert(r)
	if err != nil && !sync.IsLocalPersist(err) {
		return Resource{}, err
	}
	return r, err
}

func (svc *Service) DeleteResource(id string) error {
	if _, ok := svc.resources.Get(id); !ok {
		return ErrResourceNotFound
	}
	err := svc.resources.Delete(id)
	if err != nil && !sync.IsLocalPersist(err) {
		return err
	}
	return err
}

func (svc *Service) ResourcesByGrade(grade core.GradeLevel) []Resource {
	return svc.resources.Filter(func(r Resource) bool { return r.Grade == grade })
}

func (svc *Service) QueryAllResources() []Resource {
	return svc.resources.All()
}
