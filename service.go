package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/eringen/portal/media"
	"github.com/eringen/portal/pagination"
	"github.com/eringen/portal/upload"
)

// ContentRepository is the row storage the ContentService writes through.
// *Store implements it.
type ContentRepository interface {
	ListContent(ctx context.Context, kind Kind, w pagination.Window) ([]ContentItem, int, error)
	GetContent(ctx context.Context, kind Kind, id int64) (ContentItem, error)
	AddContent(ctx context.Context, kind Kind, item ContentItem) (int64, error)
	EditContent(ctx context.Context, kind Kind, item ContentItem) (bool, error)
	DeleteContent(ctx context.Context, kind Kind, id int64) error
}

// ServiceConfig carries the directories, limits and formats the service uses.
type ServiceConfig struct {
	UploadDir     string
	GalleryDir    string
	MaxFieldSize  int64
	MaxFileSize   int64
	DateLayout    string
	GalleryWidth  int
	GalleryHeight int
	GalleryFilter media.Filter
}

// ContentService turns multipart requests into content rows with their
// images, and serves paginated listings of content and gallery files.
type ContentService struct {
	repo  ContentRepository
	media *media.Store
	cfg   ServiceConfig
	log   *slog.Logger
	now   func() time.Time
}

// NewContentService wires a repository and media store together.
func NewContentService(repo ContentRepository, m *media.Store, cfg ServiceConfig, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = "02-01-2006"
	}
	return &ContentService{repo: repo, media: m, cfg: cfg, log: logger, now: time.Now}
}

var (
	addSchema = upload.Schema{
		{Name: "image", Kind: upload.Stored, Required: true},
		{Name: "title", Kind: upload.Text, Required: true},
		{Name: "content", Kind: upload.Text, Required: true},
	}
	editSchema = upload.Schema{
		{Name: "id", Kind: upload.Text, Required: true},
		{Name: "image", Kind: upload.Stored},
		{Name: "title", Kind: upload.Text, Required: true},
		{Name: "content", Kind: upload.Text, Required: true},
	}
)

func (s *ContentService) decoder(dir string) *upload.Decoder {
	return &upload.Decoder{
		Sink:         s.media,
		Dir:          dir,
		MaxFieldSize: s.cfg.MaxFieldSize,
		MaxFileSize:  s.cfg.MaxFileSize,
	}
}

// List returns one page of kind. page and size must be at least 1.
func (s *ContentService) List(ctx context.Context, kind Kind, page, size int) ([]ContentItem, pagination.Page, error) {
	if page < 1 || size < 1 {
		return nil, pagination.Page{}, fmt.Errorf("%w: page %d size %d", ErrInvalidPage, page, size)
	}
	w := pagination.Compute(0, page, size).Window
	items, total, err := s.repo.ListContent(ctx, kind, w)
	if err != nil {
		return nil, pagination.Page{}, err
	}
	return items, pagination.Compute(total, page, size), nil
}

// Get returns one item.
func (s *ContentService) Get(ctx context.Context, kind Kind, id int64) (ContentItem, error) {
	return s.repo.GetContent(ctx, kind, id)
}

// Add decodes an image, title and content from mr and inserts a new item
// attributed to actor. The image is mandatory.
func (s *ContentService) Add(ctx context.Context, kind Kind, mr *multipart.Reader, actor Actor) (ContentItem, error) {
	form, err := s.decoder(s.cfg.UploadDir).Decode(ctx, mr, addSchema)
	if err != nil {
		return ContentItem{}, err
	}
	img, _ := form.Stored("image")
	item := ContentItem{
		Kind:      kind,
		ImagePath: img.Path,
		Title:     value(form, "title"),
		Body:      value(form, "content"),
		Date:      s.now().Format(s.cfg.DateLayout),
		Author:    actor.Attribution(),
	}

	id, err := s.repo.AddContent(ctx, kind, item)
	if err != nil {
		s.discard(img.Path)
		return ContentItem{}, err
	}
	item.ID = id
	s.log.Info("content created", "kind", kind.String(), "id", id, "actor", actor.Username, "path", img.Path)
	return item, nil
}

// Edit decodes an id, title, content and optional image from mr and
// overwrites that item. Without a new image the current image path is kept.
// An id with no row is a silent no-op; any image stored for it is removed.
func (s *ContentService) Edit(ctx context.Context, kind Kind, mr *multipart.Reader, actor Actor) (ContentItem, error) {
	form, err := s.decoder(s.cfg.UploadDir).Decode(ctx, mr, editSchema)
	if err != nil {
		return ContentItem{}, err
	}
	img, hasImage := form.Stored("image")

	id, err := strconv.ParseInt(value(form, "id"), 10, 64)
	if err != nil {
		s.discard(img.Path)
		return ContentItem{}, &upload.FieldError{Field: "id", Err: upload.ErrInvalidEncoding}
	}

	item := ContentItem{
		Kind:   kind,
		ID:     id,
		Title:  value(form, "title"),
		Body:   value(form, "content"),
		Date:   s.now().Format(s.cfg.DateLayout),
		Author: actor.Attribution(),
	}
	if hasImage {
		item.ImagePath = img.Path
	} else {
		current, err := s.repo.GetContent(ctx, kind, id)
		if err != nil {
			return ContentItem{}, err
		}
		item.ImagePath = current.ImagePath
	}

	updated, err := s.repo.EditContent(ctx, kind, item)
	if err != nil {
		s.discard(img.Path)
		return ContentItem{}, err
	}
	if !updated {
		s.discard(img.Path)
		s.log.Warn("content edit matched no row", "kind", kind.String(), "id", id, "actor", actor.Username)
		return item, nil
	}
	s.log.Info("content edited", "kind", kind.String(), "id", id, "actor", actor.Username, "path", item.ImagePath)
	return item, nil
}

// Delete removes the row only. The image file stays on disk.
func (s *ContentService) Delete(ctx context.Context, kind Kind, id int64, actor Actor) error {
	if err := s.repo.DeleteContent(ctx, kind, id); err != nil {
		return err
	}
	s.log.Info("content deleted", "kind", kind.String(), "id", id, "actor", actor.Username)
	return nil
}

// gallerySchema resizes every "image" part to the gallery size and stores
// it as WebP as soon as it arrives.
func (s *ContentService) gallerySchema() upload.Schema {
	return upload.Schema{{
		Name:     "image",
		Kind:     upload.Stored,
		Required: true,
		Multiple: true,
		Ext:      "webp",
		Transform: func(r io.Reader) ([]byte, error) {
			return media.Resize(r, s.cfg.GalleryWidth, s.cfg.GalleryHeight, s.cfg.GalleryFilter)
		},
	}}
}

// AddGalleryImages resizes every "image" part of mr to the configured gallery
// size and stores the results as WebP. Either all images are stored or none.
func (s *ContentService) AddGalleryImages(ctx context.Context, mr *multipart.Reader) ([]string, error) {
	form, err := s.decoder(s.cfg.GalleryDir).Decode(ctx, mr, s.gallerySchema())
	if err != nil {
		return nil, err
	}
	files := form.StoredAll("image")
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
		s.log.Info("gallery image stored", "path", f.Path, "filename", f.Filename)
	}
	return paths, nil
}

// GalleryPage returns one page of gallery file names, oldest first.
func (s *ContentService) GalleryPage(page, size int) ([]string, error) {
	if page < 1 || size < 1 {
		return nil, fmt.Errorf("%w: page %d size %d", ErrInvalidPage, page, size)
	}
	names, err := s.media.List(s.cfg.GalleryDir)
	if err != nil {
		return nil, err
	}
	start, end := pagination.Compute(len(names), page, size).Bounds(len(names))
	return names[start:end], nil
}

// GalleryCount returns the number of gallery files.
func (s *ContentService) GalleryCount() (int, error) {
	names, err := s.media.List(s.cfg.GalleryDir)
	return len(names), err
}

// DeleteGalleryImage removes one gallery file by name.
func (s *ContentService) DeleteGalleryImage(name string) error {
	if err := s.media.Delete(s.cfg.GalleryDir, name); err != nil {
		return err
	}
	s.log.Info("gallery image deleted", "name", name)
	return nil
}

// Slider returns up to n gallery file names in random order.
func (s *ContentService) Slider(n int) ([]string, error) {
	names, err := s.media.List(s.cfg.GalleryDir)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	if len(names) > n {
		names = names[:n]
	}
	return names, nil
}

// discard removes a stored file that no committed row references.
func (s *ContentService) discard(rel string) {
	if rel == "" {
		return
	}
	if err := s.media.Remove(rel); err != nil {
		s.log.Warn("remove orphaned upload", "path", rel, "err", err)
	}
}

func value(form *upload.Form, name string) string {
	v, _ := form.Value(name)
	return v
}
