// Package upload decodes multipart request bodies into named text values and
// stored files. Parts are consumed once, in arrival order, one at a time; file
// parts are streamed (or transformed, one at a time) straight into a Sink
// because the request body cannot be replayed.
package upload

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/eringen/portal/media"
)

var (
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidEncoding is returned when a text field is not valid UTF-8
	// or cannot be parsed as the expected type.
	ErrInvalidEncoding = errors.New("invalid encoding")
	// ErrPayloadTooLarge is returned when a field exceeds its size limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrMalformed is returned when the body is not a readable multipart stream.
	ErrMalformed = errors.New("malformed multipart body")
)

// FieldError ties a decoding failure to the field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Kind selects how a field's bytes are handled.
type Kind int

const (
	// Text fields are read into memory (bounded) and must be UTF-8.
	Text Kind = iota
	// Stored fields are streamed into the Sink as they arrive.
	Stored
)

// Transform rewrites one stored file before it reaches the Sink.
type Transform func(r io.Reader) ([]byte, error)

// Field describes one recognised form field.
type Field struct {
	Name     string
	Kind     Kind
	Required bool

	// Multiple keeps every Stored part sent under Name instead of only
	// the last one.
	Multiple bool
	// Transform, if set, is applied to each Stored part, one part at a time.
	Transform Transform
	// Ext overrides the extension inferred from the part.
	Ext string
}

// Schema is the set of fields an operation recognises. Parts whose name is
// not in the schema are drained and ignored.
type Schema []Field

func (s Schema) lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Sink persists stored file parts. *media.Store satisfies it; Put must
// report an exceeded limit with media.ErrTooLarge.
type Sink interface {
	Put(dir string, r io.Reader, ext string, max int64) (string, error)
	Remove(rel string) error
}

// Decoder turns multipart streams into Forms.
type Decoder struct {
	Sink         Sink
	Dir          string // Sink directory for Stored fields
	MaxFieldSize int64  // per text field; 0 means unbounded
	MaxFileSize  int64  // per file field; 0 means unbounded
}

// Decode reads every part of mr against schema. On failure, files already
// handed to the Sink during this call are removed again.
func (d *Decoder) Decode(ctx context.Context, mr *multipart.Reader, schema Schema) (_ *Form, err error) {
	form := newForm()
	defer func() {
		if err != nil {
			d.discard(form)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		err = d.decodePart(part, schema, form)
		part.Close()
		if err != nil {
			return nil, err
		}
	}

	for _, f := range schema {
		if f.Required && !form.has(f) {
			return nil, &FieldError{Field: f.Name, Err: ErrMissingField}
		}
	}
	return form, nil
}

func (d *Decoder) decodePart(part *multipart.Part, schema Schema, form *Form) error {
	name := part.FormName()
	field, ok := schema.lookup(name)
	if !ok {
		_, err := io.Copy(io.Discard, part)
		return err
	}

	switch field.Kind {
	case Text:
		data, err := readBounded(part, d.MaxFieldSize)
		if err != nil {
			return &FieldError{Field: name, Err: err}
		}
		if !utf8.Valid(data) {
			return &FieldError{Field: name, Err: ErrInvalidEncoding}
		}
		form.values[name] = string(data)

	case Stored:
		br := bufio.NewReader(part)
		if _, err := br.Peek(1); err == io.EOF {
			// Browsers send an empty part when no file was chosen.
			return nil
		}
		var src io.Reader = br
		limit := d.MaxFileSize
		if field.Transform != nil {
			data, err := d.transform(field.Transform, br)
			if err != nil {
				return &FieldError{Field: name, Err: err}
			}
			src, limit = bytes.NewReader(data), 0
		}
		ext := field.Ext
		if ext == "" {
			ext = partExt(part)
		}

		rel, err := d.Sink.Put(d.Dir, src, ext, limit)
		if err != nil {
			if errors.Is(err, media.ErrTooLarge) {
				return &FieldError{Field: name, Err: ErrPayloadTooLarge}
			}
			return fmt.Errorf("upload: store %s: %w", name, err)
		}
		file := StoredFile{Path: rel, Filename: part.FileName()}
		if field.Multiple {
			form.stored[name] = append(form.stored[name], file)
			return nil
		}
		for _, prev := range form.stored[name] {
			d.Sink.Remove(prev.Path)
		}
		form.stored[name] = []StoredFile{file}
	}
	return nil
}

// transform runs fn over r, bounding the input by MaxFileSize.
func (d *Decoder) transform(fn Transform, r io.Reader) ([]byte, error) {
	if d.MaxFileSize <= 0 {
		return fn(r)
	}
	cr := &countingReader{r: io.LimitReader(r, d.MaxFileSize+1)}
	data, err := fn(cr)
	if cr.n > d.MaxFileSize {
		return nil, ErrPayloadTooLarge
	}
	return data, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (d *Decoder) discard(form *Form) {
	if form == nil || d.Sink == nil {
		return
	}
	for _, p := range form.StoredPaths() {
		d.Sink.Remove(p)
	}
}

// readBounded reads r fully, failing with ErrPayloadTooLarge past max bytes.
func readBounded(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, ErrPayloadTooLarge
	}
	return data, nil
}

var imageExts = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// partExt infers a file extension from the part's file name, falling back
// to its declared content type.
func partExt(part *multipart.Part) string {
	if ext := strings.TrimPrefix(filepath.Ext(part.FileName()), "."); ext != "" {
		return strings.ToLower(ext)
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(part.Header.Get("Content-Type"), ";")[0]))
	return imageExts[ct]
}
