package upload

// StoredFile is a file part already persisted by the Sink.
type StoredFile struct {
	Path     string // store-relative path returned by the Sink
	Filename string // name the client sent, if any
}

// Form holds the decoded fields of one request. The last value wins for
// repeated text fields and for stored fields without Multiple.
type Form struct {
	values map[string]string
	stored map[string][]StoredFile
}

func newForm() *Form {
	return &Form{
		values: map[string]string{},
		stored: map[string][]StoredFile{},
	}
}

func (f *Form) has(field Field) bool {
	if field.Kind == Stored {
		return len(f.stored[field.Name]) > 0
	}
	_, ok := f.values[field.Name]
	return ok
}

// Value returns a text field.
func (f *Form) Value(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Stored returns the last stored file sent under name.
func (f *Form) Stored(name string) (StoredFile, bool) {
	files := f.stored[name]
	if len(files) == 0 {
		return StoredFile{}, false
	}
	return files[len(files)-1], true
}

// StoredAll returns every stored file sent under name, in arrival order.
func (f *Form) StoredAll(name string) []StoredFile {
	return f.stored[name]
}

// StoredPaths lists the paths of every stored file in the form.
func (f *Form) StoredPaths() []string {
	var paths []string
	for _, files := range f.stored {
		for _, s := range files {
			paths = append(paths, s.Path)
		}
	}
	return paths
}
