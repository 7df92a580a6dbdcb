package bundle

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Entry names of a bundle.
const (
	ImagePNG      = "image.png"
	ImageSVG      = "image.svg"
	TruthFile     = "truth.nwk"
	PredictedFile = "predicted.nwk"
	MetaFile      = "meta.yaml"
)

// MaxEntrySize bounds the uncompressed size of a bundle entry.
const MaxEntrySize = 64 << 20

var (
	ErrEntryNotFound = errors.New("entry not found in bundle")
	ErrEntryTooLarge = errors.New("bundle entry is too large")
	ErrNoImage       = errors.New("bundle has no image")
)

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ImageMIME returns the media type of an image entry, or false when name is not an image.
func ImageMIME(name string) (string, bool) {
	mime, ok := imageTypes[strings.ToLower(filepath.Ext(name))]

	return mime, ok
}

// Bundle is a zip archive holding a tree image and its Newick descriptions. It is loaded in memory
// and written back as a whole.
type Bundle struct {
	entries map[string][]byte
	order   []string
}

// New creates an empty bundle.
func New() *Bundle {
	return &Bundle{entries: make(map[string][]byte)}
}

// Open reads the bundle stored at path.
func Open(path string) (*Bundle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open bundle %s", path)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to stat bundle %s", path)
	}

	b, err := Read(file, info.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read bundle %s", path)
	}

	return b, nil
}

// Read decodes a bundle from a zip archive of the given size.
func Read(r io.ReaderAt, size int64) (*Bundle, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "invalid zip archive")
	}

	b := New()

	for _, file := range archive.File {
		if file.FileInfo().IsDir() {
			continue
		}

		if file.UncompressedSize64 > MaxEntrySize {
			return nil, errors.Wrapf(ErrEntryTooLarge, "%s has %d bytes", file.Name, file.UncompressedSize64)
		}

		data, err := readEntry(file)
		if err != nil {
			return nil, err
		}

		b.Put(file.Name, data)
	}

	return b, nil
}

func readEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open entry %s", file.Name)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read entry %s", file.Name)
	}

	if len(data) > MaxEntrySize {
		return nil, errors.Wrapf(ErrEntryTooLarge, "%s", file.Name)
	}

	return data, nil
}

// Put adds an entry, replacing any entry with the same name.
func (b *Bundle) Put(name string, data []byte) {
	if _, ok := b.entries[name]; !ok {
		b.order = append(b.order, name)
	}

	b.entries[name] = data
}

// Remove deletes an entry. Removing a missing entry is a no-op.
func (b *Bundle) Remove(name string) {
	if _, ok := b.entries[name]; !ok {
		return
	}

	delete(b.entries, name)

	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)

			break
		}
	}
}

// Get returns the content of an entry.
func (b *Bundle) Get(name string) ([]byte, error) {
	data, ok := b.entries[name]
	if !ok {
		return nil, errors.Wrapf(ErrEntryNotFound, "%s", name)
	}

	return data, nil
}

// Has reports whether the bundle has an entry called name.
func (b *Bundle) Has(name string) bool {
	_, ok := b.entries[name]

	return ok
}

// Names returns the entry names in insertion order.
func (b *Bundle) Names() []string {
	names := make([]string, len(b.order))
	copy(names, b.order)

	return names
}

// Image returns the image entry of the bundle along with its name and media type.
// image.png and image.svg are preferred over any other image entry.
func (b *Bundle) Image() (name, mime string, data []byte, err error) {
	for _, candidate := range []string{ImagePNG, ImageSVG} {
		if data, ok := b.entries[candidate]; ok {
			mime, _ := ImageMIME(candidate)

			return candidate, mime, data, nil
		}
	}

	names := b.Names()
	sort.Strings(names)

	for _, candidate := range names {
		if mime, ok := ImageMIME(candidate); ok {
			return candidate, mime, b.entries[candidate], nil
		}
	}

	return "", "", nil, ErrNoImage
}

// Truth returns the ground truth Newick description.
func (b *Bundle) Truth() (string, error) {
	return b.text(TruthFile)
}

// Predicted returns the Newick description produced by inference.
func (b *Bundle) Predicted() (string, error) {
	return b.text(PredictedFile)
}

func (b *Bundle) text(name string) (string, error) {
	data, err := b.Get(name)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// SetTruth stores the ground truth Newick description.
func (b *Bundle) SetTruth(newick string) {
	b.Put(TruthFile, []byte(newick+"\n"))
}

// SetPredicted stores the Newick description produced by inference.
func (b *Bundle) SetPredicted(newick string) {
	b.Put(PredictedFile, []byte(newick+"\n"))
}

// Write encodes the bundle as a zip archive. Images are stored, other entries are deflated.
func (b *Bundle) Write(wrt io.Writer) error {
	archive := zip.NewWriter(wrt)
	modified := time.Now().UTC()

	for _, name := range b.order {
		method := zip.Deflate
		if _, ok := ImageMIME(name); ok && !strings.HasSuffix(name, ".svg") {
			method = zip.Store
		}

		entry, err := archive.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: modified})
		if err != nil {
			return errors.Wrapf(err, "unable to create entry %s", name)
		}

		_, err = io.Copy(entry, bytes.NewReader(b.entries[name]))
		if err != nil {
			return errors.Wrapf(err, "unable to write entry %s", name)
		}
	}

	err := archive.Close()
	if err != nil {
		return errors.Wrap(err, "unable to finish zip archive")
	}

	return nil
}

// Save writes the bundle to path. The archive is written to a temporary file of the same directory
// and renamed over path, so readers never see a partial archive.
func (b *Bundle) Save(path string) (err error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".bundle-*.zip.tmp")
	if err != nil {
		return errors.Wrapf(err, "unable to create temporary file in %s", dir)
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	err = b.Write(tmp)
	if err != nil {
		return err
	}

	err = tmp.Sync()
	if err != nil {
		return errors.Wrap(err, "unable to sync bundle")
	}

	err = tmp.Close()
	if err != nil {
		return errors.Wrap(err, "unable to close bundle")
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return errors.Wrapf(err, "unable to move bundle to %s", path)
	}

	return nil
}

// Append adds or replaces entries of the bundle stored at path, keeping the other entries.
func Append(path string, entries map[string][]byte) error {
	b, err := Open(path)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		b.Put(name, entries[name])
	}

	return b.Save(path)
}
