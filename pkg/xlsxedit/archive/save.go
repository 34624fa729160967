package archive

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/worksheet"
)

// Save writes the package to dest. The dimension of every parsed worksheet
// is refreshed first. Entries that were never parsed, or were parsed but not
// modified, are copied from the source without recompression. Modified and
// new parts are deflated at the given level. The file is written next to
// dest and renamed over it, so dest may be the file the archive was read
// from.
func (a *Archive) Save(dest string, level int) (err error) {
	for _, e := range a.entries {
		if doc, ok := e.part.(*worksheet.Document); ok {
			doc.UpdateDimension()
		}
	}
	if err := a.registerSharedStrings(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})
	for _, e := range a.entries {
		if err = writeEntry(zw, e); err != nil {
			return err
		}
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	mode := fs.FileMode(0o644)
	if fi, statErr := os.Stat(dest); statErr == nil {
		mode = fi.Mode().Perm()
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, e *entry) error {
	if e.file != nil && (e.part == nil || !e.part.Dirty()) {
		if err := zw.Copy(e.file); err != nil {
			return fmt.Errorf("%w: copy %s: %v", ErrIO, e.name, err)
		}
		return nil
	}

	data, err := e.part.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSerialization, e.name, err)
	}
	hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
	if e.file != nil {
		hdr.Modified = e.file.Modified
		hdr.Comment = e.file.Comment
	} else {
		hdr.Modified = time.Now()
	}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIO, e.name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIO, e.name, err)
	}
	return nil
}
