package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"

	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tensor"
)

// Bundle is the in-memory form of an on-disk .tgz archive: a textual
// graph document (opaque to this package — produced/consumed by the
// out-of-scope NNEF serializer) plus the named parameter tensors
// referenced from it by <path>.dat entries (spec.md §6.3).
type Bundle struct {
	GraphDoc []byte
	Tensors  map[string]*tensor.Tensor
}

// Write serializes bundle as a gzip-compressed tar stream: graph.nnef
// first, then one <name>.dat entry per tensor in Tensors.
func Write(w io.Writer, bundle *Bundle) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	if err := writeEntry(tw, "graph.nnef", bundle.GraphDoc); err != nil {
		return err
	}
	for name, t := range bundle.Tensors {
		var buf bytes.Buffer
		if err := WriteTensor(&buf, t); err != nil {
			return err
		}
		if err := writeEntry(tw, name+".dat", buf.Bytes()); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return xerrors.ErrIO
	}
	if err := gz.Close(); err != nil {
		return xerrors.ErrIO
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{Name: name, Size: int64(len(data)), Mode: 0644}
	if err := tw.WriteHeader(hdr); err != nil {
		return xerrors.ErrIO
	}
	if _, err := tw.Write(data); err != nil {
		return xerrors.ErrIO
	}
	return nil
}

// Read parses a gzip-compressed tar stream written by Write back into a
// Bundle. Unrecognized tensor encodings fail with
// ErrUnsupportedTensorEncoding via ReadTensor; anything that isn't
// graph.nnef or a *.dat entry is ignored.
func Read(r io.Reader) (*Bundle, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, xerrors.ErrIO
	}
	defer gz.Close()
	tr := tar.NewReader(gz)

	bundle := &Bundle{Tensors: make(map[string]*tensor.Tensor)}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xerrors.ErrParse
		}
		switch {
		case hdr.Name == "graph.nnef":
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, xerrors.ErrIO
			}
			bundle.GraphDoc = data
		case len(hdr.Name) > 4 && hdr.Name[len(hdr.Name)-4:] == ".dat":
			t, err := ReadTensor(tr)
			if err != nil {
				return nil, err
			}
			bundle.Tensors[hdr.Name[:len(hdr.Name)-4]] = t
		}
	}
	return bundle, nil
}
