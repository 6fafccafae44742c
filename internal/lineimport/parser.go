package lineimport

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// ErrNoDocuments is returned for an archive without any line document
var ErrNoDocuments = errors.New("archive contains no line documents")

// maxDocumentSize caps a single JSON member of an archive
const maxDocumentSize = 16 << 20

// ParseArchive opens a ZIP file and decodes every .json member
func ParseArchive(zipPath string) ([]LineDocument, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	return parseZip(&r.Reader)
}

// ParseArchiveReader decodes an in-memory or uploaded ZIP archive
func ParseArchiveReader(ra io.ReaderAt, size int64) ([]LineDocument, error) {
	r, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return parseZip(r)
}

func parseZip(r *zip.Reader) ([]LineDocument, error) {
	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".json") {
			continue
		}
		// skip macOS resource forks
		if strings.HasPrefix(path.Base(f.Name), "._") {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	if len(files) == 0 {
		return nil, ErrNoDocuments
	}

	var docs []LineDocument
	for _, f := range files {
		parsed, err := parseMember(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}
		docs = append(docs, parsed...)
	}

	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return docs, nil
}

func parseMember(f *zip.File) ([]LineDocument, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentSize)
	}
	return ParseDocuments(data)
}

// ParseDocuments decodes a single line document or an array of them
func ParseDocuments(data []byte) ([]LineDocument, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var docs []LineDocument
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}

	var doc LineDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return []LineDocument{doc}, nil
}
