package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/smallbiznis/cbam/internal/draft/domain"
)

// File stores one JSON document per slot under a directory.
type File struct {
	dir string
}

func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) path(slot string) string {
	return filepath.Join(f.dir, slot+".json")
}

func (f *File) Save(_ context.Context, slot string, d domain.FormDraft) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	data, err := Encode(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("create draft dir: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, slot+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path(slot))
}

func (f *File) Load(_ context.Context, slot string) (domain.FormDraft, error) {
	if err := checkSlot(slot); err != nil {
		return domain.FormDraft{}, err
	}
	data, err := os.ReadFile(f.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.FormDraft{}, domain.ErrDraftAbsent
	}
	if err != nil {
		return domain.FormDraft{}, err
	}
	return Decode(data)
}

func (f *File) Clear(_ context.Context, slot string) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	err := os.Remove(f.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
