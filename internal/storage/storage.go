package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/Additional-Code/handyman/internal/config"
)

var (
	// ErrRejected marks uploads refused by validation; the message is safe to show clients.
	ErrRejected = errors.New("file rejected")
	// ErrInvalidName is returned for filenames that escape the storage directory.
	ErrInvalidName = errors.New("invalid filename")
)

// SavedFile describes a stored upload.
type SavedFile struct {
	Filename string
	Path     string
	Size     int64
}

// Store persists and removes uploaded photos.
type Store interface {
	Save(ctx context.Context, originalName string, r io.Reader) (SavedFile, error)
	Delete(ctx context.Context, filename string) error
	Path(filename string) string
}

// Module provides the local photo store.
var Module = fx.Provide(NewLocal)

// Local stores files in a directory on disk.
type Local struct {
	dir          string
	maxSize      int64
	allowed      map[string]struct{}
	optimize     bool
	maxDimension int
	quality      int
	logger       *zap.Logger
}

// NewLocal prepares the photo directory under the configured upload dir.
func NewLocal(cfg config.Config, logger *zap.Logger) (Store, error) {
	return newLocal(cfg.Upload, logger)
}

func newLocal(cfg config.Upload, logger *zap.Logger) (*Local, error) {
	dir := filepath.Join(cfg.Dir, "photos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &Local{
		dir:          dir,
		maxSize:      cfg.MaxFileSize,
		allowed:      allowed,
		optimize:     cfg.Optimize,
		maxDimension: cfg.MaxDimension,
		quality:      cfg.JPEGQuality,
		logger:       logger,
	}, nil
}

// Path returns the absolute location of a stored file.
func (l *Local) Path(filename string) string {
	return filepath.Join(l.dir, filepath.Base(filename))
}

// Save validates the upload, writes it under a random name and optimizes it.
func (l *Local) Save(ctx context.Context, originalName string, r io.Reader) (SavedFile, error) {
	if err := ctx.Err(); err != nil {
		return SavedFile{}, err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if _, ok := l.allowed[ext]; !ok {
		return SavedFile{}, fmt.Errorf("%w: file type %q not allowed", ErrRejected, ext)
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return SavedFile{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	n, err := io.Copy(tmp, io.LimitReader(r, l.maxSize+1))
	closeErr := tmp.Close()
	if err != nil {
		cleanup()
		return SavedFile{}, fmt.Errorf("write upload: %w", err)
	}
	if closeErr != nil {
		cleanup()
		return SavedFile{}, fmt.Errorf("close upload: %w", closeErr)
	}
	if n > l.maxSize {
		cleanup()
		return SavedFile{}, fmt.Errorf("%w: file is too large, maximum size is %dMB", ErrRejected, l.maxSize>>20)
	}
	if err := checkImage(tmpName); err != nil {
		cleanup()
		return SavedFile{}, fmt.Errorf("%w: %s is not a valid image", ErrRejected, filepath.Base(originalName))
	}

	filename := uuid.NewString() + "." + ext
	path := filepath.Join(l.dir, filename)
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return SavedFile{}, fmt.Errorf("store upload: %w", err)
	}

	if l.optimize {
		if err := l.optimizeImage(path, ext); err != nil {
			l.logger.Warn("image optimization failed", zap.String("filename", filename), zap.Error(err))
		}
	}

	size := n
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	return SavedFile{Filename: filename, Path: path, Size: size}, nil
}

// Delete removes a stored file. Missing files are reported as errors.
func (l *Local) Delete(_ context.Context, filename string) error {
	if filename == "" || filepath.Base(filename) != filename || strings.HasPrefix(filename, ".") {
		return ErrInvalidName
	}
	return os.Remove(filepath.Join(l.dir, filename))
}

func checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err
}

// optimizeImage downscales JPEG and PNG files to fit maxDimension and
// re-encodes JPEGs at the configured quality. Other formats are left untouched.
func (l *Local) optimizeImage(path, ext string) error {
	if ext != "jpg" && ext != "jpeg" && ext != "png" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return err
	}

	img := src
	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), l.maxDimension)
	resized := w != b.Dx() || h != b.Dy()
	if resized {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		img = dst
	}
	if ext == "png" && !resized {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".optimize-*")
	if err != nil {
		return err
	}
	if ext == "png" {
		err = png.Encode(tmp, img)
	} else {
		err = jpeg.Encode(tmp, img, &jpeg.Options{Quality: l.quality})
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// fit scales w×h down proportionally so neither side exceeds limit.
func fit(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}

// DeleteResult tallies a batch deletion.
type DeleteResult struct {
	Deleted int
	Failed  int
}

// DeleteAll removes every filename, counting failures instead of stopping.
func DeleteAll(ctx context.Context, store Store, filenames []string, logger *zap.Logger) DeleteResult {
	var res DeleteResult
	for _, name := range filenames {
		if err := store.Delete(ctx, name); err != nil {
			res.Failed++
			if logger != nil {
				logger.Warn("photo delete failed", zap.String("filename", name), zap.Error(err))
			}
			continue
		}
		res.Deleted++
	}
	return res
}

// RejectionReason returns the client-facing part of an ErrRejected error.
func RejectionReason(err error) string {
	return strings.TrimPrefix(err.Error(), ErrRejected.Error()+": ")
}
