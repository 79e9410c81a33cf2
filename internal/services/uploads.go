package services

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"threadloom/internal/errs"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

// UploadService is the local blob store: it takes an image, downscales
// anything wider than maxWidth and hands back a stable URL under
// /uploads/. The URL is what discussions and replies persist.
type UploadService struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

const uploadMaxWidth = 1600

func NewUploadService(logger *zap.Logger) *UploadService {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Fatal("failed to create upload dir", zap.String("dir", dir), zap.Error(err))
	}

	maxMB, _ := strconv.Atoi(os.Getenv("UPLOAD_MAX_MB"))
	if maxMB <= 0 {
		maxMB = 8
	}

	return &UploadService{
		dir:      dir,
		maxBytes: int64(maxMB) << 20,
		logger:   logger,
	}
}

type UploadResult struct {
	URL string `json:"url"`
}

// Dir is the filesystem root the static /uploads route serves.
func (s *UploadService) Dir() string { return s.dir }

func (s *UploadService) Save(file multipart.File, header *multipart.FileHeader) (*UploadResult, error) {
	if header.Size > s.maxBytes {
		return nil, errs.Validation("file exceeds %d MB limit", s.maxBytes>>20)
	}

	raw, err := io.ReadAll(io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		return nil, errs.Internal(err, "read upload")
	}
	if int64(len(raw)) > s.maxBytes {
		return nil, errs.Validation("file exceeds %d MB limit", s.maxBytes>>20)
	}

	// Sniff the real content type, the client's header is not trusted
	contentType := http.DetectContentType(raw)
	var ext string
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	default:
		return nil, errs.Validation("unsupported image type %s", contentType)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.Validation("file is not a decodable image")
	}

	out := raw
	if img.Bounds().Dx() > uploadMaxWidth {
		scaled := resize.Resize(uploadMaxWidth, 0, img, resize.Lanczos3)
		var buf bytes.Buffer
		switch ext {
		case ".jpg":
			err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85})
		case ".png":
			err = png.Encode(&buf, scaled)
		case ".gif":
			err = gif.Encode(&buf, scaled, nil)
		}
		if err != nil {
			return nil, errs.Internal(err, "encode resized image")
		}
		out = buf.Bytes()
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, errs.Internal(err, "write upload")
	}

	s.logger.Info("image stored", zap.String("name", name), zap.Int("bytes", len(out)))
	return &UploadResult{URL: "/uploads/" + name}, nil
}
