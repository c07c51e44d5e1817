package api

import (
	"io"
	"net/http"
	"path/filepath"
	"unicode/utf8"

	echo "github.com/labstack/echo/v5"
)

// previewLimit caps how much of an uploaded text file is echoed back in the
// response, mirroring the original's truncated UTF-8 preview.
const previewLimit = 2000

// uploadHandler handles POST /api/upload/{chatId}: stores every uploaded
// file under uploads/<chatId>/, flattening any folder structure the browser
// preserved in the filename (webkitdirectory uploads carry "dir/sub/file.sql"
// as the form filename), and returns a UTF-8 preview for text-like files.
func (s *Server) uploadHandler(c *echo.Context) error {
	chatID := c.Param("chatId")
	if chatID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chat id is required")
	}

	multipart, err := c.MultipartForm()
	if err != nil || len(multipart.File) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files uploaded")
	}

	destDir := filepath.Join(s.cfg.UploadDir, chatID)
	if err := ensureDir(destDir); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to prepare upload directory")
	}

	var uploaded []UploadedFile
	for _, headers := range multipart.File {
		for _, fh := range headers {
			name := filepath.Base(filepath.FromSlash(fh.Filename))
			if name == "" || name == "." {
				continue
			}

			src, err := fh.Open()
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to read uploaded file")
			}

			dstPath := filepath.Join(destDir, name)
			written, preview, err := writeUploadWithPreview(dstPath, src)
			src.Close()
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to store uploaded file")
			}

			uploaded = append(uploaded, UploadedFile{Name: name, Size: written, Preview: preview})
		}
	}

	if len(uploaded) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files uploaded")
	}

	return c.JSON(http.StatusOK, &UploadResponse{Files: uploaded})
}

func writeUploadWithPreview(dstPath string, src io.Reader) (int64, string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return 0, "", err
	}
	if err := writeFile(dstPath, data); err != nil {
		return 0, "", err
	}

	preview := ""
	if utf8.Valid(data) {
		text := string(data)
		if len(text) > previewLimit {
			text = text[:previewLimit]
		}
		preview = text
	}
	return int64(len(data)), preview, nil
}
