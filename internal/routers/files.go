package routers

import (
	"mime"
	"net/http"
	"path/filepath"

	"relay-api/internal/ctx"
	"relay-api/internal/shared"

	"github.com/labstack/echo/v4"
)

func (rr *RelayRouter) Upload(cc echo.Context) error {
	c := cc.(*ctx.Context)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, shared.NewAPIError(shared.ErrInvalidRequest))
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.Log.Errorw("Failed opening uploaded file", "error", err)
		return c.JSON(http.StatusInternalServerError, shared.NewAPIError(shared.ErrInternalServerError))
	}
	defer func() {
		_ = src.Close()
	}()

	name, rerr := rr.store.Save(src, fileHeader.Filename)
	if rerr != nil {
		return c.JSON(rerr.StatusCode, shared.NewAPIError(rerr))
	}

	c.Log.Infow("File stored", "filename", name, "original", fileHeader.Filename, "size", fileHeader.Size)
	return c.JSON(http.StatusOK, shared.UploadResponse{
		Filename:     name,
		DownloadPath: "/files/" + name,
	})
}

func (rr *RelayRouter) Download(cc echo.Context) error {
	c := cc.(*ctx.Context)

	name := c.Param("name")
	f, rerr := rr.store.Open(name)
	if rerr != nil {
		return c.JSON(rerr.StatusCode, shared.NewAPIError(rerr))
	}
	defer func() {
		_ = f.Close()
	}()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, contentType, f)
}
