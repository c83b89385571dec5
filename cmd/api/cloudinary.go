package main

import (
	"context"
	"errors"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// cloudinaryUploader adapts the Cloudinary client to the image-host
// contract shared by the store handlers and the verification workflow.
type cloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

func (u *cloudinaryUploader) Upload(ctx context.Context, file io.Reader, folder string) (string, string, error) {
	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: folder,
	})
	if err != nil {
		return "", "", err
	}
	if resp.SecureURL == "" {
		return "", "", errors.New(resp.Error.Message)
	}
	return resp.SecureURL, resp.PublicID, nil
}

func (u *cloudinaryUploader) Delete(ctx context.Context, publicID string) error {
	_, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	return err
}
