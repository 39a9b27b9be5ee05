package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStorage keeps images in a Mongo GridFS bucket. Files are served by id under baseURL.
type GridFSStorage struct {
	bucket  *gridfs.Bucket
	baseURL string
}

func NewGridFSStorage(bucket *gridfs.Bucket, baseURL string) *GridFSStorage {
	return &GridFSStorage{bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *GridFSStorage) Save(_ context.Context, name, contentType string, data []byte) (string, error) {
	id := primitive.NewObjectID()
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})

	if err := s.bucket.UploadFromStreamWithID(id, name, bytes.NewReader(data), opts); err != nil {
		return "", err
	}
	return s.baseURL + "/" + id.Hex(), nil
}

func (s *GridFSStorage) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return ErrForeignURL
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(url, s.baseURL+"/"))
	if err != nil {
		return ErrForeignURL
	}

	err = s.bucket.Delete(id)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil
	}
	return err
}

// Open streams the image with the given hex id and returns its content type.
func (s *GridFSStorage) Open(_ context.Context, hexID string) (io.ReadCloser, string, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, "", ErrNotFound
	}

	stream, err := s.bucket.OpenDownloadStream(id)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}

	contentType := "application/octet-stream"
	if meta := stream.GetFile().Metadata; meta != nil {
		if ct, ok := meta.Lookup("content_type").StringValueOK(); ok {
			contentType = ct
		}
	}
	return stream, contentType, nil
}
