package utils

import (
	"context"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
)

// BlobStorage uploads binary payloads and returns a publicly fetchable URL.
type BlobStorage interface {
	Upload(ctx context.Context, objectPath, contentType string, data io.Reader) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

// FirebaseStorage stores blobs in a Firebase Storage bucket. Download URLs
// carry a per-object token so clients can fetch without a Google identity.
type FirebaseStorage struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

func NewFirebaseStorage(ctx context.Context, credentialsPath, bucketName string) (*FirebaseStorage, error) {
	conf := &firebase.Config{StorageBucket: bucketName}

	var app *firebase.App
	var err error
	if credentialsPath != "" {
		app, err = firebase.NewApp(ctx, conf, option.WithCredentialsFile(credentialsPath))
	} else {
		app, err = firebase.NewApp(ctx, conf)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %v", err)
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage client: %v", err)
	}

	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage bucket: %v", err)
	}

	return &FirebaseStorage{
		bucket:     bucket,
		bucketName: bucketName,
	}, nil
}

func (fs *FirebaseStorage) Upload(ctx context.Context, objectPath, contentType string, data io.Reader) (string, error) {
	token := GenerateUUID()

	writer := fs.bucket.Object(objectPath).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}

	if _, err := io.Copy(writer, data); err != nil {
		writer.Close()
		return "", NewUploadError("failed to write audio object", err)
	}
	if err := writer.Close(); err != nil {
		return "", NewUploadError("failed to finalize audio object", err)
	}

	downloadURL := fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		fs.bucketName, url.PathEscape(objectPath), token,
	)
	return downloadURL, nil
}

func (fs *FirebaseStorage) Delete(ctx context.Context, objectPath string) error {
	if err := fs.bucket.Object(objectPath).Delete(ctx); err != nil {
		return NewStorageError("failed to delete audio object", err)
	}
	return nil
}
