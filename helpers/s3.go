package helpers

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

const pdfContentType = "application/pdf"

type uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3Archive stores rendered receipts in a bucket.
type S3Archive struct {
	Uploader uploader
	Bucket   string
	Prefix   string
	BaseURL  string
}

func NewS3Archive(sess *session.Session, bucket, prefix, baseURL string) *S3Archive {
	return &S3Archive{
		Uploader: s3manager.NewUploader(sess),
		Bucket:   bucket,
		Prefix:   prefix,
		BaseURL:  baseURL,
	}
}

// Archive uploads doc under Prefix/name and returns its public URL.
func (a *S3Archive) Archive(ctx context.Context, name string, doc []byte) (string, error) {
	key := path.Join(a.Prefix, name)

	out, err := a.Uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc),
		ContentType: aws.String(pdfContentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed uploading %s", key)
	}

	if a.BaseURL != "" {
		return strings.TrimRight(a.BaseURL, "/") + "/" + key, nil
	}

	return out.Location, nil
}
