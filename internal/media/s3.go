package media

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type S3Uploader struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3Uploader(accessKeyID, accessKeySecret, baseEndpoint, bucket, publicURL string) *S3Uploader {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		mediaLogger.Fatal().Err(err).Msg("Error initializing S3 client")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(baseEndpoint)
	})

	return &S3Uploader{
		client:    client,
		bucket:    bucket,
		publicURL: publicURL,
	}
}

// Upload stores the image under a fresh uuid key and returns the durable
// public URL the draft content should reference.
func (u *S3Uploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	detected := mimetype.Detect(data)
	key := fmt.Sprintf("images/%s%s", uuid.NewString(), detected.Extension())

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(detected.String()),
	})
	if err != nil {
		mediaLogger.Error().Err(err).Str("key", key).Msg("Error uploading image")
		return "", err
	}

	mediaLogger.Info().Str("key", key).Int("bytes", len(data)).Msg("Image uploaded")
	return u.publicURL + "/" + key, nil
}
