package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"nyc-local-events-pipeline/internal/models"
)

// S3Client handles S3 operations for the events pipeline: raw blob batches in,
// geocoded event collections out.
type S3Client struct {
	client     *s3.Client
	bucketName string
	region     string
}

// S3Config holds configuration for the S3 client
type S3Config struct {
	BucketName string
	Region     string
	Profile    string // AWS profile to use
}

// S3UploadResult represents the result of an S3 upload operation
type S3UploadResult struct {
	Key         string    `json:"key"`
	Location    string    `json:"location"`
	ETag        string    `json:"etag"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ContentType string    `json:"content_type"`
	PublicURL   string    `json:"public_url"`
}

// NewS3Client creates a new S3 client with AWS SDK v2
func NewS3Client(ctx context.Context) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	bucketName := os.Getenv("S3_BUCKET_NAME")
	if bucketName == "" {
		bucketName = "nyc-local-events-data-use1"
	}

	return &S3Client{
		client:     s3.NewFromConfig(cfg),
		bucketName: bucketName,
		region:     cfg.Region,
	}, nil
}

// NewS3ClientWithConfig creates an S3 client with custom configuration
func NewS3ClientWithConfig(ctx context.Context, s3Config S3Config) (*S3Client, error) {
	var cfg aws.Config
	var err error

	if s3Config.Profile != "" {
		cfg, err = config.LoadDefaultConfig(
			ctx,
			config.WithSharedConfigProfile(s3Config.Profile),
		)
	} else {
		cfg, err = config.LoadDefaultConfig(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if s3Config.Region != "" {
		cfg.Region = s3Config.Region
	}

	return &S3Client{
		client:     s3.NewFromConfig(cfg),
		bucketName: s3Config.BucketName,
		region:     cfg.Region,
	}, nil
}

// UploadEvents uploads a geocoded event collection to S3 as JSON
func (s *S3Client) UploadEvents(ctx context.Context, runID string, events []models.GeocodedEvent, sources []string, key string) (*S3UploadResult, error) {
	output := models.EventsOutput{
		Metadata: models.NewEventsMetadata(runID, len(events), sources),
		Events:   events,
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events to JSON: %w", err)
	}

	return s.uploadJSON(ctx, jsonData, key, "application/json")
}

// UploadLatestEvents uploads events as the "latest" version for frontend consumption
func (s *S3Client) UploadLatestEvents(ctx context.Context, runID string, events []models.GeocodedEvent, sources []string) (*S3UploadResult, error) {
	return s.UploadEvents(ctx, runID, events, sources, "events/latest.json")
}

// BackupEvents creates a timestamped backup of the event collection
func (s *S3Client) BackupEvents(ctx context.Context, runID string, events []models.GeocodedEvent, sources []string) (*S3UploadResult, error) {
	timestamp := time.Now().UTC().Format("2006-01-02T15-04-05Z")
	key := fmt.Sprintf("events/backups/%s.json", timestamp)
	return s.UploadEvents(ctx, runID, events, sources, key)
}

// UploadRunSummary uploads a pipeline run summary to S3
func (s *S3Client) UploadRunSummary(ctx context.Context, summary *PipelineSummary) (*S3UploadResult, error) {
	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run summary to JSON: %w", err)
	}

	key := fmt.Sprintf("runs/%s.json", summary.RunID)
	return s.uploadJSON(ctx, jsonData, key, "application/json")
}

// DownloadBlobs downloads and parses a raw blob batch from S3
func (s *S3Client) DownloadBlobs(ctx context.Context, key string) ([]models.RawBlob, error) {
	data, err := s.downloadJSON(ctx, key)
	if err != nil {
		return nil, err
	}

	var blobs []models.RawBlob
	if err := json.Unmarshal(data, &blobs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw blobs JSON: %w", err)
	}

	return blobs, nil
}

// DownloadEvents downloads and parses an events JSON file from S3
func (s *S3Client) DownloadEvents(ctx context.Context, key string) (*models.EventsOutput, error) {
	data, err := s.downloadJSON(ctx, key)
	if err != nil {
		return nil, err
	}

	var output models.EventsOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("failed to unmarshal events JSON: %w", err)
	}

	return &output, nil
}

// uploadJSON is a helper method to upload JSON data to S3
func (s *S3Client) uploadJSON(ctx context.Context, data []byte, key, contentType string) (*S3UploadResult, error) {
	key = strings.TrimPrefix(key, "/")

	uploadInput := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		// Short cache so the map frontend picks up fresh runs quickly.
		CacheControl: aws.String("public, max-age=300"),
		Metadata: map[string]string{
			"uploaded-by": "nyc-local-events-pipeline",
			"upload-time": time.Now().UTC().Format(time.RFC3339),
		},
	}

	result, err := s.client.PutObject(ctx, uploadInput)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)

	return &S3UploadResult{
		Key:         key,
		Location:    publicURL,
		ETag:        strings.Trim(*result.ETag, `"`),
		Size:        int64(len(data)),
		UploadedAt:  time.Now(),
		ContentType: contentType,
		PublicURL:   publicURL,
	}, nil
}

// downloadJSON is a helper method to download JSON data from S3
func (s *S3Client) downloadJSON(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimPrefix(key, "/")

	getInput := &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	result, err := s.client.GetObject(ctx, getInput)
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	return data, nil
}

// GetBucketName returns the configured bucket name
func (s *S3Client) GetBucketName() string {
	return s.bucketName
}

// GetPublicURL generates the public URL for an S3 object
func (s *S3Client) GetPublicURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)
}
