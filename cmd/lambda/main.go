package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"nyc-local-events-pipeline/internal/services"
)

// PipelineEvent represents the EventBridge trigger event
type PipelineEvent struct {
	Source      string                 `json:"source"`
	DetailType  string                 `json:"detail-type"`
	Detail      map[string]interface{} `json:"detail"`
	TriggerType string                 `json:"trigger-type,omitempty"` // manual, scheduled, webhook
	BlobsKey    string                 `json:"blobs-key,omitempty"`    // S3 key of the raw blob batch
	SkipStore   bool                   `json:"skip-store,omitempty"`   // skip the DynamoDB write
}

// PipelineResponse represents the function response
type PipelineResponse struct {
	Success        bool                      `json:"success"`
	Message        string                    `json:"message"`
	InvocationID   string                    `json:"invocation_id"`
	RunID          string                    `json:"run_id,omitempty"`
	TotalEvents    int                       `json:"total_events"`
	ProcessingTime int64                     `json:"processing_time_ms"`
	Summary        *services.PipelineSummary `json:"summary,omitempty"`
	UploadedFiles  []string                  `json:"uploaded_files,omitempty"`
	Errors         []string                  `json:"errors,omitempty"`
}

const defaultBlobsKey = "raw-blobs/latest.json"

// HandlePipeline runs one full normalization pass: download the raw blob
// batch, run the pipeline, and publish the geocoded output collection.
func HandlePipeline(ctx context.Context, event PipelineEvent) (PipelineResponse, error) {
	start := time.Now()

	response := PipelineResponse{
		InvocationID: uuid.New().String(),
	}

	log.Printf("Pipeline invocation %s triggered by %s/%s", response.InvocationID, event.Source, event.TriggerType)

	s3Client, err := services.NewS3Client(ctx)
	if err != nil {
		response.Message = fmt.Sprintf("Failed to initialize S3 client: %v", err)
		return response, err
	}

	blobsKey := event.BlobsKey
	if blobsKey == "" {
		blobsKey = defaultBlobsKey
	}

	blobs, err := s3Client.DownloadBlobs(ctx, blobsKey)
	if err != nil {
		// Failure to obtain the blob sequence is the only batch-fatal
		// condition.
		response.Message = fmt.Sprintf("Failed to download raw blobs from %s: %v", blobsKey, err)
		return response, err
	}

	log.Printf("Downloaded %d raw blobs from %s", len(blobs), blobsKey)

	// A missing OpenAI key degrades every blob to the rule-based path.
	llm, err := services.NewOpenAIClient()
	if err != nil {
		log.Printf("Model-assisted extraction unavailable, using rules only: %v", err)
		response.Errors = append(response.Errors, err.Error())
	}

	pipeline := services.NewPipeline(
		services.NewExtractor(llm, services.NewRuleExtractor()),
		services.NewValidator(),
		services.NewGeocoder(),
		services.MaxEventsFromEnv(),
		services.MaxConcurrencyFromEnv(),
	)

	summary, events := pipeline.Run(ctx, blobs)

	response.RunID = summary.RunID
	response.Summary = summary
	response.TotalEvents = len(events)

	// Publish results. Upload failures are reported but the run still counts
	// as processed.
	latest, err := s3Client.UploadLatestEvents(ctx, summary.RunID, events, summary.Sources)
	if err != nil {
		response.Errors = append(response.Errors, fmt.Sprintf("failed to upload latest events: %v", err))
	} else {
		response.UploadedFiles = append(response.UploadedFiles, latest.Key)
		log.Printf("Uploaded latest events: %s", latest.PublicURL)
	}

	backup, err := s3Client.BackupEvents(ctx, summary.RunID, events, summary.Sources)
	if err != nil {
		log.Printf("Warning: failed to create backup: %v", err)
	} else {
		response.UploadedFiles = append(response.UploadedFiles, backup.Key)
	}

	if summaryUpload, err := s3Client.UploadRunSummary(ctx, summary); err != nil {
		log.Printf("Warning: failed to upload run summary: %v", err)
	} else {
		response.UploadedFiles = append(response.UploadedFiles, summaryUpload.Key)
	}

	if !event.SkipStore && len(events) > 0 {
		dynamoService, err := services.NewDynamoDBService(ctx)
		if err != nil {
			response.Errors = append(response.Errors, fmt.Sprintf("failed to initialize DynamoDB: %v", err))
		} else if err := dynamoService.PutEvents(ctx, summary.RunID, events); err != nil {
			response.Errors = append(response.Errors, fmt.Sprintf("failed to store events: %v", err))
		} else {
			log.Printf("Stored %d events in DynamoDB", len(events))
		}
	}

	response.Success = true
	response.ProcessingTime = time.Since(start).Milliseconds()
	response.Message = fmt.Sprintf("Processed %d blobs into %d events", summary.TotalBlobs, len(events))

	log.Printf("Pipeline invocation %s complete: %s", response.InvocationID, response.Message)

	return response, nil
}

func main() {
	lambda.Start(HandlePipeline)
}
