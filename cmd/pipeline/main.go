package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"nyc-local-events-pipeline/internal/models"
	"nyc-local-events-pipeline/internal/services"
)

// Local runner: reads a raw blob batch from a JSON file, runs the full
// normalization pipeline, and writes the geocoded output collection.
func main() {
	blobsPath := flag.String("blobs", "raw-blobs.json", "path to the raw blobs JSON file")
	outputPath := flag.String("out", "events.json", "path to write the geocoded events JSON")
	uploadToS3 := flag.Bool("upload", false, "also upload the output collection to S3")
	flag.Parse()

	ctx := context.Background()

	blobs, err := readBlobs(*blobsPath)
	if err != nil {
		log.Fatalf("Failed to read raw blobs: %v", err)
	}
	log.Printf("Loaded %d raw blobs from %s", len(blobs), *blobsPath)

	llm, err := services.NewOpenAIClient()
	if err != nil {
		log.Printf("Model-assisted extraction unavailable, using rules only: %v", err)
	}

	pipeline := services.NewPipeline(
		services.NewExtractor(llm, services.NewRuleExtractor()),
		services.NewValidator(),
		services.NewGeocoder(),
		services.MaxEventsFromEnv(),
		services.MaxConcurrencyFromEnv(),
	)

	summary, events := pipeline.Run(ctx, blobs)

	output := models.EventsOutput{
		Metadata: models.NewEventsMetadata(summary.RunID, len(events), summary.Sources),
		Events:   events,
	}

	if err := writeJSON(*outputPath, output); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	log.Printf("Wrote %d events to %s", len(events), *outputPath)

	summaryPath := *outputPath + ".summary.json"
	if err := writeJSON(summaryPath, summary); err != nil {
		log.Printf("Warning: failed to write run summary: %v", err)
	}

	if *uploadToS3 {
		s3Client, err := services.NewS3Client(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize S3 client: %v", err)
		}

		result, err := s3Client.UploadLatestEvents(ctx, summary.RunID, events, summary.Sources)
		if err != nil {
			log.Fatalf("Failed to upload events: %v", err)
		}
		log.Printf("Uploaded events to %s", result.PublicURL)
	}

	fmt.Printf("Run %s: %d blobs in, %d events out (%d no record, %d rejected, %d duplicates)\n",
		summary.RunID, summary.TotalBlobs, summary.OutputEvents,
		summary.NoRecord, summary.RejectedValidator, summary.DuplicatesDropped)
}

func readBlobs(path string) ([]models.RawBlob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var blobs []models.RawBlob
	if err := json.Unmarshal(data, &blobs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return blobs, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
