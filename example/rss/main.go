package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/siherrmann/newsgraph"
	"github.com/siherrmann/newsgraph/core/pipeline"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/ingest"
	"github.com/siherrmann/newsgraph/model"
)

// Processes one RSS feed with the model-free prose extractor.
// Usage: go run ./example/rss https://feeds.example.com/world.xml
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: rss <feed url>")
	}

	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	config, err := newsgraph.NewPipelineConfiguration()
	if err != nil {
		log.Fatalf("Failed to load pipeline configuration: %v", err)
	}

	ner := pipeline.NewProseModel()
	defer ner.Close()

	n, err := newsgraph.NewNewsgraph(dbConfig, config, ner, nil)
	if err != nil {
		log.Fatalf("Failed to create newsgraph: %v", err)
	}
	defer n.Close()

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to fetch feed: %v", err)
	}
	defer resp.Body.Close()

	articles, err := ingest.NewFeedParser("").Parse(resp.Body)
	if err != nil {
		log.Fatalf("Failed to parse feed: %v", err)
	}

	ctx := context.Background()
	batch := n.ProcessBatch(ctx, articles)
	fmt.Printf("Processed %d of %d articles\n", batch.Count(model.ArticleStatusProcessed), len(articles))
	for _, r := range batch.Failed() {
		fmt.Printf("Article %d failed (%s): %v\n", r.ArticleID, r.ErrorCategory, r.Errors)
	}

	report, err := n.MergeDuplicates(ctx)
	if err != nil {
		log.Fatalf("Failed to merge duplicates: %v", err)
	}
	fmt.Printf("Merged %d duplicate entities\n", len(report.Merged))

	entities, err := n.SearchEntities(ctx, "", nil, 20)
	if err != nil {
		log.Fatalf("Failed to list entities: %v", err)
	}
	for _, e := range entities {
		fmt.Printf("%-8s %-30s %d mentions\n", e.EntityType, e.CanonicalName, e.MentionCount)
	}
}
