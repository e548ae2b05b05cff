package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/siherrmann/newsgraph"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

var articles = []*model.Article{
	{
		ID:          1,
		Title:       "Biden campaigns in Ohio",
		Content:     "Joe Biden visited Ohio on Monday. Biden spoke about manufacturing jobs.",
		Source:      "basic_example",
		PublishedAt: time.Now().AddDate(0, 0, -9),
	},
	{
		ID:          2,
		Title:       "Apple reports earnings",
		Content:     "Apple CEO Tim Cook said revenue grew. Investors cheered the results.",
		Source:      "basic_example",
		PublishedAt: time.Now().AddDate(0, 0, -2),
	},
	{
		ID:          3,
		Title:       "President Biden meets Tim Cook",
		Content:     "President Biden met Tim Cook at the White House to discuss chips made by Apple.",
		Source:      "basic_example",
		PublishedAt: time.Now().AddDate(0, 0, -1),
	},
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
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

	n, err := newsgraph.NewNewsgraph(dbConfig, config, nil, nil)
	if err != nil {
		log.Fatalf("Failed to create newsgraph: %v", err)
	}
	defer n.Close()

	// Load distilbert-NER and the sentiment model
	if err := n.UseDefaultModels(); err != nil {
		log.Fatalf("Failed to set up models: %v", err)
	}

	ctx := context.Background()

	fmt.Println("Processing articles...")
	batch := n.ProcessBatch(ctx, articles)
	for _, r := range batch.Results {
		fmt.Printf("Article %d: %s (%d mentions, %d relationships)\n", r.ArticleID, r.Status, r.MentionsRecorded, r.RelationshipsUpdated)
	}

	person := model.EntityTypePerson
	entities, err := n.SearchEntities(ctx, "biden", &person, 5)
	if err != nil {
		log.Fatalf("Failed to search entities: %v", err)
	}
	if len(entities) == 0 {
		log.Fatal("No Biden entity found")
	}
	biden := entities[0]
	fmt.Printf("\nEntity %d: %s (%d mentions, first seen %s)\n", biden.ID, biden.CanonicalName, biden.MentionCount, biden.FirstSeenAt.Format(time.DateOnly))

	mentions, err := n.ListMentions(ctx, biden.ID, nil)
	if err != nil {
		log.Fatalf("Failed to list mentions: %v", err)
	}
	for _, m := range mentions {
		sentiment := "n/a"
		if m.SentimentScore != nil {
			sentiment = fmt.Sprintf("%.2f", *m.SentimentScore)
		}
		fmt.Printf("  %q in %q (sentiment %s)\n", m.MentionText, m.SentenceContext, sentiment)
	}

	relationships, err := n.ListRelationships(ctx, biden.ID)
	if err != nil {
		log.Fatalf("Failed to list relationships: %v", err)
	}
	for _, rel := range relationships {
		other, err := n.GetCanonicalEntity(ctx, rel.Other(biden.ID))
		if err != nil {
			continue
		}
		fmt.Printf("  related to %s (%d observations, confidence %.2f)\n", other.CanonicalName, rel.ObservationCount, rel.Confidence)
	}

	points, err := n.GetTrend(ctx, biden.ID, config.DefaultPeriod, config.DefaultLookback)
	if err != nil {
		log.Fatalf("Failed to compute trend: %v", err)
	}
	fmt.Println("\nTrend:")
	for _, p := range points {
		fmt.Printf("  %s: %d mentions\n", p.PeriodStart.Format(time.DateOnly), p.MentionCount)
	}

	fmt.Println("\nBasic example completed successfully!")
}
