package ingest

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// blockElements end a paragraph in feed HTML
const blockElements = "p, div, li, h1, h2, h3, h4, h5, h6, blockquote, tr"

// FeedParser converts RSS, Atom and JSON feeds into articles.
// Fetching feeds is left to the caller.
type FeedParser struct {
	parser *gofeed.Parser
	source string
}

// NewFeedParser creates a parser. Articles get source as their source name;
// an empty source uses the feed title.
func NewFeedParser(source string) *FeedParser {
	return &FeedParser{
		parser: gofeed.NewParser(),
		source: source,
	}
}

// Parse reads one feed document and returns an article per item.
// Items without title and content are dropped.
func (p *FeedParser) Parse(r io.Reader) ([]*model.Article, error) {
	feed, err := p.parser.Parse(r)
	if err != nil {
		return nil, helper.NewError("parse feed", err)
	}

	source := p.source
	if source == "" {
		source = strings.TrimSpace(feed.Title)
	}

	articles := make([]*model.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		article, err := toArticle(item, source)
		if err != nil {
			return nil, err
		}
		if article.Title == "" && article.Content == "" {
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

// ParseString is Parse for an in-memory feed document
func (p *FeedParser) ParseString(feed string) ([]*model.Article, error) {
	return p.Parse(strings.NewReader(feed))
}

func toArticle(item *gofeed.Item, source string) (*model.Article, error) {
	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	content, err := PlainText(body)
	if err != nil {
		return nil, helper.NewError("convert item content", err)
	}
	title, err := PlainText(item.Title)
	if err != nil {
		return nil, helper.NewError("convert item title", err)
	}

	// Without a publish time the pipeline attributes mentions to processing time
	var publishedAt time.Time
	if item.PublishedParsed != nil {
		publishedAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		publishedAt = item.UpdatedParsed.UTC()
	}

	metadata := model.Metadata{}
	if item.GUID != "" {
		metadata["guid"] = item.GUID
	}
	if item.Author != nil && item.Author.Name != "" {
		metadata["author"] = item.Author.Name
	}
	if len(item.Categories) > 0 {
		metadata["categories"] = item.Categories
	}

	return &model.Article{
		ID:          ArticleID(item),
		Title:       title,
		Content:     content,
		URL:         item.Link,
		Source:      source,
		PublishedAt: publishedAt,
		Metadata:    metadata,
	}, nil
}

// ArticleID derives a stable positive id from the item GUID, falling back to link and title.
// The same item yields the same id on every fetch, so reprocessing is skipped.
func ArticleID(item *gofeed.Item) int64 {
	key := item.GUID
	if key == "" {
		key = item.Link
	}
	if key == "" {
		key = item.Title
	}

	sum := sha256.Sum256([]byte(key))
	id := int64(binary.BigEndian.Uint64(sum[:8]) & 0x7fffffffffffffff)
	if id == 0 {
		id = 1
	}
	return id
}

// PlainText strips markup from feed HTML.
// Block elements become paragraph breaks, other whitespace is collapsed.
func PlainText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).AppendHtml("\n")

	paragraphs := []string{}
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			paragraphs = append(paragraphs, line)
		}
	}

	return strings.Join(paragraphs, "\n\n"), nil
}
