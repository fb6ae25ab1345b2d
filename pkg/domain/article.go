package domain

import "time"

// Article is a source item archived alongside the episode it was used in
type Article struct {
	URL       string    `bson:"url"`
	Title     string    `bson:"title"`
	Text      string    `bson:"text"`
	Feed      string    `bson:"feed,omitempty"`
	EpisodeID string    `bson:"episode_id"`
	CrawledAt time.Time `bson:"crawled_at"`
}

// ArticleFromItem builds the archive document for an enriched item
func ArticleFromItem(item EnrichedItem, episodeID string, crawledAt time.Time) *Article {
	return &Article{
		URL:       item.Link,
		Title:     item.Title,
		Text:      item.Body,
		Feed:      item.Feed,
		EpisodeID: episodeID,
		CrawledAt: crawledAt,
	}
}
