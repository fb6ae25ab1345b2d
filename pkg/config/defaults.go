package config

// DefaultFeeds are the startup and innovation feeds the show is built from.
var DefaultFeeds = []string{
	"https://www.forbes.com.mx/emprendedores/feed/",
	"https://contxto.com/es/feed/",
	"https://platzi.com/blog/feed/",
	"https://endeavor.org.mx/feed/",
	"https://www.entrepreneur.com/es/rss",
	"https://techcrunch.com/category/startups/feed/",
	"https://www.geekwire.com/startups/feed/",
	"http://feeds.feedburner.com/ElBlogDeJavierMegiasTerol",
	"https://blog.ycombinator.com/feed/",
	"https://www.forbes.com/innovation/feed/",
}

const (
	defaultRemoteCatalogURL = "https://raw.githubusercontent.com/edopalomino/startupsandcafe/refs/heads/main/podcasts.json"
	defaultLocalCatalogPath = "../startupsandcafe/podcasts.json"

	defaultTextBaseURL   = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultSpeechBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ArtifactDir: ".",
		Feeds: Feeds{
			URLs:            append([]string(nil), DefaultFeeds...),
			RecencyHours:    7 * 24,
			MaxItems:        6,
			TimeoutSeconds:  20,
			Attempts:        3,
			SummaryMinChars: 200,
			MaxBodyChars:    4000,
			ArticleTimeout:  20,
		},
		Gemini: Gemini{
			TextModel:            "gemini-2.5-pro",
			SpeechModel:          "gemini-2.5-flash-preview-tts",
			TextBaseURL:          defaultTextBaseURL,
			SpeechBaseURL:        defaultSpeechBaseURL,
			TextTimeoutSeconds:   180,
			SpeechTimeoutSeconds: 600,
		},
		Storage: Storage{
			Folder:         "super-happy-dev",
			PublicIDPrefix: "shd",
			TimeoutSeconds: 300,
		},
		Social: Social{
			TimeoutSeconds: 15,
		},
		Ledger: Ledger{
			RemoteURL:      defaultRemoteCatalogURL,
			LocalPath:      defaultLocalCatalogPath,
			TimeoutSeconds: 15,
			FetchAttempts:  1,
		},
		Mirror: Mirror{
			MongoDatabase:   "startupsandcafe",
			MongoCollection: "articles",
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}
