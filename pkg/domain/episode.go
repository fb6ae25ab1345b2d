package domain

// Speaker tags and personas used throughout the dialogue.
const (
	HostAlex = "Alex"
	HostEva  = "Eva"

	SpeakerOneTag = "Speaker 1:"
	SpeakerTwoTag = "Speaker 2:"
)

// EpisodeScript is the generated dialogue for one run.
type EpisodeScript struct {
	RunID        string
	Text         string
	ArtifactPath string
}

// AudioAsset is a WAV file produced by the synthesizer.
type AudioAsset struct {
	Path       string
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    int
}

// EpisodeMetadata is the title/description pair derived from the script.
type EpisodeMetadata struct {
	Titulo      string `json:"titulo"`
	Descripcion string `json:"descripcion"`
}

// EpisodeMeta is the metadata artifact handed to the ledger step.
type EpisodeMeta struct {
	URL         string `json:"url"`
	Titulo      string `json:"titulo"`
	Descripcion string `json:"descripcion"`
}
