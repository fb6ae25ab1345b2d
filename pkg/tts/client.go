// Package tts turns a two-host script into a mono WAV file with the
// multi-speaker speech endpoint.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
	"github.com/edopalomino/generate-startupcafe/pkg/httpclient"
	"github.com/edopalomino/generate-startupcafe/pkg/logging"
)

// ErrMissingAudio is returned when the response carries no audio payload.
var ErrMissingAudio = errors.New("speech response carries no audio payload")

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultSampleRate = 24000
	instructionPrefix = "TTS esta conversación entre Alex y Eva:\n"
)

// Speaker binds a persona name used in the script to a prebuilt voice.
type Speaker struct {
	Name  string
	Voice string
}

// DefaultSpeakers is the fixed persona/voice binding of the show.
var DefaultSpeakers = []Speaker{
	{Name: domain.HostAlex, Voice: "Kore"},
	{Name: domain.HostEva, Voice: "Puck"},
}

// Config captures the runtime settings required to talk to the speech endpoint.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Speakers []Speaker
}

// Synthesizer performs one blocking speech request per script.
type Synthesizer struct {
	cfg    Config
	client *httpclient.HTTPClient
	log    logrus.FieldLogger
}

// NewSynthesizer validates cfg and builds a synthesizer. The request is billable
// and is never retried.
func NewSynthesizer(cfg Config, log logrus.FieldLogger, opts ...httpclient.Option) (*Synthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("tts: api key required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("tts: model required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.Speakers) == 0 {
		cfg.Speakers = DefaultSpeakers
	}

	clientOpts := []httpclient.Option{httpclient.WithTimeout(cfg.Timeout)}
	clientOpts = append(clientOpts, opts...)
	return &Synthesizer{
		cfg:    cfg,
		client: httpclient.NewClient(httpclient.APIClient, clientOpts...),
		log:    logging.Component(log, "tts"),
	}, nil
}

// Synthesize converts script to speech and writes it to outPath as WAV.
func (s *Synthesizer) Synthesize(ctx context.Context, script, outPath string) (domain.AudioAsset, error) {
	payload, err := json.Marshal(s.buildRequest(script))
	if err != nil {
		return domain.AudioAsset{}, fmt.Errorf("encode speech request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", s.cfg.BaseURL, s.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.AudioAsset{}, fmt.Errorf("build speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.cfg.APIKey)

	s.log.WithFields(logrus.Fields{"model": s.cfg.Model, "script_chars": len(script)}).Info("Requesting speech synthesis")
	started := time.Now()

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.AudioAsset{}, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.AudioAsset{}, fmt.Errorf("read speech response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.AudioAsset{}, fmt.Errorf("speech request: http %d: %s", resp.StatusCode, snippet(body))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.AudioAsset{}, fmt.Errorf("decode speech response: %w", err)
	}
	data, mimeType, err := parsed.audio()
	if err != nil {
		return domain.AudioAsset{}, err
	}
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return domain.AudioAsset{}, fmt.Errorf("decode audio payload: %w", err)
	}

	rate := sampleRate(mimeType)
	samples, err := WriteWAV(outPath, pcm, rate)
	if err != nil {
		return domain.AudioAsset{}, err
	}

	asset := domain.AudioAsset{
		Path:       outPath,
		SampleRate: rate,
		Channels:   1,
		BitDepth:   16,
		Samples:    samples,
	}
	s.log.WithFields(logrus.Fields{
		"path":     outPath,
		"seconds":  samples / rate,
		"duration": time.Since(started).Round(time.Second).String(),
	}).Info("Audio written")
	return asset, nil
}

func (s *Synthesizer) buildRequest(script string) generateRequest {
	voices := make([]speakerVoiceConfig, 0, len(s.cfg.Speakers))
	for _, sp := range s.cfg.Speakers {
		var v speakerVoiceConfig
		v.Speaker = sp.Name
		v.VoiceConfig.PrebuiltVoiceConfig.VoiceName = sp.Voice
		voices = append(voices, v)
	}

	var req generateRequest
	req.Contents = []content{{Parts: []part{{Text: instructionPrefix + script}}}}
	req.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	req.GenerationConfig.SpeechConfig.MultiSpeakerVoiceConfig.SpeakerVoiceConfigs = voices
	return req
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
		SpeechConfig       struct {
			MultiSpeakerVoiceConfig struct {
				SpeakerVoiceConfigs []speakerVoiceConfig `json:"speakerVoiceConfigs"`
			} `json:"multiSpeakerVoiceConfig"`
		} `json:"speechConfig"`
	} `json:"generationConfig"`
}

type speakerVoiceConfig struct {
	Speaker     string `json:"speaker"`
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// audio returns the first inline payload of the first candidate.
func (r generateResponse) audio() (string, string, error) {
	if len(r.Candidates) == 0 {
		if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
			return "", "", fmt.Errorf("%w: prompt blocked (%s)", ErrMissingAudio, r.PromptFeedback.BlockReason)
		}
		return "", "", fmt.Errorf("%w: no candidates", ErrMissingAudio)
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData.Data, p.InlineData.MimeType, nil
		}
	}
	return "", "", fmt.Errorf("%w (finish reason %q)", ErrMissingAudio, r.Candidates[0].FinishReason)
}

// sampleRate reads "rate=" from a mime type like audio/L16;codec=pcm;rate=24000.
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(key, "rate") {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				return n
			}
		}
	}
	return defaultSampleRate
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
