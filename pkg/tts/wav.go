package tts

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var errOddPCM = errors.New("pcm payload has an odd number of bytes")

// WriteWAV writes little-endian 16-bit mono PCM to path and returns the sample count.
func WriteWAV(path string, pcm []byte, sampleRate int) (int, error) {
	if len(pcm)%2 != 0 {
		return 0, errOddPCM
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create audio dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return 0, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("finalize wav: %w", err)
	}
	return len(samples), f.Close()
}
