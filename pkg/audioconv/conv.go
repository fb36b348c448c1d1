// Package audioconv turns audio files into the mono 16 kHz float32 PCM
// that local recognizers consume.
package audioconv

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const SampleRate = 16000

type Options struct {
	MaxSamples int
}

type format int

const (
	formatUnknown format = iota
	formatWAV
	formatMP3
	formatOgg
)

func (f format) String() string {
	switch f {
	case formatWAV:
		return "wav"
	case formatMP3:
		return "mp3"
	case formatOgg:
		return "ogg"
	default:
		return "unknown"
	}
}

// ConvertFileToPCM16k decodes path into mono PCM at SampleRate.
func ConvertFileToPCM16k(ctx context.Context, path string, opt Options) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, _ := br.Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var (
		pcm []float32
		sr  int
	)
	switch detectFormat(path, magic) {
	case formatWAV:
		pcm, sr, err = decodeWAV(f)
	case formatMP3:
		pcm, sr, err = decodeMP3(f)
	case formatOgg:
		pcm, sr, err = decodeOgg(f)
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: wav/mp3/ogg-vorbis/ogg-opus)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return finish(pcm, sr, opt), nil
}

// detectFormat trusts the extension first and sniffs the header otherwise.
func detectFormat(path string, magic []byte) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return formatWAV
	case ".mp3":
		return formatMP3
	case ".ogg", ".oga", ".opus":
		return formatOgg
	}

	switch {
	case len(magic) >= 4 && string(magic[:4]) == "RIFF":
		return formatWAV
	case len(magic) >= 4 && string(magic[:4]) == "OggS":
		return formatOgg
	case len(magic) >= 3 && string(magic[:3]) == "ID3":
		return formatMP3
	case len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return formatMP3
	default:
		return formatUnknown
	}
}

func finish(x []float32, sr int, opt Options) []float32 {
	if sr != SampleRate {
		x = resampleLinear(x, sr, SampleRate)
	}
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}
