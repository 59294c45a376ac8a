// Package wavinfo reads the header of extracted WAV audio.
package wavinfo

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"github.com/forPelevin/autocut/internal/types"
)

var ErrInvalidWAV = errors.New("not a valid wav file")

type Inspector struct{}

func New() *Inspector { return &Inspector{} }

func (*Inspector) Inspect(path string) (types.AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.AudioInfo{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return types.AudioInfo{}, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	dur, err := d.Duration()
	if err != nil {
		return types.AudioInfo{}, fmt.Errorf("wav duration: %w", err)
	}
	return types.AudioInfo{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Duration:   dur,
	}, nil
}
