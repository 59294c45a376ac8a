package usecase

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/forPelevin/autocut/internal/metrics"
	"github.com/forPelevin/autocut/internal/ports"
	"github.com/forPelevin/autocut/internal/types"
)

type Deps struct {
	Video ports.VideoTool
	// Audio is optional; without it extracted audio is not inspected.
	Audio   ports.AudioInspector
	ASR     ports.ASR
	Planner ports.Planner
	// Metrics may be nil.
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Now == nil {
		d.Now = time.Now
	}
	return Usecase{d: d}
}

type Logf func(format string, args ...any)

func (l Logf) orNop() Logf {
	if l == nil {
		return func(string, ...any) {}
	}
	return l
}

func requireFile(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, types.ErrInputNotFound)
		}
		return fmt.Errorf("stat input: %w", err)
	}
	if st.IsDir() {
		return fmt.Errorf("%s is a directory: %w", path, types.ErrInputNotFound)
	}
	return nil
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}

func (u Usecase) stage(name string) func() {
	started := time.Now()
	return func() { u.d.Metrics.ObserveStage(name, time.Since(started)) }
}
