// Package camera provides the video sources a workout session captures frames from.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

var (
	// ErrPermissionDenied means the user or OS refused access to the device.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNoDevice means no capture device could be found.
	ErrNoDevice = errors.New("no camera found")
	// ErrClosed is returned by Frame after the camera has been released.
	ErrClosed = errors.New("camera closed")
)

// Camera is an acquired capture device. Close releases the hardware.
type Camera interface {
	Frame() (image.Image, error)
	Close() error
}

// Source acquires exclusive access to a camera.
type Source interface {
	Acquire(ctx context.Context) (Camera, error)
}

// Describe turns an acquisition error into the message shown to the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Camera permission denied. Please enable camera access and retry."
	case errors.Is(err, ErrNoDevice):
		return "No camera found. Please ensure a camera is connected and enabled."
	default:
		return fmt.Sprintf("Error accessing camera: %v. Check your camera and permissions.", err)
	}
}

// Unavailable reports whether err means the device itself is gone, as opposed
// to a single failed capture.
func Unavailable(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, ErrNoDevice) || errors.Is(err, ErrPermissionDenied)
}

// DirSource replays the image files of a directory as a camera feed. Files are
// served in name order and the feed loops.
type DirSource struct {
	Dir string
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Acquire loads every frame in the directory.
func (s DirSource) Acquire(ctx context.Context) (Camera, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.Dir, ErrNoDevice)
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%s: %w", s.Dir, ErrPermissionDenied)
		}
		return nil, fmt.Errorf("reading frame dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s has no frames: %w", s.Dir, ErrNoDevice)
	}
	sort.Strings(names)

	frames := make([]image.Image, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := imaging.Open(filepath.Join(s.Dir, name), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("decoding frame %s: %w", name, err)
		}
		frames = append(frames, img)
	}
	return &Replay{frames: frames}, nil
}

// Replay is a Camera that cycles through a fixed set of frames.
type Replay struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
	closed bool
}

// NewReplay returns a camera serving frames in order, looping.
func NewReplay(frames ...image.Image) *Replay {
	return &Replay{frames: frames}
}

// Frame returns the next frame.
func (r *Replay) Frame() (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if len(r.frames) == 0 {
		return nil, ErrNoDevice
	}
	img := r.frames[r.next]
	r.next = (r.next + 1) % len(r.frames)
	return img, nil
}

// Close releases the frames. Further calls to Frame fail with ErrClosed.
func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.frames = nil
	return nil
}
