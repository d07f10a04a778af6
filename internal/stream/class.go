// Package stream multiplexes the host's tagged media frames into per-index
// feeds and drives the screen_share and camera domains.
package stream

import (
	"github.com/1ureka/nexremote/internal/protocol"
)

// Class is one media class: its control domain and frame tag.
type Class struct {
	Name       string
	Domain     string
	Tag        [4]byte
	ListAction string
}

var (
	Screens = Class{Name: "screen", Domain: protocol.TypeScreenShare, Tag: protocol.TagScreen, ListAction: protocol.ActionListDisplays}
	Cameras = Class{Name: "camera", Domain: protocol.TypeCamera, Tag: protocol.TagCamera, ListAction: protocol.ActionListCameras}
)

// Descriptor describes one streamable source, a monitor or a camera.
type Descriptor struct {
	Index     int
	Name      string
	Width     int
	Height    int
	IsPrimary bool
}

func descriptorsOf(msg protocol.Message) ([]Descriptor, bool) {
	switch m := msg.(type) {
	case protocol.DisplayList:
		out := make([]Descriptor, 0, len(m.Displays))
		for _, d := range m.Displays {
			out = append(out, Descriptor{Index: d.Index, Name: d.Name, Width: d.Width, Height: d.Height, IsPrimary: d.IsPrimary})
		}
		return out, true
	case protocol.CameraList:
		out := make([]Descriptor, 0, len(m.Cameras))
		for _, c := range m.Cameras {
			out = append(out, Descriptor{Index: c.Index, Name: c.Name, Width: c.Width, Height: c.Height})
		}
		return out, true
	}
	return nil, false
}

// Resolutions the host accepts.
const (
	ResolutionNative = "native"
	Resolution1080p  = "1080p"
	Resolution720p   = "720p"
	Resolution480p   = "480p"
)

// Settings are the encoder parameters of one stream.
type Settings struct {
	FPS        int
	Quality    int
	Resolution string
}

// DefaultSettings matches the host's own defaults.
var DefaultSettings = Settings{FPS: 30, Quality: 50, Resolution: ResolutionNative}

// Clamp bounds s to what the host accepts: fps 1..60, quality 1..100 and a
// known resolution (native otherwise).
func (s Settings) Clamp() Settings {
	s.FPS = min(max(s.FPS, 1), 60)
	s.Quality = min(max(s.Quality, 1), 100)
	switch s.Resolution {
	case ResolutionNative, Resolution1080p, Resolution720p, Resolution480p:
	default:
		s.Resolution = ResolutionNative
	}
	return s
}

func (s Settings) withDefaults() Settings {
	if s.FPS == 0 {
		s.FPS = DefaultSettings.FPS
	}
	if s.Quality == 0 {
		s.Quality = DefaultSettings.Quality
	}
	if s.Resolution == "" {
		s.Resolution = DefaultSettings.Resolution
	}
	return s
}
