// ABOUTME: YAML application configuration
// ABOUTME: Loading, defaults, validation and conversion to pipeline settings
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hspbridge/hspbridge/pkg/hsp"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFile []byte

// Default OSC parameters per SPS type
const (
	DefaultOrificeParameter    = "/avatar/parameters/OGB/Orf/*/PenOthersNewRoot"
	DefaultPenetratorParameter = "/avatar/parameters/OGB/Pen/*/PenOthers"
)

// ErrMissingKey is returned when a required key is blank
var ErrMissingKey = errors.New("missing required config key")

// SPSType selects which side of the interaction the signal describes
type SPSType string

const (
	SPSOrifice    SPSType = "orifice"
	SPSPenetrator SPSType = "penetrator"
)

// File is the on-disk configuration
type File struct {
	Device  Device  `yaml:"device"`
	OSC     OSC     `yaml:"osc"`
	Stream  Stream  `yaml:"stream"`
	SPS     SPS     `yaml:"sps"`
	Slider  Slider  `yaml:"slider"`
	Log     Log     `yaml:"log"`
	Monitor Monitor `yaml:"monitor"`
}

type Device struct {
	ConnectionKey    string `yaml:"connectionKey"`
	ApplicationID    string `yaml:"applicationId"`
	BaseURL          string `yaml:"baseURL"`
	RequestTimeoutMs int    `yaml:"requestTimeoutMs"`
	RefreshEvery     int    `yaml:"refreshEvery"`
}

type OSC struct {
	Port      int    `yaml:"port"`
	Parameter string `yaml:"parameter"`
	Advertise bool   `yaml:"advertise"`
}

type Stream struct {
	PointsOffsetMs     *int `yaml:"pointsOffsetMs"`
	SendEveryMs        *int `yaml:"sendEveryMs"`
	MinimalValueChange *int `yaml:"minimalValueChange"`
	WaitForAPIResponse bool `yaml:"waitForApiResponse"`
	AckTimeoutMs       int  `yaml:"ackTimeoutMs"`
	BatchLimit         int  `yaml:"batchLimit"`
}

type SPS struct {
	Type             SPSType `yaml:"type"`
	PenetratorLength float64 `yaml:"penetratorLength"`
}

type Slider struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Monitor struct {
	Enabled  bool `yaml:"enabled"`
	Port     int  `yaml:"port"`
	FeedRate int  `yaml:"feedRate"`
}

// Default returns the embedded default configuration
func Default() []byte {
	return append([]byte(nil), defaultFile...)
}

// LoadOrInit reads path, writing the embedded default there first when
// the file does not exist
func LoadOrInit(path string) (*File, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, defaultFile, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}
	return Load(path)
}

// Load reads, defaults and validates the file at path
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) applyDefaults() {
	if f.Device.BaseURL == "" {
		f.Device.BaseURL = "https://www.handyfeeling.com/api/handy-rest/v3/"
	}
	if f.Device.RequestTimeoutMs == 0 {
		f.Device.RequestTimeoutMs = 5000
	}
	if f.Device.RefreshEvery == 0 {
		f.Device.RefreshEvery = hsp.DefaultRefreshThreshold
	}
	if f.OSC.Port == 0 {
		f.OSC.Port = 9001
	}
	if f.Stream.MinimalValueChange == nil {
		v := 2
		f.Stream.MinimalValueChange = &v
	}
	if f.Stream.AckTimeoutMs == 0 {
		f.Stream.AckTimeoutMs = int(hsp.DefaultAckTimeout / time.Millisecond)
	}
	if f.Stream.BatchLimit == 0 {
		f.Stream.BatchLimit = hsp.DefaultBatchLimit
	}
	f.SPS.Type = SPSType(strings.ToLower(string(f.SPS.Type)))
	if f.OSC.Parameter == "" {
		switch f.SPS.Type {
		case SPSOrifice:
			f.OSC.Parameter = DefaultOrificeParameter
		case SPSPenetrator:
			f.OSC.Parameter = DefaultPenetratorParameter
		}
	}
	if f.Log.Level == "" {
		f.Log.Level = "info"
	}
	if f.Monitor.Port == 0 {
		f.Monitor.Port = 9090
	}
	if f.Monitor.FeedRate == 0 {
		f.Monitor.FeedRate = 20
	}
}

// Validate checks required keys and value ranges
func (f *File) Validate() error {
	switch {
	case strings.TrimSpace(f.Device.ConnectionKey) == "":
		return fmt.Errorf("%w: device.connectionKey", ErrMissingKey)
	case strings.TrimSpace(f.Device.ApplicationID) == "":
		return fmt.Errorf("%w: device.applicationId", ErrMissingKey)
	case f.Stream.PointsOffsetMs == nil:
		return fmt.Errorf("%w: stream.pointsOffsetMs", ErrMissingKey)
	case f.Stream.SendEveryMs == nil:
		return fmt.Errorf("%w: stream.sendEveryMs", ErrMissingKey)
	case f.SPS.Type == "":
		return fmt.Errorf("%w: sps.type", ErrMissingKey)
	}

	switch f.SPS.Type {
	case SPSOrifice:
		if f.SPS.PenetratorLength == 0 {
			return fmt.Errorf("%w: sps.penetratorLength", ErrMissingKey)
		}
	case SPSPenetrator:
	default:
		return fmt.Errorf("%w: unknown sps.type %q", hsp.ErrInvalidConfig, f.SPS.Type)
	}

	if f.OSC.Port < 1 || f.OSC.Port > 65535 {
		return fmt.Errorf("%w: osc.port out of range: %d", hsp.ErrInvalidConfig, f.OSC.Port)
	}
	if f.Monitor.Enabled && (f.Monitor.Port < 1 || f.Monitor.Port > 65535) {
		return fmt.Errorf("%w: monitor.port out of range: %d", hsp.ErrInvalidConfig, f.Monitor.Port)
	}
	if _, err := ParseLevel(f.Log.Level); err != nil {
		return err
	}
	for name, v := range map[string]*float64{"slider.min": f.Slider.Min, "slider.max": f.Slider.Max} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%w: %s must be within 0..1, got %v", hsp.ErrInvalidConfig, name, *v)
		}
	}

	return f.Pipeline().WithDefaults().Validate()
}

// Pipeline builds the streaming settings
func (f *File) Pipeline() hsp.PipelineConfig {
	geometry := hsp.Geometry{Kind: hsp.GeometryDirect}
	if f.SPS.Type == SPSOrifice {
		geometry = hsp.Geometry{Kind: hsp.GeometryRelative, Length: f.SPS.PenetratorLength}
	}

	return hsp.PipelineConfig{
		PointOffset:          ms(f.Stream.PointsOffsetMs),
		SendInterval:         ms(f.Stream.SendEveryMs),
		MinimalPositionDelta: deref(f.Stream.MinimalValueChange),
		Geometry:             geometry,
		WaitForAck:           f.Stream.WaitForAPIResponse,
		AckTimeout:           time.Duration(f.Stream.AckTimeoutMs) * time.Millisecond,
		BatchLimit:           f.Stream.BatchLimit,
		RefreshThreshold:     f.Device.RefreshEvery,
	}
}

// RequestTimeout returns the per-request device API timeout
func (f *File) RequestTimeout() time.Duration {
	return time.Duration(f.Device.RequestTimeoutMs) * time.Millisecond
}

// ParseLevel maps a level name onto a slog level
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", hsp.ErrInvalidConfig, name)
	}
	return level, nil
}

func ms(v *int) time.Duration {
	return time.Duration(deref(v)) * time.Millisecond
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
