// Package config reads the tracker settings from the environment, an
// optional .env file and an optional YAML tuning file.
package config

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/WIZARDISHUNGRY/vot-await/internal/imageio"
	"github.com/WIZARDISHUNGRY/vot-await/internal/tracker/ncc"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	VOT_USE_TRAX     = "VOT_USE_TRAX"
	VOT_MULTI_OBJECT = "VOT_MULTI_OBJECT"
	VOT_LOG_LEVEL    = "VOT_LOG_LEVEL"
	VOT_FOLDER       = "VOT_FOLDER"
	TRAX_SOCKET      = "TRAX_SOCKET"
)

var ErrConfig = errors.New("config: invalid")

// Env is what the harness tells a tracker through its environment.
type Env struct {
	UseTrax     bool
	MultiObject bool
	Socket      string
	LogLevel    string
	// Folder is the working directory of the file based protocol.
	Folder string
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return errors.Wrap(err, "godotenv.Load")
}

// FromEnv reads Env through lookup, usually os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) Env {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	e := Env{
		UseTrax:     parseBool(get(VOT_USE_TRAX), true),
		MultiObject: parseBool(get(VOT_MULTI_OBJECT), false),
		Socket:      get(TRAX_SOCKET),
		LogLevel:    get(VOT_LOG_LEVEL),
		Folder:      get(VOT_FOLDER),
	}
	if e.Folder == "" {
		e.Folder = "."
	}
	return e
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	switch strings.ToLower(s) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

// File is the YAML tuning file.
type File struct {
	NCC       ncc.Config `yaml:"ncc"`
	CacheSize int        `yaml:"cache_size"`
}

func Default() File {
	return File{NCC: ncc.DefaultConfig(), CacheSize: imageio.DefaultCacheSize}
}

// LoadFile reads path over the defaults. ${VAR} references are expanded
// before parsing and unknown keys are rejected.
func LoadFile(path string) (File, error) {
	f := Default()
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return f, errors.Wrap(err, "os.ReadFile")
	}
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return f, errors.Wrapf(ErrConfig, "%s: %v", path, err)
	}
	if err := f.validate(); err != nil {
		return f, errors.Wrap(err, path)
	}
	return f, nil
}

func (f File) validate() error {
	switch {
	case f.NCC.WindowScale < 1:
		return errors.Wrapf(ErrConfig, "ncc.window_scale %v below 1", f.NCC.WindowScale)
	case f.NCC.MinScore < -1 || f.NCC.MinScore > 1:
		return errors.Wrapf(ErrConfig, "ncc.min_score %v outside [-1, 1]", f.NCC.MinScore)
	case f.NCC.HashDistance < 0:
		return errors.Wrapf(ErrConfig, "ncc.hash_distance %d", f.NCC.HashDistance)
	case f.NCC.MinContrast < 0:
		return errors.Wrapf(ErrConfig, "ncc.min_contrast %v", f.NCC.MinContrast)
	case f.NCC.ComplexityDelta < 0:
		return errors.Wrapf(ErrConfig, "ncc.complexity_delta %v", f.NCC.ComplexityDelta)
	case f.CacheSize < 0:
		return errors.Wrapf(ErrConfig, "cache_size %d", f.CacheSize)
	}
	return nil
}
