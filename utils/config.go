package utils

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/streamstore/streamstore/utils/log"
	"gopkg.in/yaml.v2"
)

var InstanceConfig Config

const (
	defaultSegmentMaxEntries = 50000
	defaultStopGracePeriod   = 5 * time.Second
)

// Config holds the server settings parsed from the streamstore YAML
// configuration file.
type Config struct {
	RootDirectory      string
	ListenPort         string
	Queryable          bool
	EnableAdd          bool
	StopGracePeriod    time.Duration
	SegmentMaxEntries  int
	DisableCompression bool
	// CompactionInterval enables background compaction of every topic
	// when > 0. Zero leaves compaction entirely to explicit requests.
	CompactionInterval time.Duration
	StartTime          time.Time
}

func ParseConfig(data []byte) (*Config, error) {
	var aux struct {
		RootDirectory      string `yaml:"root_directory"`
		ListenPort         string `yaml:"listen_port"`
		LogLevel           string `yaml:"log_level"`
		Queryable          string `yaml:"queryable"`
		EnableAdd          string `yaml:"enable_add"`
		StopGracePeriod    int    `yaml:"stop_grace_period"`
		SegmentMaxEntries  int    `yaml:"segment_max_entries"`
		DisableCompression string `yaml:"disable_compression"`
		CompactionInterval int    `yaml:"compaction_interval"`
	}

	if err := yaml.Unmarshal(data, &aux); err != nil {
		return nil, err
	}

	m := &Config{
		Queryable:         true,
		EnableAdd:         true,
		StopGracePeriod:   defaultStopGracePeriod,
		SegmentMaxEntries: defaultSegmentMaxEntries,
		StartTime:         InstanceConfig.StartTime,
	}

	if aux.RootDirectory == "" {
		return nil, errors.New("invalid root directory")
	}
	m.RootDirectory = aux.RootDirectory

	if aux.ListenPort == "" {
		return nil, errors.New("invalid listen port")
	}
	m.ListenPort = aux.ListenPort

	if aux.SegmentMaxEntries > 0 {
		m.SegmentMaxEntries = aux.SegmentMaxEntries
	}

	if aux.Queryable != "" {
		queryable, err := strconv.ParseBool(aux.Queryable)
		if err != nil {
			log.Error("invalid value: %v for queryable. Running as queryable...", aux.Queryable)
		} else {
			m.Queryable = queryable
		}
	}

	if aux.EnableAdd != "" {
		enableAdd, err := strconv.ParseBool(aux.EnableAdd)
		if err != nil {
			log.Error("invalid value: %v for enable_add. Enabling topic creation...", aux.EnableAdd)
		} else {
			m.EnableAdd = enableAdd
		}
	}

	if aux.DisableCompression != "" {
		disable, err := strconv.ParseBool(aux.DisableCompression)
		if err != nil {
			log.Error("invalid value: %v for disable_compression. Compression stays enabled...",
				aux.DisableCompression)
		} else {
			m.DisableCompression = disable
		}
	}

	if aux.StopGracePeriod > 0 {
		m.StopGracePeriod = time.Duration(aux.StopGracePeriod) * time.Second
	}

	if aux.CompactionInterval > 0 {
		m.CompactionInterval = time.Duration(aux.CompactionInterval) * time.Second
	}

	if aux.LogLevel != "" {
		switch strings.ToLower(aux.LogLevel) {
		case "fatal":
			log.SetLevel(log.FATAL)
		case "error":
			log.SetLevel(log.ERROR)
		case "warning":
			log.SetLevel(log.WARNING)
		case "debug":
			log.SetLevel(log.DEBUG)
		case "info":
			fallthrough
		default:
			log.SetLevel(log.INFO)
		}
	}

	return m, nil
}
