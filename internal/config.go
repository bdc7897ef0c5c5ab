// Engine configuration.
//
// The configuration is loaded from a YAML file, with the following
// structure:
//
//  minitimer_config:
//    instance: minitimer
//    use_short_hostname: false
//    shutdown_max_wait: 5s
//    log_config:
//      ...
//    clock_config:
//      ...
//    executor_config:
//      ...
//    event_bus_config:
//      ...
//    internal_metrics_config:
//      ...
//
// The "minitimer_config" section maps to the EngineConfig structure defined
// in this package.

package minitimer_internal

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ENGINE_CONFIG_SECTION_NAME = "minitimer_config"

	ENGINE_CONFIG_USE_SHORT_HOSTNAME_DEFAULT = false
	ENGINE_CONFIG_SHUTDOWN_MAX_WAIT_DEFAULT  = 5 * time.Second

	CONFIG_READ_FILE_BUF_POOL_MAX_SIZE = 4
)

type EngineConfig struct {
	// The instance name, default "minitimer". It may be overridden by
	// --instance command line arg.
	Instance string `yaml:"instance"`

	// Whether to use short hostname as the value for the hostname label.
	UseShortHostname bool `yaml:"use_short_hostname"`

	// How long to wait for a graceful shutdown. A negative value signifies
	// indefinite wait and 0 stands for no wait at all (exit abruptly).
	ShutdownMaxWait time.Duration `yaml:"shutdown_max_wait"`

	// Specific components configuration.
	LoggerConfig          *LoggerConfig          `yaml:"log_config"`
	ClockConfig           *ClockConfig           `yaml:"clock_config"`
	ExecutorConfig        *ExecutorConfig        `yaml:"executor_config"`
	EventBusConfig        *EventBusConfig        `yaml:"event_bus_config"`
	InternalMetricsConfig *InternalMetricsConfig `yaml:"internal_metrics_config"`
}

// ClockConfig controls the tick driver. TickInterval is overridable only for
// test harnesses - production use should leave it at the 1 second default
// since the wheel arithmetic assumes a 1Hz cadence.
type ClockConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

func DefaultClockConfig() *ClockConfig {
	return &ClockConfig{TickInterval: CLOCK_TICK_INTERVAL}
}

func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Instance:              Instance,
		UseShortHostname:      ENGINE_CONFIG_USE_SHORT_HOSTNAME_DEFAULT,
		ShutdownMaxWait:       ENGINE_CONFIG_SHUTDOWN_MAX_WAIT_DEFAULT,
		LoggerConfig:          DefaultLoggerConfig(),
		ClockConfig:           DefaultClockConfig(),
		ExecutorConfig:        DefaultExecutorConfig(),
		EventBusConfig:        DefaultEventBusConfig(),
		InternalMetricsConfig: DefaultInternalMetricsConfig(),
	}
}

var configReadFileBufPool = NewBufPool(CONFIG_READ_FILE_BUF_POOL_MAX_SIZE)

// LoadConfig loads the configuration from the specified YAML file (or buf,
// pre-populated for testing) and returns it as an *EngineConfig.
func LoadConfig(cfgFile string, buf []byte) (*EngineConfig, error) {
	if buf == nil {
		fileBuf, err := configReadFileBufPool.ReadFile(cfgFile)
		if err != nil && err != ErrReadFileBufPotentialTruncation {
			return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
		}
		buf = fileBuf.Bytes()
		defer configReadFileBufPool.ReturnBuf(fileBuf)
	}

	docNode := yaml.Node{}
	err := yaml.Unmarshal(buf, &docNode)
	if err != nil {
		return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
	}

	engineConfig := DefaultEngineConfig()
	if docNode.Kind == yaml.DocumentNode && len(docNode.Content) > 0 {
		rootNode := docNode.Content[0]
		if rootNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("file: %q: invalid YAML root node %q", cfgFile, rootNode.Tag)
		}
		var toCfg any = nil
		for _, n := range rootNode.Content {
			if n.Kind == yaml.ScalarNode {
				switch n.Value {
				case ENGINE_CONFIG_SECTION_NAME:
					toCfg = engineConfig
				default:
					toCfg = nil
				}
				continue
			}
			if n.Kind == yaml.MappingNode && toCfg != nil {
				if err = n.Decode(toCfg); err != nil {
					return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
				}
			}
			toCfg = nil
		}
	}

	return engineConfig, nil
}
