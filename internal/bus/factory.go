package bus

import (
	"fmt"
	"strings"

	"github.com/nemaeval/nema-eval/internal/config"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/logger"
)

// NewBus creates a new Bus instance based on the configuration. When an
// event log path is configured the bus is wrapped in a LoggedBus.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	if log == nil {
		log = logger.Default()
	}

	var b Bus
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		b = NewMemoryBus(log)

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "nema-eval"
		}

		kb, err := NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "nema-eval-bus",
		}, log)
		if err != nil {
			return nil, err
		}
		b = kb

	case "none":
		return nil, errors.ValidationError("event bus is disabled (bus.type is none)")

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}

	if cfg.EventLogPath == "" {
		return b, nil
	}

	eventLogger, err := NewEventLogger(cfg.EventLogPath)
	if err != nil {
		b.Close()
		return nil, err
	}
	return NewLoggedBus(b, eventLogger, log), nil
}
