package auction

import (
	"fmt"
	"time"
)

const (
	// DefaultMinIncreasePercent минимальный прирост новой ставки над лидирующей, в процентах.
	DefaultMinIncreasePercent = 5
	// DefaultCommissionPercent доля выигрышной суммы, уходящая владельцу площадки.
	DefaultCommissionPercent = 2
	// DefaultExtensionWindow ставка в этом окне до конца продлевает торги на такую же величину.
	DefaultExtensionWindow = 10 * time.Minute
)

// Config содержит неизменяемые параметры аукциона. EndTime задаёт исходный срок
// окончания, фактический срок хранится в состоянии и может продлеваться.
type Config struct {
	Owner              string
	Seller             string
	Item               string
	StartTime          time.Time
	EndTime            time.Time
	MinIncreasePercent int64
	CommissionPercent  int64
	ExtensionWindow    time.Duration
}

// NewConfig создаёт конфигурацию со стандартными процентами и окном продления.
func NewConfig(owner, seller, item string, start time.Time, duration time.Duration) Config {
	return Config{
		Owner:              owner,
		Seller:             seller,
		Item:               item,
		StartTime:          start,
		EndTime:            start.Add(duration),
		MinIncreasePercent: DefaultMinIncreasePercent,
		CommissionPercent:  DefaultCommissionPercent,
		ExtensionWindow:    DefaultExtensionWindow,
	}
}

func (c Config) validate() error {
	switch {
	case c.Owner == "":
		return fmt.Errorf("%w: owner is required", ErrInvalidConfig)
	case c.Seller == "":
		return fmt.Errorf("%w: seller is required", ErrInvalidConfig)
	case !c.EndTime.After(c.StartTime):
		return fmt.Errorf("%w: duration must be positive", ErrInvalidConfig)
	case c.MinIncreasePercent < 0:
		return fmt.Errorf("%w: negative minimum increase", ErrInvalidConfig)
	case c.CommissionPercent < 0 || c.CommissionPercent > 100:
		return fmt.Errorf("%w: commission must be within [0, 100]", ErrInvalidConfig)
	case c.ExtensionWindow <= 0:
		return fmt.Errorf("%w: extension window must be positive", ErrInvalidConfig)
	}
	return nil
}
