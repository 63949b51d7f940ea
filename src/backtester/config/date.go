package config

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jiaming2012/tick-backtester/src/utils"
)

// Date is a calendar day read from YAML as 2006-01-02 or 20060102. The zero value means unbounded.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := utils.ParseDate(value.Value)
	if err != nil {
		return err
	}

	d.Time = t
	return nil
}

func (d Date) MarshalYAML() (interface{}, error) {
	if d.IsZero() {
		return "", nil
	}

	return d.Format("2006-01-02"), nil
}

func NewDate(t time.Time) Date {
	return Date{Time: t}
}
