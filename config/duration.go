package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from yaml either as a Go duration
// string ("5s", "250ms") or as a bare number of seconds.
type Duration time.Duration

var _ yaml.Unmarshaler = (*Duration)(nil)

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var seconds float64
	if err := node.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration: %v", node.Value)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
