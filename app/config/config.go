// Package config provides the configuration support for the application.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/umputun/daterange/app/daterange"
	"github.com/umputun/daterange/app/printer"
)

// Conf for presets config yml
type Conf struct {
	Presets map[string]Preset `yaml:"presets"`
	Server  struct {
		Port     int           `yaml:"port"`
		Limit    int           `yaml:"limit"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"server"`
}

// Preset defines a named range
type Preset struct {
	Description string `yaml:"description"`
	Start       string `yaml:"start"`
	End         string `yaml:"end"`
	Days        int    `yaml:"days"`
	Step        int    `yaml:"step"`
	Inclusive   bool   `yaml:"inclusive"`
	Format      string `yaml:"format"`
	Template    string `yaml:"template"`
}

// UnmarshalYAML sets step to 1 unless the preset has one, explicit "step: 0" is kept for Validate
func (p *Preset) UnmarshalYAML(value *yaml.Node) error {
	type plain Preset
	res := plain{Step: 1}
	if err := value.Decode(&res); err != nil {
		return err
	}
	*p = Preset(res)
	return nil
}

// Spec makes range spec from the preset
func (p Preset) Spec() (daterange.Spec, error) {
	start, err := daterange.Parse(p.Start)
	if err != nil {
		return daterange.Spec{}, errors.Wrap(err, "start")
	}
	res := daterange.Spec{Start: start, Step: p.Step, MaxCount: p.Days, Inclusive: p.Inclusive}
	if p.End != "" {
		if res.End, err = daterange.Parse(p.End); err != nil {
			return daterange.Spec{}, errors.Wrap(err, "end")
		}
	}
	return res, nil
}

// Load config from file
func Load(fname string) (res *Conf, err error) {
	res = &Conf{}
	data, err := os.ReadFile(fname) // nolint
	if err != nil {
		return nil, err
	}
	// expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, err
	}
	res.setDefaults()
	if err := res.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", fname)
	}
	return res, nil
}

// Names returns sorted preset names
func (c *Conf) Names() []string {
	res := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// Validate checks all presets and reports every problem found
func (c *Conf) Validate() error {
	errs := new(multierror.Error)
	for _, name := range c.Names() {
		p := c.Presets[name]
		if _, err := p.Spec(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("preset %s: %w", name, err))
		}
		if p.Step == 0 {
			errs = multierror.Append(errs, fmt.Errorf("preset %s: step can't be zero", name))
		}
		if p.Days < 0 {
			errs = multierror.Append(errs, fmt.Errorf("preset %s: days can't be negative, %d", name, p.Days))
		}
	}
	if c.Server.Limit < 0 {
		errs = multierror.Append(errs, fmt.Errorf("server limit can't be negative, %d", c.Server.Limit))
	}
	return errs.ErrorOrNil()
}

// setDefaults sets default values for config
func (c *Conf) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Limit == 0 {
		c.Server.Limit = 10000
	}
	if c.Server.CacheTTL == 0 {
		c.Server.CacheTTL = time.Minute * 5
	}

	for k, p := range c.Presets {
		if p.Format == "" {
			p.Format = printer.DefaultFormat
		}
		c.Presets[k] = p
	}
}
