// Package printer renders dates as text lines, either with strftime-style format
// or with a line template like "{n}: {date} ({weekday})"
package printer

import (
	"bufio"
	"io"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/pkg/errors"
	"github.com/valyala/fasttemplate"

	"github.com/umputun/daterange/app/daterange"
)

// DefaultFormat renders dates as YYYY-MM-DD
const DefaultFormat = "%Y-%m-%d"

// Printer writes one line per date to Out
type Printer struct {
	Out      io.Writer
	Format   string // strftime format, DefaultFormat if empty
	Template string // optional line template, overrides Format
}

// Print renders all dates from seq and returns the number of lines written.
// Buffered lines are flushed even if seq panics.
func (p *Printer) Print(seq iter.Seq[daterange.Date]) (count int, err error) {
	render, err := p.renderer()
	if err != nil {
		return 0, err
	}

	w := bufio.NewWriter(p.Out)
	defer func() {
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = errors.Wrap(ferr, "can't flush output")
		}
	}()

	for day := range seq {
		count++
		if _, err = w.WriteString(render(day, count) + "\n"); err != nil {
			return count - 1, errors.Wrap(err, "can't write date")
		}
	}
	return count, nil
}

// Check reports a malformed Format or Template
func (p *Printer) Check() error {
	_, err := p.renderer()
	return err
}

// Line renders a single date, n is its 1-based position in the sequence
func (p *Printer) Line(day daterange.Date, n int) (string, error) {
	render, err := p.renderer()
	if err != nil {
		return "", err
	}
	return render(day, n), nil
}

// Lines renders dates numbered from 1, the format is compiled once
func (p *Printer) Lines(dates []daterange.Date) ([]string, error) {
	render, err := p.renderer()
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(dates))
	for i, day := range dates {
		res = append(res, render(day, i+1))
	}
	return res, nil
}

func (p *Printer) renderer() (func(day daterange.Date, n int) string, error) {
	format := p.Format
	if format == "" {
		format = DefaultFormat
	}
	sf, err := compile(format)
	if err != nil {
		return nil, err
	}

	if p.Template == "" {
		return func(day daterange.Date, _ int) string { return sf.FormatString(day.Time()) }, nil
	}

	tmpl, err := fasttemplate.NewTemplate(p.Template, "{", "}")
	if err != nil {
		return nil, errors.Wrapf(err, "bad template %q", p.Template)
	}

	return func(day daterange.Date, n int) string {
		return tmpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
			switch strings.TrimSpace(tag) {
			case "date":
				return w.Write([]byte(sf.FormatString(day.Time())))
			case "iso":
				return w.Write([]byte(day.String()))
			case "weekday":
				return w.Write([]byte(day.Time().Weekday().String()))
			case "n":
				return w.Write([]byte(strconv.Itoa(n)))
			}
			return 0, nil
		})
	}, nil
}

// Strftime formats day with C strftime directives. Dates have no clock, so time
// directives render midnight UTC. Unknown directives are an error.
func Strftime(day daterange.Date, format string) (string, error) {
	sf, err := compile(format)
	if err != nil {
		return "", err
	}
	return sf.FormatString(day.Time()), nil
}

// isoYear is %G, the year of the ISO 8601 week, not provided by strftime package
var isoYear = strftime.AppendFunc(func(b []byte, t time.Time) []byte {
	y, _ := t.ISOWeek()
	return append(b, strconv.Itoa(y)...)
})

func compile(format string) (*strftime.Strftime, error) {
	res, err := strftime.New(format, strftime.WithSpecification('G', isoYear))
	if err != nil {
		return nil, errors.Wrapf(err, "bad format %q", format)
	}
	return res, nil
}
