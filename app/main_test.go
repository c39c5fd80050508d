package main

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/daterange/app/config"
	"github.com/umputun/daterange/app/daterange"
)

const testConf = `
presets:
  weekly:
    start: 2011-01-01
    step: 7
    days: 70
    format: "%d.%m"
  back:
    start: 2011-01-01
    end: 2010-12-30
  back-inclusive:
    start: 2011-01-01
    end: 2010-12-30
    inclusive: true
`

func writeConf(t *testing.T) string {
	fname := filepath.Join(t.TempDir(), "dr.yml")
	require.NoError(t, os.WriteFile(fname, []byte(testConf), 0o600))
	return fname
}

func defaultOpts() options {
	return options{Step: 1, Format: "%Y-%m-%d"}
}

func TestRun(t *testing.T) {
	tbl := []struct {
		name string
		opts func(o *options)
		out  string
	}{
		{"days", func(o *options) { o.Args.Start = "2011-01-01"; o.Days = 3 }, "2011-01-01\n2011-01-02\n2011-01-03\n"},
		{"step over days", func(o *options) { o.Args.Start = "2011-01-01"; o.Days = 10; o.Step = 7 }, "2011-01-01\n2011-01-08\n"},
		{"back", func(o *options) { o.Args.Start = "2011-01-01"; o.End = "2010-12-30" }, "2011-01-01\n2010-12-31\n"},
		{"inclusive", func(o *options) { o.Args.Start = "2011-01-01"; o.End = "2011-01-03"; o.Inclusive = true },
			"2011-01-01\n2011-01-02\n2011-01-03\n"},
		{"format", func(o *options) { o.Args.Start = "2011-01-01"; o.Days = 2; o.Format = "%a %d %b %Y" },
			"Sat 01 Jan 2011\nSun 02 Jan 2011\n"},
		{"template", func(o *options) { o.Args.Start = "2011-01-01"; o.Days = 2; o.Template = "{n} {weekday}" },
			"1 Saturday\n2 Sunday\n"},
		{"zero step", func(o *options) { o.Args.Start = "2011-01-01"; o.Days = 2; o.Step = 0 }, ""},
	}

	for _, tt := range tbl {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOpts()
			tt.opts(&opts)
			buf := bytes.Buffer{}
			require.NoError(t, run(context.Background(), opts, &buf))
			assert.Equal(t, tt.out, buf.String())
		})
	}
}

func TestRun_Preset(t *testing.T) {
	fname := writeConf(t)

	opts := defaultOpts()
	opts.Conf, opts.Preset = fname, "weekly"
	buf := bytes.Buffer{}
	require.NoError(t, run(context.Background(), opts, &buf))
	assert.Equal(t, "01.01\n08.01\n15.01\n22.01\n29.01\n05.02\n12.02\n19.02\n26.02\n05.03\n", buf.String())

	// explicit options override preset
	opts.set = func(long string) bool { return long == "step" || long == "format" }
	opts.Step, opts.Format, opts.Days, opts.Args.Start = 35, "%Y-%m-%d", 0, "2012-01-01"
	buf.Reset()
	require.NoError(t, run(context.Background(), opts, &buf))
	assert.Equal(t, "2012-01-01\n2012-02-05\n", buf.String())

	opts = defaultOpts()
	opts.Conf, opts.Preset = fname, "back"
	buf.Reset()
	require.NoError(t, run(context.Background(), opts, &buf))
	assert.Equal(t, "2011-01-01\n2010-12-31\n", buf.String())

	opts.Inclusive = true
	opts.set = func(long string) bool { return long == "inclusive" }
	buf.Reset()
	require.NoError(t, run(context.Background(), opts, &buf))
	assert.Equal(t, "2011-01-01\n2010-12-31\n2010-12-30\n", buf.String())
}

func TestRun_PresetOverrideOff(t *testing.T) {
	fname := writeConf(t)

	// --days=0 clears preset's days, the range ends at --end instead
	opts := defaultOpts()
	opts.Conf, opts.Preset = fname, "weekly"
	opts.Days, opts.End = 0, "2011-01-20"
	opts.set = func(long string) bool { return long == "days" }
	buf := bytes.Buffer{}
	require.NoError(t, run(context.Background(), opts, &buf))
	assert.Equal(t, "01.01\n08.01\n15.01\n", buf.String())

	// --exclusive turns off preset's inclusive
	opts = defaultOpts()
	opts.Conf, opts.Preset = fname, "back-inclusive"
	buf.Reset()
	require.NoError(t, run(context.Background(), opts, &buf))
	assert.Equal(t, "2011-01-01\n2010-12-31\n2010-12-30\n", buf.String())

	opts.Exclusive = true
	opts.set = func(long string) bool { return long == "exclusive" }
	buf.Reset()
	require.NoError(t, run(context.Background(), opts, &buf))
	assert.Equal(t, "2011-01-01\n2010-12-31\n", buf.String())

	// days not passed, preset's value kept
	opts = defaultOpts()
	opts.Conf, opts.Preset = fname, "weekly"
	opts.set = func(string) bool { return false }
	buf.Reset()
	require.NoError(t, run(context.Background(), opts, &buf))
	assert.Equal(t, 10, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestRun_Errors(t *testing.T) {
	tbl := []struct {
		name string
		opts func(o *options)
		err  string
		code int
	}{
		{"no start", func(o *options) {}, "start date is required", exitUsage},
		{"bad start", func(o *options) { o.Args.Start = "2011-02-30" }, `invalid date "2011-02-30"`, exitUsage},
		{"bad end", func(o *options) { o.Args.Start = "2011-01-01"; o.End = "01/02/2011" }, `invalid date "01/02/2011"`, exitUsage},
		{"no preset", func(o *options) { o.Preset = "blah" }, `preset "blah" not found`, exitUsage},
		{"no config", func(o *options) { o.Conf = "/tmp/no-such-dir-dr/dr.yml" }, "can't load config", exitError},
		{"bad template", func(o *options) { o.Args.Start = "2011-01-01"; o.Days = 1; o.Template = "{n" }, "bad template", exitUsage},
		{"bad format", func(o *options) { o.Args.Start = "2011-01-01"; o.Format = "%Q" }, `bad format "%Q"`, exitUsage},
		{"inclusive and exclusive", func(o *options) { o.Args.Start = "2011-01-01"; o.Inclusive, o.Exclusive = true, true },
			"can't be used together", exitUsage},
	}

	for _, tt := range tbl {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOpts()
			tt.opts(&opts)
			err := run(context.Background(), opts, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
			assert.Equal(t, tt.code, exitCode(err))
		})
	}
}

func TestMakeSpec(t *testing.T) {
	conf, err := config.Load(writeConf(t))
	require.NoError(t, err)

	opts := defaultOpts()
	opts.Preset = "weekly"
	spec, prn, err := makeSpec(opts, conf)
	require.NoError(t, err)
	assert.Equal(t, daterange.Spec{Start: daterange.New(2011, 1, 1), Step: 7, MaxCount: 70}, spec)
	assert.Equal(t, "%d.%m", prn.Format)

	opts = defaultOpts()
	opts.Args.Start, opts.End, opts.Step, opts.Inclusive = "2011-01-01", "2011-02-01", -2, true
	spec, prn, err = makeSpec(opts, conf)
	require.NoError(t, err)
	assert.Equal(t, daterange.Spec{Start: daterange.New(2011, 1, 1), End: daterange.New(2011, 2, 1), Step: -2, Inclusive: true}, spec)
	assert.Equal(t, "%Y-%m-%d", prn.Format)
}

func TestRun_Server(t *testing.T) {
	opts := defaultOpts()
	opts.Server = true
	opts.Port = rand.Intn(10000) + 50000

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() {
		time.Sleep(time.Millisecond * 100)
		resp, err := http.Get(fmt.Sprintf("http://localhost:%d/range?start=2011-01-01&days=2&text=1", opts.Port))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}()
	assert.NoError(t, run(ctx, opts, &bytes.Buffer{}))
}
