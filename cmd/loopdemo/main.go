// Command loopdemo drives the looper core against a real sound card and
// a line-oriented control script read from stdin or a file.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"

	"github.com/rjw57/loopcore/buffer"
	"github.com/rjw57/loopcore/config"
	"github.com/rjw57/loopcore/loopcore"
)

func main() {
	var (
		attrsPath  = pflag.StringP("attrs", "a", "", "Path to a YAML engine attributes file.")
		script     = pflag.StringP("script", "s", "", "Path to a line-oriented control script; '-' or omitted reads stdin.")
		bufSeconds = pflag.Float64P("buffer-seconds", "b", 10, "Record buffer length in seconds.")
		channels   = pflag.IntP("channels", "c", 2, "Channel count (1, 2, or 4).")
		sampleRate = pflag.Float64P("sample-rate", "r", 44100, "Audio sample rate in Hz.")
		help       = pflag.Bool("help", false, "Display help text.")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s drives the varispeed looper core against a sound card.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	attrs, err := config.Load(*attrsPath)
	if err != nil {
		logger.Fatal("loading attributes", "err", err)
	}

	frames := int(*bufSeconds * *sampleRate)
	buf := buffer.New("loop", frames, *channels)
	engine := loopcore.New(*channels, attrs.Options(logger)...)
	engine.Attach(buf, 0, *sampleRate, *sampleRate)

	if err := portaudio.Initialize(); err != nil {
		logger.Fatal("portaudio init", "err", err)
	}
	defer portaudio.Terminate()

	stream, err := openStream(engine, *channels, *sampleRate)
	if err != nil {
		logger.Fatal("opening audio stream", "err", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		logger.Fatal("starting audio stream", "err", err)
	}
	defer stream.Stop()

	stopReport := make(chan struct{})
	if attrs.ReportMS > 0 {
		go runReportClock(engine, attrs.ReportMS, logger, stopReport)
		defer close(stopReport)
	}

	runScript(engine, *script, logger)
}

// openStream opens a full-duplex N-in/N-out portaudio stream whose
// callback is the core's only audio-thread entry point.
func openStream(engine *loopcore.Engine, channels int, sampleRate float64) (*portaudio.Stream, error) {
	speed := make([]float64, 0, 4096)
	callback := func(in, out [][]float32) {
		n := len(out[0])
		if cap(speed) < n {
			speed = make([]float64, n)
		}
		speed = speed[:n]
		for i := range speed {
			speed[i] = 1
		}
		engine.PerformVector(in, speed, out, nil)
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Latency:  portaudio.HighLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: channels,
			Latency:  portaudio.HighLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}
	return portaudio.OpenStream(params, callback)
}

// runReportClock emits a telemetry line on the configured interval,
// formatting the timestamp with strftime.
func runReportClock(engine *loopcore.Engine, intervalMS int, logger *charmlog.Logger, stop <-chan struct{}) {
	pattern, err := strftime.New("%H:%M:%S")
	if err != nil {
		logger.Error("report clock: bad strftime pattern", "err", err)
		return
	}
	ticker := time.NewTicker(time.Duration(intervalMS) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			var sb strings.Builder
			if err := pattern.Format(&sb, now); err != nil {
				continue
			}
			t := engine.Report()
			logger.Info("report", "t", sb.String(), "list", t.List())
		}
	}
}

// runScript reads whitespace-separated control commands, one per line,
// from path (or stdin), translating each into a loopcore.Command posted
// through PostCommand. Unknown verbs are warned about and skipped.
func runScript(engine *loopcore.Engine, path string, logger *charmlog.Logger) {
	r := os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			logger.Error("opening script", "err", err)
			return
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, ok := parseLine(line)
		if !ok {
			logger.Warn("unrecognized control line", "line", line)
			continue
		}
		engine.PostCommand(cmd)
	}
	if err := scanner.Err(); err != nil {
		logger.Error("reading script", "err", err)
	}
}

func parseLine(line string) (loopcore.Command, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return loopcore.Command{}, false
	}
	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "play":
		return loopcore.Command{Verb: loopcore.VerbPlay}, true
	case "record":
		return loopcore.Command{Verb: loopcore.VerbRecord}, true
	case "stop":
		return loopcore.Command{Verb: loopcore.VerbStop}, true
	case "append":
		return loopcore.Command{Verb: loopcore.VerbAppend}, true
	case "jump":
		if len(args) != 1 {
			return loopcore.Command{}, false
		}
		pos, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return loopcore.Command{}, false
		}
		return loopcore.Command{Verb: loopcore.VerbJump, Position: pos}, true
	case "overdub":
		if len(args) != 1 {
			return loopcore.Command{}, false
		}
		amt, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return loopcore.Command{}, false
		}
		return loopcore.Command{Verb: loopcore.VerbOverdub, Overdub: amt}, true
	case "position":
		if len(args) != 1 {
			return loopcore.Command{}, false
		}
		pos, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return loopcore.Command{}, false
		}
		return loopcore.Command{Verb: loopcore.VerbPosition, Position: pos}, true
	case "window":
		if len(args) != 1 {
			return loopcore.Command{}, false
		}
		w, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return loopcore.Command{}, false
		}
		return loopcore.Command{Verb: loopcore.VerbWindow, Window: w}, true
	case "setloop":
		if len(args) != 2 {
			return loopcore.Command{}, false
		}
		low, err1 := strconv.ParseFloat(args[0], 64)
		high, err2 := strconv.ParseFloat(args[1], 64)
		if err1 != nil || err2 != nil {
			return loopcore.Command{}, false
		}
		return loopcore.Command{Verb: loopcore.VerbSetLoop, Low: &low, High: &high, Units: loopcore.UnitsPhase}, true
	case "resetloop":
		return loopcore.Command{Verb: loopcore.VerbResetLoop}, true
	default:
		return loopcore.Command{}, false
	}
}
