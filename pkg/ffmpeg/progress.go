package ffmpeg

import (
	"bufio"
	"strconv"
	"strings"
)

// Progress is one snapshot from ffmpeg's -progress output.
type Progress struct {
	Frame     int64   // frames encoded so far
	FPS       float64 // current encoding rate
	Bitrate   string  // e.g. "1234.5kbits/s"
	TotalSize int64   // output bytes written so far
	OutTimeUS int64   // output timestamp in microseconds
	Speed     string  // realtime multiplier, e.g. "2.5x"
	Progress  string  // "continue" while running, "end" on the last block
}

// OutTimeSeconds returns the output timestamp in seconds, the value
// callers divide by the source duration to get a completion fraction.
func (p Progress) OutTimeSeconds() float64 {
	return float64(p.OutTimeUS) / 1_000_000
}

// ProgressParser accumulates the key=value lines of -progress output
// into snapshots. ffmpeg terminates each block with a progress= line.
type ProgressParser struct {
	current Progress
}

func NewProgressParser() *ProgressParser {
	return &ProgressParser{}
}

// ParseLine folds one line into the current snapshot. It returns true
// when the line completes a block and Current is ready to read.
func (p *ProgressParser) ParseLine(line string) bool {
	line = strings.TrimSpace(line)
	idx := strings.Index(line, "=")
	if idx == -1 {
		return false
	}
	key, value := line[:idx], line[idx+1:]

	switch key {
	case "frame":
		p.current.Frame, _ = strconv.ParseInt(value, 10, 64)
	case "fps":
		p.current.FPS, _ = strconv.ParseFloat(value, 64)
	case "bitrate":
		p.current.Bitrate = value
	case "total_size":
		p.current.TotalSize, _ = strconv.ParseInt(value, 10, 64)
	case "out_time_us":
		p.current.OutTimeUS, _ = strconv.ParseInt(value, 10, 64)
	case "speed":
		p.current.Speed = value
	case "progress":
		p.current.Progress = value
		return true
	}
	return false
}

// Current returns the latest snapshot.
func (p *ProgressParser) Current() Progress {
	return p.current
}

// ParseProgressOutput reads -progress output line by line and sends a
// snapshot to progress after each completed block, stopping at the
// "end" block.
func ParseProgressOutput(scanner *bufio.Scanner, progress chan<- Progress) {
	parser := NewProgressParser()
	for scanner.Scan() {
		if parser.ParseLine(scanner.Text()) {
			progress <- parser.Current()
			if parser.Current().Progress == "end" {
				break
			}
		}
	}
}
