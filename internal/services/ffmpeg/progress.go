package ffmpeg

import (
	"regexp"
	"strconv"
)

var timePattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseElapsed extracts the elapsed media time from one line of encoder
// output, matching the time=HH:MM:SS.sss field ffmpeg emits on progress and
// status lines. The boolean is false when the line carries no timestamp.
func ParseElapsed(line string) (float64, bool) {
	match := timePattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, _ := strconv.ParseFloat(match[1], 64)
	minutes, _ := strconv.ParseFloat(match[2], 64)
	seconds, _ := strconv.ParseFloat(match[3], 64)
	return hours*3600 + minutes*60 + seconds, true
}
