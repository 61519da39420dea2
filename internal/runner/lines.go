package runner

import "bytes"

const (
	// maxLineSize caps one log line. Longer output is split into several lines.
	maxLineSize = 64 * 1024
	// scanBufferSize leaves room for the byte after a "\r" at the cap, so a
	// full buffer can still tell "\r\n" from a lone "\r".
	scanBufferSize = maxLineSize + 1
)

// scanOutputLines is a bufio.SplitFunc that ends a line at "\n", "\r\n" or a
// lone "\r". Progress meters such as ffmpeg's stats line rewrite themselves
// with "\r" only, so each update becomes its own line. A line longer than
// maxLineSize is returned in maxLineSize chunks instead of failing the scan.
func scanOutputLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 && i < maxLineSize {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		switch {
		case i+1 < len(data) && data[i+1] == '\n':
			return i + 2, data[:i], nil
		case i+1 < len(data), atEOF:
			return i + 1, data[:i], nil
		}
		// A trailing "\r" may be the first half of "\r\n".
		return 0, nil, nil
	}

	if len(data) >= maxLineSize {
		return maxLineSize, data[:maxLineSize], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
