package logtail

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"
)

// pollInterval is how often Follow checks the files for growth.
const pollInterval = 500 * time.Millisecond

// Tail returns the last n lines of the file at path. A missing or unreadable
// file yields no lines.
func Tail(path string, n int) []string {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// Clear truncates the files that exist.
func Clear(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = os.Truncate(p, 0)
		}
	}
}

// Follow streams newly appended lines from stdout/stderr log files until the
// context is canceled. Each line is passed to emit with its origin label.
func Follow(ctx context.Context, stdoutPath, stderrPath string, emit func(origin, line string)) {
	offsets := map[string]int64{
		stdoutPath: fileSize(stdoutPath),
		stderrPath: fileSize(stderrPath),
	}
	labels := map[string]string{stdoutPath: "out", stderrPath: "err"}
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		for _, path := range []string{stdoutPath, stderrPath} {
			if path == "" {
				continue
			}
			offsets[path] = drain(path, offsets[path], labels[path], emit)
		}
	}
}

func fileSize(path string) int64 {
	if fi, err := os.Stat(path); err == nil {
		return fi.Size()
	}
	return 0
}

// drain reads complete lines appended past offset and returns the new offset.
func drain(path string, offset int64, label string, emit func(origin, line string)) int64 {
	f, err := os.Open(path)
	if err != nil {
		return offset
	}
	defer func() { _ = f.Close() }()
	fi, err := f.Stat()
	if err != nil || fi.Size() <= offset {
		if err == nil && fi.Size() < offset {
			// truncated (rotation or clear): start over
			return 0
		}
		return offset
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset
	}
	r := bufio.NewReader(f)
	pos := offset
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			break
		}
		pos += int64(len(line))
		emit(label, strings.TrimRight(line, "\n"))
	}
	return pos
}
