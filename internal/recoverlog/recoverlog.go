// Package recoverlog reads the Recover.log written by the FileMaker developer
// tool and summarises the problems it reports.
package recoverlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoLog is returned by ParseFile when the log does not exist.
var ErrNoLog = errors.New("recoverlog: no log file")

// Entry is one line of the log: timestamp, file, error code and message,
// separated by tabs. Lines that do not have four fields keep only Message.
type Entry struct {
	Timestamp string `json:"timestamp,omitempty"`
	File      string `json:"file,omitempty"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
}

// Report summarises a parsed log.
type Report struct {
	Entries       []Entry `json:"entries"`
	Errors        []Entry `json:"errors,omitempty"`
	ProblemsFound int     `json:"problems_found"`
	Clean         bool    `json:"clean"`
}

// HasProblems reports whether the tool logged errors or detected problems.
func (r Report) HasProblems() bool {
	return len(r.Errors) > 0 || r.ProblemsFound > 0
}

var (
	problemCountRe = regexp.MustCompile(`(?i)(?:detected|found|fixed)\D{0,40}?(\d+)\s+problem`)
	cleanRe        = regexp.MustCompile(`(?i)without detecting any problems|no problems (?:were )?(?:detected|found)`)
)

// Parse reads a log from r.
func Parse(r io.Reader) (Report, error) {
	var rep Report
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := parseLine(line)
		rep.Entries = append(rep.Entries, e)
		if e.Code != 0 {
			rep.Errors = append(rep.Errors, e)
		}
		if m := problemCountRe.FindStringSubmatch(e.Message); m != nil {
			n, _ := strconv.Atoi(m[1])
			rep.ProblemsFound += n
		}
		if cleanRe.MatchString(e.Message) {
			rep.Clean = true
		}
	}
	if err := sc.Err(); err != nil {
		return rep, fmt.Errorf("recoverlog: read: %w", err)
	}
	if rep.HasProblems() {
		rep.Clean = false
	}
	return rep, nil
}

// ParseFile parses the log at path.
func ParseFile(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Report{}, fmt.Errorf("%w: %s", ErrNoLog, path)
		}
		return Report{}, fmt.Errorf("recoverlog: open: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func parseLine(line string) Entry {
	fields := strings.SplitN(line, "\t", 4)
	if len(fields) != 4 {
		return Entry{Message: strings.TrimSpace(line)}
	}
	code, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Entry{Message: strings.TrimSpace(line)}
	}
	return Entry{
		Timestamp: strings.TrimSpace(fields[0]),
		File:      strings.TrimSpace(fields[1]),
		Code:      code,
		Message:   strings.TrimSpace(fields[3]),
	}
}
