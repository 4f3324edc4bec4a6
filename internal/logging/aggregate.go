package logging

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Export formats accepted by WriteEntries.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Entry is one parsed line of a debug.log.
type Entry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	SessionID string         `json:"session_id,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	Round     int            `json:"round,omitempty"`
	Phase     string         `json:"phase,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Filter selects entries. Zero fields match everything; set fields are ANDed.
type Filter struct {
	// Level is the minimum level.
	Level string
	Since time.Time
	// SessionID matches as a prefix so short ids from `history` work.
	SessionID string
	AgentID   string
	Round     int
	Phase     string
	// Pattern is matched against the message.
	Pattern *regexp.Regexp
}

var levelRank = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ReadEntries parses debug.log in dir together with its rotated backups
// (debug.log.N and debug.log.N.gz) and returns the entries ordered by time.
// Lines that are not JSON are skipped.
func ReadEntries(dir string) ([]Entry, error) {
	files, err := logFiles(dir)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, path := range files {
		parsed, err := readFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, parsed...)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	return entries, nil
}

// logFiles lists the oldest backup first and the live file last.
func logFiles(dir string) ([]string, error) {
	live := filepath.Join(dir, LogFileName)
	matches, err := filepath.Glob(live + ".*")
	if err != nil {
		return nil, err
	}

	type backup struct {
		path string
		n    int
	}
	var backups []backup
	for _, m := range matches {
		suffix := strings.TrimSuffix(strings.TrimPrefix(m, live+"."), ".gz")
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		backups = append(backups, backup{path: m, n: n})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].n > backups[j].n })

	files := make([]string, 0, len(backups)+1)
	for _, b := range backups {
		files = append(files, b.path)
	}
	if _, err := os.Stat(live); err == nil {
		files = append(files, live)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no log file in %s: %w", dir, os.ErrNotExist)
	}
	return files, nil
}

func readFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	var entries []Entry
	scanner := bufio.NewScanner(r)
	// Final answers can make a single line large.
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if e, ok := parseEntry(line); ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return entries, nil
}

func parseEntry(line string) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}

	var e Entry
	if s, ok := raw["time"].(string); ok {
		e.Time, _ = time.Parse(time.RFC3339Nano, s)
	}
	e.Level, _ = raw["level"].(string)
	e.Message, _ = raw["msg"].(string)
	e.SessionID, _ = raw["session_id"].(string)
	e.AgentID, _ = raw["agent_id"].(string)
	e.Phase, _ = raw["phase"].(string)
	if n, ok := raw["round"].(float64); ok {
		e.Round = int(n)
	}

	for _, k := range []string{"time", "level", "msg", "session_id", "agent_id", "round", "phase"} {
		delete(raw, k)
	}
	if len(raw) > 0 {
		e.Attrs = raw
	}
	return e, true
}

// FilterEntries returns the entries that match f.
func FilterEntries(entries []Entry, f Filter) []Entry {
	var out []Entry
	for _, e := range entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f Filter) matches(e Entry) bool {
	if f.Level != "" {
		want, ok := levelRank[strings.ToUpper(f.Level)]
		got, known := levelRank[e.Level]
		if ok && known && got < want {
			return false
		}
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if f.SessionID != "" && !strings.HasPrefix(e.SessionID, f.SessionID) {
		return false
	}
	if f.AgentID != "" && e.AgentID != f.AgentID {
		return false
	}
	if f.Round > 0 && e.Round != f.Round {
		return false
	}
	if f.Phase != "" && e.Phase != f.Phase {
		return false
	}
	if f.Pattern != nil && !f.Pattern.MatchString(e.Message) {
		return false
	}
	return true
}

// WriteEntries renders entries as text, a JSON array or CSV.
func WriteEntries(w io.Writer, entries []Entry, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		for _, e := range entries {
			if _, err := fmt.Fprintln(w, FormatEntry(e)); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []Entry{}
		}
		return enc.Encode(entries)
	case FormatCSV:
		return writeCSV(w, entries)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: text, json, csv)", format)
	}
}

// FormatEntry renders one entry as
// "[2006-01-02 15:04:05.000] LEVEL - message (session=.., agent=.., round=..) {attrs}".
func FormatEntry(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s - %s", e.Time.Local().Format("2006-01-02 15:04:05.000"), e.Level, e.Message)

	var ctx []string
	if e.SessionID != "" {
		ctx = append(ctx, "session="+e.SessionID)
	}
	if e.AgentID != "" {
		ctx = append(ctx, "agent="+e.AgentID)
	}
	if e.Round > 0 {
		ctx = append(ctx, "round="+strconv.Itoa(e.Round))
	}
	if e.Phase != "" {
		ctx = append(ctx, "phase="+e.Phase)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	if len(e.Attrs) > 0 {
		if data, err := json.Marshal(e.Attrs); err == nil {
			b.WriteString(" ")
			b.Write(data)
		}
	}
	return b.String()
}

func writeCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "level", "message", "session_id", "agent_id", "round", "phase", "attrs"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		var attrs string
		if len(e.Attrs) > 0 {
			if data, err := json.Marshal(e.Attrs); err == nil {
				attrs = string(data)
			}
		}
		round := ""
		if e.Round > 0 {
			round = strconv.Itoa(e.Round)
		}
		record := []string{
			e.Time.Format(time.RFC3339Nano),
			e.Level,
			e.Message,
			e.SessionID,
			e.AgentID,
			round,
			e.Phase,
			attrs,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
