package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// EnvVar names the environment variable holding the log level.
const EnvVar = "COMPSITE_LOG"

// Init installs a LineHandler writing to stderr and sets the level from
// COMPSITE_LOG, falling back to fallback when unset or invalid.
func Init(fallback string) {
	level := strings.ToLower(os.Getenv(EnvVar))
	if level == "" {
		level = fallback
	}
	log.SetHandler(NewLineHandler(os.Stderr))
	if err := setLevel(level); err != nil {
		_ = setLevel(fallback)
		log.Warnf("invalid %s %q, using %s", EnvVar, level, fallback)
	}
}

func setLevel(level string) error {
	l, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	log.SetLevel(l)
	return nil
}

// LineHandler formats log entries as single lines.
type LineHandler struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewLineHandler returns a LineHandler writing to w.
func NewLineHandler(w io.Writer) *LineHandler {
	return &LineHandler{w: w, now: time.Now}
}

// HandleLog implements the log.Handler interface.
func (h *LineHandler) HandleLog(e *log.Entry) error {
	var sb strings.Builder
	sb.WriteString(h.now().Format("2006-01-02 15:04:05"))
	sb.WriteByte(' ')
	sb.WriteString(strings.ToUpper(e.Level.String())[:1])
	sb.WriteByte(' ')
	sb.WriteString(e.Message)

	names := e.Fields.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, " %s=%v", name, e.Fields.Get(name))
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}
