package audit

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const appName = "orgperm"

// Structured data ids under the documentation enterprise number 32473.
const (
	SDIDAuth     = "auth@32473"
	SDIDSubject  = "subject@32473"
	SDIDAction   = "action@32473"
	SDIDClient   = "client@32473"
	SDIDManifest = "manifest@32473"
)

// Syslog facilities used by the events.
const (
	FacilityAuth     = 4
	FacilityAuthPriv = 10
)

// Severity is a syslog severity, most severe first.
type Severity int

const (
	SeverityEmergency Severity = iota
	SeverityAlert
	SeverityCritical
	SeverityError
	SeverityWarning
	SeverityNotice
	SeverityInfo
	SeverityDebug
)

// Event is something worth auditing.
type Event interface {
	MessageID() string
	Message() string
	Severity() Severity
	Facility() int
	StructuredData() map[string]map[string]string
}

// record is an event stamped with where and when it happened. The syslog
// line and the messages row are both rendered from it.
type record struct {
	Event
	at   time.Time
	host string
	pid  int
}

func newRecord(event Event, at time.Time) record {
	host, _ := os.Hostname()
	return record{Event: event, at: at.UTC(), host: host, pid: os.Getpid()}
}

func (r record) priority() int {
	return r.Facility()*8 + int(r.Severity())
}

// syslogLine renders the record as one RFC5424 line.
func (r record) syslogLine() string {
	var b strings.Builder
	b.WriteString("<" + strconv.Itoa(r.priority()) + ">1 ")
	b.WriteString(r.at.Format("2006-01-02T15:04:05.000Z07:00"))
	for _, field := range []string{nilValue(r.host), appName, strconv.Itoa(r.pid), nilValue(r.MessageID()), renderSD(r.StructuredData())} {
		b.WriteByte(' ')
		b.WriteString(field)
	}
	b.WriteByte(' ')
	b.WriteString(r.Message())
	b.WriteByte('\n')
	return b.String()
}

func nilValue(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// renderSD renders structured data elements and their params in key order,
// or "-" when there are none.
func renderSD(sd map[string]map[string]string) string {
	if len(sd) == 0 {
		return "-"
	}
	var b strings.Builder
	for _, id := range keys(sd) {
		params := sd[id]
		b.WriteString("[" + id)
		for _, name := range keys(params) {
			b.WriteString(" " + name + "=" + quoteParam(params[name]))
		}
		b.WriteString("]")
	}
	return b.String()
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var paramEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `]`, `\]`)

// quoteParam quotes a param value, escaping the characters RFC5424 reserves.
func quoteParam(value string) string {
	return `"` + paramEscaper.Replace(value) + `"`
}

// Logger writes events as syslog lines.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func NewLogger() *Logger {
	return &Logger{out: os.Stdout, now: time.Now}
}

func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

func (l *Logger) Log(event Event) {
	line := newRecord(event, l.now()).syslogLine()
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, line)
}

var (
	// DefaultLogger receives every event passed to Log.
	DefaultLogger = NewLogger()

	// DefaultStore is opened on the first Log call; it stays nil without
	// AUDIT_DATABASE_URL.
	DefaultStore *Store

	enabled     atomic.Bool
	enabledInit sync.Once
	storeInit   sync.Once
)

// IsEnabled reports whether Log does anything. PERMCTL_AUDIT_ENABLED set to
// false, 0 or no turns auditing off until SetEnabled says otherwise.
func IsEnabled() bool {
	enabledInit.Do(func() {
		switch os.Getenv("PERMCTL_AUDIT_ENABLED") {
		case "false", "0", "no":
			enabled.Store(false)
		default:
			enabled.Store(true)
		}
	})
	return enabled.Load()
}

func SetEnabled(on bool) {
	enabledInit.Do(func() {})
	enabled.Store(on)
}

// Log writes the event to DefaultLogger and, when configured, the audit
// database. Database failures are reported on stderr and never returned.
func Log(event Event) {
	if !IsEnabled() {
		return
	}
	DefaultLogger.Log(event)

	storeInit.Do(func() {
		var err error
		if DefaultStore, err = NewStore(); err != nil {
			fmt.Fprintf(os.Stderr, "audit: opening audit database: %v\n", err)
		}
	})
	if DefaultStore == nil {
		return
	}
	if err := DefaultStore.Save(event); err != nil {
		fmt.Fprintf(os.Stderr, "audit: saving %s event: %v\n", event.MessageID(), err)
	}
}
