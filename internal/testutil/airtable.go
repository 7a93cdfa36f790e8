package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/albumen/internal/airtable"
)

var formulaRe = regexp.MustCompile(`^\{(.+)\}='(.*)'$`)

// FakeAirtable is an in-memory stand-in for the Airtable REST API. It
// supports create, paginated list, Timestamp sorting and equality formulas.
type FakeAirtable struct {
	Server *httptest.Server

	mu         sync.Mutex
	tables     map[string][]airtable.Record
	seq        int
	pageSize   int
	failReads  bool
	failWrites bool
	gates      map[string]*gate
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() { g.once.Do(func() { close(g.ch) }) }

// NewFakeAirtable starts a fake server that is closed with the test.
func NewFakeAirtable(t *testing.T) *FakeAirtable {
	t.Helper()
	f := &FakeAirtable{
		tables:   make(map[string][]airtable.Record),
		pageSize: 100,
		gates:    make(map[string]*gate),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	// Runs before Close so held requests can finish.
	t.Cleanup(f.releaseAll)
	return f
}

// Client returns a client pointed at the fake server.
func (f *FakeAirtable) Client() *airtable.Client {
	return airtable.New(airtable.Options{APIURL: f.Server.URL, BaseID: "appTest", APIKey: "test"})
}

// Seed stores records in table, assigning IDs where missing.
func (f *FakeAirtable) Seed(table string, fields ...airtable.Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fl := range fields {
		f.tables[table] = append(f.tables[table], f.newRecord(fl))
	}
}

// Records returns a copy of table's records in insertion order.
func (f *FakeAirtable) Records(table string) []airtable.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tables[table])
}

// SetPageSize caps list responses so pagination can be exercised.
func (f *FakeAirtable) SetPageSize(n int) {
	f.mu.Lock()
	f.pageSize = n
	f.mu.Unlock()
}

// FailReads makes every GET answer 503.
func (f *FakeAirtable) FailReads(fail bool) {
	f.mu.Lock()
	f.failReads = fail
	f.mu.Unlock()
}

// FailWrites makes every POST answer 503.
func (f *FakeAirtable) FailWrites(fail bool) {
	f.mu.Lock()
	f.failWrites = fail
	f.mu.Unlock()
}

// Hold blocks filtered reads for value until the returned func is called.
func (f *FakeAirtable) Hold(value string) (release func()) {
	g := &gate{ch: make(chan struct{})}
	f.mu.Lock()
	f.gates[value] = g
	f.mu.Unlock()
	return g.open
}

func (f *FakeAirtable) releaseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.gates {
		g.open()
	}
}

func (f *FakeAirtable) newRecord(fl airtable.Fields) airtable.Record {
	f.seq++
	if fl.Timestamp == "" {
		fl.Timestamp = time.Date(2024, 1, 1, 0, 0, f.seq, 0, time.UTC).Format(airtable.TimestampLayout)
	}
	return airtable.Record{
		ID:          fmt.Sprintf("rec%05d", f.seq),
		CreatedTime: fl.Timestamp,
		Fields:      fl,
	}
}

func (f *FakeAirtable) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	table := parts[1]

	switch r.Method {
	case http.MethodPost:
		f.create(w, r, table)
	case http.MethodGet:
		f.list(w, r, table)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakeAirtable) create(w http.ResponseWriter, r *http.Request, table string) {
	var req struct {
		Records []struct {
			Fields airtable.Fields `json:"fields"`
		} `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	f.mu.Lock()
	if f.failWrites {
		f.mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	var out []airtable.Record
	for _, rec := range req.Records {
		nr := f.newRecord(rec.Fields)
		f.tables[table] = append(f.tables[table], nr)
		out = append(out, nr)
	}
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]any{"records": out})
}

func (f *FakeAirtable) list(w http.ResponseWriter, r *http.Request, table string) {
	q := r.URL.Query()
	formula := q.Get("filterByFormula")

	if m := formulaRe.FindStringSubmatch(formula); m != nil {
		f.mu.Lock()
		g := f.gates[unescape(m[2])]
		f.mu.Unlock()
		if g != nil {
			select {
			case <-g.ch:
			case <-r.Context().Done():
				return
			}
		}
	}

	f.mu.Lock()
	if f.failReads {
		f.mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	recs := slices.Clone(f.tables[table])
	pageSize := f.pageSize
	f.mu.Unlock()

	if m := formulaRe.FindStringSubmatch(formula); m != nil {
		field, value := m[1], unescape(m[2])
		recs = slices.DeleteFunc(recs, func(rec airtable.Record) bool {
			return fieldValue(rec.Fields, field) != value
		})
	}
	if q.Get("sort[0][field]") == airtable.FieldTimestamp {
		desc := q.Get("sort[0][direction]") == "desc"
		slices.SortStableFunc(recs, func(a, b airtable.Record) int {
			if desc {
				return strings.Compare(b.Fields.Timestamp, a.Fields.Timestamp)
			}
			return strings.Compare(a.Fields.Timestamp, b.Fields.Timestamp)
		})
	}

	if n, err := strconv.Atoi(q.Get("pageSize")); err == nil && n > 0 && n < pageSize {
		pageSize = n
	}
	start, _ := strconv.Atoi(q.Get("offset"))
	start = min(start, len(recs))
	end := min(start+pageSize, len(recs))

	resp := map[string]any{"records": recs[start:end]}
	if end < len(recs) {
		resp["offset"] = strconv.Itoa(end)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func fieldValue(fl airtable.Fields, name string) string {
	switch name {
	case airtable.FieldAuthor:
		return fl.Author
	case airtable.FieldMessageText:
		return fl.MessageText
	case airtable.FieldCommentText:
		return fl.CommentText
	case airtable.FieldImageFilename:
		return fl.ImageFilename
	case airtable.FieldTimestamp:
		return fl.Timestamp
	}
	return ""
}

func unescape(s string) string {
	return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(s)
}
