// Package testserver runs an in-process fake of the visualizer backend for
// client tests.
package testserver

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rpggio/chemviz/internal/domain/dataset"
	"github.com/rpggio/chemviz/internal/transport"
)

const historySize = 5

var requiredColumns = []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"}

type TestServer struct {
	Server *httptest.Server
	// BaseURL is the API root the client is configured with.
	BaseURL string

	mu       sync.Mutex
	users    map[string]*user // by username
	tokens   map[string]string
	datasets []*storedDataset
	nextID   int64
	clock    time.Time
	requests []string
}

type user struct {
	username   string
	name       string
	email      string
	password   string
	lastReport int
	reportByID map[int64]int
}

type storedDataset struct {
	id         int64
	owner      string
	fileName   string
	uploadedAt time.Time
	summary    dataset.Summary
	rows       []dataset.Row
}

// New starts a fake backend that lives until the test ends.
func New(t *testing.T) *TestServer {
	t.Helper()

	ts := &TestServer{
		users:  make(map[string]*user),
		tokens: make(map[string]string),
		clock:  time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	ts.Server = httptest.NewServer(ts.routes())
	ts.BaseURL = ts.Server.URL + "/api"

	t.Cleanup(ts.Server.Close)
	return ts
}

func (ts *TestServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(ts.recordRequest)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login/", ts.handleLogin)
		r.Post("/signup/", ts.handleSignup)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(ts))
			r.Post("/upload/", ts.handleUpload)
			r.Get("/summary/{id}/", ts.handleSummary)
			r.Get("/csv-data/{id}/", ts.handleRows)
			r.Get("/history/", ts.handleHistory)
			r.Get("/report/{id}/", ts.handleReport)
		})
	})
	return r
}

func (ts *TestServer) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.requests = append(ts.requests, r.Method+" "+r.URL.RequestURI())
		ts.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Requests returns "METHOD /path?query" for every request served so far.
func (ts *TestServer) Requests() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.requests...)
}

// AddUser registers an account directly.
func (ts *TestServer) AddUser(username, email, password string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.users[username] = &user{username: username, name: username, email: email, password: password, reportByID: map[int64]int{}}
}

// RevokeTokens invalidates every issued token, so the next authenticated
// request gets a 401.
func (ts *TestServer) RevokeTokens() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tokens = make(map[string]string)
}

// ResolveUser implements userResolver.
func (ts *TestServer) ResolveUser(_ context.Context, token string) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	username, ok := ts.tokens[token]
	if !ok {
		return "", transport.ErrUnauthorized
	}
	return username, nil
}

func (ts *TestServer) issueToken(username string) string {
	for token, owner := range ts.tokens {
		if owner == username {
			return token
		}
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	ts.tokens[token] = username
	return token
}

func (ts *TestServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		transport.WriteDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}
	if (in.Username == "" && in.Email == "") || in.Password == "" {
		transport.WriteDetail(w, http.StatusBadRequest, "email (or username) and password are required.")
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	u := ts.users[in.Username]
	if in.Username == "" {
		u = ts.userByEmail(in.Email)
	}
	if u == nil || u.password != in.Password {
		transport.WriteDetail(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]string{"token": ts.issueToken(u.username)})
}

func (ts *TestServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		transport.WriteDetail(w, http.StatusBadRequest, "Malformed request.")
		return
	}

	fields := map[string][]string{}
	if in.Name == "" {
		fields["name"] = []string{"This field is required."}
	}
	if !strings.Contains(in.Email, "@") {
		fields["email"] = []string{"Enter a valid email address."}
	}
	if len(in.Password) < 8 {
		fields["password"] = []string{"This password is too short. It must contain at least 8 characters."}
	}
	if in.Password != in.ConfirmPassword {
		fields["confirm_password"] = []string{"Passwords do not match."}
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.userByEmail(in.Email) != nil {
		fields["email"] = []string{"A user with this email already exists."}
	}
	if len(fields) > 0 {
		transport.WriteJSON(w, http.StatusBadRequest, fields)
		return
	}

	username := strings.ToLower(in.Email)
	u := &user{username: username, name: in.Name, email: in.Email, password: in.Password, reportByID: map[int64]int{}}
	ts.users[username] = u
	transport.WriteJSON(w, http.StatusCreated, map[string]any{
		"token": ts.issueToken(username),
		"user": map[string]any{
			"id":       len(ts.users),
			"name":     u.name,
			"email":    u.email,
			"username": u.username,
		},
	})
}

func (ts *TestServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		transport.WriteJSON(w, http.StatusBadRequest, map[string][]string{"file": {"No file was submitted."}})
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		transport.WriteJSON(w, http.StatusBadRequest, map[string][]string{"file": {"Only .csv files are allowed."}})
		return
	}

	rows, err := parseRows(file)
	if err != nil {
		transport.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	owner, _ := userFromContext(r.Context())

	ts.mu.Lock()
	ts.nextID++
	ts.clock = ts.clock.Add(time.Minute)
	ds := &storedDataset{
		id:         ts.nextID,
		owner:      owner,
		fileName:   header.Filename,
		uploadedAt: ts.clock,
		summary:    summarize(rows, false),
		rows:       rows,
	}
	ts.datasets = append(ts.datasets, ds)
	ts.mu.Unlock()

	transport.WriteJSON(w, http.StatusCreated, dataset.UploadResult{DatasetID: ds.id, Summary: ds.summary})
}

func (ts *TestServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds, ok := ts.ownedDataset(w, r)
	if !ok {
		return
	}
	summary := ds.summary
	if limit, ok := limitParam(r); ok {
		if rows := firstN(ds.rows, limit); len(rows) > 0 {
			summary = summarize(rows, true)
		}
	}
	transport.WriteJSON(w, http.StatusOK, map[string]any{"dataset_id": ds.id, "summary": summary})
}

func (ts *TestServer) handleRows(w http.ResponseWriter, r *http.Request) {
	ds, ok := ts.ownedDataset(w, r)
	if !ok {
		return
	}
	rows := ds.rows
	if limit, ok := limitParam(r); ok {
		rows = firstN(rows, limit)
	}
	transport.WriteJSON(w, http.StatusOK, dataset.RowPage{DatasetID: ds.id, TotalCount: len(ds.rows), Rows: rows})
}

func (ts *TestServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner, _ := userFromContext(r.Context())

	ts.mu.Lock()
	defer ts.mu.Unlock()

	entries := []dataset.HistoryEntry{}
	for i := len(ts.datasets) - 1; i >= 0 && len(entries) < historySize; i-- {
		ds := ts.datasets[i]
		if ds.owner != owner {
			continue
		}
		entries = append(entries, dataset.HistoryEntry{
			ID:         ds.id,
			FileName:   ds.fileName,
			UploadedAt: dataset.Timestamp{Time: ds.uploadedAt},
			Summary:    ds.summary,
		})
	}
	transport.WriteJSON(w, http.StatusOK, entries)
}

func (ts *TestServer) handleReport(w http.ResponseWriter, r *http.Request) {
	ds, ok := ts.ownedDataset(w, r)
	if !ok {
		return
	}

	ts.mu.Lock()
	u := ts.users[ds.owner]
	number, ok := u.reportByID[ds.id]
	if !ok {
		u.lastReport++
		number = u.lastReport
		u.reportByID[ds.id] = number
	}
	ts.mu.Unlock()

	body := fmt.Sprintf("%%PDF-1.4\n%% %s\n%d equipment\n%%%%EOF\n", ds.fileName, ds.summary.TotalEquipment)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="Report %d.pdf"`, number))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (ts *TestServer) ownedDataset(w http.ResponseWriter, r *http.Request) (*storedDataset, bool) {
	owner, _ := userFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		transport.WriteDetail(w, http.StatusNotFound, "Not found.")
		return nil, false
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, ds := range ts.datasets {
		if ds.id == id && ds.owner == owner {
			return ds, true
		}
	}
	transport.WriteDetail(w, http.StatusNotFound, "Not found.")
	return nil, false
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out)
}

func (ts *TestServer) userByEmail(email string) *user {
	for _, u := range ts.users {
		if strings.EqualFold(u.email, strings.TrimSpace(email)) {
			return u
		}
	}
	return nil
}

// limitParam reports a usable ?limit= value. Unparseable values are ignored.
func limitParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, false
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, false
	}
	return limit, true
}

func firstN(rows []dataset.Row, n int) []dataset.Row {
	if n < len(rows) {
		return rows[:n]
	}
	return rows
}

func parseRows(r io.Reader) ([]dataset.Row, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("Failed to process CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("CSV file is empty.")
	}

	index := map[string]int{}
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("Missing required columns: %s", strings.Join(missing, ", "))
	}
	if len(records) == 1 {
		return nil, errors.New("CSV file has no data rows.")
	}

	rows := make([]dataset.Row, 0, len(records)-1)
	for line, rec := range records[1:] {
		row := dataset.Row{
			EquipmentName: strings.TrimSpace(rec[index["Equipment Name"]]),
			Type:          strings.TrimSpace(rec[index["Type"]]),
		}
		for col, dst := range map[string]*float64{"Flowrate": &row.Flowrate, "Pressure": &row.Pressure, "Temperature": &row.Temperature} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[index[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("Invalid %s value on line %d.", col, line+2)
			}
			*dst = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func summarize(rows []dataset.Row, withMax bool) dataset.Summary {
	s := dataset.Summary{
		TotalEquipment:    len(rows),
		TypeDistribution:  map[string]int{},
		AvgMetricsPerType: map[string]dataset.TypeMetrics{},
	}
	if len(rows) == 0 {
		return s
	}

	maxTemp := rows[0].Temperature
	sums := map[string]*dataset.TypeMetrics{}
	for _, row := range rows {
		s.AverageFlowrate += row.Flowrate
		s.AveragePressure += row.Pressure
		s.AverageTemperature += row.Temperature
		maxTemp = max(maxTemp, row.Temperature)

		s.TypeDistribution[row.Type]++
		acc, ok := sums[row.Type]
		if !ok {
			acc = &dataset.TypeMetrics{}
			sums[row.Type] = acc
		}
		acc.AvgFlowrate += row.Flowrate
		acc.AvgPressure += row.Pressure
		acc.AvgTemperature += row.Temperature
	}

	n := float64(len(rows))
	s.AverageFlowrate /= n
	s.AveragePressure /= n
	s.AverageTemperature /= n
	for typ, acc := range sums {
		c := float64(s.TypeDistribution[typ])
		s.AvgMetricsPerType[typ] = dataset.TypeMetrics{
			AvgFlowrate:    acc.AvgFlowrate / c,
			AvgPressure:    acc.AvgPressure / c,
			AvgTemperature: acc.AvgTemperature / c,
		}
	}
	if withMax {
		s.MaxTemperature = &maxTemp
	}
	return s
}

// SampleCSV is a small valid upload: four pumps, valves and exchangers.
const SampleCSV = `Equipment Name,Type,Flowrate,Pressure,Temperature
Pump-1,Pump,120,5.2,110
Valve-1,Valve,60,4.1,105
Pump-2,Pump,130,5.8,118
HeatEx-1,HeatExchanger,200,12.5,250
`
