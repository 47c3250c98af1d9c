// Package testutil provides an in-process stand-in for the booking platform.
package testutil

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
)

const (
	// SignInPath is the path of the mock sign-in endpoint.
	SignInPath = "/shopmaster/api/sign_in"

	// CustomersPath is the path of the mock listing endpoint.
	CustomersPath = "/shopmaster/api/customers"

	// SessionCookie is set by the sign-in endpoint on every call.
	SessionCookie = "grow_session"
)

// MockResponse defines a canned response.
type MockResponse struct {
	StatusCode int
	Body       string
}

// LoginRequest is a recorded sign-in call.
type LoginRequest struct {
	ContentType string
	LoginID     string
	Password    string
	Header      http.Header
}

// ListingRequest is a recorded listing call.
type ListingRequest struct {
	Query  url.Values
	Header http.Header
	Cookie string
}

// MockGrowAppt is a configurable mock of the sign-in and listing endpoints.
type MockGrowAppt struct {
	server *httptest.Server

	mu       sync.Mutex
	json     MockResponse
	form     MockResponse
	pages    map[int]MockResponse
	fallback MockResponse
	logins   []LoginRequest
	listings []ListingRequest
}

// NewMockGrowAppt starts a mock whose login returns token "test-token" for
// both encodings and whose listing returns an empty list for every page.
func NewMockGrowAppt() *MockGrowAppt {
	m := &MockGrowAppt{
		json:     MockResponse{StatusCode: http.StatusOK, Body: `{"access_token":"test-token"}`},
		form:     MockResponse{StatusCode: http.StatusOK, Body: `{"access_token":"test-token"}`},
		pages:    make(map[int]MockResponse),
		fallback: MockResponse{StatusCode: http.StatusOK, Body: `[]`},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(SignInPath, m.handleSignIn)
	mux.HandleFunc(CustomersPath, m.handleCustomers)
	m.server = httptest.NewServer(mux)

	return m
}

// URL returns the mock server base URL.
func (m *MockGrowAppt) URL() string {
	return m.server.URL
}

// SignInURL returns the absolute sign-in URL.
func (m *MockGrowAppt) SignInURL() string {
	return m.server.URL + SignInPath
}

// CustomersURL returns the absolute listing URL.
func (m *MockGrowAppt) CustomersURL() string {
	return m.server.URL + CustomersPath
}

// Close shuts down the mock server.
func (m *MockGrowAppt) Close() {
	m.server.Close()
}

// SetLoginResponses configures the sign-in response per body encoding.
func (m *MockGrowAppt) SetLoginResponses(jsonResp, formResp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.json = jsonResp
	m.form = formResp
}

// SetPage configures the listing response for one page number.
func (m *MockGrowAppt) SetPage(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// SetFallback configures the listing response for pages without SetPage.
func (m *MockGrowAppt) SetFallback(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = resp
}

// Logins returns the recorded sign-in calls in arrival order.
func (m *MockGrowAppt) Logins() []LoginRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LoginRequest(nil), m.logins...)
}

// Listings returns the recorded listing calls in arrival order.
func (m *MockGrowAppt) Listings() []ListingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ListingRequest(nil), m.listings...)
}

// RequestedPages returns the page query parameter of each listing call.
func (m *MockGrowAppt) RequestedPages() []int {
	var pages []int
	for _, l := range m.Listings() {
		p, _ := strconv.Atoi(l.Query.Get("page"))
		pages = append(pages, p)
	}
	return pages
}

func (m *MockGrowAppt) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rec := LoginRequest{Header: r.Header.Clone()}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	rec.ContentType = mediaType

	var resp MockResponse
	m.mu.Lock()
	switch mediaType {
	case "application/json":
		var payload map[string]string
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		rec.LoginID, rec.Password = payload["loginid"], payload["password"]
		resp = m.json
	default:
		_ = r.ParseForm()
		rec.LoginID, rec.Password = r.PostForm.Get("loginid"), r.PostForm.Get("password")
		resp = m.form
	}
	m.logins = append(m.logins, rec)
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "s3ss10n", Path: "/"})
	writeResponse(w, resp)
}

func (m *MockGrowAppt) handleCustomers(w http.ResponseWriter, r *http.Request) {
	rec := ListingRequest{Query: r.URL.Query(), Header: r.Header.Clone()}
	if c, err := r.Cookie(SessionCookie); err == nil {
		rec.Cookie = c.Value
	}

	page, _ := strconv.Atoi(rec.Query.Get("page"))

	m.mu.Lock()
	m.listings = append(m.listings, rec)
	resp, ok := m.pages[page]
	if !ok {
		resp = m.fallback
	}
	m.mu.Unlock()

	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// NewOKResponse creates a 200 response with body.
func NewOKResponse(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}
