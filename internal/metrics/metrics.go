package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Metrics holds all application counters
type Metrics struct {
	mu sync.RWMutex

	LoginsTotal       int64
	LoginFailures     int64
	UploadsTotal      int64
	UploadErrors      int64
	ContactUpserts    int64
	ContactErrors     int64
	RefreshBroadcasts int64

	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	activeConnections            int64

	httpRequestsTotal map[string]map[int]int64 // endpoint -> status -> count

	startTime time.Time
}

var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			httpRequestsTotal: make(map[string]map[int]int64),
			startTime:         time.Now(),
		}
	})
	return instance
}

// RecordLogin increments the login counter
func (m *Metrics) RecordLogin(success bool) {
	m.mu.Lock()
	if success {
		m.LoginsTotal++
	} else {
		m.LoginFailures++
	}
	m.mu.Unlock()
}

// RecordUpload increments the upload counter
func (m *Metrics) RecordUpload(success bool) {
	m.mu.Lock()
	if success {
		m.UploadsTotal++
	} else {
		m.UploadErrors++
	}
	m.mu.Unlock()
}

// RecordContactUpsert increments the contact action counter
func (m *Metrics) RecordContactUpsert(success bool) {
	m.mu.Lock()
	if success {
		m.ContactUpserts++
	} else {
		m.ContactErrors++
	}
	m.mu.Unlock()
}

// RecordRefreshBroadcast increments the refresh broadcast counter
func (m *Metrics) RecordRefreshBroadcast() {
	m.mu.Lock()
	m.RefreshBroadcasts++
	m.mu.Unlock()
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordWebSocketDisconnect increments the disconnection counter
func (m *Metrics) RecordWebSocketDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request by endpoint and status
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++
}

// ActiveConnections returns the current WebSocket connection count
func (m *Metrics) ActiveConnections() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeConnections
}

// Handler returns an HTTP handler for the /metrics endpoint,
// prometheus text exposition format
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		write := func(name string, value int64) {
			fmt.Fprintf(w, "%s %d\n", name, value)
		}

		write("fieldcollect_logins_total", m.LoginsTotal)
		write("fieldcollect_login_failures_total", m.LoginFailures)
		write("fieldcollect_uploads_total", m.UploadsTotal)
		write("fieldcollect_upload_errors_total", m.UploadErrors)
		write("fieldcollect_contact_upserts_total", m.ContactUpserts)
		write("fieldcollect_contact_errors_total", m.ContactErrors)
		write("fieldcollect_refresh_broadcasts_total", m.RefreshBroadcasts)
		write("fieldcollect_websocket_connections_total", m.WebSocketConnectionsTotal)
		write("fieldcollect_websocket_disconnections_total", m.WebSocketDisconnectionsTotal)
		write("fieldcollect_websocket_active_connections", m.activeConnections)
		fmt.Fprintf(w, "fieldcollect_uptime_seconds %d\n", int64(time.Since(m.startTime).Seconds()))

		for endpoint, statuses := range m.httpRequestsTotal {
			for status, count := range statuses {
				fmt.Fprintf(w, "fieldcollect_http_requests_total{endpoint=%q,status=\"%d\"} %d\n", endpoint, status, count)
			}
		}
	}
}
