package websocket

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/auth"
	"github.com/telfield/fieldcollect/internal/types"
)

func TestNewHub(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub == nil {
		t.Fatal("expected hub to be created")
	}

	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}

	if hub.broadcast == nil {
		t.Error("expected broadcast channel to be initialized")
	}

	if hub.register == nil {
		t.Error("expected register channel to be initialized")
	}

	if hub.unregister == nil {
		t.Error("expected unregister channel to be initialized")
	}
}

func TestHubClientCount(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	hub.mu.Lock()
	hub.clients[&Client{id: "test1"}] = true
	hub.clients[&Client{id: "test2"}] = true
	hub.mu.Unlock()

	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	client := &Client{
		id:   "test-client",
		hub:  hub,
		send: make(chan []byte, 1),
	}

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after register, got %d", hub.ClientCount())
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", hub.ClientCount())
	}
}

func TestHubDeliversRefreshNotice(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	client := &Client{
		id:   "mgmt-client",
		hub:  hub,
		send: make(chan []byte, 4),
		claims: &auth.Claims{
			Role: types.RoleManagement,
			Name: "HEAD OFFICE",
		},
	}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.NotifyRefresh(NewRefreshNotice("upload", types.SourceOutstanding, ""))

	select {
	case data := <-client.send:
		var notice RefreshNotice
		if err := json.Unmarshal(data, &notice); err != nil {
			t.Fatalf("failed to parse notice: %v", err)
		}
		if notice.Type != "refresh" {
			t.Errorf("expected type refresh, got %s", notice.Type)
		}
		if notice.Reason != "upload" {
			t.Errorf("expected reason upload, got %s", notice.Reason)
		}
		if notice.Source != types.SourceOutstanding {
			t.Errorf("expected source %s, got %s", types.SourceOutstanding, notice.Source)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for notice")
	}
}

func TestHubScopesNoticesToSupervisor(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	anil := &Client{
		id:   "sup-anil",
		hub:  hub,
		send: make(chan []byte, 4),
		claims: &auth.Claims{
			Role: types.RoleSupervisor,
			Name: "ANIL",
		},
	}
	sunita := &Client{
		id:   "sup-sunita",
		hub:  hub,
		send: make(chan []byte, 4),
		claims: &auth.Claims{
			Role: types.RoleSupervisor,
			Name: "SUNITA",
		},
	}
	hub.register <- anil
	hub.register <- sunita
	time.Sleep(10 * time.Millisecond)

	hub.NotifyRefresh(NewRefreshNotice("contact", types.SourceBarred, "ANIL"))
	time.Sleep(50 * time.Millisecond)

	if len(anil.send) != 1 {
		t.Errorf("expected 1 notice for matching supervisor, got %d", len(anil.send))
	}
	if len(sunita.send) != 0 {
		t.Errorf("expected 0 notices for other supervisor, got %d", len(sunita.send))
	}
}

func TestClientWantsNotice(t *testing.T) {
	tests := []struct {
		name   string
		claims *auth.Claims
		notice RefreshNotice
		want   bool
	}{
		{
			name:   "no claims receives everything",
			claims: nil,
			notice: NewRefreshNotice("upload", types.SourceOutstanding, "ANIL"),
			want:   true,
		},
		{
			name:   "management receives scoped notice",
			claims: &auth.Claims{Role: types.RoleManagement, Name: "HQ"},
			notice: NewRefreshNotice("contact", types.SourceOutstanding, "ANIL"),
			want:   true,
		},
		{
			name:   "agent receives scoped notice",
			claims: &auth.Claims{Role: types.RoleAgent, Name: "RAJ KUMAR"},
			notice: NewRefreshNotice("contact", types.SourceOutstanding, "ANIL"),
			want:   true,
		},
		{
			name:   "supervisor receives own scope",
			claims: &auth.Claims{Role: types.RoleSupervisor, Name: "ANIL"},
			notice: NewRefreshNotice("contact", types.SourceOutstanding, "ANIL"),
			want:   true,
		},
		{
			name:   "supervisor skips other scope",
			claims: &auth.Claims{Role: types.RoleSupervisor, Name: "SUNITA"},
			notice: NewRefreshNotice("contact", types.SourceOutstanding, "ANIL"),
			want:   false,
		},
		{
			name:   "supervisor receives unscoped notice",
			claims: &auth.Claims{Role: types.RoleSupervisor, Name: "SUNITA"},
			notice: NewRefreshNotice("upload", types.SourceBarred, ""),
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{claims: tt.claims}
			if got := c.wantsNotice(tt.notice); got != tt.want {
				t.Errorf("wantsNotice() = %v, want %v", got, tt.want)
			}
		})
	}
}
