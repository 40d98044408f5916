package n8n_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/service/n8n"
)

func TestPing(t *testing.T) {
	t.Run("healthy proxy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gt.Equal(t, r.URL.Path, "/ping")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := n8n.New(srv.URL)
		gt.True(t, client.Ping(context.Background()))
	})

	t.Run("server error reads as not ok", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := n8n.New(srv.URL)
		gt.False(t, client.Ping(context.Background()))
	})

	t.Run("unreachable proxy never errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client := n8n.New(srv.URL)
		gt.False(t, client.Ping(context.Background()))
	})
}

func TestCallAgent(t *testing.T) {
	t.Run("json reply", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gt.Equal(t, r.URL.Path, "/agent")
			gt.Equal(t, r.Header.Get("Content-Type"), "application/json")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"reply":"blocked 10.0.0.1","data":{"ip":"10.0.0.1"}}`))
		}))
		defer srv.Close()

		client := n8n.New(srv.URL)
		reply, err := client.CallAgent(context.Background(), &model.WorkflowRequest{
			Message:   "block 10.0.0.1",
			Timestamp: time.Now(),
		})
		gt.NoError(t, err).Required()
		gt.Equal(t, reply.Reply, "blocked 10.0.0.1")
		gt.Equal(t, reply.Data["ip"], "10.0.0.1")
	})

	t.Run("plain text body is carried verbatim", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("workflow finished"))
		}))
		defer srv.Close()

		client := n8n.New(srv.URL)
		reply, err := client.CallAgent(context.Background(), &model.WorkflowRequest{Message: "status"})
		gt.NoError(t, err).Required()
		gt.Equal(t, reply.Reply, "workflow finished")
	})

	t.Run("bad gateway maps to unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := n8n.New(srv.URL)
		_, err := client.CallAgent(context.Background(), &model.WorkflowRequest{Message: "hello"})
		gt.Error(t, err)
		gt.S(t, err.Error()).Contains("workflow service temporarily unavailable")
	})

	t.Run("internal error maps to degraded", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := n8n.New(srv.URL)
		_, err := client.CallAgent(context.Background(), &model.WorkflowRequest{Message: "hello"})
		gt.Error(t, err)
		gt.S(t, err.Error()).Contains("workflow service experiencing issues")
	})

	t.Run("other status is embedded in the error text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := n8n.New(srv.URL)
		_, err := client.CallAgent(context.Background(), &model.WorkflowRequest{Message: "hello"})
		gt.Error(t, err)
		gt.S(t, err.Error()).Contains("service error: 404")
	})

	t.Run("nil request is rejected", func(t *testing.T) {
		client := n8n.New("http://localhost:1")
		_, err := client.CallAgent(context.Background(), nil)
		gt.Error(t, err)
	})
}

func TestTrigger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Path, "/webhook")
		_, _ = w.Write([]byte(`{"reply":"ack"}`))
	}))
	defer srv.Close()

	client := n8n.New(srv.URL)
	reply, err := client.Trigger(context.Background(), &model.WorkflowRequest{
		Action: "self_enhance",
		Data:   map[string]any{"kind": "self_enhance"},
	})
	gt.NoError(t, err).Required()
	gt.Equal(t, reply.Reply, "ack")
}
