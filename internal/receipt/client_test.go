package receipt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AutoFixLink/AutoFixLink/internal/backend"
	"github.com/AutoFixLink/AutoFixLink/internal/common/auth"
	"github.com/AutoFixLink/AutoFixLink/internal/common/config"
	"github.com/AutoFixLink/AutoFixLink/internal/common/logger"
	"github.com/AutoFixLink/AutoFixLink/internal/repair"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api := backend.New("receipt-backend", config.BackendConfig{BaseURL: srv.URL},
		config.BackendsConfig{TimeoutSeconds: 2}, auth.StaticTokenSource("test-token"), nil, logger.Nop())
	return NewClient(api)
}

func TestListUnprocessedMapsStatuses(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/receipts/unprocessed" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"id":"r-1","car_number":"12가3456","state":"접수","receipt_date":"2025-10-01"},
			{"id":"r-2","state":"수리중","manager":"Kim"},
			{"id":"r-3","state":"something-new"},
			{"car_number":"no-id","state":"접수"}
		]`))
	}))

	recs, err := c.ListUnprocessed(context.Background())
	if err != nil {
		t.Fatalf("ListUnprocessed: %v", err)
	}
	// 无 id 的条目被丢弃
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Status != repair.StatusCheckedIn || recs[0].IntakeDate != "2025-10-01" {
		t.Fatalf("unexpected record: %#v", recs[0])
	}
	if recs[1].Status != repair.StatusInProgress || recs[1].Manager != "Kim" {
		t.Fatalf("unexpected record: %#v", recs[1])
	}
	// 未识别状态回落为接车
	if recs[2].Status != repair.StatusCheckedIn {
		t.Fatalf("unexpected status: %s", recs[2].Status)
	}
}

func TestListMineRequiresManager(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("manager"); got != "Kim" {
			t.Fatalf("manager query = %q", got)
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	if _, err := c.ListMine(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty manager")
	}
	if _, err := c.ListMine(context.Background(), "Kim"); err != nil {
		t.Fatalf("ListMine: %v", err)
	}
}

func TestGetReceipt(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/receipts/r-7" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":"r-7","car_number":"34나5678","owner_name":"Lee","state":"수리중","manager":"Kim","receipt_date":"2025-10-01"}`))
	}))

	rec, err := c.Get(context.Background(), "r-7")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ID != "r-7" || rec.Status != repair.StatusInProgress || rec.OwnerName != "Lee" {
		t.Fatalf("unexpected record: %#v", rec)
	}

	// 不存在的单号映射为 not_found
	_, err = c.Get(context.Background(), "r-404")
	fe, ok := repair.AsFetch(err)
	if !ok || fe.Kind != repair.FetchNotFound {
		t.Fatalf("expected not_found FetchError, got %v", err)
	}
}

func TestReportStatusTransitions(t *testing.T) {
	var states []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/receipts/r-7/status" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body statusRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Manager != "Kim" {
			t.Fatalf("unexpected manager: %q", body.Manager)
		}
		states = append(states, body.State)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))

	if err := c.ReportStart(context.Background(), "r-7", "Kim"); err != nil {
		t.Fatalf("ReportStart: %v", err)
	}
	if err := c.ReportComplete(context.Background(), "r-7", "Kim"); err != nil {
		t.Fatalf("ReportComplete: %v", err)
	}
	// 上报的状态文案使用后端约定的韩文写法
	if len(states) != 2 || states[0] != "수리중" || states[1] != "완료" {
		t.Fatalf("unexpected reported states: %v", states)
	}
}
