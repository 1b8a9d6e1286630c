package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func newAPIStub(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.RequestURI()]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"no route"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCmd(t *testing.T, srv *httptest.Server, jsonMode bool, cmd func(func() *Client, func() *Output) *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	c := cmd(
		func() *Client { return NewClient(srv.URL) },
		func() *Output { return NewOutputTo(jsonMode, &stdout) },
	)
	c.SetArgs(args)
	c.SetOut(&stderr)
	c.SetErr(&stderr)
	c.SilenceUsage = true
	c.SilenceErrors = true

	err := c.Execute()
	return stdout.String(), err
}

func TestStateCounts(t *testing.T) {
	srv := newAPIStub(t, map[string]string{
		"/api/v1/states/counts": `{"data":[
			{"state_id":200,"flow_id":2,"description":"Payment ready","count":3},
			{"state_id":201,"flow_id":2,"description":"Payment passed","count":0}
		],"total":2}`,
	})

	out, err := runCmd(t, srv, false, NewStateCmd, "counts", "--non-zero")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Payment ready") {
		t.Errorf("missing row: %q", out)
	}
	if strings.Contains(out, "Payment passed") {
		t.Errorf("zero count should be hidden: %q", out)
	}
}

func TestStateStuck(t *testing.T) {
	srv := newAPIStub(t, map[string]string{
		"/api/v1/states/200/stuck?class=payment&days=2": `{"data":[
			{"id":"log-1","end_state_id":200,"entity_id":"pay-1","ended_at":"2021-01-05T09:00:00Z","time_in_state":"72h0m0s","outcome":{"message":"staged"}}
		],"total":1}`,
	})

	out, err := runCmd(t, srv, false, NewStateCmd, "stuck", "200", "--class", "payment", "--days", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "pay-1") || !strings.Contains(out, "72h0m0s") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestStateStuck_RequiresClass(t *testing.T) {
	srv := newAPIStub(t, nil)
	if _, err := runCmd(t, srv, false, NewStateCmd, "stuck", "200"); err == nil {
		t.Error("expected error without --class")
	}
}

func TestEntityHistory(t *testing.T) {
	srv := newAPIStub(t, map[string]string{
		"/api/v1/entities/payment/abc/flows/2/history": `{"data":[
			{"id":"log-2","end_state_id":201,"end_state":"Passed","ended_at":"t2","outcome":{"message":"passed"}},
			{"id":"log-1","end_state_id":200,"end_state":"Ready","ended_at":"t1","outcome":{"message":"staged"}}
		],"total":2}`,
	})

	out, err := runCmd(t, srv, false, NewEntityCmd, "history", "payment", "abc", "--flow", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Index(out, "log-2") > strings.Index(out, "log-1") {
		t.Errorf("history must be newest first: %q", out)
	}
	if !strings.Contains(out, "passed") {
		t.Errorf("missing outcome message: %q", out)
	}
}

func TestEntityLatest_APIError(t *testing.T) {
	srv := newAPIStub(t, nil)

	_, err := runCmd(t, srv, false, NewEntityCmd, "latest", "claim", "abc", "--flow", "1")
	if err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND error, got %v", err)
	}
}

func TestFlowList_JSON(t *testing.T) {
	srv := newAPIStub(t, map[string]string{
		"/api/v1/flows": `{"data":[{"id":2,"description":"Delegated payment","states":[{"id":200,"flow_id":2,"description":"Ready"}]}],"total":1}`,
	})

	out, err := runCmd(t, srv, true, NewFlowCmd, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"description": "Delegated payment"`) {
		t.Errorf("unexpected json: %q", out)
	}
}

func TestImportLogList(t *testing.T) {
	srv := newAPIStub(t, map[string]string{
		"/api/v1/import-logs?limit=5&source=MaxWeeklyBenefitStep": `{"data":[
			{"id":7,"source":"MaxWeeklyBenefitStep","status":"success","started_at":"t","duration_ms":120}
		],"total":1}`,
	})

	out, err := runCmd(t, srv, false, NewImportLogCmd, "list", "--step", "MaxWeeklyBenefitStep", "--limit", "5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "MaxWeeklyBenefitStep") || !strings.Contains(out, "120") {
		t.Errorf("unexpected output: %q", out)
	}
}
