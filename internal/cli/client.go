package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// StateResponse: state каталога.
type StateResponse struct {
	ID          int    `json:"id"`
	FlowID      int    `json:"flow_id"`
	Description string `json:"description"`
}

// FlowResponse: flow каталога.
type FlowResponse struct {
	ID          int             `json:"id"`
	Description string          `json:"description"`
	States      []StateResponse `json:"states,omitempty"`
}

// StateCountResponse: число сущностей в state.
type StateCountResponse struct {
	StateID     int    `json:"state_id"`
	FlowID      int    `json:"flow_id"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// StateLogResponse: запись state_log.
type StateLogResponse struct {
	ID             string         `json:"id"`
	EndStateID     int            `json:"end_state_id"`
	EndState       string         `json:"end_state,omitempty"`
	Outcome        map[string]any `json:"outcome"`
	StartedAt      string         `json:"started_at,omitempty"`
	EndedAt        string         `json:"ended_at"`
	AssociatedType string         `json:"associated_type"`
	EntityID       string         `json:"entity_id,omitempty"`
	PrevStateLogID string         `json:"prev_state_log_id,omitempty"`
	ImportLogID    *int64         `json:"import_log_id,omitempty"`
	TimeInState    string         `json:"time_in_state,omitempty"`
}

// Message возвращает outcome.message.
func (l StateLogResponse) Message() string {
	msg, _ := l.Outcome["message"].(string)
	return msg
}

// ImportLogResponse: запуск шага.
type ImportLogResponse struct {
	ID          int64          `json:"id"`
	Source      string         `json:"source"`
	ImportType  string         `json:"import_type"`
	Status      string         `json:"status"`
	Report      map[string]any `json:"report,omitempty"`
	StartedAt   string         `json:"started_at"`
	CompletedAt string         `json:"completed_at,omitempty"`
	DurationMS  int64          `json:"duration_ms,omitempty"`
}

// StuckOpts: параметры запроса застрявших сущностей.
type StuckOpts struct {
	StateID int
	Class   string
	Days    int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client: HTTP-клиент для status API claimflow.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Catalog ---

// ListFlows возвращает каталог flows.
func (c *Client) ListFlows() ([]FlowResponse, error) {
	var flows []FlowResponse
	err := c.list("/api/v1/flows", nil, &flows)
	return flows, err
}

// GetFlow возвращает flow по ID.
func (c *Client) GetFlow(id int) (*FlowResponse, error) {
	var flow FlowResponse
	err := c.get("/api/v1/flows/"+strconv.Itoa(id), &flow)
	return &flow, err
}

// --- States ---

// StateCounts возвращает число сущностей в каждом state.
func (c *Client) StateCounts() ([]StateCountResponse, error) {
	var counts []StateCountResponse
	err := c.list("/api/v1/states/counts", nil, &counts)
	return counts, err
}

// StuckInState возвращает сущности, застрявшие в state.
func (c *Client) StuckInState(opts StuckOpts) ([]StateLogResponse, error) {
	params := url.Values{}
	params.Set("class", opts.Class)
	if opts.Days > 0 {
		params.Set("days", strconv.Itoa(opts.Days))
	}

	var logs []StateLogResponse
	err := c.list(fmt.Sprintf("/api/v1/states/%d/stuck", opts.StateID), params, &logs)
	return logs, err
}

// --- Entities ---

// LatestInFlow возвращает текущую запись сущности во flow.
func (c *Client) LatestInFlow(entityType, id string, flowID int) (*StateLogResponse, error) {
	var l StateLogResponse
	err := c.get(entityPath(entityType, id, flowID)+"/latest", &l)
	return &l, err
}

// History возвращает историю сущности во flow, от новых к старым.
func (c *Client) History(entityType, id string, flowID int) ([]StateLogResponse, error) {
	var logs []StateLogResponse
	err := c.list(entityPath(entityType, id, flowID)+"/history", nil, &logs)
	return logs, err
}

func entityPath(entityType, id string, flowID int) string {
	return fmt.Sprintf("/api/v1/entities/%s/%s/flows/%d",
		url.PathEscape(entityType), url.PathEscape(id), flowID)
}

// --- Import logs ---

// ListImportLogs возвращает последние запуски. Если source не пустой, фильтрует.
func (c *Client) ListImportLogs(source string, limit int) ([]ImportLogResponse, error) {
	params := url.Values{}
	if source != "" {
		params.Set("source", source)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var logs []ImportLogResponse
	err := c.list("/api/v1/import-logs", params, &logs)
	return logs, err
}

// GetImportLog возвращает запуск по ID.
func (c *Client) GetImportLog(id int64) (*ImportLogResponse, error) {
	var l ImportLogResponse
	err := c.get("/api/v1/import-logs/"+strconv.FormatInt(id, 10), &l)
	return &l, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
