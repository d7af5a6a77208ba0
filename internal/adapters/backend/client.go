package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/ports"
	"github.com/bnema/agentfeed/internal/wire"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 30 * time.Second

	createSessionPath  = "/api/v2/sessions/create"
	executeTaskPath    = "/api/v2/tasks/execute"
	restoreSessionPath = "/api/v2/sessions/restore"
)

// TokenFunc returns the bearer token for the backend, or "" for none.
type TokenFunc func(ctx context.Context) (string, error)

// Client talks to the session backend over its JSON API.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Token          TokenFunc
	Tracer         trace.Tracer
}

var (
	_ ports.SessionCreator      = (*Client)(nil)
	_ ports.TaskExecutor        = (*Client)(nil)
	_ ports.RestorePointManager = (*Client)(nil)
	_ ports.SessionInspector    = (*Client)(nil)
)

type createSessionRequest struct {
	UserID        string `json:"user_id"`
	WorkspaceName string `json:"workspace_name,omitempty"`
}

type createSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

type executeTaskRequest struct {
	SessionID     string         `json:"session_id"`
	Description   string         `json:"description"`
	ExecutionMode string         `json:"execution_mode"`
	Priority      int            `json:"priority"`
	Language      string         `json:"language,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
}

type executeTaskResponse struct {
	TaskID string `json:"task_id"`
}

type restorePointRequest struct {
	SessionID      string `json:"session_id"`
	CheckpointName string `json:"checkpoint_name"`
}

type restorePointResponse struct {
	RestorePointID string `json:"restore_point_id"`
}

type restoreSessionRequest struct {
	RestorePointID  string `json:"restore_point_id"`
	TargetSessionID string `json:"target_session_id"`
}

type restoreSessionResponse struct {
	Success bool `json:"success"`
}

type sessionStatusResponse struct {
	Success              bool                   `json:"success"`
	SessionID            string                 `json:"session_id"`
	Active               bool                   `json:"active"`
	TransparencyActions  int                    `json:"transparency_actions"`
	WebsocketConnections int                    `json:"websocket_connections"`
	Metrics              backendMetricsResponse `json:"metrics"`
	LastActivity         *string                `json:"last_activity"`
}

type backendMetricsResponse struct {
	TotalTasks       int64   `json:"total_tasks"`
	SuccessfulTasks  int64   `json:"successful_tasks"`
	FailedTasks      int64   `json:"failed_tasks"`
	SuccessRate      float64 `json:"success_rate"`
	AvgExecutionTime float64 `json:"avg_execution_time"`
	ActiveSessions   int     `json:"active_sessions"`
}

type transparencyLogResponse struct {
	Success      bool              `json:"success"`
	SessionID    string            `json:"session_id"`
	AgentType    *string           `json:"agent_type"`
	TotalActions int               `json:"total_actions"`
	Actions      []json.RawMessage `json:"actions"`
}

type apiErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

func (c *Client) CreateSession(ctx context.Context, req domain.SessionCreateRequest) (domain.CreatedSession, error) {
	var resp createSessionResponse
	err := c.post(ctx, "create_session", createSessionPath, createSessionRequest{UserID: req.OwnerID, WorkspaceName: req.Workspace}, &resp)
	if err != nil {
		return domain.CreatedSession{}, err
	}
	if !resp.Success {
		return domain.CreatedSession{}, errors.New("create session: backend reported failure")
	}
	if resp.SessionID == "" {
		return domain.CreatedSession{}, errors.New("create session: response missing session id")
	}

	created := domain.CreatedSession{ID: domain.SessionID(resp.SessionID)}
	if resp.CreatedAt != "" {
		if at, err := wire.ParseTimestamp(resp.CreatedAt); err == nil {
			created.CreatedAt = at
		}
	}
	return created, nil
}

func (c *Client) ExecuteTask(ctx context.Context, req domain.TaskRequest) (domain.TaskID, error) {
	body := executeTaskRequest{
		SessionID:     string(req.SessionID),
		Description:   req.Description,
		ExecutionMode: string(req.Mode),
		Priority:      req.Priority,
		Language:      req.Language,
		Context:       req.Context,
	}

	var resp executeTaskResponse
	if err := c.post(ctx, "execute_task", executeTaskPath, body, &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", errors.New("execute task: response missing task id")
	}
	return domain.TaskID(resp.TaskID), nil
}

func (c *Client) CreateRestorePoint(ctx context.Context, sessionID domain.SessionID, checkpointName string) (domain.RestorePointID, error) {
	path := "/api/v2/sessions/" + url.PathEscape(string(sessionID)) + "/restore-point"

	var resp restorePointResponse
	if err := c.post(ctx, "create_restore_point", path, restorePointRequest{SessionID: string(sessionID), CheckpointName: checkpointName}, &resp); err != nil {
		return "", err
	}
	if resp.RestorePointID == "" {
		return "", errors.New("create restore point: response missing restore point id")
	}
	return domain.RestorePointID(resp.RestorePointID), nil
}

func (c *Client) RestoreSession(ctx context.Context, restorePointID domain.RestorePointID, target domain.SessionID) error {
	var resp restoreSessionResponse
	body := restoreSessionRequest{RestorePointID: string(restorePointID), TargetSessionID: string(target)}
	if err := c.post(ctx, "restore_session", restoreSessionPath, body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return errors.New("restore session: backend reported failure")
	}
	return nil
}

// SessionStatus reads the backend's status of sessionID, including the
// orchestrator-wide task metrics it reports alongside.
func (c *Client) SessionStatus(ctx context.Context, sessionID domain.SessionID) (domain.RemoteSessionStatus, error) {
	path := "/api/v2/sessions/" + url.PathEscape(string(sessionID)) + "/status"

	var resp sessionStatusResponse
	if err := c.get(ctx, "session_status", path, nil, &resp); err != nil {
		return domain.RemoteSessionStatus{}, err
	}
	if !resp.Success {
		return domain.RemoteSessionStatus{}, errors.New("session status: backend reported failure")
	}

	status := domain.RemoteSessionStatus{
		SessionID:            sessionID,
		Active:               resp.Active,
		TransparencyActions:  resp.TransparencyActions,
		WebsocketConnections: resp.WebsocketConnections,
		Metrics: domain.BackendMetrics{
			TotalTasks:       resp.Metrics.TotalTasks,
			SuccessfulTasks:  resp.Metrics.SuccessfulTasks,
			FailedTasks:      resp.Metrics.FailedTasks,
			SuccessRate:      resp.Metrics.SuccessRate,
			AvgExecutionTime: resp.Metrics.AvgExecutionTime,
			ActiveSessions:   resp.Metrics.ActiveSessions,
		},
	}
	if resp.LastActivity != nil && *resp.LastActivity != "" {
		at, err := wire.ParseTimestamp(*resp.LastActivity)
		if err != nil {
			return domain.RemoteSessionStatus{}, fmt.Errorf("decode session_status last_activity: %w", err)
		}
		status.LastActivity = at
	}
	return status, nil
}

// TransparencyLog fetches the backend's action log of sessionID. Records that
// fail validation are skipped and counted.
func (c *Client) TransparencyLog(ctx context.Context, sessionID domain.SessionID, agent domain.AgentType) (domain.TransparencyLog, error) {
	path := "/api/v2/transparency/" + url.PathEscape(string(sessionID))
	var query url.Values
	if agent != "" {
		query = url.Values{"agent_type": {string(agent)}}
	}

	var resp transparencyLogResponse
	if err := c.get(ctx, "transparency_log", path, query, &resp); err != nil {
		return domain.TransparencyLog{}, err
	}
	if !resp.Success {
		return domain.TransparencyLog{}, errors.New("transparency log: backend reported failure")
	}

	log := domain.TransparencyLog{
		SessionID: sessionID,
		AgentType: agent,
		Actions:   make([]domain.ActionRecord, 0, len(resp.Actions)),
	}
	for _, raw := range resp.Actions {
		record, err := wire.DecodeAction(raw)
		if err != nil {
			log.Skipped++
			continue
		}
		log.Actions = append(log.Actions, record)
	}
	return log, nil
}

func (c *Client) post(ctx context.Context, operation string, path string, body any, out any) error {
	return c.call(ctx, operation, http.MethodPost, path, nil, body, out)
}

func (c *Client) get(ctx context.Context, operation string, path string, query url.Values, out any) error {
	return c.call(ctx, operation, http.MethodGet, path, query, nil, out)
}

func (c *Client) call(ctx context.Context, operation string, method string, path string, query url.Values, body any, out any) error {
	ctx, span := c.tracer().Start(ctx, "backend."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.route", path),
			attribute.String("http.request.method", method),
		),
	)
	defer span.End()

	err := c.do(ctx, operation, method, path, query, body, out, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) do(ctx context.Context, operation string, method string, path string, query url.Values, body any, out any, span trace.Span) error {
	endpoint, err := buildAPIURL(c.BaseURL, path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", operation, err)
		}
		payload = bytes.NewReader(data)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}

	requestID := uuid.NewString()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	span.SetAttributes(attribute.String("request.id", requestID))

	if c.Token != nil {
		token, err := c.Token(ctx)
		if err != nil {
			return fmt.Errorf("read backend token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", strings.ReplaceAll(operation, "_", " "), err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s: %s", strings.ReplaceAll(operation, "_", " "), decodeAPIError(resp))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}
	return noop.NewTracerProvider().Tracer("")
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// decodeAPIError reads the {"detail": ...} body the backend returns on errors.
// detail is a string for domain errors and a list for validation errors.
func decodeAPIError(resp *http.Response) string {
	var apiErr apiErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&apiErr); err != nil || len(apiErr.Detail) == 0 {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}

	var detail string
	if err := json.Unmarshal(apiErr.Detail, &detail); err == nil {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, detail)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, apiErr.Detail); err != nil {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, compact.String())
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("backend url is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("backend url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("backend url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}
