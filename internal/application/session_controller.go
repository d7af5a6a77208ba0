package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bnema/agentfeed/internal/domain"
	"github.com/bnema/agentfeed/internal/logging"
	"github.com/bnema/agentfeed/internal/ports"
	"github.com/bnema/agentfeed/internal/telemetry"
)

const defaultCallTimeout = 30 * time.Second

type SessionControllerDeps struct {
	Creator       ports.SessionCreator
	Tasks         ports.TaskExecutor
	RestorePoints ports.RestorePointManager
	Inspector     ports.SessionInspector
	Repository    ports.SessionRepository
	Channels      *ChannelRegistry
	Clock         ports.Clock
}

type ControllerOptions struct {
	MaxActions  int
	CallTimeout time.Duration
	Stats       *telemetry.Stats
	Logger      *slog.Logger
}

type sessionEntry struct {
	session domain.Session
	feed    *telemetry.Feed
	// channel is the attachment behind an active session, nil otherwise.
	channel *EventChannel
}

// SessionController owns the sessions of this process and the one Feed each
// of them has. Collaborator calls run under CallTimeout.
type SessionController struct {
	creator  ports.SessionCreator
	tasks    ports.TaskExecutor
	restore  ports.RestorePointManager
	inspect  ports.SessionInspector
	repo     ports.SessionRepository
	channels *ChannelRegistry
	clock    ports.Clock
	opts     ControllerOptions
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[domain.SessionID]*sessionEntry
}

func NewSessionController(deps SessionControllerDeps, opts ControllerOptions) *SessionController {
	clock := deps.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}

	return &SessionController{
		creator:  deps.Creator,
		tasks:    deps.Tasks,
		restore:  deps.RestorePoints,
		inspect:  deps.Inspector,
		repo:     deps.Repository,
		channels: deps.Channels,
		clock:    clock,
		opts:     opts,
		logger:   logging.Component(opts.Logger, "controller"),
		sessions: map[domain.SessionID]*sessionEntry{},
	}
}

func (c *SessionController) CreateSession(ctx context.Context, ownerID string, workspace string) (domain.Session, error) {
	if strings.TrimSpace(ownerID) == "" {
		return domain.Session{}, errors.New("owner id is required")
	}
	if c.creator == nil {
		return domain.Session{}, fmt.Errorf("create session: %w", errors.Join(domain.ErrSessionCreateFailed, errors.New("no session backend configured")))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	created, err := c.creator.CreateSession(callCtx, domain.SessionCreateRequest{OwnerID: ownerID, Workspace: workspace})
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", errors.Join(domain.ErrSessionCreateFailed, err))
	}
	if strings.TrimSpace(string(created.ID)) == "" {
		return domain.Session{}, fmt.Errorf("create session: %w", errors.Join(domain.ErrSessionCreateFailed, errors.New("backend returned an empty session id")))
	}

	createdAt := created.CreatedAt
	if createdAt.IsZero() {
		createdAt = c.clock.Now()
	}

	session := domain.Session{
		ID:        created.ID,
		OwnerID:   ownerID,
		Workspace: workspace,
		CreatedAt: createdAt,
		State:     domain.SessionStateCreated,
	}

	c.mu.Lock()
	c.sessions[session.ID] = &sessionEntry{session: session, feed: c.newFeed(session.ID)}
	c.mu.Unlock()

	c.persist(ctx, session)
	c.logger.Info("session created", "session_id", string(session.ID), "workspace", workspace)

	return session, nil
}

// ResumeSession brings a session recorded by an earlier process back under
// this controller. Telemetry attachment does not survive a process, so an
// active session resumes as created.
func (c *SessionController) ResumeSession(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	c.mu.RLock()
	entry, ok := c.sessions[id]
	c.mu.RUnlock()
	if ok {
		return c.snapshotOf(entry), nil
	}

	if c.repo == nil {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	session, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	if session.State == domain.SessionStateActive {
		session.State = domain.SessionStateCreated
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.sessions[id]; ok {
		return copySession(entry.session), nil
	}
	c.sessions[id] = &sessionEntry{session: session, feed: c.newFeed(id)}

	return session, nil
}

func (c *SessionController) Session(id domain.SessionID) (domain.Session, error) {
	entry, err := c.entry(id)
	if err != nil {
		return domain.Session{}, err
	}
	return c.snapshotOf(entry), nil
}

// Sessions lists recorded sessions merged with the ones held in memory,
// oldest first.
func (c *SessionController) Sessions(ctx context.Context) ([]domain.Session, error) {
	byID := map[domain.SessionID]domain.Session{}

	if c.repo != nil {
		stored, err := c.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		for _, session := range stored {
			if session.State == domain.SessionStateActive {
				session.State = domain.SessionStateCreated
			}
			byID[session.ID] = session
		}
	}

	c.mu.RLock()
	for id, entry := range c.sessions {
		byID[id] = copySession(entry.session)
	}
	c.mu.RUnlock()

	sessions := make([]domain.Session, 0, len(byID))
	for _, session := range byID {
		sessions = append(sessions, session)
	}
	slices.SortFunc(sessions, func(a, b domain.Session) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return sessions, nil
}

func (c *SessionController) ExecuteTask(ctx context.Context, sessionID domain.SessionID, req domain.TaskRequest) (domain.TaskID, error) {
	req.SessionID = sessionID
	if req.Mode == "" {
		req.Mode = domain.ModeHybrid
	}
	if req.Priority == 0 {
		req.Priority = domain.DefaultTaskPriority
	}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("validate task: %w", err)
	}

	if _, err := c.openSession(ctx, sessionID); err != nil {
		return "", err
	}
	if c.tasks == nil {
		return "", fmt.Errorf("execute task: %w", errors.Join(domain.ErrTaskSubmitFailed, errors.New("no task backend configured")))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	taskID, err := c.tasks.ExecuteTask(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("execute task: %w", errors.Join(domain.ErrTaskSubmitFailed, err))
	}

	c.logger.Info("task submitted", "session_id", string(sessionID), "task_id", string(taskID), "mode", string(req.Mode))
	return taskID, nil
}

func (c *SessionController) CreateRestorePoint(ctx context.Context, sessionID domain.SessionID, label string) (domain.RestorePointRef, error) {
	if _, err := c.openSession(ctx, sessionID); err != nil {
		return domain.RestorePointRef{}, err
	}
	if c.restore == nil {
		return domain.RestorePointRef{}, fmt.Errorf("create restore point: %w", errors.Join(domain.ErrRestorePointFailed, errors.New("no restore backend configured")))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	pointID, err := c.restore.CreateRestorePoint(callCtx, sessionID, label)
	if err != nil {
		return domain.RestorePointRef{}, fmt.Errorf("create restore point: %w", errors.Join(domain.ErrRestorePointFailed, err))
	}

	ref := domain.RestorePointRef{ID: pointID, Label: label, CreatedAt: c.clock.Now()}

	c.mu.Lock()
	entry := c.sessions[sessionID]
	entry.session.RestorePoints = append(entry.session.RestorePoints, ref)
	session := copySession(entry.session)
	c.mu.Unlock()

	c.persist(ctx, session)
	return ref, nil
}

// RestoreSession asks the backend to roll target back to a restore point.
func (c *SessionController) RestoreSession(ctx context.Context, pointID domain.RestorePointID, target domain.SessionID) error {
	if strings.TrimSpace(string(pointID)) == "" {
		return errors.New("restore point id is required")
	}
	if _, err := c.openSession(ctx, target); err != nil {
		return err
	}
	if c.restore == nil {
		return fmt.Errorf("restore session: %w", errors.Join(domain.ErrRestorePointFailed, errors.New("no restore backend configured")))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	if err := c.restore.RestoreSession(callCtx, pointID, target); err != nil {
		return fmt.Errorf("restore session: %w", errors.Join(domain.ErrRestorePointFailed, err))
	}

	c.logger.Info("session restored", "session_id", string(target), "restore_point_id", string(pointID))
	return nil
}

// AttachTelemetry opens the session's live channel into its Feed. The channel
// stops when ctx is cancelled, when it runs out of reconnects, or when the
// session is detached or closed. Whichever comes first, the session leaves
// the active state.
func (c *SessionController) AttachTelemetry(ctx context.Context, sessionID domain.SessionID) (*telemetry.Feed, error) {
	if c.channels == nil {
		return nil, errors.New("no event source configured")
	}

	entry, err := c.openSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	channel, err := c.channels.Open(ctx, sessionID, entry.feed)
	if err != nil {
		return nil, fmt.Errorf("attach telemetry: %w", err)
	}

	c.mu.Lock()
	entry.channel = channel
	if !entry.session.Closed() {
		entry.session.State = domain.SessionStateActive
	}
	c.mu.Unlock()

	go c.watchChannel(entry, channel)

	c.logger.Info("telemetry attached", "session_id", string(sessionID))
	return entry.feed, nil
}

// watchChannel drops the session out of active once channel's read loop has
// exited, unless a newer attach has replaced it.
func (c *SessionController) watchChannel(entry *sessionEntry, channel *EventChannel) {
	<-channel.Done()

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.channel != channel {
		return
	}
	entry.channel = nil
	if entry.session.State == domain.SessionStateActive {
		entry.session.State = domain.SessionStateCreated
		c.logger.Info("telemetry ended", "session_id", string(channel.SessionID()))
	}
}

// DetachTelemetry closes the channel but keeps the Feed, so a later attach
// continues the same log.
func (c *SessionController) DetachTelemetry(sessionID domain.SessionID) error {
	entry, err := c.entry(sessionID)
	if err != nil {
		return err
	}

	if c.channels != nil {
		c.channels.Close(sessionID)
	}

	c.mu.Lock()
	entry.channel = nil
	if entry.session.State == domain.SessionStateActive {
		entry.session.State = domain.SessionStateCreated
	}
	c.mu.Unlock()

	return nil
}

// CloseSession is terminal. Closing a closed session is a no-op.
func (c *SessionController) CloseSession(ctx context.Context, sessionID domain.SessionID) error {
	if _, err := c.ResumeSession(ctx, sessionID); err != nil {
		return err
	}
	entry, err := c.entry(sessionID)
	if err != nil {
		return err
	}

	if c.channels != nil {
		c.channels.Close(sessionID)
	}

	c.mu.Lock()
	entry.channel = nil
	if entry.session.Closed() {
		c.mu.Unlock()
		return nil
	}
	entry.session.State = domain.SessionStateClosed
	session := copySession(entry.session)
	c.mu.Unlock()

	c.persist(ctx, session)
	c.logger.Info("session closed", "session_id", string(sessionID))
	return nil
}

func (c *SessionController) Feed(sessionID domain.SessionID) (*telemetry.Feed, error) {
	entry, err := c.entry(sessionID)
	if err != nil {
		return nil, err
	}
	return entry.feed, nil
}

func (c *SessionController) Status(sessionID domain.SessionID) (SessionStatus, error) {
	entry, err := c.entry(sessionID)
	if err != nil {
		return SessionStatus{}, err
	}

	return SessionStatus{
		Session:       c.snapshotOf(entry),
		ChannelState:  entry.feed.ChannelState(),
		Metrics:       entry.feed.Metrics(),
		LoggedActions: entry.feed.Len(),
		DecodeErrors:  entry.feed.DecodeErrors(),
		LastActivity:  entry.feed.LastActivity(),
	}, nil
}

// RemoteStatus asks the backend for its own view of the session.
func (c *SessionController) RemoteStatus(ctx context.Context, sessionID domain.SessionID) (domain.RemoteSessionStatus, error) {
	if _, err := c.ResumeSession(ctx, sessionID); err != nil {
		return domain.RemoteSessionStatus{}, err
	}
	if c.inspect == nil {
		return domain.RemoteSessionStatus{}, fmt.Errorf("session status: %w", errors.Join(domain.ErrBackendQueryFailed, errors.New("no session backend configured")))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	status, err := c.inspect.SessionStatus(callCtx, sessionID)
	if err != nil {
		return domain.RemoteSessionStatus{}, fmt.Errorf("session status: %w", errors.Join(domain.ErrBackendQueryFailed, err))
	}
	return status, nil
}

// BackfillLog fetches the backend's action log and applies it to the
// session's Feed. Records already seen live are absorbed as duplicates, so a
// backfill can run before, during or after an attachment.
func (c *SessionController) BackfillLog(ctx context.Context, sessionID domain.SessionID, agent domain.AgentType) (BackfillResult, error) {
	if _, err := c.ResumeSession(ctx, sessionID); err != nil {
		return BackfillResult{}, err
	}
	entry, err := c.entry(sessionID)
	if err != nil {
		return BackfillResult{}, err
	}
	if c.inspect == nil {
		return BackfillResult{}, fmt.Errorf("backfill log: %w", errors.Join(domain.ErrBackendQueryFailed, errors.New("no session backend configured")))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	log, err := c.inspect.TransparencyLog(callCtx, sessionID, agent)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("backfill log: %w", errors.Join(domain.ErrBackendQueryFailed, err))
	}

	result := BackfillResult{Fetched: len(log.Actions), Skipped: log.Skipped}
	for _, record := range log.Actions {
		outcome, err := entry.feed.Apply(domain.ActionEvent(record))
		switch {
		case err != nil:
			result.Rejected++
			c.logger.Warn("backfilled record rejected", "session_id", string(sessionID), "action_id", string(record.ID), "error", err)
		case outcome == telemetry.OutcomeDuplicate:
			result.Duplicates++
		default:
			result.Appended++
		}
	}

	c.logger.Info("log backfilled",
		"session_id", string(sessionID),
		"agent_type", string(agent),
		"fetched", result.Fetched,
		"appended", result.Appended,
		"duplicates", result.Duplicates,
	)
	return result, nil
}

// ExportSnapshot copies the session's log and metrics for export or replay.
func (c *SessionController) ExportSnapshot(sessionID domain.SessionID) (domain.Snapshot, error) {
	entry, err := c.entry(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return entry.feed.Snapshot(), nil
}

// ClearFeed empties the session log. Metrics are reset only when asked.
func (c *SessionController) ClearFeed(sessionID domain.SessionID, resetMetrics bool) error {
	entry, err := c.entry(sessionID)
	if err != nil {
		return err
	}

	entry.feed.ClearLog()
	if resetMetrics {
		entry.feed.ResetMetrics()
	}
	return nil
}

// Shutdown closes every open channel.
func (c *SessionController) Shutdown() {
	if c.channels != nil {
		c.channels.CloseAll()
	}
}

func (c *SessionController) openSession(ctx context.Context, id domain.SessionID) (*sessionEntry, error) {
	if _, err := c.ResumeSession(ctx, id); err != nil {
		return nil, err
	}
	entry, err := c.entry(id)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	closed := entry.session.Closed()
	c.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionClosed, id)
	}

	return entry, nil
}

func (c *SessionController) entry(id domain.SessionID) (*sessionEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return entry, nil
}

func (c *SessionController) snapshotOf(entry *sessionEntry) domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copySession(entry.session)
}

func (c *SessionController) newFeed(id domain.SessionID) *telemetry.Feed {
	return telemetry.NewFeed(id, telemetry.FeedOptions{
		MaxActions: c.opts.MaxActions,
		Clock:      c.clock,
		Stats:      c.opts.Stats,
		Logger:     c.opts.Logger,
	})
}

func (c *SessionController) persist(ctx context.Context, session domain.Session) {
	if c.repo == nil {
		return
	}
	if err := c.repo.Save(ctx, session); err != nil {
		c.logger.Warn("session not recorded", "session_id", string(session.ID), "error", err)
	}
}

func copySession(session domain.Session) domain.Session {
	session.RestorePoints = slices.Clone(session.RestorePoints)
	return session
}
