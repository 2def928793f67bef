package sessiongate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginRejected    = "login_rejected"
	auditEventLoginTransient   = "login_transient_failure"
	auditEventMFARequired      = "mfa_required"
	auditEventMFASuccess       = "mfa_success"
	auditEventMFAFailure       = "mfa_failure"
	auditEventMFACancelled     = "mfa_cancelled"
	auditEventMFAResend        = "mfa_code_resent"
	auditEventRefreshSuccess   = "refresh_success"
	auditEventRefreshFailure   = "refresh_failure"
	auditEventValidateFailOpen = "validate_fail_open"
	auditEventForcedLogout     = "forced_logout"
	auditEventLogout           = "logout"
	auditEventLogoutAll        = "logout_all"
	auditEventPasswordChanged  = "password_changed"
	auditEventGateRedirect     = "gate_redirect"
)

type auditDispatcher struct {
	cfg       AuditConfig
	sink      AuditSink
	ch        chan AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan AuditEvent, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// emitAudit builds and dispatches an audit event. The metadata closure is
// only invoked when auditing is enabled.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID, email, tenantID, sessionID string,
	cause error,
	metadata func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		TenantID:  tenantID,
		SessionID: sessionID,
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}
